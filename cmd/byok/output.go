package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yourusername/byok/internal/provider"
	"github.com/yourusername/byok/internal/verify"
)

var (
	availableStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	unavailableStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	uncertainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	headerStyle      = lipgloss.NewStyle().Bold(true).Underline(true)
)

func renderResult(r verify.Result) string {
	switch r {
	case verify.Available:
		return availableStyle.Render(string(r))
	case verify.Unavailable:
		return unavailableStyle.Render(string(r))
	default:
		return uncertainStyle.Render(string(r))
	}
}

func printValidity(p provider.ID, ok bool) {
	status := unavailableStyle.Render("invalid")
	if ok {
		status = availableStyle.Render("valid")
	}
	fmt.Printf("%-12s %s\n", p, status)
}

func printModels(p provider.ID, models []provider.ModelVariant, source string) {
	fmt.Println(headerStyle.Render(fmt.Sprintf("%s models (%s, %d)", p, source, len(models))))
	fmt.Printf("%-48s %-9s %-9s %-14s %s\n", "Model", "Context", "Output", "$/1M in/out", "Capabilities")
	fmt.Println(strings.Repeat("-", 110))
	for _, m := range models {
		name := m.ID
		if m.IsNew {
			name += " " + availableStyle.Render("new")
		}
		caps := make([]string, len(m.Capabilities))
		for i, c := range m.Capabilities {
			caps[i] = string(c)
		}
		fmt.Printf("%-48s %-9s %-9s %-14s %s\n",
			name,
			formatContextSize(m.ContextWindow),
			formatContextSize(m.MaxOutputTokens),
			fmt.Sprintf("%g/%g", m.CostPer1MInput, m.CostPer1MOutput),
			strings.Join(caps, ","))
	}
}

func formatContextSize(tokens int) string {
	switch {
	case tokens <= 0:
		return "-"
	case tokens >= 1000000:
		return fmt.Sprintf("%.1fM", float64(tokens)/1000000)
	case tokens >= 1000:
		return fmt.Sprintf("%dK", tokens/1000)
	default:
		return fmt.Sprintf("%d", tokens)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		return "", fmt.Errorf("no message given")
	}
	return msg, nil
}
