package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
)

// Credentials stores vendor keys entered through the CLI.
type Credentials struct {
	Keys map[string]string `json:"keys,omitempty"`
}

// SetKey stores or, with an empty key, removes a provider's key.
func (c *Credentials) SetKey(providerName, key string) {
	key = strings.TrimSpace(key)
	if key == "" {
		delete(c.Keys, providerName)
		return
	}
	if c.Keys == nil {
		c.Keys = make(map[string]string)
	}
	c.Keys[providerName] = key
}

// CredentialsPath returns the path to the credentials file
func CredentialsPath() string {
	return filepath.Join(GetConfigDir(), "credentials.json")
}

// LoadCredentials loads stored credentials. A missing file is empty.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{}, nil
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return &creds, nil
}

// SaveCredentials writes credentials readable by the owner only.
func SaveCredentials(path string, creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ReadKey prompts for a key on stderr. A terminal stdin is read without
// echo; piped input is read up to the first newline.
func ReadKey(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return readLine(os.Stdin)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("no API key provided")
	}
	return line, nil
}
