package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yourusername/byok/internal/config"
	"github.com/yourusername/byok/internal/logging"
	"github.com/yourusername/byok/internal/metrics"
	"github.com/yourusername/byok/internal/provider"
	"github.com/yourusername/byok/internal/server"
	"github.com/yourusername/byok/internal/service"
	"github.com/yourusername/byok/internal/store"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "byok",
		Short: "byok - bring-your-own-key model access",
		Long: `byok validates vendor API keys, verifies which models a key can use,
maintains per-key model catalogs and runs chat calls across providers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Flags
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/byok/byok.yaml)")
	rootCmd.PersistentFlags().StringP("provider", "p", "", "Provider ("+joinIDs()+")")
	rootCmd.PersistentFlags().String("key", "", "API key (defaults to config, environment or prompt)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (console, json)")

	rootCmd.AddCommand(
		providersCmd(),
		validateCmd(),
		verifyCmd(),
		statusCmd(),
		callCmd(),
		modelsCmd(),
		proxyCmd(),
		serveCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

// app carries what every command needs once flags are applied.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	svc     *service.Service
	metrics *metrics.Metrics
}

func (a *app) Close() {
	if err := a.svc.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if p, _ := cmd.Flags().GetString("provider"); p != "" {
		cfg.Provider = p
	}
	if l, _ := cmd.Flags().GetString("log-level"); l != "" {
		cfg.LogLevel = l
	}
	if f, _ := cmd.Flags().GetString("log-format"); f != "" {
		cfg.LogFormat = f
	}
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}

	db, err := store.OpenSQLite(cfg.StorePath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	m := metrics.New()
	retry := cfg.RetryPolicy()
	svc, err := service.New(service.Options{
		Store:            db,
		BaseURLs:         cfg.BaseURLs(),
		Logger:           log,
		Observer:         m,
		ProxyURL:         cfg.ProxyURL,
		ProxyMinInterval: cfg.Catalog.ProxyMinInterval,
		ChatTimeout:      cfg.Timeouts.Chat,
		ListTimeout:      cfg.Timeouts.List,
		ProbeTimeout:     cfg.Timeouts.Probe,
		Retry:            &retry,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &app{cfg: cfg, log: log, svc: svc, metrics: m}, nil
}

// resolveProvider reads an optional "provider/model" argument. A bare model
// uses the --provider flag or the configured default.
func (a *app) resolveProvider(spec string) (provider.ID, string, error) {
	p, model := provider.ParseModel(spec)
	if p == "" {
		p = provider.ID(a.cfg.Provider)
	}
	if !provider.IsKnown(p) {
		return "", "", fmt.Errorf("%w: %q", provider.ErrUnsupportedProvider, p)
	}
	return p, model, nil
}

// resolveKey returns --key, then the configured key, then prompts.
func (a *app) resolveKey(cmd *cobra.Command, p provider.ID) (string, error) {
	if k, _ := cmd.Flags().GetString("key"); strings.TrimSpace(k) != "" {
		return strings.TrimSpace(k), nil
	}
	if k := a.cfg.GetAPIKey(string(p)); k != "" {
		return k, nil
	}
	d, _ := provider.Lookup(p)
	return config.ReadKey(fmt.Sprintf("%s API key: ", d.Name))
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func joinIDs() string {
	ids := provider.IDs()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	return strings.Join(names, ", ")
}

// ---------------------------------------------------------------------------
// providers command
// ---------------------------------------------------------------------------

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List supported providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			configured := make(map[provider.ID]bool)
			for _, id := range cfg.ConfiguredProviders() {
				configured[id] = true
			}

			fmt.Printf("%-12s %-14s %-40s %-6s %s\n", "ID", "Name", "Default model", "List", "Key")
			fmt.Println(strings.Repeat("-", 84))
			for _, id := range provider.IDs() {
				d, _ := provider.Lookup(id)
				key := dimStyle.Render("-")
				if configured[id] {
					key = availableStyle.Render("set")
				}
				fmt.Printf("%-12s %-14s %-40s %-6s %s\n", id, d.Name, d.DefaultModel, yesNo(d.HasListEndpoint), key)
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// validate command
// ---------------------------------------------------------------------------

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [provider...]",
		Short: "Check that API keys are accepted",
		Long: `Validate the key for each named provider, or the default provider.
With --all, every provider with a configured key is validated concurrently.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx, cancel := signalContext()
			defer cancel()

			all, _ := cmd.Flags().GetBool("all")
			if all {
				keys := make(map[provider.ID]string)
				for _, id := range a.cfg.ConfiguredProviders() {
					keys[id] = a.cfg.GetAPIKey(string(id))
				}
				if len(keys) == 0 {
					return fmt.Errorf("no provider keys configured")
				}
				results := a.svc.ValidateAPIKeys(ctx, keys)
				for _, id := range provider.IDs() {
					if ok, found := results[id]; found {
						printValidity(id, ok)
					}
				}
				return nil
			}

			if len(args) == 0 {
				args = []string{a.cfg.Provider}
			}
			for _, name := range args {
				id := provider.ID(name)
				if !provider.IsKnown(id) {
					return fmt.Errorf("%w: %q", provider.ErrUnsupportedProvider, name)
				}
				key, err := a.resolveKey(cmd, id)
				if err != nil {
					return err
				}
				printValidity(id, a.svc.ValidateAPIKey(ctx, id, key))
			}
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "Validate every configured provider key")
	return cmd
}

// ---------------------------------------------------------------------------
// verify / status commands
// ---------------------------------------------------------------------------

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <[provider/]model>...",
		Short: "Check whether models are callable with your key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx, cancel := signalContext()
			defer cancel()

			keys := make(map[provider.ID]string)
			for _, spec := range args {
				p, model, err := a.resolveProvider(spec)
				if err != nil {
					return err
				}
				key, ok := keys[p]
				if !ok {
					if key, err = a.resolveKey(cmd, p); err != nil {
						return err
					}
					keys[p] = key
				}
				result := a.svc.VerifyModelAvailability(ctx, p, key, model)
				fmt.Printf("%-12s %-44s %s\n", p, model, renderResult(result))
			}
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [[provider/]model]",
		Short: "Show the cached verification result without network access",
		Long: `Show the cached result for a model, or for the key itself when no model
is given. Nothing is sent to the vendor.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			spec := ""
			if len(args) > 0 {
				spec = args[0]
			}
			p, model, err := a.resolveProvider(spec)
			if err != nil {
				return err
			}
			key, err := a.resolveKey(cmd, p)
			if err != nil {
				return err
			}

			label := model
			if label == "" {
				label = "(key)"
			}
			result, ok := a.svc.GetStoredVerificationStatus(cmd.Context(), p, key, model)
			if !ok {
				fmt.Printf("%-12s %-44s %s\n", p, label, dimStyle.Render("not checked"))
				return nil
			}
			fmt.Printf("%-12s %-44s %s\n", p, label, renderResult(result))
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// call command
// ---------------------------------------------------------------------------

func callCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call [message]",
		Short: "Send one chat message",
		Long:  "Send a single message and print the reply. Reads stdin when no message is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx, cancel := signalContext()
			defer cancel()

			modelSpec, _ := cmd.Flags().GetString("model")
			if modelSpec == "" {
				modelSpec = a.cfg.Model
			}
			p, model, err := a.resolveProvider(modelSpec)
			if err != nil {
				return err
			}
			key, err := a.resolveKey(cmd, p)
			if err != nil {
				return err
			}

			var message string
			if len(args) > 0 {
				message = args[0]
			} else {
				data, err := readAll(os.Stdin)
				if err != nil {
					return err
				}
				message = data
			}

			params := provider.CallParams{
				Key:      key,
				Model:    model,
				Messages: []provider.Message{{Role: "user", Content: message}},
			}
			params.System, _ = cmd.Flags().GetString("system")
			params.MaxTokens, _ = cmd.Flags().GetInt("max-tokens")
			params.ReasoningEffort, _ = cmd.Flags().GetString("reasoning-effort")
			params.ThinkingBudget, _ = cmd.Flags().GetInt("thinking-budget")
			if cmd.Flags().Changed("temperature") {
				t, _ := cmd.Flags().GetFloat64("temperature")
				params.Temperature = &t
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				params.ResponseFormat = provider.ResponseFormatJSON
			}

			result, err := a.svc.CallAPI(ctx, p, params)
			if err != nil {
				return provider.MakeUserFriendly(err, p)
			}

			if result.Reasoning != "" {
				fmt.Println(dimStyle.Render(result.Reasoning))
				fmt.Println()
			}
			fmt.Println(result.Content)
			fmt.Fprintln(os.Stderr, dimStyle.Render(fmt.Sprintf("%s  %d in / %d out tokens",
				result.Model, result.Usage.InputTokens, result.Usage.OutputTokens)))
			return nil
		},
	}
	cmd.Flags().StringP("model", "m", "", "Model to use (provider/model format supported)")
	cmd.Flags().StringP("system", "s", "", "System prompt")
	cmd.Flags().Int("max-tokens", 0, "Maximum output tokens")
	cmd.Flags().Float64("temperature", 0, "Sampling temperature")
	cmd.Flags().String("reasoning-effort", "", "Reasoning effort (low, medium, high)")
	cmd.Flags().Int("thinking-budget", 0, "Thinking token budget")
	cmd.Flags().Bool("json", false, "Request a JSON object response")
	return cmd
}

// ---------------------------------------------------------------------------
// models command (parent with list and refresh subcommands)
// ---------------------------------------------------------------------------

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect and refresh model catalogs",
	}

	listCmd := &cobra.Command{
		Use:     "list [provider]",
		Aliases: []string{"ls"},
		Short:   "List the stored catalog for a provider",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			p := provider.ID(a.cfg.Provider)
			if len(args) > 0 {
				p = provider.ID(args[0])
			}
			models, source, err := a.svc.StoredModels(cmd.Context(), p)
			if err != nil {
				return err
			}
			printModels(p, models, source)
			return nil
		},
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh [provider]",
		Short: "Rebuild a provider's catalog from the models your key can list",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx, cancel := signalContext()
			defer cancel()

			p := provider.ID(a.cfg.Provider)
			if len(args) > 0 {
				p = provider.ID(args[0])
			}
			if !provider.IsKnown(p) {
				return fmt.Errorf("%w: %q", provider.ErrUnsupportedProvider, p)
			}
			key, err := a.resolveKey(cmd, p)
			if err != nil {
				return err
			}
			models, err := a.svc.RefreshUserModels(ctx, p, key)
			if err != nil {
				return provider.MakeUserFriendly(err, p)
			}
			if models == nil {
				fmt.Println(uncertainStyle.Render("Vendor listed no models; stored catalog kept."))
				return nil
			}
			printModels(p, models, "refreshed")
			return nil
		},
	}

	cmd.AddCommand(listCmd, refreshCmd)
	return cmd
}

// ---------------------------------------------------------------------------
// proxy command
// ---------------------------------------------------------------------------

func proxyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Manage the shared proxy catalog",
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Download the proxy catalog for every provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx, cancel := signalContext()
			defer cancel()

			force, _ := cmd.Flags().GetBool("force")
			counts, err := a.svc.RefreshAllModelsFromProxy(ctx, force)
			if err != nil {
				return err
			}
			for _, id := range provider.IDs() {
				if n, ok := counts[id]; ok {
					fmt.Printf("%-12s %d models\n", id, n)
				}
			}
			if at, ok := a.svc.LastRefresh(ctx); ok {
				fmt.Println(dimStyle.Render("Last per-key refresh: " + at.Format(time.RFC3339)))
			}
			return nil
		},
	}
	refreshCmd.Flags().Bool("force", false, "Refresh even if the stored snapshot is recent")

	cmd.AddCommand(refreshCmd)
	return cmd
}

// ---------------------------------------------------------------------------
// serve command
// ---------------------------------------------------------------------------

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long:  "Start a local HTTP API server exposing key validation, verification, catalogs and chat.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			srv := server.New(a.svc, server.Options{
				Addr:        a.cfg.Server.Addr(),
				Version:     version,
				Logger:      a.log,
				Metrics:     a.metrics.Handler(),
				CORSOrigins: a.cfg.Server.CORS,
			})

			ctx, cancel := signalContext()
			defer cancel()
			go func() {
				<-ctx.Done()
				a.log.Info().Msg("shutting down server")
				if err := srv.Stop(); err != nil {
					a.log.Error().Err(err).Msg("shutdown failed")
				}
			}()

			return srv.Start()
		},
	}
	cmd.Flags().IntP("port", "P", 4097, "Port to listen on")
	return cmd
}

// ---------------------------------------------------------------------------
// config command
// ---------------------------------------------------------------------------

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show configuration and manage stored keys",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (keys omitted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if f := cfg.ConfigFile(); f != "" {
				fmt.Println(dimStyle.Render("# " + f))
			}
			fmt.Println(cfg.String())
			return nil
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show config locations and precedence",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Config directory: %s\n", config.GetConfigDir())
			fmt.Printf("Credentials:      %s\n\n", config.CredentialsPath())
			fmt.Println(config.GetConfigPrecedence())
		},
	}

	setKeyCmd := &cobra.Command{
		Use:   "set-key <provider>",
		Short: "Store an API key for a provider",
		Long:  "Store an API key in the credentials file. The key is read from --key, or prompted for without echo.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := provider.ID(args[0])
			if !provider.IsKnown(id) {
				return fmt.Errorf("%w: %q", provider.ErrUnsupportedProvider, args[0])
			}
			key, _ := cmd.Flags().GetString("key")
			if strings.TrimSpace(key) == "" {
				d, _ := provider.Lookup(id)
				var err error
				if key, err = config.ReadKey(fmt.Sprintf("%s API key: ", d.Name)); err != nil {
					return err
				}
			}
			if err := config.CheckKeyFormat(args[0], key); err != nil {
				fmt.Fprintln(os.Stderr, uncertainStyle.Render("Warning: "+err.Error()))
			}

			path := config.CredentialsPath()
			creds, err := config.LoadCredentials(path)
			if err != nil {
				return err
			}
			creds.SetKey(args[0], key)
			if err := config.SaveCredentials(path, creds); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}
			fmt.Println(availableStyle.Render("Saved") + " key for " + args[0])

			if check, _ := cmd.Flags().GetBool("validate"); check {
				a, err := setup(cmd)
				if err != nil {
					return err
				}
				defer a.Close()
				printValidity(id, a.svc.ValidateAPIKey(cmd.Context(), id, key))
			}
			return nil
		},
	}
	setKeyCmd.Flags().Bool("validate", false, "Validate the key after saving")

	cmd.AddCommand(showCmd, pathCmd, setKeyCmd)
	return cmd
}

// ---------------------------------------------------------------------------
// version command
// ---------------------------------------------------------------------------

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("byok %s (%s)\n", version, commit)
		},
	}
}
