package cmd

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/isajjim/estimator/internal/api"
	"github.com/isajjim/estimator/internal/config"
	"github.com/isajjim/estimator/internal/images"
	"github.com/isajjim/estimator/internal/session"
	"github.com/isajjim/estimator/internal/upload"
	"github.com/isajjim/estimator/internal/utils"
)

type configKey struct{}

func NewRootCmd() *cobra.Command {
	var configPath string
	var apiURL string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "estimator",
		Short: "Moving-quote estimate client",
		Long: `Estimator uploads room photos, creates a moving estimate, submits the
property details and waits for the furniture analysis to finish.

The analysed inventory can be reviewed, adjusted and exported.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if apiURL != "" {
				cfg.APIURL = apiURL
			}
			level := cfg.LogLevel
			if verbose {
				level = "debug"
			}
			utils.InitLogger(level, cfg.LogFormat)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, configKey{}, cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default "+config.DefaultPath+" if present)")
	cmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Estimate API base URL (overrides config)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	// Add subcommands
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newAdjustCmd())
	cmd.AddCommand(newStubServerCmd())

	return cmd
}

func configFrom(cmd *cobra.Command) config.Config {
	if cfg, ok := cmd.Context().Value(configKey{}).(config.Config); ok {
		return cfg
	}
	return config.Default()
}

func newController(cfg config.Config) (*session.Controller, *images.Loader) {
	client := api.NewClient(cfg.APIURL, cfg.RequestTimeout())
	loader := images.NewLoader()
	coordinator := upload.NewCoordinator(client, loader)
	coordinator.Concurrency = cfg.UploadConcurrency
	ctrl := session.NewController(client, coordinator, session.Options{
		EventName:       cfg.EventName,
		CompletionToken: cfg.CompletionToken,
	})
	return ctrl, loader
}
