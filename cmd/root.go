// Package cmd defines the CLI commands of the filmcrawler executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/grossing-films-crawler/internal/app"
	"github.com/JakeFAU/grossing-films-crawler/internal/config"
	"github.com/JakeFAU/grossing-films-crawler/internal/logging"
	"github.com/JakeFAU/grossing-films-crawler/internal/pipeline"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is what commands need from the application. Tests inject a fake through newApp.
type App interface {
	Close()
	Logger() *zap.Logger
	Run(ctx context.Context) (pipeline.Summary, error)
}

// newApp is the application factory.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.New(ctx, cfg, logger)
}

func newRootCmd() *cobra.Command {
	var cfgFile, envFile string

	cmd := &cobra.Command{
		Use:   "filmcrawler",
		Short: "Collects the highest-grossing films list with country and director.",
		Long: `filmcrawler reads the list of highest-grossing films, follows every film's
detail page to find its country and director, and writes the result to the
films table and to films.json.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if envFile != "" {
				// Variables already set in the environment win over the file.
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("load env file: %w", err)
				}
			}
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				_ = logger.Sync()
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file (defaults and FILMS_* env vars apply without one)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "optional dotenv file with FILMS_* variables")
	cmd.AddCommand(newRunCmd())
	return cmd
}

// resolveApp returns the App stored by the root command. Commands own its shutdown, since
// cobra skips post-run hooks when RunE fails.
func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute runs the CLI until it finishes or SIGINT/SIGTERM cancels it.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		logger, lerr := logging.New(logging.Config{})
		if lerr != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		logger.Fatal("command execution failed", zap.Error(err))
	}
}
