package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Runs one extraction and replaces the stored dataset",
		Long: `Fetches the listing page, enriches every film from its detail page with
up to retry.max_attempts attempts per field, then recreates the films table
and overwrites films.json. Fields that cannot be extracted are stored as NONE.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				appInstance.Close()
				_ = appInstance.Logger().Sync()
			}()

			summary, err := appInstance.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("run %s: %w", summary.RunID, err)
			}
			appInstance.Logger().Info("run command finished",
				zap.String("run_id", summary.RunID),
				zap.Int("films", summary.TableRows),
			)
			return nil
		},
	}
}
