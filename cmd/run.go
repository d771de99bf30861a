package cmd

import (
	"fmt"

	"github.com/mselser95/polymarket-insider/internal/app"
	"github.com/mselser95/polymarket-insider/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the insider trading detector",
	Long: `Starts the detector, which will:
1. Discover the highest-volume active markets from the Gamma API
2. Backfill their recent trade history from the Data API
3. Stream live trades via WebSocket
4. Analyze every market on a fixed interval and emit alerts

Use --market to track only one market for debugging.`,
	RunE: runDetector,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("market", "m", "", "Track only a single market by slug (for debugging)")
}

func runDetector(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	singleMarket, _ := cmd.Flags().GetString("market")

	application, err := app.New(cfg, logger, &app.Options{
		SingleMarket: singleMarket,
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
