package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "polymarket-insider",
	Short: "Polymarket insider trading detector",
	Long: `Polymarket insider trading detector that watches the most active markets,
compares live trading against each market's own baseline, and raises alerts
when volume, price, whale or coordinated-wallet activity looks anomalous.

Markets are discovered from the Gamma API, trades arrive over the CLOB
WebSocket, and admitted alerts are stored and sent to the configured
notification channels with a trading recommendation.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is fine; the environment may already be set.
		_ = godotenv.Load()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
