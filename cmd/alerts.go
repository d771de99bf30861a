package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mselser95/polymarket-insider/internal/recommendation"
	"github.com/mselser95/polymarket-insider/internal/storage"
	"github.com/mselser95/polymarket-insider/pkg/config"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show recently stored alerts",
	Long: `Reads alerts admitted in the last --hours from PostgreSQL and prints them
with the recommendation each one would carry.`,
	RunE: runAlerts,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.Flags().IntP("hours", "H", 24, "Look back this many hours (1-168)")
}

func runAlerts(cmd *cobra.Command, args []string) error {
	hours, _ := cmd.Flags().GetInt("hours")
	if hours < 1 || hours > 168 {
		return fmt.Errorf("hours must be between 1 and 168, got %d", hours)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.StorageMode != "postgres" {
		return fmt.Errorf("alert history needs STORAGE_MODE=postgres, got %q", cfg.StorageMode)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := storage.NewPostgresStorage(ctx, &storage.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		Database: cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("connect storage: %w", err)
	}
	defer store.Close()

	alerts, err := store.GetRecentAlerts(ctx, hours)
	if err != nil {
		return fmt.Errorf("get recent alerts: %w", err)
	}

	if len(alerts) == 0 {
		fmt.Printf("No alerts in the last %d hours.\n", hours)
		return nil
	}

	printAlerts(os.Stdout, alerts, recommendation.NewEngine(nil))
	fmt.Printf("\nTotal: %d alerts in the last %d hours\n", len(alerts), hours)

	return nil
}

func printAlerts(out io.Writer, alerts []*types.Alert, engine *recommendation.Engine) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TIME\tSEVERITY\tTYPE\tMARKET\tSCORE\tCONF\tACTION\n")
	fmt.Fprintf(w, "----\t--------\t----\t------\t-----\t----\t------\n")

	for _, a := range alerts {
		rec := engine.ForAlert(a)
		action := rec.Action
		if rec.Side != "" {
			action += " " + rec.Side
		}

		market := a.MarketSlug
		if market == "" {
			market = a.MarketID
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f\t%.1f\t%s\n",
			a.Timestamp.Local().Format("01-02 15:04"),
			a.Severity,
			a.AlertType,
			truncate(market, 40),
			a.SeverityScore,
			a.DisplayConfidence,
			action)
	}

	w.Flush()
}
