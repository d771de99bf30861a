package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mselser95/polymarket-insider/pkg/types"
	"go.uber.org/zap"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// ConsoleStorage keeps alerts in memory and pretty-prints each one.
type ConsoleStorage struct {
	*MemoryStorage
	out io.Writer
}

// NewConsoleStorage creates a console storage writing to stdout.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		MemoryStorage: NewMemoryStorage(logger),
		out:           os.Stdout,
	}
}

// SaveAlert records the alert and prints it.
func (c *ConsoleStorage) SaveAlert(ctx context.Context, alert *types.Alert) error {
	err := c.MemoryStorage.SaveAlert(ctx, alert)
	if err != nil {
		return err
	}

	c.print(alert)
	return nil
}

func (c *ConsoleStorage) print(a *types.Alert) {
	w := c.out
	id := a.ID
	if len(id) > 8 {
		id = id[:8]
	}

	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintf(w, "🚨 %s ALERT: %s\n", a.Severity, a.AlertType.Title())
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "ID:       %s\n", id)
	fmt.Fprintf(w, "Market:   %s\n", a.MarketSlug)
	fmt.Fprintf(w, "Question: %s\n", a.MarketQuestion)
	fmt.Fprintf(w, "Time:     %s\n", a.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Price:    %.4f\n", a.CurrentPrice)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "📊 SIGNALS\n")
	if a.Analysis != nil {
		fmt.Fprintf(w, "  Primary:    %s\n", a.Analysis.Summary())
	}
	for _, s := range a.Metadata.SupportingAnomalies {
		fmt.Fprintf(w, "  Supporting: %s (%s)\n", s.Type.Title(), s.Summary)
	}
	fmt.Fprintf(w, "  Score:      %.1f  Confidence: %.1f\n", a.SeverityScore, a.DisplayConfidence)
	if a.Metadata.FilterReason != "" {
		fmt.Fprintf(w, "  Filter:     %s\n", a.Metadata.FilterReason)
	}
	if a.Metadata.WashTrading {
		fmt.Fprintf(w, "  ⚠️  Possible wash trading\n")
	}
	fmt.Fprintln(w, rule)
}

// Close logs and releases nothing.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
