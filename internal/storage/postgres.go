package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"go.uber.org/zap"
)

const schema = `
	CREATE TABLE IF NOT EXISTS insider_alerts (
		id                 TEXT PRIMARY KEY,
		market_id          TEXT NOT NULL,
		market_slug        TEXT,
		alert_type         TEXT NOT NULL,
		severity           TEXT NOT NULL,
		severity_score     DOUBLE PRECISION NOT NULL,
		confidence_score   DOUBLE PRECISION NOT NULL,
		current_price      DOUBLE PRECISION,
		created_at         TIMESTAMPTZ NOT NULL,
		payload            JSONB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS insider_alerts_created_at_idx ON insider_alerts (created_at);
	CREATE INDEX IF NOT EXISTS insider_alerts_market_type_idx ON insider_alerts (market_id, alert_type, created_at);
`

// PostgresStorage implements AlertStorage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage connects and creates the alerts table if needed.
func NewPostgresStorage(ctx context.Context, cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := newPostgresStorage(db, cfg.Logger)
	err = p.migrate(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return p, nil
}

func newPostgresStorage(db *sql.DB, logger *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:     db,
		now:    time.Now,
		logger: logger,
	}
}

func (p *PostgresStorage) migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveAlert inserts the alert. The full alert, including its tagged
// analysis, is kept in the payload column.
func (p *PostgresStorage) SaveAlert(ctx context.Context, alert *types.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	query := `
		INSERT INTO insider_alerts (
			id, market_id, market_slug, alert_type, severity,
			severity_score, confidence_score, current_price, created_at, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = p.db.ExecContext(ctx, query,
		alert.ID,
		alert.MarketID,
		alert.MarketSlug,
		string(alert.AlertType),
		alert.Severity.String(),
		alert.SeverityScore,
		alert.ConfidenceScore,
		alert.CurrentPrice,
		alert.Timestamp,
		payload,
	)
	if err != nil {
		StorageErrorsTotal.WithLabelValues("save").Inc()
		return fmt.Errorf("insert alert: %w", err)
	}

	AlertsSavedTotal.WithLabelValues(alert.Severity.String()).Inc()
	p.logger.Debug("alert-stored",
		zap.String("alert-id", alert.ID),
		zap.String("market-id", alert.MarketID),
		zap.String("alert-type", string(alert.AlertType)))

	return nil
}

// GetRecentAlerts returns alerts created in the last hours, newest first.
func (p *PostgresStorage) GetRecentAlerts(ctx context.Context, hours int) ([]*types.Alert, error) {
	cutoff := p.now().Add(-time.Duration(hours) * time.Hour)

	rows, err := p.db.QueryContext(ctx,
		`SELECT payload FROM insider_alerts WHERE created_at > $1 ORDER BY created_at DESC`,
		cutoff)
	if err != nil {
		StorageErrorsTotal.WithLabelValues("query").Inc()
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*types.Alert
	for rows.Next() {
		var payload []byte
		err = rows.Scan(&payload)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}

		var a types.Alert
		err = json.Unmarshal(payload, &a)
		if err != nil {
			return nil, fmt.Errorf("decode alert: %w", err)
		}
		alerts = append(alerts, &a)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}

	return alerts, nil
}

// ShouldSendAlert counts alerts in the trailing hour and checks for a
// recent alert of the same type on the same market.
func (p *PostgresStorage) ShouldSendAlert(
	ctx context.Context,
	alert *types.Alert,
	maxPerHour int,
	dupWindow time.Duration,
) (bool, string, error) {
	now := p.now()

	var count int
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM insider_alerts WHERE created_at > $1`,
		now.Add(-time.Hour)).Scan(&count)
	if err != nil {
		StorageErrorsTotal.WithLabelValues("rate_limit").Inc()
		return false, "", fmt.Errorf("count recent alerts: %w", err)
	}
	if count >= maxPerHour {
		return false, ReasonRateLimited, nil
	}

	var exists bool
	err = p.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM insider_alerts
			WHERE market_id = $1 AND alert_type = $2 AND created_at > $3
		)`,
		alert.MarketID, string(alert.AlertType), now.Add(-dupWindow)).Scan(&exists)
	if err != nil {
		StorageErrorsTotal.WithLabelValues("dedup").Inc()
		return false, "", fmt.Errorf("check duplicate alert: %w", err)
	}
	if exists {
		return false, ReasonDuplicate, nil
	}

	return true, "", nil
}

// ClearOldAlerts deletes alerts older than maxAge.
func (p *PostgresStorage) ClearOldAlerts(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM insider_alerts WHERE created_at < $1`,
		p.now().Add(-maxAge))
	if err != nil {
		StorageErrorsTotal.WithLabelValues("clear").Inc()
		return 0, fmt.Errorf("delete old alerts: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if removed > 0 {
		AlertsClearedTotal.Add(float64(removed))
		p.logger.Info("alerts-cleared",
			zap.Int64("removed", removed),
			zap.Duration("max-age", maxAge))
	}
	return removed, nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
