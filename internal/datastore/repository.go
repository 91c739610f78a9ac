package datastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Repository is the PostgreSQL-backed Store.
type Repository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewRepository creates a Repository on an existing connection pool.
func NewRepository(db *pgxpool.Pool, logger *zap.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Connect opens a pgx pool for the DSN and verifies the connection.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return NewRepository(pool, logger), nil
}

// Close releases the connection pool.
func (r *Repository) Close() {
	r.db.Close()
}

// EnsureSchema creates the tables the core owns.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS trade_executions (
		id          UUID PRIMARY KEY,
		user_id     TEXT NOT NULL,
		symbol      TEXT NOT NULL,
		side        TEXT NOT NULL,
		order_type  TEXT NOT NULL,
		amount      DOUBLE PRECISION NOT NULL,
		entry_price DOUBLE PRECISION NOT NULL,
		stop_loss   DOUBLE PRECISION NOT NULL DEFAULT 0,
		take_profit DOUBLE PRECISION NOT NULL DEFAULT 0,
		leverage    INTEGER NOT NULL DEFAULT 1,
		margin_mode TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL,
		error       TEXT NOT NULL DEFAULT '',
		exit_price  DOUBLE PRECISION,
		pnl         DOUBLE PRECISION,
		pnl_percent DOUBLE PRECISION,
		created_at  TIMESTAMPTZ NOT NULL,
		closed_at   TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_trade_executions_open
		ON trade_executions (user_id, symbol) WHERE closed_at IS NULL;
	CREATE TABLE IF NOT EXISTS risk_settings (
		user_id         TEXT PRIMARY KEY,
		risk_percent    DOUBLE PRECISION NOT NULL,
		max_daily_loss  DOUBLE PRECISION NOT NULL,
		max_open_trades INTEGER NOT NULL,
		min_risk_reward DOUBLE PRECISION NOT NULL
	);`
	if _, err := r.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	r.logger.Info("trade execution schema ensured")
	return nil
}

const tradeColumns = `id, user_id, symbol, side, order_type, amount, entry_price,
	stop_loss, take_profit, leverage, margin_mode, status, error,
	exit_price, pnl, pnl_percent, created_at, closed_at`

// Insert stores a freshly placed trade.
func (r *Repository) Insert(ctx context.Context, trade *TradeExecution) error {
	query := `
		INSERT INTO trade_executions (` + tradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.db.Exec(ctx, query,
		trade.ID, trade.UserID, trade.Symbol, string(trade.Side), trade.Type,
		trade.Amount, trade.EntryPrice, trade.StopLoss, trade.TakeProfit,
		trade.Leverage, trade.MarginMode, string(trade.Status), trade.Error,
		trade.ExitPrice, trade.PnL, trade.PnLPercent, trade.CreatedAt, trade.ClosedAt)
	if err != nil {
		return fmt.Errorf("inserting trade %s: %w", trade.ID, err)
	}
	return nil
}

// UpdateStatus updates the lifecycle state and optional failure reason.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status TradeStatus, reason string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE trade_executions SET status = $2, error = $3 WHERE id = $1`,
		id, string(status), reason)
	if err != nil {
		return fmt.Errorf("updating trade %s status: %w", id, err)
	}
	return nil
}

// MarkClosed records the close-side fields while closed_at is still null, so
// the update is the atomic claim on closing the trade.
func (r *Repository) MarkClosed(ctx context.Context, id string, exitPrice, pnl, pnlPercent float64, closedAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE trade_executions
		SET exit_price = $2, pnl = $3, pnl_percent = $4, closed_at = $5
		WHERE id = $1 AND closed_at IS NULL`,
		id, exitPrice, pnl, pnlPercent, closedAt)
	if err != nil {
		return false, fmt.Errorf("closing trade %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// OpenTrades lists every filled trade without a close timestamp.
func (r *Repository) OpenTrades(ctx context.Context) ([]TradeExecution, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trade_executions
		WHERE status = $1 AND closed_at IS NULL
		ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, string(StatusFilled))
	if err != nil {
		return nil, fmt.Errorf("fetching open trades: %w", err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

// OpenTradeForSymbol returns the open trade for one (user, symbol) pair, or
// nil when there is none.
func (r *Repository) OpenTradeForSymbol(ctx context.Context, userID, symbol string) (*TradeExecution, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trade_executions
		WHERE user_id = $1 AND symbol = $2 AND status = $3 AND closed_at IS NULL
		LIMIT 1`
	rows, err := r.db.Query(ctx, query, userID, symbol, string(StatusFilled))
	if err != nil {
		return nil, fmt.Errorf("fetching open trade for %s %s: %w", userID, symbol, err)
	}
	defer rows.Close()

	trades, err := scanTrades(rows)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, nil
	}
	return &trades[0], nil
}

// ClosedTrades lists a user's closed trades ordered by close time.
func (r *Repository) ClosedTrades(ctx context.Context, userID string) ([]TradeExecution, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trade_executions
		WHERE user_id = $1 AND closed_at IS NOT NULL
		ORDER BY closed_at ASC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching closed trades for %s: %w", userID, err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

// RiskSettings loads a user's limits.
func (r *Repository) RiskSettings(ctx context.Context, userID string) (*RiskSettings, error) {
	var s RiskSettings
	err := r.db.QueryRow(ctx, `
		SELECT user_id, risk_percent, max_daily_loss, max_open_trades, min_risk_reward
		FROM risk_settings WHERE user_id = $1`, userID).
		Scan(&s.UserID, &s.RiskPercent, &s.MaxDailyLoss, &s.MaxOpenTrades, &s.MinRiskReward)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching risk settings for %s: %w", userID, err)
	}
	return &s, nil
}

// SaveRiskSettings upserts a user's limits.
func (r *Repository) SaveRiskSettings(ctx context.Context, settings *RiskSettings) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO risk_settings (user_id, risk_percent, max_daily_loss, max_open_trades, min_risk_reward)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			risk_percent = EXCLUDED.risk_percent,
			max_daily_loss = EXCLUDED.max_daily_loss,
			max_open_trades = EXCLUDED.max_open_trades,
			min_risk_reward = EXCLUDED.min_risk_reward`,
		settings.UserID, settings.RiskPercent, settings.MaxDailyLoss,
		settings.MaxOpenTrades, settings.MinRiskReward)
	if err != nil {
		return fmt.Errorf("saving risk settings for %s: %w", settings.UserID, err)
	}
	return nil
}

func scanTrades(rows pgx.Rows) ([]TradeExecution, error) {
	var trades []TradeExecution
	for rows.Next() {
		var t TradeExecution
		var side, status string
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Symbol, &side, &t.Type, &t.Amount, &t.EntryPrice,
			&t.StopLoss, &t.TakeProfit, &t.Leverage, &t.MarginMode, &status, &t.Error,
			&t.ExitPrice, &t.PnL, &t.PnLPercent, &t.CreatedAt, &t.ClosedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning trade row: %w", err)
		}
		t.Side = sideFromString(side)
		t.Status = TradeStatus(status)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trade rows: %w", err)
	}
	return trades, nil
}
