package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"polymarket-trader/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Trade history
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		market_id TEXT NOT NULL,
		market_title TEXT NOT NULL,
		token_id TEXT NOT NULL,
		side TEXT NOT NULL,
		amount REAL NOT NULL,
		price REAL NOT NULL,
		pnl REAL,
		status TEXT NOT NULL,
		is_paper INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_trades_market ON trades(market_id);
	CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp);

	-- Portfolio snapshots
	CREATE TABLE IF NOT EXISTS portfolio_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		current_balance REAL NOT NULL,
		total_pnl REAL NOT NULL,
		daily_pnl REAL NOT NULL,
		weekly_pnl REAL NOT NULL,
		drawdown REAL NOT NULL,
		peak_balance REAL NOT NULL,
		open_positions INTEGER NOT NULL,
		total_trades INTEGER NOT NULL,
		consecutive_losses INTEGER NOT NULL,
		is_halted INTEGER NOT NULL
	);

	-- Scan cycle metrics
	CREATE TABLE IF NOT EXISTS cycles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		markets_scanned INTEGER NOT NULL,
		opportunities INTEGER NOT NULL,
		trades_attempted INTEGER NOT NULL,
		trades_executed INTEGER NOT NULL,
		api_calls INTEGER NOT NULL,
		api_errors INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// LogTrade persists a trade record.
func (s *SQLiteStore) LogTrade(ctx context.Context, trade *models.Trade) error {
	var pnl sql.NullFloat64
	if trade.PnL != nil {
		pnl = sql.NullFloat64{Float64: *trade.PnL, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, timestamp, market_id, market_title, token_id, side, amount, price, pnl, status, is_paper)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.ID, trade.Timestamp, trade.MarketID, trade.MarketTitle, trade.TokenID,
		string(trade.Side), trade.Amount, trade.Price, pnl, string(trade.Status), trade.IsPaper)
	if err != nil {
		return fmt.Errorf("inserting trade: %w", err)
	}
	return nil
}

// UpdateTradeOutcome marks a trade closed or failed and records realized P&L.
func (s *SQLiteStore) UpdateTradeOutcome(ctx context.Context, tradeID string, status models.TradeStatus, pnl float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE trades SET status = ?, pnl = ? WHERE id = ?`,
		string(status), pnl, tradeID)
	if err != nil {
		return fmt.Errorf("updating trade %s: %w", tradeID, err)
	}
	return nil
}

// GetTrades returns trades matching the filter, newest first.
func (s *SQLiteStore) GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := `SELECT id, timestamp, market_id, market_title, token_id, side, amount, price, pnl, status, is_paper FROM trades`
	var conditions []string
	var args []interface{}

	if filter.MarketID != "" {
		conditions = append(conditions, "market_id = ?")
		args = append(args, filter.MarketID)
	}
	if filter.Side != "" {
		conditions = append(conditions, "side = ?")
		args = append(args, filter.Side)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if !filter.StartDate.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, filter.EndDate)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var side, status string
		var pnl sql.NullFloat64
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.MarketID, &t.MarketTitle, &t.TokenID,
			&side, &t.Amount, &t.Price, &pnl, &status, &t.IsPaper); err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		t.Side = models.OrderSide(side)
		t.Status = models.TradeStatus(status)
		if pnl.Valid {
			v := pnl.Float64
			t.PnL = &v
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// SaveSnapshot persists a portfolio snapshot.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snapshot *models.PortfolioSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolio_snapshots
			(current_balance, total_pnl, daily_pnl, weekly_pnl, drawdown, peak_balance,
			 open_positions, total_trades, consecutive_losses, is_halted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshot.CurrentBalance, snapshot.TotalPnL, snapshot.DailyPnL, snapshot.WeeklyPnL,
		snapshot.Drawdown, snapshot.PeakBalance, snapshot.OpenPositions, snapshot.TotalTrades,
		snapshot.ConsecutiveLosses, snapshot.IsHalted)
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

// SaveCycle persists the metrics of one scan cycle.
func (s *SQLiteStore) SaveCycle(ctx context.Context, cycle *CycleRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles
			(timestamp, markets_scanned, opportunities, trades_attempted, trades_executed,
			 api_calls, api_errors, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cycle.Timestamp, cycle.MarketsScanned, cycle.Opportunities, cycle.TradesAttempted,
		cycle.TradesExecuted, cycle.APICalls, cycle.APIErrors, cycle.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("inserting cycle: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
