package backtest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"tierbot/internal/analysis/indicator"
	"tierbot/internal/position"
)

var ErrRunNotFound = errors.New("backtest run not found")

// RunRecord 为 backtest_runs 表的一行。
type RunRecord struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Ticks      int       `json:"ticks"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	Stats      Stats     `json:"stats"`
	ConfigJSON string    `json:"config,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists runs and their trades in a single SQLite file.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// OpenStore opens (or creates) <root>/runs.db.
func OpenStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("backtest store root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(root, "runs.db")
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			ticks INTEGER NOT NULL,
			from_ts INTEGER NOT NULL,
			to_ts INTEGER NOT NULL,
			trades INTEGER NOT NULL DEFAULT 0,
			total_pnl REAL NOT NULL DEFAULT 0,
			win_rate REAL NOT NULL DEFAULT 0,
			sharpe REAL NOT NULL DEFAULT 0,
			max_drawdown REAL NOT NULL DEFAULT 0,
			profit_factor REAL NOT NULL DEFAULT 0,
			config_json TEXT,
			stats_json TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS backtest_trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			trade_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			entry_ts INTEGER NOT NULL,
			exit_ts INTEGER NOT NULL,
			entry_price REAL NOT NULL,
			exit_price REAL NOT NULL,
			amount REAL NOT NULL,
			entry_fee REAL NOT NULL,
			exit_fee REAL NOT NULL,
			pnl REAL NOT NULL,
			reason TEXT NOT NULL,
			holding_ms INTEGER NOT NULL,
			signal_score REAL,
			indicators_json TEXT,
			FOREIGN KEY(run_id) REFERENCES backtest_runs(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_backtest_trades_run ON backtest_trades(run_id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun writes the run row and every trade in one transaction.
func (s *Store) SaveRun(ctx context.Context, res *Result, cfg any) error {
	if res == nil {
		return fmt.Errorf("nil result")
	}
	statsJSON, err := json.Marshal(res.Stats)
	if err != nil {
		return err
	}
	var cfgJSON []byte
	if cfg != nil {
		if cfgJSON, err = json.Marshal(cfg); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("backtest store closed")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_runs (id, symbol, ticks, from_ts, to_ts, trades, total_pnl, win_rate, sharpe, max_drawdown, profit_factor, config_json, stats_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.Symbol, res.Ticks, res.From.UnixMilli(), res.To.UnixMilli(),
		res.Stats.TotalTrades, res.Stats.TotalPnL, res.Stats.WinRate, res.Stats.Sharpe,
		res.Stats.MaxDrawdown, res.Stats.ProfitFactor, string(cfgJSON), string(statsJSON), time.Now().UnixMilli())
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert run: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_trades (run_id, trade_id, symbol, side, entry_ts, exit_ts, entry_price, exit_price, amount, entry_fee, exit_fee, pnl, reason, holding_ms, signal_score, indicators_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, t := range res.Trades {
		ind, _ := json.Marshal(t.Indicators)
		if _, err := stmt.ExecContext(ctx, res.RunID, t.ID, t.Symbol, t.Side.String(),
			t.EntryTime.UnixMilli(), t.ExitTime.UnixMilli(), t.EntryPrice, t.ExitPrice, t.Amount,
			t.EntryFee, t.ExitFee, t.PnL, t.Reason.String(), t.Holding.Milliseconds(), t.SignalScore, string(ind)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert trade %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetRun(ctx context.Context, id string) (RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, ticks, from_ts, to_ts, COALESCE(config_json, ''), stats_json, created_at
		FROM backtest_runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return rec, err
}

// ListRuns returns the newest runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, ticks, from_ts, to_ts, COALESCE(config_json, ''), stats_json, created_at
		FROM backtest_runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(r rowScanner) (RunRecord, error) {
	var (
		rec              RunRecord
		from, to, create int64
		statsJSON        string
	)
	if err := r.Scan(&rec.ID, &rec.Symbol, &rec.Ticks, &from, &to, &rec.ConfigJSON, &statsJSON, &create); err != nil {
		return RunRecord{}, err
	}
	rec.From = time.UnixMilli(from).UTC()
	rec.To = time.UnixMilli(to).UTC()
	rec.CreatedAt = time.UnixMilli(create).UTC()
	if err := json.Unmarshal([]byte(statsJSON), &rec.Stats); err != nil {
		return RunRecord{}, fmt.Errorf("decode stats of %s: %w", rec.ID, err)
	}
	return rec, nil
}

// Trades 按开仓时间升序返回某次回测的全部交易。
func (s *Store) Trades(ctx context.Context, runID string) ([]position.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT trade_id, symbol, side, entry_ts, exit_ts, entry_price, exit_price, amount, entry_fee, exit_fee, pnl, reason, holding_ms, COALESCE(signal_score, 0), COALESCE(indicators_json, '')
		FROM backtest_trades WHERE run_id = ? ORDER BY entry_ts ASC, id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []position.Trade
	for rows.Next() {
		var (
			t                 position.Trade
			side, reason, ind string
			entry, exit, hold int64
		)
		if err := rows.Scan(&t.ID, &t.Symbol, &side, &entry, &exit, &t.EntryPrice, &t.ExitPrice, &t.Amount,
			&t.EntryFee, &t.ExitFee, &t.PnL, &reason, &hold, &t.SignalScore, &ind); err != nil {
			return nil, err
		}
		if side == position.Short.String() {
			t.Side = position.Short
		}
		t.Reason = position.ParseExitReason(reason)
		t.EntryTime = time.UnixMilli(entry).UTC()
		t.ExitTime = time.UnixMilli(exit).UTC()
		t.Holding = time.Duration(hold) * time.Millisecond
		if ind != "" {
			var snap indicator.Snapshot
			if err := json.Unmarshal([]byte(ind), &snap); err == nil {
				t.Indicators = snap
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
