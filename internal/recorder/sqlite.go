package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"WeeklyStockPrice/internal/model"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sqlx.DB
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_observations (
			symbol       TEXT    NOT NULL,
			bar_interval TEXT    NOT NULL,
			ts           INTEGER NOT NULL,
			price        TEXT    NOT NULL,
			volume       INTEGER,
			PRIMARY KEY (symbol, bar_interval, ts)
		)`,

		`CREATE TABLE IF NOT EXISTS weekly_snapshots (
			symbol          TEXT    NOT NULL,
			name            TEXT,
			this_friday     TEXT    NOT NULL,
			last_friday     TEXT    NOT NULL,
			close           TEXT    NOT NULL,
			last_week_close TEXT    NOT NULL,
			change_rate     REAL    NOT NULL,
			week_high       TEXT,
			week_low        TEXT,
			source          TEXT,
			run_id          TEXT,
			collected_at    INTEGER NOT NULL,
			PRIMARY KEY (symbol, this_friday)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_weekly_rate ON weekly_snapshots(this_friday, change_rate)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

type observationRow struct {
	Symbol   string          `db:"symbol"`
	Interval string          `db:"bar_interval"`
	TS       int64           `db:"ts"`
	Price    decimal.Decimal `db:"price"`
	Volume   sql.NullInt64   `db:"volume"`
}

func (row observationRow) observation() model.PriceObservation {
	obs := model.PriceObservation{Time: time.Unix(row.TS, 0).UTC(), Price: row.Price}
	if row.Volume.Valid {
		v := row.Volume.Int64
		obs.Volume = &v
	}
	return obs
}

type snapshotRow struct {
	Symbol        string          `db:"symbol"`
	Name          sql.NullString  `db:"name"`
	ThisFriday    string          `db:"this_friday"`
	LastFriday    string          `db:"last_friday"`
	Close         decimal.Decimal `db:"close"`
	LastWeekClose decimal.Decimal `db:"last_week_close"`
	ChangeRate    decimal.Decimal `db:"change_rate"`
	WeekHigh      decimal.Decimal `db:"week_high"`
	WeekLow       decimal.Decimal `db:"week_low"`
	Source        sql.NullString  `db:"source"`
	RunID         sql.NullString  `db:"run_id"`
	CollectedAt   int64           `db:"collected_at"`
}

func newSnapshotRow(s model.WeeklySnapshot) snapshotRow {
	return snapshotRow{
		Symbol:        string(s.Symbol),
		Name:          sql.NullString{String: s.Name, Valid: s.Name != ""},
		ThisFriday:    s.ThisFriday,
		LastFriday:    s.LastFriday,
		Close:         s.Close,
		LastWeekClose: s.LastWeekClose,
		ChangeRate:    s.ChangeRate,
		WeekHigh:      s.WeekHigh,
		WeekLow:       s.WeekLow,
		Source:        sql.NullString{String: s.Source, Valid: s.Source != ""},
		RunID:         sql.NullString{String: s.RunID, Valid: s.RunID != ""},
		CollectedAt:   s.CollectedAt.Unix(),
	}
}

func (row snapshotRow) snapshot() model.WeeklySnapshot {
	return model.WeeklySnapshot{
		Symbol:        model.Symbol(row.Symbol),
		Name:          row.Name.String,
		ThisFriday:    row.ThisFriday,
		LastFriday:    row.LastFriday,
		Close:         row.Close,
		LastWeekClose: row.LastWeekClose,
		ChangeRate:    row.ChangeRate,
		WeekHigh:      row.WeekHigh,
		WeekLow:       row.WeekLow,
		Source:        row.Source.String,
		RunID:         row.RunID.String,
		CollectedAt:   time.Unix(row.CollectedAt, 0).UTC(),
	}
}

// RecordObservations upserts obs. Re-recording a bar replaces it.
func (r *SQLiteRecorder) RecordObservations(ctx context.Context, symbol model.Symbol, interval model.Interval, obs []model.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `INSERT OR REPLACE INTO price_observations
		(symbol, bar_interval, ts, price, volume)
		VALUES (:symbol, :bar_interval, :ts, :price, :volume)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		row := observationRow{Symbol: string(symbol), Interval: string(interval), TS: o.Time.Unix(), Price: o.Price}
		if o.Volume != nil {
			row.Volume = sql.NullInt64{Int64: *o.Volume, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("insert %s@%d: %w", symbol, row.TS, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecordWeekly upserts snaps keyed by symbol and week.
func (r *SQLiteRecorder) RecordWeekly(ctx context.Context, snaps []model.WeeklySnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `INSERT OR REPLACE INTO weekly_snapshots
		(symbol, name, this_friday, last_friday, close, last_week_close, change_rate,
		 week_high, week_low, source, run_id, collected_at)
		VALUES (:symbol, :name, :this_friday, :last_friday, :close, :last_week_close, :change_rate,
		 :week_high, :week_low, :source, :run_id, :collected_at)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, s := range snaps {
		if _, err := stmt.ExecContext(ctx, newSnapshotRow(s)); err != nil {
			return fmt.Errorf("insert weekly %s %s: %w", s.Symbol, s.ThisFriday, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Debug().Int("count", len(snaps)).Msg("weekly snapshots recorded")
	return nil
}

// LoadObservations returns symbol's bars in [start, end) ordered by time.
func (r *SQLiteRecorder) LoadObservations(ctx context.Context, symbol model.Symbol, interval model.Interval, start, end time.Time) ([]model.PriceObservation, error) {
	var rows []observationRow
	err := r.db.SelectContext(ctx, &rows, `SELECT symbol, bar_interval, ts, price, volume
		FROM price_observations
		WHERE symbol = ? AND bar_interval = ? AND ts >= ? AND ts < ?
		ORDER BY ts`, string(symbol), string(interval), start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("select observations %s: %w", symbol, err)
	}
	out := make([]model.PriceObservation, len(rows))
	for i, row := range rows {
		out[i] = row.observation()
	}
	return out, nil
}

// LatestObservation returns symbol's most recent bar at any interval.
func (r *SQLiteRecorder) LatestObservation(ctx context.Context, symbol model.Symbol) (model.PriceObservation, bool, error) {
	var row observationRow
	err := r.db.GetContext(ctx, &row, `SELECT symbol, bar_interval, ts, price, volume
		FROM price_observations WHERE symbol = ? ORDER BY ts DESC LIMIT 1`, string(symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return model.PriceObservation{}, false, nil
	}
	if err != nil {
		return model.PriceObservation{}, false, fmt.Errorf("select latest %s: %w", symbol, err)
	}
	return row.observation(), true, nil
}

const latestWeeklyQuery = `SELECT w.* FROM weekly_snapshots w
	JOIN (SELECT symbol, MAX(this_friday) AS friday FROM weekly_snapshots GROUP BY symbol) m
	ON w.symbol = m.symbol AND w.this_friday = m.friday`

func (r *SQLiteRecorder) selectSnapshots(ctx context.Context, query string, args ...any) ([]model.WeeklySnapshot, error) {
	var rows []snapshotRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select weekly snapshots: %w", err)
	}
	out := make([]model.WeeklySnapshot, len(rows))
	for i, row := range rows {
		out[i] = row.snapshot()
	}
	return out, nil
}

func (r *SQLiteRecorder) LatestWeekly(ctx context.Context) ([]model.WeeklySnapshot, error) {
	return r.selectSnapshots(ctx, latestWeeklyQuery+` ORDER BY w.symbol`)
}

// TopGainers returns up to limit latest snapshots with a positive change, best first.
func (r *SQLiteRecorder) TopGainers(ctx context.Context, limit int) ([]model.WeeklySnapshot, error) {
	return r.selectSnapshots(ctx, latestWeeklyQuery+` WHERE w.change_rate > 0 ORDER BY w.change_rate DESC, w.symbol LIMIT ?`, limit)
}

// TopLosers returns up to limit latest snapshots with a negative change, worst first.
func (r *SQLiteRecorder) TopLosers(ctx context.Context, limit int) ([]model.WeeklySnapshot, error) {
	return r.selectSnapshots(ctx, latestWeeklyQuery+` WHERE w.change_rate < 0 ORDER BY w.change_rate ASC, w.symbol LIMIT ?`, limit)
}

func (r *SQLiteRecorder) MarketStats(ctx context.Context) (model.MarketStats, error) {
	snaps, err := r.LatestWeekly(ctx)
	if err != nil {
		return model.MarketStats{}, err
	}
	return ComputeMarketStats(snaps), nil
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
