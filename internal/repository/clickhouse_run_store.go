package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"MomentumScreener/internal/domain/models"
	domrepo "MomentumScreener/internal/domain/repository"
	pkgch "MomentumScreener/pkg/clickhouse"
	applogger "MomentumScreener/pkg/logger"

	"github.com/jmoiron/sqlx"
)

// RunStoreMigrations create the outcome table. Every outcome of a run is one row.
var RunStoreMigrations = []pkgch.Migration{
	{Name: "001_screen_outcomes", Stmt: `CREATE TABLE IF NOT EXISTS screen_outcomes (
        run_id        String,
        started_at    DateTime64(3, 'UTC'),
        finished_at   DateTime64(3, 'UTC'),
        symbol        LowCardinality(String),
        category      LowCardinality(String),
        reason        String,
        price         Nullable(Float64),
        company_name  String,
        sector        String,
        market_cap    Nullable(Float64),
        beta          Nullable(Float64),
        quote         String,
        indicators    String
    ) ENGINE = MergeTree
    ORDER BY (run_id, symbol)
    TTL toDateTime(started_at) + INTERVAL 180 DAY`},
}

const insertOutcome = `INSERT INTO screen_outcomes
    (run_id, started_at, finished_at, symbol, category, reason, price,
     company_name, sector, market_cap, beta, quote, indicators)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectOutcomes = `SELECT symbol, category, reason, price, company_name, sector,
        market_cap, beta, quote, indicators
    FROM screen_outcomes
    WHERE run_id = ?
    ORDER BY symbol ASC
    LIMIT ?`

type outcomeRow struct {
	Symbol      string          `db:"symbol"`
	Category    string          `db:"category"`
	Reason      string          `db:"reason"`
	Price       sql.NullFloat64 `db:"price"`
	CompanyName string          `db:"company_name"`
	Sector      string          `db:"sector"`
	MarketCap   sql.NullFloat64 `db:"market_cap"`
	Beta        sql.NullFloat64 `db:"beta"`
	Quote       string          `db:"quote"`
	Indicators  string          `db:"indicators"`
}

// ClickHouseRunStore persists completed runs and serves them back by run ID.
type ClickHouseRunStore struct {
	db *sqlx.DB
	l  *applogger.Logger
}

func NewClickHouseRunStore(db *sqlx.DB, l *applogger.Logger) *ClickHouseRunStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseRunStore{db: db, l: l}
}

// Record writes every outcome of run in one batch.
func (s *ClickHouseRunStore) Record(ctx context.Context, run *models.ScreenRun) error {
	if run == nil || len(run.Outcomes) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PreparexContext(ctx, insertOutcome)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range run.Outcomes {
		quote, indicators, err := encodeDetails(o)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode %s: %w", o.Symbol, err)
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID,
			run.StartedAt.UTC(),
			run.FinishedAt.UTC(),
			o.Symbol,
			string(o.Category),
			o.Reason,
			nullable(o.Price),
			o.Fundamentals.CompanyName,
			o.Fundamentals.Sector,
			nullable(o.Fundamentals.MarketCap),
			nullable(o.Fundamentals.Beta),
			quote,
			indicators,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert %s: %w", o.Symbol, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.l.Info("clickhouse run recorded",
		applogger.String("run_id", run.ID),
		applogger.Int("rows", len(run.Outcomes)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// Outcomes returns up to limit outcomes of the run ordered by symbol.
func (s *ClickHouseRunStore) Outcomes(ctx context.Context, runID string, limit int) ([]models.ScreenOutcome, error) {
	var rows []outcomeRow
	if err := s.db.SelectContext(ctx, &rows, selectOutcomes, runID, limit); err != nil {
		s.l.Error("clickhouse outcomes query error", applogger.String("run_id", runID), applogger.Error(err))
		return nil, fmt.Errorf("select outcomes: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, domrepo.ErrNotFound)
	}

	out := make([]models.ScreenOutcome, 0, len(rows))
	for _, r := range rows {
		o := models.ScreenOutcome{
			Symbol:   r.Symbol,
			Category: models.Category(r.Category),
			Reason:   r.Reason,
			Price:    fromNull(r.Price),
			Fundamentals: models.Fundamentals{
				Symbol:      r.Symbol,
				CompanyName: r.CompanyName,
				Sector:      r.Sector,
				MarketCap:   fromNull(r.MarketCap),
				Beta:        fromNull(r.Beta),
			},
		}
		if r.Quote != "" {
			var q models.Quote
			if err := json.Unmarshal([]byte(r.Quote), &q); err != nil {
				return nil, fmt.Errorf("decode quote %s: %w", r.Symbol, err)
			}
			o.Quote = &q
		}
		if r.Indicators != "" {
			var ind models.IndicatorSet
			if err := json.Unmarshal([]byte(r.Indicators), &ind); err != nil {
				return nil, fmt.Errorf("decode indicators %s: %w", r.Symbol, err)
			}
			o.Indicators = &ind
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *ClickHouseRunStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Absent quote or indicators are stored as empty strings.
func encodeDetails(o models.ScreenOutcome) (quote, indicators string, err error) {
	if o.Quote != nil {
		b, err := json.Marshal(o.Quote)
		if err != nil {
			return "", "", err
		}
		quote = string(b)
	}
	if o.Indicators != nil {
		b, err := json.Marshal(o.Indicators)
		if err != nil {
			return "", "", err
		}
		indicators = string(b)
	}
	return quote, indicators, nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
