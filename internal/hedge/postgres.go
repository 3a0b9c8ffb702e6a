package hedge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PGPoolConfig tunes the pgx pool behind the Postgres ledger.
type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// PostgresLedger persists hedge records in Postgres. Amounts travel as
// text on the wire so numeric precision survives the round trip.
type PostgresLedger struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresLedger connects to Postgres and ensures the hedge_record
// table exists.
func NewPostgresLedger(ctx context.Context, pgURL string, poolCfg PGPoolConfig, logger *zap.Logger) (*PostgresLedger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg, err := pgxpool.ParseConfig(pgURL)
	if err != nil {
		return nil, fmt.Errorf("invalid pg config: %w", err)
	}
	if poolCfg.MaxConns > 0 {
		cfg.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		cfg.MinConns = poolCfg.MinConns
	}
	if poolCfg.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = poolCfg.MaxConnLifetime
	}
	if poolCfg.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = poolCfg.MaxConnIdleTime
	}
	if poolCfg.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = poolCfg.HealthCheckPeriod
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	l := &PostgresLedger{pool: pool, logger: logger}
	if err := l.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

func (l *PostgresLedger) ensureSchema(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS hedge_record (
			id         uuid PRIMARY KEY,
			exchange   text NOT NULL,
			base       text NOT NULL,
			quote      text NOT NULL,
			amount     numeric NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("hedge_record schema: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Create(ctx context.Context, rec Record) (Record, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()
	_, err := l.pool.Exec(ctx, `
		INSERT INTO hedge_record (id, exchange, base, quote, amount, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6)
	`, rec.ID, rec.Exchange, rec.Base, rec.Quote, rec.Amount.String(), rec.CreatedAt)
	if err != nil {
		l.logger.Error("hedge.pg.insert_failed", zap.Error(err))
		return Record{}, err
	}
	return rec, nil
}

func (l *PostgresLedger) ListByBase(ctx context.Context, base string) ([]Record, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id::text, exchange, base, quote, amount::text, created_at
		FROM hedge_record
		WHERE UPPER(base) = UPPER($1)
		ORDER BY created_at;
	`, base)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec    Record
			amount string
		)
		if err := rows.Scan(&rec.ID, &rec.Exchange, &rec.Base, &rec.Quote, &amount, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("hedge_record %s: bad amount %q: %w", rec.ID, amount, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (l *PostgresLedger) Delete(ctx context.Context, id string) error {
	tag, err := l.pool.Exec(ctx, `DELETE FROM hedge_record WHERE id = $1`, id)
	if err != nil {
		l.logger.Error("hedge.pg.delete_failed", zap.String("id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("hedge: no record %s", id)
	}
	return nil
}

// HealthCheck pings the pool.
func (l *PostgresLedger) HealthCheck(ctx context.Context) error {
	if err := l.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

// Close releases the pool.
func (l *PostgresLedger) Close() {
	l.pool.Close()
}
