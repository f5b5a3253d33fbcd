package data

import (
	"context"
	"database/sql"
	"time"

	pl "github.com/HannahMarsh/PrettyLogger"
	_ "github.com/lib/pq"
)

// PostgresStore inserts report rows into the simulation_reports table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, pl.WrapError(err, "data.NewPostgresStore(): failed to open database")
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, pl.WrapError(err, "data.NewPostgresStore(): failed to reach database")
	}
	s := &PostgresStore{db: db}
	if err = s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, pl.WrapError(err, "data.NewPostgresStore(): failed to create schema")
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS simulation_reports (
		id BIGSERIAL PRIMARY KEY,
		estimator VARCHAR(32) NOT NULL,
		hit_ratio DOUBLE PRECISION NOT NULL,
		inverse_rank DOUBLE PRECISION NOT NULL,
		entropy DOUBLE PRECISION NOT NULL,
		ndcg DOUBLE PRECISION NOT NULL,
		message_spread_ratio DOUBLE PRECISION NOT NULL,
		protocol TEXT NOT NULL,
		adversary_ratio DOUBLE PRECISION NOT NULL,
		network TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_reports_protocol ON simulation_reports(protocol, estimator);
	`)
	return err
}

// Save writes all reports in one transaction.
func (s *PostgresStore) Save(ctx context.Context, reports []Report) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pl.WrapError(err, "data.PostgresStore.Save(): failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO simulation_reports
		(estimator, hit_ratio, inverse_rank, entropy, ndcg, message_spread_ratio, protocol, adversary_ratio, network)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return pl.WrapError(err, "data.PostgresStore.Save(): failed to prepare insert")
	}
	defer stmt.Close()

	for _, r := range reports {
		if _, err = stmt.ExecContext(ctx, r.Estimator, r.HitRatio, r.InverseRank, r.Entropy, r.NDCG,
			r.MessageSpreadRatio, r.Protocol, r.AdversaryRatio, r.Network); err != nil {
			return pl.WrapError(err, "data.PostgresStore.Save(): failed to insert report")
		}
	}
	if err = tx.Commit(); err != nil {
		return pl.WrapError(err, "data.PostgresStore.Save(): failed to commit")
	}
	return nil
}

// LoadByProtocol returns every stored report of one protocol.
func (s *PostgresStore) LoadByProtocol(ctx context.Context, protocol string) ([]Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT estimator, hit_ratio, inverse_rank, entropy, ndcg, message_spread_ratio, protocol, adversary_ratio, network
		FROM simulation_reports
		WHERE protocol = $1
		ORDER BY id
	`, protocol)
	if err != nil {
		return nil, pl.WrapError(err, "data.PostgresStore.LoadByProtocol(): query failed")
	}
	defer rows.Close()

	reports := make([]Report, 0)
	for rows.Next() {
		var r Report
		if err = rows.Scan(&r.Estimator, &r.HitRatio, &r.InverseRank, &r.Entropy, &r.NDCG,
			&r.MessageSpreadRatio, &r.Protocol, &r.AdversaryRatio, &r.Network); err != nil {
			return nil, pl.WrapError(err, "data.PostgresStore.LoadByProtocol(): scan failed")
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
