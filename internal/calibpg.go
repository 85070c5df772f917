// v1
// calibpg.go
package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CalibrationRepository persists calibration profiles. The pipeline never
// touches it; the service loads profiles into the in-memory store at boot
// and writes through on updates.
type CalibrationRepository interface {
	LoadAll(ctx context.Context) ([]CalibrationProfile, error)
	Save(ctx context.Context, p CalibrationProfile) error
	Close()
}

const calibrationSchema = `
CREATE TABLE IF NOT EXISTS calibration_profiles (
	hive_number INT PRIMARY KEY,
	profile_id  UUID NOT NULL,
	offsets     JSONB NOT NULL,
	applied_at  TIMESTAMPTZ
)`

// PGCalibrations is a Postgres-backed CalibrationRepository using pgxpool.
type PGCalibrations struct {
	pool *pgxpool.Pool
}

// NewPGCalibrations connects to the database, verifies the connection, and
// ensures the calibration table exists.
func NewPGCalibrations(ctx context.Context, url string) (*PGCalibrations, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, calibrationSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PGCalibrations{pool: pool}, nil
}

func (r *PGCalibrations) LoadAll(ctx context.Context) ([]CalibrationProfile, error) {
	rows, err := r.pool.Query(ctx, `SELECT hive_number, profile_id, offsets, applied_at FROM calibration_profiles ORDER BY hive_number`)
	if err != nil {
		return nil, fmt.Errorf("load calibrations: %w", err)
	}
	defer rows.Close()

	var out []CalibrationProfile
	for rows.Next() {
		var (
			p       CalibrationProfile
			offsets map[string]float64
			applied *time.Time
		)
		if err := rows.Scan(&p.HiveNumber, &p.ID, &offsets, &applied); err != nil {
			return nil, fmt.Errorf("scan calibration: %w", err)
		}
		p.Offsets = make(map[Metric]float64, len(offsets))
		for k, v := range offsets {
			p.Offsets[Metric(k)] = v
		}
		p.AppliedAt = applied
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGCalibrations) Save(ctx context.Context, p CalibrationProfile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	offsets := make(map[string]float64, len(p.Offsets))
	for m, v := range p.Offsets {
		offsets[string(m)] = v
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO calibration_profiles (hive_number, profile_id, offsets, applied_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (hive_number) DO UPDATE
		SET profile_id = EXCLUDED.profile_id,
		    offsets = EXCLUDED.offsets,
		    applied_at = EXCLUDED.applied_at`,
		p.HiveNumber, p.ID, offsets, p.AppliedAt)
	if err != nil {
		return fmt.Errorf("save calibration hive %d: %w", p.HiveNumber, err)
	}
	return nil
}

func (r *PGCalibrations) Close() { r.pool.Close() }
