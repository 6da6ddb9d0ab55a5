package events

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"address-reconciliation/pkg/database"
	errs "address-reconciliation/pkg/errors"
	"address-reconciliation/pkg/geography"
	"address-reconciliation/pkg/qualifier"
)

// SQLStore keeps attempts in the service_attempts table:
//
//	CREATE TABLE IF NOT EXISTS service_attempts (
//	  id BIGINT AUTO_INCREMENT PRIMARY KEY,
//	  job_id VARCHAR(64) NOT NULL,
//	  attempted_at DATETIME(6) NOT NULL,
//	  qualifier VARCHAR(16) NOT NULL,
//	  latitude DOUBLE NULL,
//	  longitude DOUBLE NULL,
//	  distance_feet INT NULL,
//	  note VARCHAR(1024) NOT NULL DEFAULT '',
//	  KEY idx_job (job_id, id)
//	);
type SQLStore struct {
	db *database.DB
}

func NewSQLStore(ctx context.Context, db *database.DB) (*SQLStore, error) {
	s := &SQLStore{db: db}
	if err := s.ensureTable(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureTable(ctx context.Context) error {
	qry := `CREATE TABLE IF NOT EXISTS service_attempts (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		job_id VARCHAR(64) NOT NULL,
		attempted_at DATETIME(6) NOT NULL,
		qualifier VARCHAR(16) NOT NULL,
		latitude DOUBLE NULL,
		longitude DOUBLE NULL,
		distance_feet INT NULL,
		note VARCHAR(1024) NOT NULL DEFAULT '',
		KEY idx_job (job_id, id)
	)`
	if _, err := s.db.Conn().ExecContext(ctx, qry); err != nil {
		return errs.NewDB("events.ensureTable", "failed to create service_attempts", err)
	}
	return nil
}

// Append stores attempts in one transaction, in the order given.
func (s *SQLStore) Append(ctx context.Context, attempts ...AttemptRecorded) error {
	if len(attempts) == 0 {
		return nil
	}
	for _, a := range attempts {
		if strings.TrimSpace(a.JobID) == "" {
			return errs.NewValidation("events.Append", "job id is required", nil)
		}
	}

	ctx, cancel := s.db.WithWriteTimeout(ctx)
	defer cancel()

	tx, err := s.db.Conn().BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return errs.NewDB("events.Append", "begin tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO service_attempts
		(job_id, attempted_at, qualifier, latitude, longitude, distance_feet, note) VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return errs.NewDB("events.Append", "prepare insert", err)
	}
	defer stmt.Close()

	for _, a := range attempts {
		at := a.AttemptedAt
		if at.IsZero() {
			at = time.Now()
		}
		q := a.Qualifier
		if q == "" {
			q = qualifier.Classify(at)
		}
		var lat, lng sql.NullFloat64
		if a.Position != nil {
			lat = sql.NullFloat64{Float64: a.Position.Latitude, Valid: true}
			lng = sql.NullFloat64{Float64: a.Position.Longitude, Valid: true}
		}
		var dist sql.NullInt64
		if a.DistanceFeet != nil {
			dist = sql.NullInt64{Int64: int64(*a.DistanceFeet), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, a.JobID, at.UTC(), string(q), lat, lng, dist, a.Note); err != nil {
			return errs.NewDB("events.Append", "insert attempt", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.NewDB("events.Append", "commit tx", err)
	}
	return nil
}

// ListByJob returns a job's attempts in insertion order.
func (s *SQLStore) ListByJob(ctx context.Context, jobID string) ([]StoredAttempt, error) {
	ctx, cancel := s.db.WithReadTimeout(ctx)
	defer cancel()

	rows, err := s.db.Conn().QueryContext(ctx, `SELECT id, job_id, attempted_at, qualifier, latitude, longitude, distance_feet, note
		FROM service_attempts WHERE job_id = ? ORDER BY id ASC`, jobID)
	if err != nil {
		return nil, errs.NewDB("events.ListByJob", "query attempts", err)
	}
	defer rows.Close()

	out := []StoredAttempt{}
	for rows.Next() {
		var sa StoredAttempt
		var q string
		var lat, lng sql.NullFloat64
		var dist sql.NullInt64
		if err := rows.Scan(&sa.Seq, &sa.JobID, &sa.AttemptedAt, &q, &lat, &lng, &dist, &sa.Note); err != nil {
			return nil, errs.NewDB("events.ListByJob", "scan attempt", err)
		}
		sa.Qualifier = qualifier.Qualifier(q)
		if lat.Valid && lng.Valid {
			sa.Position = &geography.GeoPoint{Latitude: lat.Float64, Longitude: lng.Float64}
		}
		if dist.Valid {
			d := int(dist.Int64)
			sa.DistanceFeet = &d
		}
		out = append(out, sa)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDB("events.ListByJob", "row iteration error", err)
	}
	return out, nil
}
