package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"address-reconciliation/internal/constants"
	"address-reconciliation/internal/models"
	"address-reconciliation/pkg/config"
	errs "address-reconciliation/pkg/errors"
)

type DB struct {
	conn         *sql.DB
	stmts        map[string]*sql.Stmt
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// New opens a pool with the default settings.
func New(databaseURL string) (*DB, error) {
	return open(databaseURL, poolSettings{
		maxOpen:      25,
		maxIdle:      10,
		lifetime:     10 * time.Minute,
		idleTime:     5 * time.Minute,
		readTimeout:  constants.DBReadTimeoutDefault,
		writeTimeout: constants.DBWriteTimeoutDefault,
	})
}

// NewWithConfig creates a database connection with custom configuration settings
func NewWithConfig(databaseURL string, cfg *config.Config) (*DB, error) {
	ps := poolSettings{
		maxOpen:      cfg.DBMaxOpenConns,
		maxIdle:      cfg.DBMaxIdleConns,
		lifetime:     time.Duration(cfg.DBConnMaxLifetime) * time.Minute,
		idleTime:     time.Duration(cfg.DBConnMaxIdleTime) * time.Minute,
		readTimeout:  cfg.DBReadTimeout,
		writeTimeout: cfg.DBWriteTimeout,
	}
	if ps.readTimeout == 0 {
		ps.readTimeout = constants.DBReadTimeoutDefault
	}
	if ps.writeTimeout == 0 {
		ps.writeTimeout = constants.DBWriteTimeoutDefault
	}
	return open(databaseURL, ps)
}

type poolSettings struct {
	maxOpen, maxIdle          int
	lifetime, idleTime        time.Duration
	readTimeout, writeTimeout time.Duration
}

func open(databaseURL string, ps poolSettings) (*DB, error) {
	// DATETIME columns scan into time.Time only with parseTime; force it so
	// a DSN copied without the flag still works.
	dsn, err := mysql.ParseDSN(databaseURL)
	if err != nil {
		return nil, errs.NewValidation("database.open", "invalid DATABASE_URL", err)
	}
	dsn.ParseTime = true
	dsn.Loc = time.UTC

	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return nil, errs.NewDB("database.open", "failed to build connector", err)
	}
	conn := sql.OpenDB(connector)
	conn.SetMaxOpenConns(ps.maxOpen)
	conn.SetMaxIdleConns(ps.maxIdle)
	conn.SetConnMaxLifetime(ps.lifetime)
	conn.SetConnMaxIdleTime(ps.idleTime)

	db := &DB{
		conn:         conn,
		stmts:        make(map[string]*sql.Stmt),
		readTimeout:  ps.readTimeout,
		writeTimeout: ps.writeTimeout,
	}

	ctx, cancel := db.withWriteTimeout(context.Background())
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, errs.NewDB("database.open", "ping failed", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if err := db.prepareStatements(ctx); err != nil {
		conn.Close()
		return nil, errs.NewDB("database.open", "failed to prepare statements", err)
	}

	return db, nil
}

const addressRecordsDDL = `CREATE TABLE IF NOT EXISTS address_records (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	legal_address VARCHAR(512) NOT NULL DEFAULT '',
	normalized_address VARCHAR(512) NOT NULL DEFAULT '',
	city VARCHAR(128) NOT NULL DEFAULT '',
	state VARCHAR(64) NOT NULL DEFAULT '',
	zip VARCHAR(16) NOT NULL DEFAULT '',
	match_key VARCHAR(768) NOT NULL,
	key_suffix VARCHAR(256) NOT NULL,
	latitude DOUBLE NULL,
	longitude DOUBLE NULL,
	created_at DATETIME(6) NOT NULL,
	KEY idx_match_key (match_key(191)),
	KEY idx_key_suffix (key_suffix(191))
)`

// EnsureSchema creates the address_records table when missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, addressRecordsDDL); err != nil {
		return errs.NewDB("database.EnsureSchema", "failed to create address_records", err)
	}
	return nil
}

const recordColumns = `id, legal_address, normalized_address, city, state, zip,
	match_key, key_suffix, latitude, longitude, created_at`

// prepareStatements prepares frequently used SQL statements
func (db *DB) prepareStatements(ctx context.Context) error {
	statements := map[string]string{
		"insertAddressRecord": `INSERT INTO address_records
			(legal_address, normalized_address, city, state, zip, match_key, key_suffix, latitude, longitude, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"findByMatchKey": `SELECT ` + recordColumns + ` FROM address_records WHERE match_key = ? ORDER BY id ASC`,
	}

	for name, query := range statements {
		stmt, err := db.conn.PrepareContext(ctx, query)
		if err != nil {
			return errs.NewDB("database.prepareStatements", fmt.Sprintf("failed to prepare statement %s", name), err)
		}
		db.stmts[name] = stmt
	}
	return nil
}

// Close closes database connection and prepared statements
func (db *DB) Close() error {
	for _, stmt := range db.stmts {
		stmt.Close()
	}
	return db.conn.Close()
}

// Conn exposes the pool for stores that own their own tables.
func (db *DB) Conn() *sql.DB { return db.conn }

// Ping checks connectivity within the read timeout.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()
	if err := db.conn.PingContext(ctx); err != nil {
		return errs.NewDB("database.Ping", "ping failed", err)
	}
	return nil
}

// withReadTimeout creates a context with standard read timeout.
func (db *DB) withReadTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, db.readTimeout)
}

// withWriteTimeout creates a context with standard write timeout.
func (db *DB) withWriteTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, db.writeTimeout)
}

// WithWriteTimeout is withWriteTimeout for stores sharing this pool.
func (db *DB) WithWriteTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return db.withWriteTimeout(ctx)
}

// WithReadTimeout is withReadTimeout for stores sharing this pool.
func (db *DB) WithReadTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return db.withReadTimeout(ctx)
}

// SaveAddressRecordCtx derives the canonical match key and inserts rec. A
// record whose address has no usable street is rejected as a validation error.
func (db *DB) SaveAddressRecordCtx(ctx context.Context, rec *models.AddressRecord) error {
	if rec == nil {
		return errs.NewValidation("database.SaveAddressRecordCtx", "record is nil", nil)
	}
	if _, ok := rec.Derive(); !ok {
		return errs.NewValidation("database.SaveAddressRecordCtx", "address has no usable street", nil)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := db.withWriteTimeout(ctx)
	defer cancel()

	res, err := db.stmts["insertAddressRecord"].ExecContext(ctx,
		rec.LegalAddress, rec.NormalizedAddress, rec.City, rec.State, rec.Zip,
		rec.MatchKey, rec.KeySuffix, nullFloat(rec.Latitude), nullFloat(rec.Longitude), rec.CreatedAt,
	)
	if err != nil {
		return errs.NewDB("database.SaveAddressRecordCtx", "failed to insert address record", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errs.NewDB("database.SaveAddressRecordCtx", "failed to read insert id", err)
	}
	rec.ID = id
	return nil
}

// GetAddressRecordCtx loads one record by id.
func (db *DB) GetAddressRecordCtx(ctx context.Context, id int64) (*models.AddressRecord, error) {
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM address_records WHERE id = ?`, id)
	rec, err := scanAddressRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFound("database.GetAddressRecordCtx", "address record", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, errs.NewDB("database.GetAddressRecordCtx", "failed to load address record", err)
	}
	return rec, nil
}

// FindByMatchKeyCtx returns every record with the given key, oldest first.
func (db *DB) FindByMatchKeyCtx(ctx context.Context, key string) ([]models.AddressRecord, error) {
	if key == "" {
		return []models.AddressRecord{}, nil
	}
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()

	rows, err := db.stmts["findByMatchKey"].QueryContext(ctx, key)
	if err != nil {
		return nil, errs.NewDB("database.FindByMatchKeyCtx", "failed to query by match key", err)
	}
	return collectAddressRecords("database.FindByMatchKeyCtx", rows)
}

// FindByKeySuffixCtx returns up to limit records sharing the city/state/zip
// tail of a match key, oldest first.
func (db *DB) FindByKeySuffixCtx(ctx context.Context, suffix string, limit int) ([]models.AddressRecord, error) {
	if suffix == "" {
		return []models.AddressRecord{}, nil
	}
	if limit <= 0 {
		limit = constants.NearMatchCandidateLimit
	}
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM address_records WHERE key_suffix = ? ORDER BY id ASC LIMIT ?`, suffix, limit)
	if err != nil {
		return nil, errs.NewDB("database.FindByKeySuffixCtx", "failed to query by key suffix", err)
	}
	return collectAddressRecords("database.FindByKeySuffixCtx", rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAddressRecord(row rowScanner) (*models.AddressRecord, error) {
	var rec models.AddressRecord
	var lat, lng sql.NullFloat64
	if err := row.Scan(
		&rec.ID, &rec.LegalAddress, &rec.NormalizedAddress, &rec.City, &rec.State, &rec.Zip,
		&rec.MatchKey, &rec.KeySuffix, &lat, &lng, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	if lat.Valid {
		rec.Latitude = &lat.Float64
	}
	if lng.Valid {
		rec.Longitude = &lng.Float64
	}
	return &rec, nil
}

func collectAddressRecords(op string, rows *sql.Rows) ([]models.AddressRecord, error) {
	defer rows.Close()
	out := []models.AddressRecord{}
	for rows.Next() {
		rec, err := scanAddressRecord(rows)
		if err != nil {
			return nil, errs.NewDB(op, "failed to scan address record", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDB(op, "row iteration error", err)
	}
	return out, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
