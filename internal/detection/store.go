// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package detection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/civicpulse/internal/logging"
)

// DuckDBStore keeps reports and the important-flag audit trail in DuckDB.
// It implements ReportSource, ReportWriter and Flagger.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore wraps an open DuckDB handle.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

const reportSelectColumns = `id, reporter_id, category_id, region, longitude, latitude,
	status, important, created_at`

// InitSchema creates the report tables if they don't exist.
func (s *DuckDBStore) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS civic_reports (
			id TEXT PRIMARY KEY,
			reporter_id TEXT NOT NULL,
			category_id TEXT NOT NULL,
			region TEXT NOT NULL DEFAULT '',
			longitude DOUBLE,
			latitude DOUBLE,
			status TEXT NOT NULL,
			important BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE SEQUENCE IF NOT EXISTS report_flags_id_seq START 1`,
		`CREATE TABLE IF NOT EXISTS report_flags (
			id BIGINT PRIMARY KEY DEFAULT nextval('report_flags_id_seq'),
			report_id TEXT NOT NULL,
			primary_id TEXT,
			region TEXT,
			flagged_by TEXT NOT NULL,
			note TEXT,
			flagged_at TIMESTAMP NOT NULL
		)`,
	}

	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	// Flush the WAL so a restart does not replay schema creation.
	if _, err := s.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint after report schema initialization")
	}
	return nil
}

// SaveReport inserts r or replaces the stored copy with the same ID.
// The important flag is preserved on update. Used for imports and fixtures;
// API ingest goes through CreateReport.
func (s *DuckDBStore) SaveReport(ctx context.Context, r *Report) error {
	query := `INSERT INTO civic_reports
		(id, reporter_id, category_id, region, longitude, latitude, status, important, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, now())
		ON CONFLICT (id) DO UPDATE SET
			reporter_id = EXCLUDED.reporter_id,
			category_id = EXCLUDED.category_id,
			region = EXCLUDED.region,
			longitude = EXCLUDED.longitude,
			latitude = EXCLUDED.latitude,
			status = EXCLUDED.status,
			updated_at = now()`

	if _, err := s.db.ExecContext(ctx, query, insertArgs(r)...); err != nil {
		return fmt.Errorf("failed to save report %s: %w", r.ID, err)
	}
	return nil
}

// CreateReport inserts r. An existing row with the same ID is left untouched
// and ErrReportExists is returned.
func (s *DuckDBStore) CreateReport(ctx context.Context, r *Report) error {
	query := `INSERT INTO civic_reports
		(id, reporter_id, category_id, region, longitude, latitude, status, important, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, now())
		ON CONFLICT (id) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query, insertArgs(r)...)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", r.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrReportExists, r.ID)
	}
	return nil
}

// insertArgs binds r in civic_reports insert column order. A zero CreatedAt
// is set to now.
func insertArgs(r *Report) []interface{} {
	var lon, lat sql.NullFloat64
	if r.Location != nil {
		lon = sql.NullFloat64{Float64: r.Location.Longitude, Valid: true}
		lat = sql.NullFloat64{Float64: r.Location.Latitude, Valid: true}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return []interface{}{
		r.ID, r.ReporterID, r.CategoryID, r.Region, lon, lat,
		string(r.Status), r.Important, r.CreatedAt,
	}
}

// GetReport returns a report by ID or ErrReportNotFound.
func (s *DuckDBStore) GetReport(ctx context.Context, id string) (*Report, error) {
	query := `SELECT ` + reportSelectColumns + ` FROM civic_reports WHERE id = ?`

	var r Report
	err := scanReport(s.db.QueryRowContext(ctx, query, id), &r)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &r, nil
}

// FetchActiveReports implements ReportSource.
func (s *DuckDBStore) FetchActiveReports(ctx context.Context, region string) ([]Report, error) {
	query := `SELECT ` + reportSelectColumns + ` FROM civic_reports
		WHERE status IN (?, ?)`
	args := []interface{}{string(StatusOpen), string(StatusInProgress)}
	if region != "" {
		query += ` AND region = ?`
		args = append(args, region)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query active reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	reports := make([]Report, 0, 64)
	for rows.Next() {
		var r Report
		if err := scanReport(rows, &r); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return reports, nil
}

// MarkImportant implements Flagger. The flag row and the report update are
// written in one transaction. When flag.Region is set the report must belong
// to it.
func (s *DuckDBStore) MarkImportant(ctx context.Context, flag Flag) error {
	if flag.FlaggedAt.IsZero() {
		flag.FlaggedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin flag transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// A regional flag only matches reports of that region, so reports
	// elsewhere look missing.
	query := `UPDATE civic_reports SET important = true, updated_at = now() WHERE id = ?`
	args := []interface{}{flag.ReportID}
	if flag.Region != "" {
		query += ` AND region = ?`
		args = append(args, flag.Region)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to flag report: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrReportNotFound, flag.ReportID)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO report_flags (report_id, primary_id, region, flagged_by, note, flagged_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		flag.ReportID, nullString(flag.PrimaryID), nullString(flag.Region),
		flag.FlaggedBy, nullString(flag.Note), flag.FlaggedAt,
	); err != nil {
		return fmt.Errorf("failed to record flag: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit flag: %w", err)
	}
	return nil
}

// ListFlags returns the flag history of a report, newest first.
func (s *DuckDBStore) ListFlags(ctx context.Context, reportID string) ([]Flag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT report_id, COALESCE(primary_id, ''), COALESCE(region, ''), flagged_by,
			COALESCE(note, ''), flagged_at
		 FROM report_flags WHERE report_id = ? ORDER BY flagged_at DESC, id DESC`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query flags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var flags []Flag
	for rows.Next() {
		var f Flag
		if err := rows.Scan(&f.ReportID, &f.PrimaryID, &f.Region, &f.FlaggedBy, &f.Note, &f.FlaggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan flag: %w", err)
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

// Ping checks the database connection.
func (s *DuckDBStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func scanReport(scanner interface {
	Scan(dest ...interface{}) error
}, r *Report) error {
	var lon, lat sql.NullFloat64
	var status string
	if err := scanner.Scan(
		&r.ID,
		&r.ReporterID,
		&r.CategoryID,
		&r.Region,
		&lon,
		&lat,
		&status,
		&r.Important,
		&r.CreatedAt,
	); err != nil {
		return err
	}
	r.Status = Status(status)
	if lon.Valid && lat.Valid {
		r.Location = &Coordinates{Longitude: lon.Float64, Latitude: lat.Float64}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
