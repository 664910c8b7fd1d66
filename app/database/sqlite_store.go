package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lysyi3m/screening-comb/app/event"
)

const metaInitializedAt = "initialized_at"

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore keeps the snapshot in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	version, dirty, err := RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Debug("Database migrations applied", "version", version, "dirty", dirty)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	snapshot := NewSnapshot()

	var initializedAt string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = ?`, metaInitializedAt).Scan(&initializedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return Snapshot{}, fmt.Errorf("failed to read store metadata: %w", err)
	default:
		t, err := time.Parse(time.RFC3339Nano, initializedAt)
		if err != nil {
			return Snapshot{}, fmt.Errorf("invalid initialized_at '%s': %w", initializedAt, err)
		}
		snapshot.InitializedAt = t
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT movie_title, venue_name, event_type, play_date, start_time, hall, source_vendor,
		       remaining_seats, total_seats
		FROM events
		ORDER BY play_date, start_time, id
	`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e event.Event
		var playDate string
		if err := rows.Scan(&e.MovieTitle, &e.VenueName, &e.Type, &playDate, &e.StartTime, &e.Hall, &e.Vendor, &e.RemainingSeats, &e.TotalSeats); err != nil {
			return Snapshot{}, fmt.Errorf("failed to scan event: %w", err)
		}
		if e.PlayDate, err = event.ParseDate(playDate); err != nil {
			return Snapshot{}, fmt.Errorf("invalid play date for stored event: %w", err)
		}
		snapshot.Events[e.ID()] = e
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("failed to iterate events: %w", err)
	}

	return snapshot, nil
}

// Save replaces every stored event in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, snapshot Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("failed to clear events: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (id, movie_title, venue_name, event_type, play_date, start_time, hall, source_vendor,
		                    remaining_seats, total_seats)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for id, e := range snapshot.Events {
		if _, err := stmt.ExecContext(ctx, string(id), e.MovieTitle, e.VenueName, string(e.Type), e.PlayDate.String(), e.StartTime, e.Hall, e.Vendor, e.RemainingSeats, e.TotalSeats); err != nil {
			return fmt.Errorf("failed to insert event %s: %w", id, err)
		}
	}

	if !snapshot.InitializedAt.IsZero() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO store_meta (key, value) VALUES (?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value
		`, metaInitializedAt, snapshot.InitializedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("failed to write store metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
