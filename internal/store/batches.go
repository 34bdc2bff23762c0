package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/deepak-highbeam/calsift/internal/event"
)

// Batch records one loaded file.
type Batch struct {
	ID          string
	FileName    string
	RowCount    int
	LoadedAt    time.Time
	Fingerprint string
}

// InsertBatch stores b and its rows in one transaction. Only the raw
// columns are kept; Span and Norm are recomputed when rows are loaded.
func (s *Store) InsertBatch(b Batch, rows []event.Row) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert batch: %w", err)
	}

	res, err := tx.Exec(
		`INSERT INTO batches (batch_id, file_name, row_count, loaded_at, fingerprint)
		 VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.FileName, len(rows), b.LoadedAt.UTC().Format(time.RFC3339Nano), b.Fingerprint,
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert batch %s: %w", b.FileName, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("batch id: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO event_rows (batch_seq, seq, summary, calendar_id, start_at, end_at,
		                         start_date, end_date, extra_json, source_file)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare row insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		extra := ""
		if len(r.Extra) > 0 {
			data, err := json.Marshal(r.Extra)
			if err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("marshal extra columns: %w", err)
			}
			extra = string(data)
		}
		if _, err := stmt.Exec(seq, i, r.Summary, r.CalendarID, r.Start, r.End,
			r.StartDate, r.EndDate, extra, r.SourceFile); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert row %d of %s: %w", i, b.FileName, err)
		}
	}

	return tx.Commit()
}

// ListBatches returns all batches in load order.
func (s *Store) ListBatches() ([]Batch, error) {
	rows, err := s.db.Query(
		`SELECT batch_id, file_name, row_count, loaded_at, fingerprint
		 FROM batches ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		var b Batch
		var ts string
		if err := rows.Scan(&b.ID, &b.FileName, &b.RowCount, &ts, &b.Fingerprint); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse batch time %q: %w", ts, err)
		}
		b.LoadedAt = t
		out = append(out, b)
	}
	return out, rows.Err()
}

// HasFingerprint reports whether a batch with fingerprint fp was loaded.
func (s *Store) HasFingerprint(fp string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM batches WHERE fingerprint = ?`, fp).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check fingerprint: %w", err)
	}
	return n > 0, nil
}

// LoadRows returns every stored row in load order, unenriched.
func (s *Store) LoadRows() ([]event.Row, error) {
	rows, err := s.db.Query(
		`SELECT r.summary, r.calendar_id, r.start_at, r.end_at, r.start_date, r.end_date,
		        r.extra_json, r.source_file
		 FROM event_rows r
		 ORDER BY r.batch_seq ASC, r.seq ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]event.Row, error) {
	var out []event.Row
	for rows.Next() {
		var r event.Row
		var extra string
		if err := rows.Scan(&r.Summary, &r.CalendarID, &r.Start, &r.End,
			&r.StartDate, &r.EndDate, &extra, &r.SourceFile); err != nil {
			return nil, err
		}
		if extra != "" {
			if err := json.Unmarshal([]byte(extra), &r.Extra); err != nil {
				return nil, fmt.Errorf("decode extra columns: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Clear deletes every batch and row. Settings are kept.
func (s *Store) Clear() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM event_rows`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear rows: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM batches`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear batches: %w", err)
	}
	return tx.Commit()
}
