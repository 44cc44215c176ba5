package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"photo-recovery/internal/logging"
	"photo-recovery/internal/media"
	"photo-recovery/internal/recovery"
)

// SaveSession writes the session and replaces its entries.
func (d *Database) SaveSession(ctx context.Context, s *recovery.Session) (err error) {
	start := time.Now()
	defer func() { recordQuery("save_session", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	logJSON, err := json.Marshal(s.Log)
	if err != nil {
		return fmt.Errorf("encode session log: %w", err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error("failed to rollback session %s: %v", s.ID, rbErr)
			}
		}
	}()

	var endedAt sql.NullInt64
	if s.EndedAt != nil {
		endedAt = sql.NullInt64{Int64: s.EndedAt.UnixNano(), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO recovery_sessions (
			id, source_name, status, total_entries, processed_entries,
			images_found, recovered_count, corrupted_count, started_at, ended_at, log
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_name = excluded.source_name,
			status = excluded.status,
			total_entries = excluded.total_entries,
			processed_entries = excluded.processed_entries,
			images_found = excluded.images_found,
			recovered_count = excluded.recovered_count,
			corrupted_count = excluded.corrupted_count,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			log = excluded.log
	`, s.ID, s.SourceName, string(s.Status), s.TotalEntries, s.ProcessedEntries,
		s.ImagesFound, s.RecoveredCount, s.CorruptedCount, s.StartedAt.UnixNano(), endedAt, string(logJSON))
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM recovery_entries WHERE session_id = ?`, s.ID); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO recovery_entries (
			session_id, position, name, size_bytes, detected_format, corrupted,
			width, height, format, last_modified, thumbnail_ref, recovery_status,
			original_path, repair_strategy, repair_offset, checksum
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range s.Entries {
		var width, height, lastModified sql.NullInt64
		var format sql.NullString
		if e.Metadata != nil {
			width = sql.NullInt64{Int64: int64(e.Metadata.Width), Valid: true}
			height = sql.NullInt64{Int64: int64(e.Metadata.Height), Valid: true}
			format = sql.NullString{String: e.Metadata.Format, Valid: true}
			lastModified = sql.NullInt64{Int64: e.Metadata.LastModified.UnixNano(), Valid: true}
		}

		if _, err = stmt.ExecContext(ctx, s.ID, i, e.Name, e.SizeBytes, string(e.DetectedFormat), e.Corrupted,
			width, height, format, lastModified, e.ThumbnailRef, string(e.RecoveryStatus),
			e.OriginalArchivePath, e.RepairStrategy, e.RepairOffset, e.Checksum); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}

	logging.Debug("Persisted session %s with %d entries", s.ID, len(s.Entries))
	return nil
}

// LoadSessions returns every stored session, oldest first.
func (d *Database) LoadSessions(ctx context.Context) (sessions []*recovery.Session, err error) {
	start := time.Now()
	defer func() { recordQuery("load_sessions", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, source_name, status, total_entries, processed_entries,
			images_found, recovered_count, corrupted_count, started_at, ended_at, log
		FROM recovery_sessions
		ORDER BY started_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*recovery.Session)
	for rows.Next() {
		var (
			s         recovery.Session
			status    string
			startedAt int64
			endedAt   sql.NullInt64
			logJSON   string
		)
		if err = rows.Scan(&s.ID, &s.SourceName, &status, &s.TotalEntries, &s.ProcessedEntries,
			&s.ImagesFound, &s.RecoveredCount, &s.CorruptedCount, &startedAt, &endedAt, &logJSON); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.Status = recovery.Status(status)
		s.StartedAt = time.Unix(0, startedAt).UTC()
		if endedAt.Valid {
			ended := time.Unix(0, endedAt.Int64).UTC()
			s.EndedAt = &ended
		}
		if err = json.Unmarshal([]byte(logJSON), &s.Log); err != nil {
			return nil, fmt.Errorf("decode log for %s: %w", s.ID, err)
		}
		s.Entries = []recovery.PhotoFile{}

		sessions = append(sessions, &s)
		byID[s.ID] = &s
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if err = d.loadEntries(ctx, byID); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (d *Database) loadEntries(ctx context.Context, byID map[string]*recovery.Session) error {
	if len(byID) == 0 {
		return nil
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT session_id, name, size_bytes, detected_format, corrupted,
			width, height, format, last_modified, thumbnail_ref, recovery_status,
			original_path, repair_strategy, repair_offset, checksum
		FROM recovery_entries
		ORDER BY session_id, position
	`)
	if err != nil {
		return fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sessionID, detected, status string
			e                           recovery.PhotoFile
			width, height, lastModified sql.NullInt64
			format                      sql.NullString
		)
		if err := rows.Scan(&sessionID, &e.Name, &e.SizeBytes, &detected, &e.Corrupted,
			&width, &height, &format, &lastModified, &e.ThumbnailRef, &status,
			&e.OriginalArchivePath, &e.RepairStrategy, &e.RepairOffset, &e.Checksum); err != nil {
			return fmt.Errorf("scan entry: %w", err)
		}
		e.DetectedFormat = media.Format(detected)
		e.RecoveryStatus = recovery.EntryStatus(status)
		if width.Valid && height.Valid {
			e.Metadata = &recovery.PhotoMetadata{
				Width:        int(width.Int64),
				Height:       int(height.Int64),
				Format:       format.String,
				LastModified: time.Unix(0, lastModified.Int64).UTC(),
			}
		}

		if s, ok := byID[sessionID]; ok {
			s.Entries = append(s.Entries, e)
		}
	}
	return rows.Err()
}

// DeleteSession removes a session and its entries. Missing ids are ignored.
func (d *Database) DeleteSession(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { recordQuery("delete_session", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err = d.db.ExecContext(ctx, `DELETE FROM recovery_entries WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	if _, err = d.db.ExecContext(ctx, `DELETE FROM recovery_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

var _ recovery.Store = (*Database)(nil)
