package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// GenerationRecord is the persisted form of a terminal generation result.
type GenerationRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Provider  string    `json:"provider"`
	MediaKind string    `json:"mediaKind"`
	Model     string    `json:"model,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Outputs   []string  `json:"outputs,omitempty"`
	Seed      int64     `json:"seed,omitempty"`
	Cost      float64   `json:"cost"`
	CreatedAt time.Time `json:"createdAt"`
}

// SaveGeneration records a terminal generation result.
func (s *Store) SaveGeneration(rec *GenerationRecord) error {
	outputs, err := json.Marshal(rec.Outputs)
	if err != nil {
		return err
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO generations (id, session_id, provider, media_kind, model, prompt, status, error, outputs, seed, cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.Exec(query,
		rec.ID,
		rec.SessionID,
		rec.Provider,
		rec.MediaKind,
		rec.Model,
		rec.Prompt,
		rec.Status,
		rec.Error,
		string(outputs),
		rec.Seed,
		rec.Cost,
		rec.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
	)
	return err
}

// GetGeneration returns a single generation record by id.
func (s *Store) GetGeneration(id string) (*GenerationRecord, error) {
	query := `
		SELECT id, session_id, provider, media_kind, model, prompt, status, error, outputs, seed, cost, created_at
		FROM generations
		WHERE id = ?
	`
	rec, err := scanGeneration(s.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// ListRecent returns the most recent generation records, newest first.
func (s *Store) ListRecent(limit int) ([]*GenerationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, session_id, provider, media_kind, model, prompt, status, error, outputs, seed, cost, created_at
		FROM generations
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*GenerationRecord
	for rows.Next() {
		rec, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetSessionCost returns the total cost accrued by one session.
func (s *Store) GetSessionCost(sessionID string) (float64, error) {
	var cost float64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(cost), 0) FROM generations WHERE session_id = ?`,
		sessionID,
	).Scan(&cost)
	return cost, err
}

// GetDailyCost returns the total generation cost accrued today.
func (s *Store) GetDailyCost() (float64, error) {
	query := `
		SELECT COALESCE(SUM(cost), 0)
		FROM generations
		WHERE strftime('%Y-%m-%d', created_at) = strftime('%Y-%m-%d', 'now')
	`
	var cost float64
	err := s.db.QueryRow(query).Scan(&cost)
	return cost, err
}

// GetMonthlyCost returns the total generation cost for the current month.
func (s *Store) GetMonthlyCost() (float64, error) {
	query := `
		SELECT COALESCE(SUM(cost), 0)
		FROM generations
		WHERE strftime('%Y-%m', created_at) = strftime('%Y-%m', 'now')
	`
	var cost float64
	err := s.db.QueryRow(query).Scan(&cost)
	return cost, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row rowScanner) (*GenerationRecord, error) {
	var rec GenerationRecord
	var outputs string
	var createdAt string

	err := row.Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.Provider,
		&rec.MediaKind,
		&rec.Model,
		&rec.Prompt,
		&rec.Status,
		&rec.Error,
		&outputs,
		&rec.Seed,
		&rec.Cost,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if outputs != "" && outputs != "null" {
		if err := json.Unmarshal([]byte(outputs), &rec.Outputs); err != nil {
			return nil, err
		}
	}
	if t, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
		rec.CreatedAt = t
	}
	return &rec, nil
}
