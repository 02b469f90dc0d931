package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Transcript is one committed phrase.
type Transcript struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// TranscriptRepository records committed phrases.
type TranscriptRepository struct {
	db *sql.DB
}

// Transcripts returns the transcript repository for this store.
func (s *Store) Transcripts() *TranscriptRepository {
	return &TranscriptRepository{db: s.db}
}

// Create records text and returns the stored transcript.
func (r *TranscriptRepository) Create(text string) (*Transcript, error) {
	t := &Transcript{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: time.Now(),
	}

	_, err := r.db.Exec(
		`INSERT INTO transcripts (id, text, created_at) VALUES (?, ?, ?)`,
		t.ID, t.Text, t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List returns up to limit transcripts, newest first. A limit of zero or
// less returns all of them.
func (r *TranscriptRepository) List(limit int) ([]*Transcript, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, text, created_at FROM transcripts ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transcripts []*Transcript
	for rows.Next() {
		t := &Transcript{}
		if err := rows.Scan(&t.ID, &t.Text, &t.CreatedAt); err != nil {
			return nil, err
		}
		transcripts = append(transcripts, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return transcripts, nil
}

// Delete removes a transcript by its ID.
func (r *TranscriptRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM transcripts WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
