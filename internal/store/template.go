package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Template is a labeled reference feature vector.
type Template struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Features  []float64 `json:"features"`
	CreatedAt time.Time `json:"created_at"`
}

// TemplateRepository provides CRUD operations for templates.
type TemplateRepository struct {
	db *sql.DB
}

// Templates returns the template repository for this store.
func (s *Store) Templates() *TemplateRepository {
	return &TemplateRepository{db: s.db}
}

// Create inserts t, assigning a new ID when t.ID is empty.
func (r *TemplateRepository) Create(t *Template) error {
	if t.Symbol == "" {
		return errors.New("template symbol is required")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	features, err := json.Marshal(t.Features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}
	t.CreatedAt = time.Now()

	_, err = r.db.Exec(
		`INSERT INTO templates (id, symbol, features, created_at) VALUES (?, ?, ?, ?)`,
		t.ID, t.Symbol, string(features), t.CreatedAt,
	)
	return err
}

// GetByID retrieves a template by its ID.
func (r *TemplateRepository) GetByID(id string) (*Template, error) {
	row := r.db.QueryRow(
		`SELECT id, symbol, features, created_at FROM templates WHERE id = ?`,
		id,
	)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// List retrieves all templates, oldest first.
func (r *TemplateRepository) List() ([]*Template, error) {
	return r.query(`SELECT id, symbol, features, created_at FROM templates ORDER BY created_at, id`)
}

// ListBySymbol retrieves the templates labeled symbol.
func (r *TemplateRepository) ListBySymbol(symbol string) ([]*Template, error) {
	return r.query(`SELECT id, symbol, features, created_at FROM templates WHERE symbol = ? ORDER BY created_at, id`, symbol)
}

// Delete removes a template by its ID.
func (r *TemplateRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM templates WHERE id = ?`, id)
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

func (r *TemplateRepository) query(q string, args ...any) ([]*Template, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return templates, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(s scanner) (*Template, error) {
	t := &Template{}
	var features string
	if err := s.Scan(&t.ID, &t.Symbol, &features, &t.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(features), &t.Features); err != nil {
		return nil, fmt.Errorf("decode features of template %s: %w", t.ID, err)
	}
	return t, nil
}
