package mapping

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/botpilote/ghlbridge/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS ghl_field_mappings (
	id                TEXT PRIMARY KEY,
	chatbot_id        TEXT NOT NULL,
	field_type        TEXT NOT NULL,
	ghl_field_key     TEXT NOT NULL,
	chatbot_parameter TEXT NOT NULL,
	location_id       TEXT NOT NULL DEFAULT '',
	company_id        TEXT NOT NULL DEFAULT '',
	updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_mappings_chatbot ON ghl_field_mappings(chatbot_id);
`

// Store wraps a sql.DB with mapping-specific operations.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("mapping: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("mapping: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("mapping: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Create inserts a new mapping.
func (s *Store) Create(m Mapping) error {
	_, err := s.conn.Exec(`
		INSERT INTO ghl_field_mappings
			(id, chatbot_id, field_type, ghl_field_key, chatbot_parameter, location_id, company_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.ChatbotID, m.FieldType, m.GHLFieldKey, m.ChatbotParameter, m.LocationID, m.CompanyID, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("mapping: insert: %w", err)
	}
	return nil
}

// Get returns one mapping by id, or apperr.ErrNotFound.
func (s *Store) Get(id string) (Mapping, error) {
	row := s.conn.QueryRow(`
		SELECT id, chatbot_id, field_type, ghl_field_key, chatbot_parameter, location_id, company_id, updated_at
		FROM ghl_field_mappings WHERE id = ?
	`, id)
	m, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Mapping{}, apperr.ErrNotFound
	}
	if err != nil {
		return Mapping{}, fmt.Errorf("mapping: get: %w", err)
	}
	return m, nil
}

// ListByChatbot returns all mappings for a chatbot, newest first.
func (s *Store) ListByChatbot(chatbotID string) ([]Mapping, error) {
	rows, err := s.conn.Query(`
		SELECT id, chatbot_id, field_type, ghl_field_key, chatbot_parameter, location_id, company_id, updated_at
		FROM ghl_field_mappings WHERE chatbot_id = ? ORDER BY updated_at DESC, id
	`, chatbotID)
	if err != nil {
		return nil, fmt.Errorf("mapping: list: %w", err)
	}
	defer rows.Close()

	out := []Mapping{}
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("mapping: scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Update replaces the client-editable fields of a mapping.
func (s *Store) Update(m Mapping) error {
	res, err := s.conn.Exec(`
		UPDATE ghl_field_mappings SET
			field_type = ?, ghl_field_key = ?, chatbot_parameter = ?,
			location_id = ?, company_id = ?, updated_at = ?
		WHERE id = ?
	`, m.FieldType, m.GHLFieldKey, m.ChatbotParameter, m.LocationID, m.CompanyID, m.UpdatedAt, m.ID)
	if err != nil {
		return fmt.Errorf("mapping: update: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Delete removes a mapping by id.
func (s *Store) Delete(id string) error {
	res, err := s.conn.Exec(`DELETE FROM ghl_field_mappings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mapping: delete: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMapping(row rowScanner) (Mapping, error) {
	var m Mapping
	var updatedAt time.Time
	err := row.Scan(&m.ID, &m.ChatbotID, &m.FieldType, &m.GHLFieldKey,
		&m.ChatbotParameter, &m.LocationID, &m.CompanyID, &updatedAt)
	if err != nil {
		return Mapping{}, err
	}
	m.UpdatedAt = updatedAt
	return m, nil
}
