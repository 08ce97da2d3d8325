package storage

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/Chinu7077/Talk-to-Chinu/internal/model"
	"github.com/Chinu7077/Talk-to-Chinu/pkg/logger"

	"github.com/lib/pq"
)

//go:embed migrations.sql
var migrations embed.FS

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// PostgresStore implements both Store and KV on a shared connection, so a
// database-backed deployment keeps sessions and counters in one place.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageInit, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	s := &PostgresStore{db: db}
	if err := s.initializeSchema(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	logger.Infof("Postgres storage initialized at %s:%d/%s", cfg.Host, cfg.Port, cfg.DBName)
	return s, nil
}

func (s *PostgresStore) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.Exec(string(migrationSQL))
	return err
}

func (s *PostgresStore) Load() ([]*model.Session, error) {
	rows, err := s.db.Query(`
		SELECT id, title, created_at, updated_at
		FROM sessions
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("error querying sessions: %v", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	byID := make(map[string]*model.Session)
	for rows.Next() {
		session := &model.Session{Messages: []model.Message{}}
		if err := rows.Scan(&session.ID, &session.Title, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning session: %v", err)
		}
		sessions = append(sessions, session)
		byID[session.ID] = session
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %v", err)
	}

	msgRows, err := s.db.Query(`
		SELECT session_id, id, text, is_user, timestamp
		FROM messages
		ORDER BY session_id, position`)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %v", err)
	}
	defer msgRows.Close()

	for msgRows.Next() {
		var sessionID string
		var msg model.Message
		if err := msgRows.Scan(&sessionID, &msg.ID, &msg.Text, &msg.IsUser, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning message: %v", err)
		}
		if session, ok := byID[sessionID]; ok {
			session.Messages = append(session.Messages, msg)
		}
	}
	if err := msgRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %v", err)
	}

	if sessions == nil {
		sessions = []*model.Session{}
	}
	return sessions, nil
}

// Save reconciles the database against the full in-memory collection in one
// transaction: sessions missing from the list are removed, the rest are
// upserted and their message lists replaced.
func (s *PostgresStore) Save(sessions []*model.Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %v", err)
	}
	defer tx.Rollback()

	keep := make([]string, 0, len(sessions))
	for _, session := range sessions {
		keep = append(keep, session.ID)
	}

	if _, err := tx.Exec(`DELETE FROM sessions WHERE NOT (id = ANY($1))`, pq.Array(keep)); err != nil {
		return fmt.Errorf("error pruning sessions: %v", err)
	}

	for _, session := range sessions {
		_, err := tx.Exec(`
			INSERT INTO sessions (id, title, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET title = $2, updated_at = $4`,
			session.ID, session.Title, session.CreatedAt, session.UpdatedAt)
		if err != nil {
			return fmt.Errorf("error upserting session: %v", err)
		}

		if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = $1`, session.ID); err != nil {
			return fmt.Errorf("error clearing messages: %v", err)
		}

		for i, msg := range session.Messages {
			_, err := tx.Exec(`
				INSERT INTO messages (id, session_id, position, text, is_user, timestamp)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				msg.ID, session.ID, i, msg.Text, msg.IsUser, msg.Timestamp)
			if err != nil {
				return fmt.Errorf("error inserting message: %v", err)
			}
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("error querying kv: %v", err)
	}
	return value, true, nil
}

func (s *PostgresStore) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = $2`, key, value)
	if err != nil {
		return fmt.Errorf("error upserting kv: %v", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
