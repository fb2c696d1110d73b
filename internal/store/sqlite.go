package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/homequote/intake/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			phase TEXT NOT NULL,
			slots TEXT NOT NULL DEFAULT '{}',
			project_id TEXT,
			bid_card_id TEXT,
			image_ref TEXT,
			vision TEXT,
			error_message TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS projects (
			project_id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			location_code TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS bid_cards (
			bid_card_id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			primary_category TEXT NOT NULL,
			primary_subtype TEXT NOT NULL,
			primary_confidence REAL NOT NULL,
			secondary_category TEXT NOT NULL,
			secondary_subtype TEXT NOT NULL,
			secondary_confidence REAL NOT NULL,
			tertiary_category TEXT NOT NULL,
			tertiary_subtype TEXT NOT NULL,
			tertiary_confidence REAL NOT NULL,
			budget_range TEXT,
			timeline TEXT,
			photo_meta TEXT,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (project_id) REFERENCES projects(project_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bid_cards_project ON bid_cards(project_id)`,
		`CREATE TABLE IF NOT EXISTS preferences (
			user_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, key)
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	slotsJSON, err := json.Marshal(session.Slots)
	if err != nil {
		return fmt.Errorf("failed to marshal slots: %w", err)
	}
	visionJSON, err := marshalVision(session.Vision)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, phase, slots, project_id, bid_card_id, image_ref, vision, error_message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.SessionID, session.UserID, string(session.Phase), string(slotsJSON),
		nullable(session.ProjectID), nullable(session.BidCardID), nullable(session.ImageRef),
		visionJSON, nullable(session.ErrorMessage), session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession returns a session by id, or nil when absent.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, phase, slots, project_id, bid_card_id, image_ref, vision, error_message, created_at, updated_at
		 FROM sessions WHERE session_id = ?`, sessionID)

	var session domain.Session
	var phase, slotsJSON string
	var projectID, bidCardID, imageRef, vision, errMsg sql.NullString
	err := row.Scan(&session.SessionID, &session.UserID, &phase, &slotsJSON,
		&projectID, &bidCardID, &imageRef, &vision, &errMsg,
		&session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.Phase = domain.Phase(phase)
	if err := json.Unmarshal([]byte(slotsJSON), &session.Slots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal slots: %w", err)
	}
	session.ProjectID = projectID.String
	session.BidCardID = bidCardID.String
	session.ImageRef = imageRef.String
	session.ErrorMessage = errMsg.String
	if vision.Valid && vision.String != "" {
		var v domain.VisionAnalysis
		if err := json.Unmarshal([]byte(vision.String), &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal vision: %w", err)
		}
		session.Vision = &v
	}
	return &session, nil
}

// UpdateSession rewrites the mutable columns of a session.
func (s *SQLiteStore) UpdateSession(ctx context.Context, session *domain.Session) error {
	slotsJSON, err := json.Marshal(session.Slots)
	if err != nil {
		return fmt.Errorf("failed to marshal slots: %w", err)
	}
	visionJSON, err := marshalVision(session.Vision)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET phase = ?, slots = ?, project_id = ?, bid_card_id = ?, image_ref = ?, vision = ?, error_message = ?, updated_at = ?
		 WHERE session_id = ?`,
		string(session.Phase), string(slotsJSON),
		nullable(session.ProjectID), nullable(session.BidCardID), nullable(session.ImageRef),
		visionJSON, nullable(session.ErrorMessage), time.Now(), session.SessionID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s not found", session.SessionID)
	}
	return nil
}

// DeleteSession removes a session and, via cascade, its messages.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CreateMessage inserts a message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *domain.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.MessageID, msg.SessionID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// GetMessages returns up to limit messages for a session in chronological order.
func (s *SQLiteStore) GetMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, session_id, role, content, created_at
		 FROM messages WHERE session_id = ?
		 ORDER BY created_at ASC, message_id ASC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.MessageID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CreateProject inserts a project record.
func (s *SQLiteStore) CreateProject(ctx context.Context, project *domain.Project) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (project_id, owner_id, title, description, location_code, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ProjectID, project.OwnerID, project.Title, project.Description,
		project.LocationCode, project.Status, project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetProject returns a project by id, or nil when absent.
func (s *SQLiteStore) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT project_id, owner_id, title, description, location_code, status, created_at, updated_at
		 FROM projects WHERE project_id = ?`, projectID)

	var p domain.Project
	err := row.Scan(&p.ProjectID, &p.OwnerID, &p.Title, &p.Description,
		&p.LocationCode, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// updatableProjectColumns guards against arbitrary column injection from
// capability args.
var updatableProjectColumns = map[string]bool{
	"title":         true,
	"description":   true,
	"location_code": true,
	"status":        true,
}

// UpdateProject updates the given columns of a project.
func (s *SQLiteStore) UpdateProject(ctx context.Context, projectID string, fields map[string]string) error {
	var (
		sets []string
		args []any
	)
	for col, val := range fields {
		if !updatableProjectColumns[col] {
			return fmt.Errorf("field %q is not updatable", col)
		}
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	if len(sets) == 0 {
		return fmt.Errorf("no fields to update")
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now(), projectID)

	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE project_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s not found", projectID)
	}
	return nil
}

// CreateBidCard inserts a bid card.
func (s *SQLiteStore) CreateBidCard(ctx context.Context, card *domain.BidCard) error {
	photoJSON, err := marshalVision(card.PhotoMeta)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bid_cards (bid_card_id, project_id,
			primary_category, primary_subtype, primary_confidence,
			secondary_category, secondary_subtype, secondary_confidence,
			tertiary_category, tertiary_subtype, tertiary_confidence,
			budget_range, timeline, photo_meta, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.BidCardID, card.ProjectID,
		card.PrimaryCategory, card.PrimarySubtype, card.PrimaryConfidence,
		card.SecondaryCategory, card.SecondarySubtype, card.SecondaryConfidence,
		card.TertiaryCategory, card.TertiarySubtype, card.TertiaryConfidence,
		nullable(card.BudgetRange), nullable(card.Timeline), photoJSON,
		card.Status, card.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bid card: %w", err)
	}
	return nil
}

// GetBidCard returns a bid card by id, or nil when absent.
func (s *SQLiteStore) GetBidCard(ctx context.Context, bidCardID string) (*domain.BidCard, error) {
	return s.scanBidCard(s.db.QueryRowContext(ctx,
		bidCardSelect+` WHERE bid_card_id = ?`, bidCardID))
}

// GetBidCardByProject returns the bid card for a project, or nil.
func (s *SQLiteStore) GetBidCardByProject(ctx context.Context, projectID string) (*domain.BidCard, error) {
	return s.scanBidCard(s.db.QueryRowContext(ctx,
		bidCardSelect+` WHERE project_id = ? ORDER BY created_at DESC LIMIT 1`, projectID))
}

const bidCardSelect = `SELECT bid_card_id, project_id,
	primary_category, primary_subtype, primary_confidence,
	secondary_category, secondary_subtype, secondary_confidence,
	tertiary_category, tertiary_subtype, tertiary_confidence,
	budget_range, timeline, photo_meta, status, created_at
	FROM bid_cards`

func (s *SQLiteStore) scanBidCard(row *sql.Row) (*domain.BidCard, error) {
	var card domain.BidCard
	var budget, timeline, photoMeta sql.NullString
	err := row.Scan(&card.BidCardID, &card.ProjectID,
		&card.PrimaryCategory, &card.PrimarySubtype, &card.PrimaryConfidence,
		&card.SecondaryCategory, &card.SecondarySubtype, &card.SecondaryConfidence,
		&card.TertiaryCategory, &card.TertiarySubtype, &card.TertiaryConfidence,
		&budget, &timeline, &photoMeta, &card.Status, &card.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bid card: %w", err)
	}
	card.BudgetRange = budget.String
	card.Timeline = timeline.String
	if photoMeta.Valid && photoMeta.String != "" {
		var v domain.VisionAnalysis
		if err := json.Unmarshal([]byte(photoMeta.String), &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal photo meta: %w", err)
		}
		card.PhotoMeta = &v
	}
	return &card, nil
}

// GetPreference returns a stored preference, or nil when absent.
func (s *SQLiteStore) GetPreference(ctx context.Context, userID, key string) (*domain.Preference, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, key, value, confidence, updated_at FROM preferences WHERE user_id = ? AND key = ?`,
		userID, key)

	var p domain.Preference
	err := row.Scan(&p.UserID, &p.Key, &p.Value, &p.Confidence, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preference: %w", err)
	}
	return &p, nil
}

// SetPreference upserts a preference.
func (s *SQLiteStore) SetPreference(ctx context.Context, pref *domain.Preference) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (user_id, key, value, confidence, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, confidence = excluded.confidence, updated_at = excluded.updated_at`,
		pref.UserID, pref.Key, pref.Value, pref.Confidence, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set preference: %w", err)
	}
	return nil
}

func marshalVision(v *domain.VisionAnalysis) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal vision: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
