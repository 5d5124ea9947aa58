// Package session persists analysis sessions: which documents were
// uploaded, their extracted text, and the result of each completed stage.
// State is held in memory and written through to SQLite, so sessions
// survive a restart.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/office-action-analyzer/internal/rebuttal"
)

var ErrNotFound = errors.New("session not found")

// Session is one analysis workspace. Documents holds the extracted text
// per role; State holds the stage results.
type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Documents rebuttal.Documents
	Sources   map[rebuttal.DocRole]string
	State     rebuttal.State
}

// Store is the session store. All methods are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	db       *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	session_id  TEXT NOT NULL,
	role        TEXT NOT NULL,
	source_name TEXT NOT NULL DEFAULT '',
	text        TEXT NOT NULL DEFAULT '',
	uploaded_at TEXT NOT NULL,
	PRIMARY KEY (session_id, role)
);

CREATE TABLE IF NOT EXISTS stage_results (
	session_id   TEXT NOT NULL,
	stage        TEXT NOT NULL,
	result_json  TEXT NOT NULL,
	completed_at TEXT NOT NULL,
	PRIMARY KEY (session_id, stage)
);
`

// Open opens or creates the store at dbPath and loads existing sessions.
func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{
		sessions: map[string]*Session{},
		db:       db,
	}
	if err := s.loadAll(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) loadAll() error {
	type sessionRow struct {
		SessionID string `db:"session_id"`
		CreatedAt string `db:"created_at"`
		UpdatedAt string `db:"updated_at"`
	}
	var rows []sessionRow
	if err := s.db.Select(&rows, `SELECT session_id, created_at, updated_at FROM sessions`); err != nil {
		return err
	}
	for _, r := range rows {
		created, _ := time.Parse(time.RFC3339Nano, r.CreatedAt)
		updated, _ := time.Parse(time.RFC3339Nano, r.UpdatedAt)
		s.sessions[r.SessionID] = &Session{
			ID:        r.SessionID,
			CreatedAt: created,
			UpdatedAt: updated,
			Sources:   map[rebuttal.DocRole]string{},
		}
	}

	type docRow struct {
		SessionID  string `db:"session_id"`
		Role       string `db:"role"`
		SourceName string `db:"source_name"`
		Text       string `db:"text"`
	}
	var docs []docRow
	if err := s.db.Select(&docs, `SELECT session_id, role, source_name, text FROM documents`); err != nil {
		return err
	}
	for _, d := range docs {
		sess, ok := s.sessions[d.SessionID]
		if !ok {
			continue
		}
		setDocument(&sess.Documents, rebuttal.DocRole(d.Role), d.Text)
		sess.Sources[rebuttal.DocRole(d.Role)] = d.SourceName
	}

	type resultRow struct {
		SessionID  string `db:"session_id"`
		Stage      string `db:"stage"`
		ResultJSON string `db:"result_json"`
	}
	var results []resultRow
	if err := s.db.Select(&results, `SELECT session_id, stage, result_json FROM stage_results`); err != nil {
		return err
	}
	for _, r := range results {
		sess, ok := s.sessions[r.SessionID]
		if !ok {
			continue
		}
		if err := unmarshalStageResult(&sess.State, rebuttal.Stage(r.Stage), []byte(r.ResultJSON)); err != nil {
			return fmt.Errorf("session %s stage %s: %w", r.SessionID, r.Stage, err)
		}
	}
	return nil
}

// Create makes a new empty session and returns its id.
func (s *Store) Create() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	sess := &Session{
		ID:        generateID(),
		CreatedAt: now,
		UpdatedAt: now,
		Sources:   map[rebuttal.DocRole]string{},
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, created_at, updated_at) VALUES (?, ?, ?)`,
		sess.ID, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	s.sessions[sess.ID] = sess
	return copySession(sess), nil
}

// Get returns a copy of the session; mutating the copy does not affect
// the store.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(sess), nil
}

// List returns copies of all sessions, newest first.
func (s *Store) List() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, copySession(sess))
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// Delete removes a session and everything stored under it.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	for _, q := range []string{
		`DELETE FROM stage_results WHERE session_id = ?`,
		`DELETE FROM documents WHERE session_id = ?`,
		`DELETE FROM sessions WHERE session_id = ?`,
	} {
		if _, err := s.db.Exec(q, id); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	delete(s.sessions, id)
	return nil
}

// PutDocument stores the extracted text of one uploaded document,
// replacing any earlier upload for the same role.
func (s *Store) PutDocument(id string, role rebuttal.DocRole, sourceName, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO documents (session_id, role, source_name, text, uploaded_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (session_id, role) DO UPDATE SET source_name = excluded.source_name, text = excluded.text, uploaded_at = excluded.uploaded_at`,
		id, string(role), sourceName, text, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	setDocument(&sess.Documents, role, text)
	sess.Sources[role] = sourceName
	return s.touch(sess, now)
}

// PutStageResult stores one stage's result, replacing any earlier result
// for the same stage and leaving other stages untouched.
func (s *Store) PutStageResult(id string, stage rebuttal.Stage, st rebuttal.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	result, ok := st.Result(stage)
	if !ok {
		return fmt.Errorf("state holds no result for %s", stage)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal %s result: %w", stage, err)
	}
	now := time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO stage_results (session_id, stage, result_json, completed_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (session_id, stage) DO UPDATE SET result_json = excluded.result_json, completed_at = excluded.completed_at`,
		id, string(stage), string(payload), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert stage result: %w", err)
	}
	if err := unmarshalStageResult(&sess.State, stage, payload); err != nil {
		return err
	}
	return s.touch(sess, now)
}

func (s *Store) touch(sess *Session, now time.Time) error {
	sess.UpdatedAt = now
	_, err := s.db.Exec(`UPDATE sessions SET updated_at = ? WHERE session_id = ?`, now.Format(time.RFC3339Nano), sess.ID)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func setDocument(d *rebuttal.Documents, role rebuttal.DocRole, text string) {
	switch role {
	case rebuttal.RoleAction:
		d.Action = text
	case rebuttal.RoleReference:
		d.Reference = text
	case rebuttal.RoleFiled:
		d.Filed = text
	case rebuttal.RolePending:
		d.Pending = text
	}
}

func unmarshalStageResult(st *rebuttal.State, stage rebuttal.Stage, payload []byte) error {
	switch stage {
	case rebuttal.StageDomainExpertise:
		var out rebuttal.ExpertiseResult
		if err := json.Unmarshal(payload, &out); err != nil {
			return err
		}
		st.Expertise = &out
	case rebuttal.StageConflictExtraction:
		var out rebuttal.ConflictResult
		if err := json.Unmarshal(payload, &out); err != nil {
			return err
		}
		st.Conflict = &out
	case rebuttal.StageFigureAnalysis:
		var out rebuttal.FigureAnalysis
		if err := json.Unmarshal(payload, &out); err != nil {
			return err
		}
		st.Figures = &out
	case rebuttal.StageFiledApplication:
		var out rebuttal.ApplicationAnalysis
		if err := json.Unmarshal(payload, &out); err != nil {
			return err
		}
		st.FiledApplication = &out
	case rebuttal.StagePendingClaims:
		var out rebuttal.ApplicationAnalysis
		if err := json.Unmarshal(payload, &out); err != nil {
			return err
		}
		st.PendingClaims = &out
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
	return nil
}

func copySession(sess *Session) *Session {
	out := &Session{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		Documents: sess.Documents,
		Sources:   make(map[rebuttal.DocRole]string, len(sess.Sources)),
	}
	for k, v := range sess.Sources {
		out.Sources[k] = v
	}
	out.State = copyState(sess.State)
	return out
}

func copyState(st rebuttal.State) rebuttal.State {
	var out rebuttal.State
	if st.Expertise != nil {
		v := *st.Expertise
		out.Expertise = &v
	}
	if st.Conflict != nil {
		v := *st.Conflict
		v.DocumentsReferenced = append([]string(nil), st.Conflict.DocumentsReferenced...)
		v.Figures = append([]string(nil), st.Conflict.Figures...)
		out.Conflict = &v
	}
	if st.Figures != nil {
		v := *st.Figures
		v.Figures = append([]rebuttal.FigureDetail(nil), st.Figures.Figures...)
		v.ExtractedParagraphs = append([]string(nil), st.Figures.ExtractedParagraphs...)
		out.Figures = &v
	}
	if st.FiledApplication != nil {
		v := copyAnalysis(*st.FiledApplication)
		out.FiledApplication = &v
	}
	if st.PendingClaims != nil {
		v := copyAnalysis(*st.PendingClaims)
		out.PendingClaims = &v
	}
	return out
}

func copyAnalysis(a rebuttal.ApplicationAnalysis) rebuttal.ApplicationAnalysis {
	a.KeyFeaturesClaim = append([]string(nil), a.KeyFeaturesClaim...)
	a.KeyFeaturesReference = append([]string(nil), a.KeyFeaturesReference...)
	a.DistinguishingFeatures = append([]string(nil), a.DistinguishingFeatures...)
	a.Amendments = append([]rebuttal.Amendment(nil), a.Amendments...)
	return a
}

func generateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
