// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists research outcomes and answers queries over past runs.
// Implements: prd014-research-history (R1-R5);
//
//	docs/ARCHITECTURE § Research History.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-agent/pkg/types"
)

const dbFile = "history.db"

// Store manages the research history SQLite database.
type Store struct {
	db      *sql.DB
	maxList int
}

// Research is one stored research run.
type Research struct {
	ID          string               `json:"id" yaml:"id"`
	Query       string               `json:"query" yaml:"query"`
	Answer      string               `json:"answer" yaml:"answer"`
	QueriesUsed []string             `json:"queries_used" yaml:"queries_used"`
	Sources     []types.SearchResult `json:"sources" yaml:"sources"`
	CreatedAt   time.Time            `json:"created_at" yaml:"created_at"`
}

// NewStore opens or creates the history database at dataDir/history.db and
// the schema inside it (R1.1, R1.2).
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxList := cfg.MaxList
	if maxList <= 0 {
		maxList = 50
	}

	s := &Store{db: db, maxList: maxList}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS researches (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			query TEXT NOT NULL,
			answer TEXT NOT NULL,
			queries_used TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sources (
			research_id TEXT NOT NULL REFERENCES researches(id),
			position INTEGER NOT NULL,
			title TEXT,
			link TEXT,
			snippet TEXT,
			source TEXT,
			date TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_research_id ON sources(research_id)`,
		`CREATE INDEX IF NOT EXISTS idx_researches_created_at ON researches(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='researches_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE researches_fts USING fts5(query, answer, content=researches, content_rowid=rowid)`,
			`CREATE TRIGGER researches_ai AFTER INSERT ON researches BEGIN
				INSERT INTO researches_fts(rowid, query, answer) VALUES (new.rowid, new.query, new.answer);
			END`,
			`CREATE TRIGGER researches_ad AFTER DELETE ON researches BEGIN
				INSERT INTO researches_fts(researches_fts, rowid, query, answer) VALUES('delete', old.rowid, old.query, old.answer);
			END`,
			`CREATE TRIGGER researches_au AFTER UPDATE ON researches BEGIN
				INSERT INTO researches_fts(researches_fts, rowid, query, answer) VALUES('delete', old.rowid, old.query, old.answer);
				INSERT INTO researches_fts(rowid, query, answer) VALUES (new.rowid, new.query, new.answer);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// Save stores one research run and returns the stored record with its
// generated ID (R2.1, R2.2). Sources keep their pipeline order.
func (s *Store) Save(ctx context.Context, query string, outcome types.ResearchOutcome) (*Research, error) {
	rec := &Research{
		ID:          uuid.NewString(),
		Query:       query,
		Answer:      outcome.AnswerText,
		QueriesUsed: outcome.QueriesUsed,
		Sources:     outcome.Sources,
		CreatedAt:   time.Now().UTC(),
	}

	queriesJSON, err := json.Marshal(rec.QueriesUsed)
	if err != nil {
		return nil, fmt.Errorf("marshaling queries: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO researches (id, query, answer, queries_used, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Query, rec.Answer, string(queriesJSON),
		rec.CreatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("inserting research: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sources (research_id, position, title, link, snippet, source, date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing source insert: %w", err)
	}
	defer stmt.Close()

	for i, src := range rec.Sources {
		if _, err := stmt.ExecContext(ctx,
			rec.ID, i, src.Title, src.Link, src.Snippet, src.Source, src.Date,
		); err != nil {
			return nil, fmt.Errorf("inserting source %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing research: %w", err)
	}

	return rec, nil
}

// List returns stored researches, newest first, without their sources (R3.1).
// A limit <= 0 uses the store default.
func (s *Store) List(ctx context.Context, limit int) ([]Research, error) {
	if limit <= 0 {
		limit = s.maxList
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, answer, queries_used, created_at
		 FROM researches
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing researches: %w", err)
	}
	defer rows.Close()

	return scanResearches(rows)
}

// Get returns one stored research with its sources in saved order (R3.2).
func (s *Store) Get(ctx context.Context, id string) (*Research, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, query, answer, queries_used, created_at
		 FROM researches WHERE id = ?`, id)

	rec, err := scanResearch(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("research %s not found", id)
		}
		return nil, fmt.Errorf("loading research: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT title, link, snippet, source, date
		 FROM sources WHERE research_id = ?
		 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("loading sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var src types.SearchResult
		if err := rows.Scan(&src.Title, &src.Link, &src.Snippet, &src.Source, &src.Date); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		rec.Sources = append(rec.Sources, src)
	}

	return rec, rows.Err()
}

// SearchHistory runs a full-text query over stored queries and answers,
// most relevant first (R4.1). A limit <= 0 uses the store default.
func (s *Store) SearchHistory(ctx context.Context, text string, limit int) ([]Research, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("history search text is empty")
	}
	if limit <= 0 {
		limit = s.maxList
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.query, r.answer, r.queries_used, r.created_at
		 FROM researches_fts
		 JOIN researches r ON r.rowid = researches_fts.rowid
		 WHERE researches_fts MATCH ?
		 ORDER BY researches_fts.rank
		 LIMIT ?`, text, limit)
	if err != nil {
		return nil, fmt.Errorf("searching history: %w", err)
	}
	defer rows.Close()

	return scanResearches(rows)
}

// Clear deletes every stored research and its sources (R5.1).
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sources`); err != nil {
		return fmt.Errorf("clearing sources: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM researches`); err != nil {
		return fmt.Errorf("clearing researches: %w", err)
	}

	return tx.Commit()
}

// Count returns the number of stored researches.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM researches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting researches: %w", err)
	}
	return n, nil
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanResearch(row rowScanner) (*Research, error) {
	var (
		rec         Research
		queriesJSON sql.NullString
		createdAt   string
	)

	if err := row.Scan(&rec.ID, &rec.Query, &rec.Answer, &queriesJSON, &createdAt); err != nil {
		return nil, err
	}

	if queriesJSON.Valid && queriesJSON.String != "" {
		if err := json.Unmarshal([]byte(queriesJSON.String), &rec.QueriesUsed); err != nil {
			return nil, fmt.Errorf("parsing stored queries: %w", err)
		}
	}

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing stored timestamp: %w", err)
	}
	rec.CreatedAt = t

	return &rec, nil
}

func scanResearches(rows *sql.Rows) ([]Research, error) {
	var records []Research
	for rows.Next() {
		rec, err := scanResearch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning research row: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
