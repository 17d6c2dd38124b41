// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package issuestore persists the issue cache and generated summaries in a
// SQLite database. Implements: prd001-ingest (R1-R4), prd007-persistence (R1-R3);
//
//	docs/ARCHITECTURE § Issue Store.
package issuestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/issue-digest/pkg/types"
)

const dbFile = "issue-digest.db"

// Lookup failures callers branch on at the transport boundary.
var (
	ErrIssueNotFound   = errors.New("issue not found")
	ErrSummaryNotFound = errors.New("summary not found")
)

// Store manages the issue cache and summary tables.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the SQLite database at dataDir/issue-digest.db
// and creates the schema if it does not exist (prd001 R1.2).
func NewStore(cfg types.StoreConfig) (*Store, error) {
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

	s := &Store{db: db}
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
		`CREATE TABLE IF NOT EXISTS issues (
			scraper_key TEXT NOT NULL,
			issue_id TEXT NOT NULL,
			journal TEXT,
			volume TEXT,
			number TEXT,
			year INTEGER,
			fetched_at TEXT,
			PRIMARY KEY (scraper_key, issue_id)
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			scraper_key TEXT NOT NULL,
			issue_id TEXT NOT NULL,
			article_id TEXT NOT NULL,
			title TEXT,
			full_text TEXT,
			abstract TEXT,
			PRIMARY KEY (scraper_key, issue_id, article_id),
			FOREIGN KEY (scraper_key, issue_id) REFERENCES issues(scraper_key, issue_id)
		)`,
		// user_id NULL marks the shared summary slot. SQLite treats NULLs as
		// distinct in UNIQUE constraints, so the conflict clause never fires
		// for that slot; SaveSummary compensates with delete-then-insert
		// (prd007 R2.2).
		`CREATE TABLE IF NOT EXISTS summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			scraper_key TEXT NOT NULL,
			issue_id TEXT NOT NULL,
			user_id TEXT,
			run_id TEXT,
			summary TEXT NOT NULL,
			extractions TEXT,
			citation_map TEXT,
			statistics TEXT,
			paper_count INTEGER,
			failed_papers TEXT,
			model_used TEXT,
			tokens_extraction INTEGER,
			tokens_synthesis INTEGER,
			cost_estimate REAL,
			created_at TEXT,
			UNIQUE (scraper_key, issue_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_summaries_issue ON summaries(scraper_key, issue_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// ImportIssue upserts an issue descriptor and replaces its cached articles
// in one transaction (prd001 R1.3, R2.2).
func (s *Store) ImportIssue(ctx context.Context, file types.IssueFile) error {
	if file.ScraperKey == "" || file.IssueID == "" {
		return fmt.Errorf("issue file missing scraper_key or issue_id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	fetchedAt := file.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO issues (scraper_key, issue_id, journal, volume, number, year, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(scraper_key, issue_id) DO UPDATE SET
			journal=excluded.journal, volume=excluded.volume, number=excluded.number,
			year=excluded.year, fetched_at=excluded.fetched_at`,
		file.ScraperKey, file.IssueID, file.Info.Journal, file.Info.Volume,
		file.Info.Number, file.Info.Year, fetchedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting issue: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM articles WHERE scraper_key = ? AND issue_id = ?`,
		file.ScraperKey, file.IssueID,
	); err != nil {
		return fmt.Errorf("clearing old articles: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO articles (scraper_key, issue_id, article_id, title, full_text, abstract)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing article insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range file.Articles {
		if a.ID == "" {
			return fmt.Errorf("article %q missing id", a.Title)
		}
		if _, err := stmt.ExecContext(ctx,
			file.ScraperKey, file.IssueID, a.ID, a.Title, a.FullText, a.Abstract,
		); err != nil {
			return fmt.Errorf("inserting article %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// IssueRecord is a cached issue with its article count.
type IssueRecord struct {
	ScraperKey   string          `json:"scraper_key" yaml:"scraper_key"`
	IssueID      string          `json:"issue_id" yaml:"issue_id"`
	Info         types.IssueInfo `json:"info" yaml:"info"`
	FetchedAt    time.Time       `json:"fetched_at" yaml:"fetched_at"`
	ArticleCount int             `json:"article_count" yaml:"article_count"`
}

// ListIssues returns all cached issues ordered by scraper key and issue ID.
func (s *Store) ListIssues(ctx context.Context) ([]IssueRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT i.scraper_key, i.issue_id, i.journal, i.volume, i.number, i.year, i.fetched_at,
			(SELECT count(*) FROM articles a
			 WHERE a.scraper_key = i.scraper_key AND a.issue_id = i.issue_id)
		 FROM issues i
		 ORDER BY i.scraper_key, i.issue_id`)
	if err != nil {
		return nil, fmt.Errorf("listing issues: %w", err)
	}
	defer rows.Close()

	var records []IssueRecord
	for rows.Next() {
		rec, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetIssue returns one cached issue or ErrIssueNotFound.
func (s *Store) GetIssue(ctx context.Context, scraperKey, issueID string) (*IssueRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT i.scraper_key, i.issue_id, i.journal, i.volume, i.number, i.year, i.fetched_at,
			(SELECT count(*) FROM articles a
			 WHERE a.scraper_key = i.scraper_key AND a.issue_id = i.issue_id)
		 FROM issues i
		 WHERE i.scraper_key = ? AND i.issue_id = ?`,
		scraperKey, issueID)

	rec, err := scanIssue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIssueNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// rowScanner covers *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (IssueRecord, error) {
	var (
		rec       IssueRecord
		fetchedAt sql.NullString
	)
	err := row.Scan(
		&rec.ScraperKey, &rec.IssueID, &rec.Info.Journal, &rec.Info.Volume,
		&rec.Info.Number, &rec.Info.Year, &fetchedAt, &rec.ArticleCount,
	)
	if err != nil {
		return IssueRecord{}, err
	}
	if fetchedAt.Valid {
		if t, perr := time.Parse(time.RFC3339, fetchedAt.String); perr == nil {
			rec.FetchedAt = t
		}
	}
	return rec, nil
}

// Documents returns the issue's articles that carry extractable text, full
// text preferred over abstract, in cached article order (prd001 R4.1, R4.2).
// Zero documents is not an error here; the caller treats it as a
// precondition failure.
func (s *Store) Documents(ctx context.Context, scraperKey, issueID string) ([]types.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT article_id, title, full_text, abstract
		 FROM articles
		 WHERE scraper_key = ? AND issue_id = ?
		 ORDER BY rowid`,
		scraperKey, issueID)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		var a types.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.FullText, &a.Abstract); err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		if doc, ok := a.Document(); ok {
			docs = append(docs, doc)
		}
	}
	return docs, rows.Err()
}

// SaveSummary persists a pipeline result for (scraperKey, issueID, userID).
// With a viewer identity the row is upserted on the unique key. Without one
// the NULL user_id slot cannot rely on conflict resolution — SQLite never
// matches NULL against NULL in UNIQUE constraints — so the shared slot is
// cleared and rewritten in one transaction (prd007 R2.2, R2.3).
func (s *Store) SaveSummary(ctx context.Context, scraperKey, issueID string, userID *string, result *types.PipelineResult) error {
	extractionsJSON, err := json.Marshal(result.Extractions)
	if err != nil {
		return fmt.Errorf("marshaling extractions: %w", err)
	}
	citationJSON, err := json.Marshal(result.CitationMap)
	if err != nil {
		return fmt.Errorf("marshaling citation map: %w", err)
	}
	statsJSON, err := json.Marshal(result.Statistics)
	if err != nil {
		return fmt.Errorf("marshaling statistics: %w", err)
	}
	failedJSON, err := json.Marshal(result.FailedPapers)
	if err != nil {
		return fmt.Errorf("marshaling failed papers: %w", err)
	}

	createdAt := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if userID == nil {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM summaries WHERE scraper_key = ? AND issue_id = ? AND user_id IS NULL`,
			scraperKey, issueID,
		); err != nil {
			return fmt.Errorf("clearing shared summary: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertSummarySQL,
			scraperKey, issueID, nil, result.RunID, result.Summary,
			string(extractionsJSON), string(citationJSON), string(statsJSON),
			result.PaperCount, string(failedJSON), result.ModelUsed,
			result.TokensExtraction, result.TokensSynthesis, result.CostEstimate,
			createdAt,
		); err != nil {
			return fmt.Errorf("inserting shared summary: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx, insertSummarySQL+`
			 ON CONFLICT(scraper_key, issue_id, user_id) DO UPDATE SET
				run_id=excluded.run_id, summary=excluded.summary,
				extractions=excluded.extractions, citation_map=excluded.citation_map,
				statistics=excluded.statistics, paper_count=excluded.paper_count,
				failed_papers=excluded.failed_papers, model_used=excluded.model_used,
				tokens_extraction=excluded.tokens_extraction,
				tokens_synthesis=excluded.tokens_synthesis,
				cost_estimate=excluded.cost_estimate, created_at=excluded.created_at`,
			scraperKey, issueID, *userID, result.RunID, result.Summary,
			string(extractionsJSON), string(citationJSON), string(statsJSON),
			result.PaperCount, string(failedJSON), result.ModelUsed,
			result.TokensExtraction, result.TokensSynthesis, result.CostEstimate,
			createdAt,
		); err != nil {
			return fmt.Errorf("upserting summary: %w", err)
		}
	}

	return tx.Commit()
}

const insertSummarySQL = `INSERT INTO summaries
	(scraper_key, issue_id, user_id, run_id, summary, extractions, citation_map,
	 statistics, paper_count, failed_papers, model_used, tokens_extraction,
	 tokens_synthesis, cost_estimate, created_at)
	 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// GetSummary returns the stored summary for (scraperKey, issueID, userID),
// where nil userID selects the shared slot. Returns ErrSummaryNotFound when
// no row matches.
func (s *Store) GetSummary(ctx context.Context, scraperKey, issueID string, userID *string) (*types.StoredSummary, error) {
	query := `SELECT scraper_key, issue_id, user_id, run_id, summary, extractions,
		citation_map, statistics, paper_count, failed_papers, model_used,
		tokens_extraction, tokens_synthesis, cost_estimate, created_at
		FROM summaries WHERE scraper_key = ? AND issue_id = ?`
	args := []any{scraperKey, issueID}
	if userID == nil {
		query += ` AND user_id IS NULL`
	} else {
		query += ` AND user_id = ?`
		args = append(args, *userID)
	}

	var (
		stored      types.StoredSummary
		storedUser  sql.NullString
		runID       sql.NullString
		extractions sql.NullString
		citationMap sql.NullString
		statistics  sql.NullString
		failed      sql.NullString
		createdAt   sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&stored.ScraperKey, &stored.IssueID, &storedUser, &runID, &stored.Summary,
		&extractions, &citationMap, &statistics, &stored.PaperCount, &failed,
		&stored.ModelUsed, &stored.TokensExtraction, &stored.TokensSynthesis,
		&stored.CostEstimate, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSummaryNotFound
		}
		return nil, fmt.Errorf("querying summary: %w", err)
	}

	if storedUser.Valid {
		stored.UserID = &storedUser.String
	}
	if runID.Valid {
		stored.RunID = runID.String
	}
	if extractions.Valid {
		json.Unmarshal([]byte(extractions.String), &stored.Extractions)
	}
	if citationMap.Valid {
		json.Unmarshal([]byte(citationMap.String), &stored.CitationMap)
	}
	if statistics.Valid {
		json.Unmarshal([]byte(statistics.String), &stored.Statistics)
	}
	if failed.Valid {
		json.Unmarshal([]byte(failed.String), &stored.FailedPapers)
	}
	if createdAt.Valid {
		if t, perr := time.Parse(time.RFC3339, createdAt.String); perr == nil {
			stored.CreatedAt = t
		}
	}

	return &stored, nil
}

// CountSummaries reports how many summary rows exist for an issue across all
// viewer slots. Used by regeneration tests and the issues command.
func (s *Store) CountSummaries(ctx context.Context, scraperKey, issueID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM summaries WHERE scraper_key = ? AND issue_id = ?`,
		scraperKey, issueID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting summaries: %w", err)
	}
	return n, nil
}
