package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"padim-inspector/internal/domain/entity"
	"padim-inspector/internal/domain/port"
)

// SQLiteResultRepository — журнал оценок изображений в SQLite.
type SQLiteResultRepository struct {
	db *sql.DB
}

// OpenSQLiteResults открывает (или создаёт) базу по пути path. ":memory:" открывает базу в памяти.
func OpenSQLiteResults(ctx context.Context, path string) (*SQLiteResultRepository, error) {
	// Одно соединение: база в памяти живёт, пока оно открыто.
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create results dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}
	db.SetMaxOpenConns(1)

	r := &SQLiteResultRepository{db: db}
	if err := r.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteResultRepository) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	arch TEXT NOT NULL,
	experiment TEXT NOT NULL,
	modality TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS scores (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	image TEXT NOT NULL,
	score REAL NOT NULL,
	PRIMARY KEY (run_id, image)
)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init results schema: %w", err)
		}
	}
	return nil
}

// Record записывает проход и оценки всех его изображений в одной транзакции.
func (r *SQLiteResultRepository) Record(ctx context.Context, eval *entity.Evaluation) error {
	if len(eval.Names) != len(eval.Scores) {
		return fmt.Errorf("record run %s: %d names for %d scores", eval.RunID, len(eval.Names), len(eval.Scores))
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, arch, experiment, modality) VALUES (?, ?, ?, ?)`,
		eval.RunID, eval.Key.Arch, eval.Key.Experiment, eval.Key.Modality); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO scores (run_id, image, score) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, name := range eval.Names {
		if _, err := stmt.ExecContext(ctx, eval.RunID, name, eval.Scores[i]); err != nil {
			return fmt.Errorf("insert score %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// Scores возвращает оценки прохода.
func (r *SQLiteResultRepository) Scores(ctx context.Context, runID string) (map[string]float64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT image, score FROM scores WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var (
			image string
			score float64
		)
		if err := rows.Scan(&image, &score); err != nil {
			return nil, err
		}
		out[image] = score
	}
	return out, rows.Err()
}

// Close закрывает базу.
func (r *SQLiteResultRepository) Close() error {
	return r.db.Close()
}

var _ port.ResultRepository = (*SQLiteResultRepository)(nil)
