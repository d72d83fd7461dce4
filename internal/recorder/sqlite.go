package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"SignalEngine/internal/model"
)

// SQLiteRecorder persists analysis history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			run_id      TEXT PRIMARY KEY,
			task        TEXT NOT NULL,
			rule_set    TEXT,
			universe    TEXT,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			symbols     INTEGER,
			evaluated   INTEGER,
			skipped     INTEGER,
			all_met     INTEGER,
			status      TEXT,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_task_ts ON analysis_runs(task, finished_at)`,

		`CREATE TABLE IF NOT EXISTS report_rows (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          TEXT NOT NULL REFERENCES analysis_runs(run_id) ON DELETE CASCADE,
			position        INTEGER NOT NULL,
			timestamp       INTEGER NOT NULL,
			stock           TEXT NOT NULL,
			trade_type      TEXT,
			all_signals_met INTEGER,
			signals_score   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rows_run ON report_rows(run_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_rows_stock ON report_rows(stock)`,

		`CREATE TABLE IF NOT EXISTS signal_checks (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			row_id        INTEGER NOT NULL REFERENCES report_rows(id) ON DELETE CASCADE,
			idx           INTEGER NOT NULL,
			name          TEXT,
			status        TEXT,
			threshold     TEXT,
			current_value TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checks_row ON signal_checks(row_id, idx)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run summary and every report row in one transaction.
func (r *SQLiteRecorder) RecordRun(run *RunSummary, report *model.WideReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO analysis_runs
		(run_id, task, rule_set, universe, started_at, finished_at,
		 symbols, evaluated, skipped, all_met, status, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.RunID, run.Task, run.RuleSet, run.Universe,
		run.StartedAt.Unix(), run.FinishedAt.Unix(),
		run.Symbols, run.Evaluated, run.Skipped, run.AllMet, run.Status, run.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if report != nil {
		rowStmt, err := tx.Prepare(`INSERT INTO report_rows
			(run_id, position, timestamp, stock, trade_type, all_signals_met, signals_score)
			VALUES (?,?,?,?,?,?,?)`)
		if err != nil {
			return fmt.Errorf("prepare row insert: %w", err)
		}
		defer rowStmt.Close()
		checkStmt, err := tx.Prepare(`INSERT INTO signal_checks
			(row_id, idx, name, status, threshold, current_value)
			VALUES (?,?,?,?,?,?)`)
		if err != nil {
			return fmt.Errorf("prepare check insert: %w", err)
		}
		defer checkStmt.Close()

		for pos, row := range report.Rows {
			res, err := rowStmt.Exec(run.RunID, pos, row.Timestamp.Unix(), row.Stock,
				row.TradeType, row.AllSignalsMet, row.SignalsScore)
			if err != nil {
				return fmt.Errorf("insert row %s: %w", row.Stock, err)
			}
			rowID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("row id %s: %w", row.Stock, err)
			}
			for i, ind := range row.Indicators {
				if _, err := checkStmt.Exec(rowID, i, ind.Name, ind.Status, ind.Threshold, ind.Current); err != nil {
					return fmt.Errorf("insert check %s/%d: %w", row.Stock, i, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LatestReport loads the most recently finished run of task with its report rows.
func (r *SQLiteRecorder) LatestReport(task string) (*RunSummary, *model.WideReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := &RunSummary{}
	var started, finished int64
	var errText sql.NullString
	err := r.db.QueryRow(`SELECT run_id, task, rule_set, universe, started_at, finished_at,
			symbols, evaluated, skipped, all_met, status, error
		FROM analysis_runs WHERE task = ? ORDER BY finished_at DESC, rowid DESC LIMIT 1`, task).
		Scan(&run.RunID, &run.Task, &run.RuleSet, &run.Universe, &started, &finished,
			&run.Symbols, &run.Evaluated, &run.Skipped, &run.AllMet, &run.Status, &errText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNoHistory
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query run: %w", err)
	}
	run.StartedAt = time.Unix(started, 0)
	run.FinishedAt = time.Unix(finished, 0)
	run.Error = errText.String

	rows, err := r.db.Query(`SELECT r.id, r.timestamp, r.stock, r.trade_type, r.all_signals_met,
			r.signals_score, c.name, c.status, c.threshold, c.current_value
		FROM report_rows r LEFT JOIN signal_checks c ON c.row_id = r.id
		WHERE r.run_id = ? ORDER BY r.position, c.idx`, run.RunID)
	if err != nil {
		return nil, nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	report := &model.WideReport{Task: run.Task}
	lastID := int64(-1)
	for rows.Next() {
		var (
			id, ts                     int64
			row                        model.ReportRow
			name, status, thresh, curr sql.NullString
		)
		if err := rows.Scan(&id, &ts, &row.Stock, &row.TradeType, &row.AllSignalsMet,
			&row.SignalsScore, &name, &status, &thresh, &curr); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		if id != lastID {
			row.Timestamp = time.Unix(ts, 0)
			report.Rows = append(report.Rows, row)
			lastID = id
		}
		if name.Valid {
			cur := &report.Rows[len(report.Rows)-1]
			cur.Indicators = append(cur.Indicators, model.IndicatorColumns{
				Name:      name.String,
				Status:    status.String,
				Threshold: thresh.String,
				Current:   curr.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}
	return run, report, nil
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
