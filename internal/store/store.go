package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pavelanni/retina/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);

	CREATE TABLE IF NOT EXISTS answer_checks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		case_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		selected TEXT NOT NULL,
		correct INTEGER NOT NULL,
		checked_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS answer_checks_question_idx ON answer_checks(case_id, question_id);

	CREATE TABLE IF NOT EXISTS app_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordCheck logs one applied check command. No session identity is stored.
func (s *Store) RecordCheck(cmd model.CheckCommand, correct bool) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO answer_checks (case_id, question_id, selected, correct, checked_at) VALUES (?, ?, ?, ?, ?)`,
		cmd.CaseID, cmd.QuestionID, cmd.Selected, correct, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CheckCount returns the number of logged checks.
func (s *Store) CheckCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM answer_checks`).Scan(&count)
	return count, err
}

// QuestionStats aggregates logged checks per question, ordered by case and question id.
func (s *Store) QuestionStats() ([]model.QuestionStat, error) {
	rows, err := s.db.Query(
		`SELECT case_id, question_id, COUNT(*), COALESCE(SUM(correct), 0)
		 FROM answer_checks GROUP BY case_id, question_id ORDER BY case_id, question_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []model.QuestionStat
	index := make(map[[2]string]int)
	for rows.Next() {
		var st model.QuestionStat
		if err := rows.Scan(&st.CaseID, &st.QuestionID, &st.Attempts, &st.Correct); err != nil {
			return nil, err
		}
		if st.Attempts > 0 {
			st.Accuracy = float64(st.Correct) / float64(st.Attempts)
		}
		st.Selections = make(map[string]int)
		index[[2]string{st.CaseID, st.QuestionID}] = len(stats)
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sel, err := s.db.Query(
		`SELECT case_id, question_id, selected, COUNT(*)
		 FROM answer_checks GROUP BY case_id, question_id, selected`,
	)
	if err != nil {
		return nil, err
	}
	defer sel.Close()
	for sel.Next() {
		var caseID, questionID, selected string
		var n int
		if err := sel.Scan(&caseID, &questionID, &selected, &n); err != nil {
			return nil, err
		}
		if i, ok := index[[2]string{caseID, questionID}]; ok {
			stats[i].Selections[selected] = n
		}
	}
	return stats, sel.Err()
}
