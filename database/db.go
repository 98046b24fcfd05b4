package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/korjavin/quizbot/models"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the answer journal and explanation cache. Quiz sessions never read
// from it; it only feeds statistics.
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes tables
func New(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err = createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS user_activity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			question_number INTEGER NOT NULL,
			answer_number INTEGER NOT NULL,
			correct BOOLEAN NOT NULL,
			timestamp INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_user_activity_user ON user_activity (user_id)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS explanation_cache (
			question_number INTEGER PRIMARY KEY,
			response TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	return err
}

// SaveUserActivity records user interaction with a question.
// A zero Timestamp means now.
func (db *DB) SaveUserActivity(a models.UserActivity) error {
	if a.Timestamp == 0 {
		a.Timestamp = time.Now().Unix()
	}
	_, err := db.conn.Exec(
		"INSERT INTO user_activity (user_id, question_number, answer_number, correct, timestamp) VALUES (?, ?, ?, ?, ?)",
		a.UserID, a.QuestionNumber, a.AnswerNumber, a.Correct, a.Timestamp,
	)
	return err
}

// GetUserStats retrieves lifetime counts of the user's answers
func (db *DB) GetUserStats(userID int64) (correct int, incorrect int, err error) {
	err = db.conn.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN correct = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN correct = 0 THEN 1 ELSE 0 END), 0)
		FROM user_activity WHERE user_id = ?`,
		userID,
	).Scan(&correct, &incorrect)
	return correct, incorrect, err
}

// GetMostMissedQuestions gets the questions most frequently answered incorrectly
func (db *DB) GetMostMissedQuestions(userID int64, limit int) ([]models.MissedQuestion, error) {
	rows, err := db.conn.Query(`
		SELECT question_number, COUNT(*) AS misses
		FROM user_activity
		WHERE user_id = ? AND correct = 0
		GROUP BY question_number
		ORDER BY misses DESC, question_number ASC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.MissedQuestion
	for rows.Next() {
		var m models.MissedQuestion
		if err := rows.Scan(&m.QuestionNumber, &m.Misses); err != nil {
			return nil, err
		}
		result = append(result, m)
	}

	return result, rows.Err()
}

// CacheExplanation stores a generated explanation for a question
func (db *DB) CacheExplanation(questionNumber int, response string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO explanation_cache (question_number, response, created_at) VALUES (?, ?, ?)",
		questionNumber, response, time.Now().Unix(),
	)
	return err
}

// GetCachedExplanation retrieves a cached explanation, "" when there is none
func (db *DB) GetCachedExplanation(questionNumber int) (string, error) {
	var response string
	err := db.conn.QueryRow(
		"SELECT response FROM explanation_cache WHERE question_number = ?",
		questionNumber,
	).Scan(&response)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return response, err
}
