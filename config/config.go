package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cycle modes control what happens once a user has seen every question.
const (
	CycleSingle = "single"
	CycleReplay = "replay"
)

// Config holds all the configuration for the application
type Config struct {
	BotToken      string
	QuestionsPath string
	DatabasePath  string // empty disables the answer journal
	Port          int
	AdvanceDelay  time.Duration
	CycleMode     string
	OpenAIKey     string
	OpenAIBaseURL string
	AIModel       string
	Debug         bool
}

// Load loads the configuration from environment variables.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		botToken = os.Getenv("TELEGRAM_TOKEN")
	}
	if botToken == "" {
		return nil, errors.New("BOT_TOKEN environment variable is required")
	}

	questionsPath := os.Getenv("QUESTIONS_PATH")
	if questionsPath == "" {
		questionsPath = "questions.json"
	}

	dbPath := os.Getenv("DB_PATH")
	switch strings.ToLower(dbPath) {
	case "":
		dbPath = "./data/quizbot.db"
	case "off", "none":
		dbPath = ""
	}

	port := 10000
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return nil, fmt.Errorf("invalid PORT %q", v)
		}
		port = p
	}

	delay := 3 * time.Second
	if v := os.Getenv("ADVANCE_DELAY"); v != "" {
		d, err := parseDelay(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ADVANCE_DELAY %q: %w", v, err)
		}
		delay = d
	}

	mode := strings.ToLower(os.Getenv("CYCLE_MODE"))
	switch mode {
	case "":
		mode = CycleSingle
	case CycleSingle, CycleReplay:
	default:
		return nil, fmt.Errorf("invalid CYCLE_MODE %q: want %q or %q", mode, CycleSingle, CycleReplay)
	}

	model := os.Getenv("AI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Config{
		BotToken:      botToken,
		QuestionsPath: questionsPath,
		DatabasePath:  dbPath,
		Port:          port,
		AdvanceDelay:  delay,
		CycleMode:     mode,
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		AIModel:       model,
		Debug:         os.Getenv("DEBUG") == "true",
	}, nil
}

// parseDelay accepts Go durations ("3s", "1500ms") and bare "0".
func parseDelay(v string) (time.Duration, error) {
	if v == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("must not be negative")
	}
	return d, nil
}
