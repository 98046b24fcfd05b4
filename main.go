package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/korjavin/quizbot/ai"
	"github.com/korjavin/quizbot/bot"
	"github.com/korjavin/quizbot/config"
	"github.com/korjavin/quizbot/database"
	"github.com/korjavin/quizbot/models"
	"github.com/korjavin/quizbot/quiz"
	"github.com/korjavin/quizbot/web"
	"golang.org/x/sync/errgroup"
)

const version = "2.0"

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting QuizBot...")

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing or broken question file leaves the bank empty; the bot
	// still runs and tells users there is nothing to ask.
	bank := models.LoadBank(cfg.QuestionsPath)
	engine := quiz.NewEngine(bank, quiz.Options{Replay: cfg.CycleMode == config.CycleReplay})

	opts := bot.Options{AdvanceDelay: cfg.AdvanceDelay}

	if cfg.DatabasePath != "" {
		db, err := database.New(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		opts.Journal = db
	} else {
		log.Println("Answer journal disabled")
	}

	if cfg.OpenAIKey != "" {
		opts.Explainer = ai.NewExplainer(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.AIModel)
	} else {
		log.Println("OPENAI_API_KEY not set, /explain will only serve cached explanations")
	}

	// Initialize the bot
	b, err := bot.New(cfg.BotToken, cfg.Debug, engine, opts)
	if err != nil {
		log.Fatalf("Failed to initialize bot: %v", err)
	}

	info := web.Info{Name: "Telegram Quiz Bot", Version: version, Bot: b.Username()}
	server := web.New(cfg.Port, info, engine)

	log.Printf("Bot initialized successfully (questions: %d, cycle mode: %s)", engine.Total(), cfg.CycleMode)
	err = serve(ctx,
		server.Run,
		func(ctx context.Context) error {
			b.Start(ctx)
			log.Println("Bot stopped")
			return nil
		},
	)
	if err != nil {
		log.Printf("Shutdown with error: %v", err)
	}
}

// serve runs every task until ctx is cancelled or one of them fails, and
// returns only after all of them have returned.
func serve(ctx context.Context, tasks ...func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		task := task
		g.Go(func() error { return task(ctx) })
	}
	return g.Wait()
}
