package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/korjavin/quizbot/metrics"
	"github.com/korjavin/quizbot/models"
	"github.com/korjavin/quizbot/quiz"
	"github.com/korjavin/quizbot/render"
)

const (
	cmdStart   = "start"
	cmdQuiz    = "quiz"
	cmdReset   = "reset"
	cmdHelp    = "help"
	cmdScore   = "score"
	cmdStats   = "stats"
	cmdExplain = "explain"
	cmdCancel  = "cancel"

	missedLimit = 3
)

// Sender is the part of the Telegram API the bot talks to.
// *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Journal records answers and caches explanations.
// *database.DB implements it.
type Journal interface {
	SaveUserActivity(a models.UserActivity) error
	GetUserStats(userID int64) (correct int, incorrect int, err error)
	GetMostMissedQuestions(userID int64, limit int) ([]models.MissedQuestion, error)
	GetCachedExplanation(questionNumber int) (string, error)
	CacheExplanation(questionNumber int, response string) error
}

// Explainer produces long-form explanations. *ai.Explainer implements it.
type Explainer interface {
	ExplainQuestion(ctx context.Context, q *models.Question) (string, error)
}

// Options holds the optional collaborators of a Bot.
type Options struct {
	AdvanceDelay time.Duration // zero disables auto-advance
	Journal      Journal
	Explainer    Explainer
}

// Bot represents the Telegram bot
type Bot struct {
	api       *tgbotapi.BotAPI
	sender    Sender
	engine    *quiz.Engine
	advancer  *quiz.Advancer
	journal   Journal
	explainer Explainer
	delay     time.Duration
	ctx       context.Context
}

// New creates a new bot instance
func New(token string, debug bool, engine *quiz.Engine, opts Options) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	botAPI.Debug = debug
	log.Printf("Authorized on account %s", botAPI.Self.UserName)

	b := newBot(botAPI, engine, opts)
	b.api = botAPI
	return b, nil
}

func newBot(sender Sender, engine *quiz.Engine, opts Options) *Bot {
	return &Bot{
		sender:    sender,
		engine:    engine,
		advancer:  quiz.NewAdvancer(),
		journal:   opts.Journal,
		explainer: opts.Explainer,
		delay:     opts.AdvanceDelay,
		ctx:       context.Background(),
	}
}

// Username returns the bot's Telegram username, empty without an API.
func (b *Bot) Username() string {
	if b.api == nil {
		return ""
	}
	return b.api.Self.UserName
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	log.Println("Starting bot polling...")
	b.ctx = ctx
	defer b.advancer.Stop()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			log.Println("Stopping bot polling...")
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	start := time.Now()
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
		metrics.UpdateDuration.WithLabelValues("callback").Observe(time.Since(start).Seconds())
	case update.Message != nil:
		b.handleMessage(update.Message)
		metrics.UpdateDuration.WithLabelValues("message").Observe(time.Since(start).Seconds())
	}
	metrics.Sessions.Set(float64(b.engine.ActiveSessions()))
}

// handleMessage processes incoming messages
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil {
		return
	}
	userID := message.From.ID
	chatID := message.Chat.ID
	log.Printf("Received message from %s (ID: %d): %s", message.From.UserName, userID, message.Text)

	switch message.Command() {
	case cmdStart:
		b.resetUser(userID)
		b.sendMessage(chatID, render.Welcome(message.From.FirstName, b.engine.Total()))
	case cmdQuiz:
		b.advancer.Cancel(userID)
		next, err := b.engine.NextQuestion(userID)
		b.deliverNext(chatID, next, err)
	case cmdReset:
		b.resetUser(userID)
		b.sendMessage(chatID, render.ResetDone())
	case cmdHelp:
		b.sendMessage(chatID, render.Help(b.engine.Total(), b.delay))
	case cmdScore:
		b.sendMessage(chatID, render.Score(b.engine.Summary(userID)))
	case cmdStats:
		b.handleStats(chatID, message.From)
	case cmdExplain:
		b.handleExplain(chatID, userID)
	case cmdCancel:
		b.cancelQuestion(chatID, userID)
	default:
		b.sendMessage(chatID, render.Unknown())
	}
}

func (b *Bot) resetUser(userID int64) {
	b.advancer.Cancel(userID)
	b.engine.Reset(userID)
	metrics.Resets.Inc()
	log.Printf("Reset session of user %d", userID)
}

// deliverNext renders the result of NextQuestion or AdvanceIfCurrent.
func (b *Bot) deliverNext(chatID int64, next quiz.Next, err error) {
	switch {
	case errors.Is(err, quiz.ErrNoQuestions):
		b.sendMessage(chatID, render.NoQuestions())
		return
	case err != nil:
		log.Printf("Error getting next question: %v", err)
		b.sendMessage(chatID, render.GenericError())
		return
	}

	if next.Done() {
		b.sendMessage(chatID, render.Final(*next.Final, next.Rearmed))
		return
	}

	if !next.Repeat {
		metrics.QuestionsServed.Inc()
	}
	text, buttons := render.Question(next.Presentation)
	b.sendQuestion(chatID, next.Presentation.Question.Number, text, buttons)
}

// handleCallback processes callback queries from inline buttons
func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	log.Printf("Handling callback from user %s (ID: %d) with data: %s",
		callback.From.UserName, callback.From.ID, callback.Data)

	// Always acknowledge the callback immediately to prevent "query is too old" errors
	b.sendCallbackResponse(callback.ID, "")

	if callback.Message == nil || callback.Message.Chat == nil {
		log.Printf("Callback %s has no message attached", callback.ID)
		return
	}
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	if render.IsCancelData(callback.Data) {
		questionNum, err := render.ParseCancelData(callback.Data)
		if err != nil {
			log.Printf("Rejected callback: %v", err)
			metrics.Rejections.WithLabelValues("malformed").Inc()
			b.sendMessage(chatID, render.GenericError())
			return
		}
		b.cancelButton(chatID, userID, messageID, questionNum)
		return
	}

	questionNum, answerNum, err := render.ParseAnswerData(callback.Data)
	if err != nil {
		log.Printf("Rejected callback: %v", err)
		metrics.Rejections.WithLabelValues("malformed").Inc()
		b.sendMessage(chatID, render.GenericError())
		return
	}

	outcome, err := b.engine.SubmitAnswer(userID, questionNum, answerNum)
	switch {
	case errors.Is(err, quiz.ErrNoActiveQuestion):
		log.Printf("User %d answered question %d with no active question", userID, questionNum)
		metrics.Rejections.WithLabelValues("no_active_question").Inc()
		b.sendMessage(chatID, render.TryAgain())
		return
	case errors.Is(err, quiz.ErrMalformedEvent):
		log.Printf("User %d sent option %d outside question %d", userID, answerNum, questionNum)
		metrics.Rejections.WithLabelValues("malformed").Inc()
		b.sendMessage(chatID, render.GenericError())
		return
	case err != nil:
		log.Printf("Error submitting answer: %v", err)
		b.sendMessage(chatID, render.GenericError())
		return
	}

	log.Printf("User %d answered question %d: correct=%v (%d/%d)",
		userID, questionNum, outcome.IsCorrect, outcome.Correct, outcome.Answered)
	if outcome.IsCorrect {
		metrics.Answers.WithLabelValues("correct").Inc()
	} else {
		metrics.Answers.WithLabelValues("wrong").Inc()
	}

	if b.journal != nil {
		activity := models.UserActivity{
			UserID:         userID,
			QuestionNumber: questionNum,
			AnswerNumber:   answerNum,
			Correct:        outcome.IsCorrect,
		}
		if err := b.journal.SaveUserActivity(activity); err != nil {
			log.Printf("Error saving user activity: %v", err)
		}
	}

	if outcome.Completed {
		metrics.CyclesCompleted.Inc()
		b.editMessage(chatID, messageID, render.Outcome(outcome, 0))
		return
	}

	b.editMessage(chatID, messageID, render.Outcome(outcome, b.delay))
	if b.delay > 0 {
		b.scheduleAdvance(chatID, userID, outcome.Generation)
	}
}

// scheduleAdvance sends the next question after the configured delay,
// unless the session moved on in the meantime.
func (b *Bot) scheduleAdvance(chatID, userID int64, generation uint64) {
	b.advancer.Schedule(userID, b.delay, func() {
		next, fired, err := b.engine.AdvanceIfCurrent(userID, generation)
		if !fired && err == nil {
			metrics.AutoAdvances.WithLabelValues("stale").Inc()
			log.Printf("Skipped stale auto-advance for user %d", userID)
			return
		}
		metrics.AutoAdvances.WithLabelValues("fired").Inc()
		b.deliverNext(chatID, next, err)
	})
}

// cancelQuestion handles /cancel: it drops whatever question is awaiting.
func (b *Bot) cancelQuestion(chatID, userID int64) {
	if err := b.engine.Cancel(userID); err != nil {
		b.sendMessage(chatID, render.NothingToCancel())
		return
	}
	b.advancer.Cancel(userID)
	b.sendMessage(chatID, render.Cancelled())
}

// cancelButton handles the cancel button under question questionNum. A
// button from an older question changes nothing.
func (b *Bot) cancelButton(chatID, userID int64, messageID, questionNum int) {
	if err := b.engine.CancelQuestion(userID, questionNum); err != nil {
		log.Printf("User %d cancelled question %d which is not active", userID, questionNum)
		metrics.Rejections.WithLabelValues("no_active_question").Inc()
		b.sendMessage(chatID, render.TryAgain())
		return
	}
	b.advancer.Cancel(userID)
	b.editMessage(chatID, messageID, render.Cancelled())
}

// handleStats shows session statistics plus lifetime misses from the journal
func (b *Bot) handleStats(chatID int64, user *tgbotapi.User) {
	summary := b.engine.Summary(user.ID)

	var history render.History
	if b.journal != nil {
		correct, wrong, err := b.journal.GetUserStats(user.ID)
		if err != nil {
			log.Printf("Error getting user stats: %v", err)
		}
		history.Correct, history.Wrong = correct, wrong

		rows, err := b.journal.GetMostMissedQuestions(user.ID, missedLimit)
		if err != nil {
			log.Printf("Error getting missed questions: %v", err)
		}
		for _, row := range rows {
			if q, ok := b.engine.Question(row.QuestionNumber); ok {
				history.Missed = append(history.Missed, render.Missed{Number: q.Number, Text: q.Text, Misses: row.Misses})
			}
		}
	}

	b.sendMessage(chatID, render.Stats(summary, user.FirstName, history))
}

// handleExplain explains the last presented question, from cache when possible
func (b *Bot) handleExplain(chatID, userID int64) {
	q, ok := b.engine.LastQuestion(userID)
	if !ok {
		b.sendMessage(chatID, render.NothingToExplain())
		return
	}

	if b.journal != nil {
		cached, err := b.journal.GetCachedExplanation(q.Number)
		if err != nil {
			log.Printf("Error retrieving cached explanation: %v", err)
		}
		if cached != "" {
			b.sendMessage(chatID, render.Explanation(q, cached))
			return
		}
	}

	if b.explainer == nil {
		b.sendMessage(chatID, render.ExplainUnavailable())
		return
	}

	b.sendMessage(chatID, "Analyzing this question, please wait a moment...")

	// The model can take a while; keep the update loop responsive.
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Recovered from panic in explanation goroutine: %v", r)
			}
		}()

		text, err := b.explainer.ExplainQuestion(b.ctx, q)
		if err != nil {
			log.Printf("Error explaining question %d: %v", q.Number, err)
			b.sendMessage(chatID, render.ExplainUnavailable())
			return
		}

		if b.journal != nil {
			if err := b.journal.CacheExplanation(q.Number, text); err != nil {
				log.Printf("Error caching explanation: %v", err)
			}
		}
		b.sendMessage(chatID, render.Explanation(q, text))
	}()
}
