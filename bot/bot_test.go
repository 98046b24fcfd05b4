package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/korjavin/quizbot/models"
	"github.com/korjavin/quizbot/quiz"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests int
	nextID   int
	failNext int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return tgbotapi.Message{}, errors.New("bad request: can't parse entities")
	}
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) all() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.sent...)
}

func (f *fakeSender) last(t *testing.T) tgbotapi.Chattable {
	t.Helper()
	all := f.all()
	if len(all) == 0 {
		t.Fatal("nothing was sent")
	}
	return all[len(all)-1]
}

func textOf(c tgbotapi.Chattable) string {
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		return m.Text
	case tgbotapi.EditMessageTextConfig:
		return m.Text
	}
	return ""
}

type fakeJournal struct {
	mu       sync.Mutex
	activity []models.UserActivity
	missed   []models.MissedQuestion
	cache    map[int]string
}

func (j *fakeJournal) SaveUserActivity(a models.UserActivity) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.activity = append(j.activity, a)
	return nil
}

func (j *fakeJournal) GetUserStats(userID int64) (int, int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var correct, wrong int
	for _, a := range j.activity {
		if a.UserID != userID {
			continue
		}
		if a.Correct {
			correct++
		} else {
			wrong++
		}
	}
	return correct, wrong, nil
}

func (j *fakeJournal) GetMostMissedQuestions(userID int64, limit int) ([]models.MissedQuestion, error) {
	return j.missed, nil
}

func (j *fakeJournal) GetCachedExplanation(questionNumber int) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cache[questionNumber], nil
}

func (j *fakeJournal) CacheExplanation(questionNumber int, response string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cache == nil {
		j.cache = make(map[int]string)
	}
	j.cache[questionNumber] = response
	return nil
}

type fakeExplainer struct {
	calls chan int
}

func (e *fakeExplainer) ExplainQuestion(ctx context.Context, q *models.Question) (string, error) {
	e.calls <- q.Number
	return "deep dive", nil
}

func testBank() []models.Question {
	return []models.Question{
		{Number: 1, Text: "One?", Options: []string{"yes", "no"}, Correct: 0, Explanation: "first"},
		{Number: 2, Text: "Two?", Options: []string{"yes", "no"}, Correct: 1, Explanation: "second"},
	}
}

func newTestBot(bank []models.Question, opts Options) (*Bot, *fakeSender) {
	engine := quiz.NewEngine(bank, quiz.Options{Shuffle: func(int, func(i, j int)) {}})
	sender := &fakeSender{}
	return newBot(sender, engine, opts), sender
}

func command(userID int64, cmd string) *tgbotapi.Message {
	text := "/" + cmd
	return &tgbotapi.Message{
		MessageID: 100,
		From:      &tgbotapi.User{ID: userID, FirstName: "Ann", UserName: "ann"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}
}

func callback(userID int64, messageID int, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID, UserName: "ann"},
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}
}

func answerButtons(t *testing.T, c tgbotapi.Chattable) []string {
	t.Helper()
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("expected a question message, got %T", c)
	}
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("question has no inline keyboard: %#v", msg.ReplyMarkup)
	}
	var data []string
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			data = append(data, *btn.CallbackData)
		}
	}
	return data
}

func TestQuizAnswerFlow(t *testing.T) {
	b, sender := newTestBot(testBank(), Options{})

	b.handleMessage(command(1, "quiz"))
	question := sender.last(t)
	if !strings.Contains(textOf(question), "Question 1 of 2") {
		t.Fatalf("question text = %q", textOf(question))
	}
	data := answerButtons(t, question)
	if len(data) != 3 || data[0] != "answer:1:0" || data[2] != "cancel:1" {
		t.Fatalf("buttons = %v", data)
	}

	b.handleCallback(callback(1, 7, data[0]))
	edit, ok := sender.last(t).(tgbotapi.EditMessageTextConfig)
	if !ok {
		t.Fatalf("expected an edit, got %T", sender.last(t))
	}
	if edit.MessageID != 7 || !strings.Contains(edit.Text, "Correct!") || !strings.Contains(edit.Text, "/quiz") {
		t.Errorf("edit = %+v", edit)
	}
	if sender.requests != 1 {
		t.Errorf("callback acknowledged %d times", sender.requests)
	}

	// Same button again: stale.
	b.handleCallback(callback(1, 7, data[0]))
	if text := textOf(sender.last(t)); !strings.Contains(text, "no longer active") {
		t.Errorf("duplicate answer reply = %q", text)
	}
	if s := b.engine.Summary(1); s.Answered != 1 {
		t.Errorf("duplicate answer scored: %+v", s)
	}
}

func TestMalformedCallback(t *testing.T) {
	b, sender := newTestBot(testBank(), Options{})
	b.handleMessage(command(1, "quiz"))

	for _, data := range []string{"answer:1:x", "garbage", "answer:1:5"} {
		b.handleCallback(callback(1, 7, data))
		if text := textOf(sender.last(t)); !strings.Contains(text, "Something went wrong") {
			t.Errorf("%q: reply = %q", data, text)
		}
	}
	if s := b.engine.Session(1); !s.HasCurrent() || s.Answered != 0 {
		t.Errorf("malformed callbacks mutated session: %+v", s)
	}
}

func TestCompletionShowsFinalResult(t *testing.T) {
	b, sender := newTestBot(testBank(), Options{AdvanceDelay: time.Hour})

	b.handleMessage(command(1, "quiz"))
	b.handleCallback(callback(1, 1, "answer:1:0"))
	b.handleMessage(command(1, "quiz"))
	b.handleCallback(callback(1, 2, "answer:2:0"))

	if text := textOf(sender.last(t)); !strings.Contains(text, "every question") || !strings.Contains(text, "50%") {
		t.Errorf("completion text = %q", text)
	}
	if b.advancer.Pending() != 0 {
		t.Error("auto-advance scheduled after the last question")
	}

	b.handleMessage(command(1, "quiz"))
	if text := textOf(sender.last(t)); !strings.Contains(text, "Final result") || !strings.Contains(text, "/reset") {
		t.Errorf("terminal text = %q", text)
	}
}

func TestAutoAdvance(t *testing.T) {
	b, sender := newTestBot(testBank(), Options{AdvanceDelay: 10 * time.Millisecond})

	b.handleMessage(command(1, "quiz"))
	b.handleCallback(callback(1, 1, "answer:1:1"))
	if text := textOf(sender.last(t)); !strings.Contains(text, "Wrong") || !strings.Contains(text, "Next question in") {
		t.Fatalf("outcome = %q", text)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(textOf(sender.last(t)), "Question 2 of 2") {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("next question was not sent automatically")
}

func TestResetSuppressesAutoAdvance(t *testing.T) {
	b, sender := newTestBot(testBank(), Options{AdvanceDelay: 20 * time.Millisecond})

	b.handleMessage(command(1, "quiz"))
	b.handleCallback(callback(1, 1, "answer:1:0"))
	b.handleMessage(command(1, "reset"))
	count := len(sender.all())

	time.Sleep(60 * time.Millisecond)
	if got := len(sender.all()); got != count {
		t.Errorf("messages after reset: %d, want %d", got, count)
	}
	if st := b.engine.Session(1).State(); st != quiz.Idle {
		t.Errorf("state = %v", st)
	}
}

func TestNoQuestions(t *testing.T) {
	b, sender := newTestBot(nil, Options{})
	b.handleMessage(command(1, "quiz"))
	if text := textOf(sender.last(t)); !strings.Contains(text, "no questions") {
		t.Errorf("reply = %q", text)
	}
}

func TestCancelButton(t *testing.T) {
	b, sender := newTestBot(testBank(), Options{})
	b.handleMessage(command(1, "quiz"))

	b.handleCallback(callback(1, 3, "cancel:1"))
	if text := textOf(sender.last(t)); !strings.Contains(text, "cancelled") {
		t.Errorf("cancel reply = %q", text)
	}
	b.handleMessage(command(1, "cancel"))
	if text := textOf(sender.last(t)); !strings.Contains(text, "no question to cancel") {
		t.Errorf("second cancel reply = %q", text)
	}
}

func TestCancelButtonFromOlderQuestion(t *testing.T) {
	b, sender := newTestBot(testBank(), Options{})
	b.handleMessage(command(1, "quiz"))
	b.handleCallback(callback(1, 1, "answer:1:0"))
	b.handleMessage(command(1, "quiz"))

	b.handleCallback(callback(1, 1, "cancel:1"))
	if text := textOf(sender.last(t)); !strings.Contains(text, "no longer active") {
		t.Errorf("stale cancel reply = %q", text)
	}
	if s := b.engine.Session(1); !s.HasCurrent() || s.State() != quiz.AwaitingAnswer {
		t.Fatalf("stale cancel dropped the current question: %+v", s)
	}

	b.handleCallback(callback(1, 2, "answer:2:1"))
	if s := b.engine.Summary(1); s.Answered != 2 || s.Correct != 2 {
		t.Errorf("current question not answerable after stale cancel: %+v", s)
	}
}

func TestScoreStatsAndJournal(t *testing.T) {
	journal := &fakeJournal{missed: []models.MissedQuestion{{QuestionNumber: 2, Misses: 4}, {QuestionNumber: 99, Misses: 1}}}
	b, sender := newTestBot(testBank(), Options{Journal: journal})

	b.handleMessage(command(1, "score"))
	if text := textOf(sender.last(t)); !strings.Contains(text, "not answered") {
		t.Errorf("empty score = %q", text)
	}

	b.handleMessage(command(1, "quiz"))
	b.handleCallback(callback(1, 1, "answer:1:1"))
	if len(journal.activity) != 1 || journal.activity[0].Correct {
		t.Errorf("journal = %+v", journal.activity)
	}

	b.handleMessage(command(1, "stats"))
	text := textOf(sender.last(t))
	if !strings.Contains(text, "#2: Two?") || strings.Contains(text, "#99") || !strings.Contains(text, "0 of 1 correct") {
		t.Errorf("stats = %q", text)
	}

	b.handleMessage(command(1, "reset"))
	b.handleMessage(command(1, "stats"))
	if text := textOf(sender.last(t)); !strings.Contains(text, "0 of 1 correct") {
		t.Errorf("stats after reset = %q", text)
	}
}

func TestExplainUsesCacheThenModel(t *testing.T) {
	journal := &fakeJournal{}
	explainer := &fakeExplainer{calls: make(chan int, 1)}
	b, sender := newTestBot(testBank(), Options{Journal: journal, Explainer: explainer})

	b.handleMessage(command(1, "explain"))
	if text := textOf(sender.last(t)); !strings.Contains(text, "/quiz") {
		t.Errorf("explain before quiz = %q", text)
	}

	b.handleMessage(command(1, "quiz"))
	b.handleMessage(command(1, "explain"))
	select {
	case n := <-explainer.calls:
		if n != 1 {
			t.Errorf("explained question %d", n)
		}
	case <-time.After(time.Second):
		t.Fatal("explainer not called")
	}

	deadline := time.Now().Add(time.Second)
	for !strings.Contains(textOf(sender.last(t)), "deep dive") {
		if time.Now().After(deadline) {
			t.Fatal("explanation not sent")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Second request is served from the cache.
	b.handleMessage(command(1, "explain"))
	if text := textOf(sender.last(t)); !strings.Contains(text, "deep dive") {
		t.Errorf("cached explain = %q", text)
	}
	select {
	case <-explainer.calls:
		t.Error("explainer called despite cache")
	default:
	}
}

func TestExplainUnavailable(t *testing.T) {
	b, sender := newTestBot(testBank(), Options{})
	b.handleMessage(command(1, "quiz"))
	b.handleMessage(command(1, "explain"))
	if text := textOf(sender.last(t)); !strings.Contains(text, "not available") {
		t.Errorf("reply = %q", text)
	}
}

func TestStartResetsAndWelcomes(t *testing.T) {
	b, sender := newTestBot(testBank(), Options{})
	b.handleMessage(command(1, "quiz"))
	b.handleCallback(callback(1, 1, "answer:1:0"))

	b.handleMessage(command(1, "start"))
	if text := textOf(sender.last(t)); !strings.Contains(text, "Hello, Ann") || !strings.Contains(text, "Questions:</b> 2") {
		t.Errorf("welcome = %q", text)
	}
	if s := b.engine.Summary(1); s.HasAnswers {
		t.Errorf("start did not reset: %+v", s)
	}
}

func TestUnknownCommandAndHelp(t *testing.T) {
	b, sender := newTestBot(testBank(), Options{AdvanceDelay: 3 * time.Second})

	b.handleMessage(command(1, "dance"))
	if text := textOf(sender.last(t)); !strings.Contains(text, "Unknown command") {
		t.Errorf("unknown = %q", text)
	}
	b.handleMessage(command(1, "help"))
	if text := textOf(sender.last(t)); !strings.Contains(text, "3 seconds") {
		t.Errorf("help = %q", text)
	}
}

func TestSendFallsBackToPlainText(t *testing.T) {
	b, sender := newTestBot(testBank(), Options{})
	sender.failNext = 1

	b.sendMessage(1, "<b>hi")
	msg, ok := sender.last(t).(tgbotapi.MessageConfig)
	if !ok || msg.ParseMode != "" || msg.Text != "<b>hi" {
		t.Errorf("fallback = %#v", sender.last(t))
	}
}
