package quiz

import (
	"math/rand"

	"github.com/korjavin/quizbot/models"
)

// Option is one answer choice as presented to the user.
type Option struct {
	Index int
	Label string
	Text  string
}

// OptionLabel returns the letter label for an option position: A, B, C...
func OptionLabel(i int) string {
	if i < 0 || i >= 26 {
		return "?"
	}
	return string(rune('A' + i))
}

// Presentation is a question handed to the user.
type Presentation struct {
	Question   *models.Question
	Options    []Option
	Number     int // 1-based position within the cycle
	Total      int
	Remaining  int // still unasked after this one
	Generation uint64
}

// Next is the result of asking for the next question: either a
// Presentation or, once the pool is exhausted, a Final summary.
type Next struct {
	Presentation *Presentation
	Final        *Summary
	Repeat       bool // the question was already awaiting an answer
	Rearmed      bool // replay mode started a new cycle after Final
}

// Done reports whether the cycle is finished.
func (n Next) Done() bool {
	return n.Final != nil
}

// Outcome is the result of a scored answer.
type Outcome struct {
	Question      *models.Question
	Chosen        int
	IsCorrect     bool
	CorrectOption string
	Explanation   string
	Correct       int
	Answered      int
	Percentage    int
	Remaining     int
	Completed     bool
	Summary       *Summary // set when Completed
	Generation    uint64
}

// Options configures an Engine.
type Options struct {
	// Replay re-arms a finished cycle when the next question is requested.
	// Without it the session stays complete until Reset.
	Replay bool
	// Shuffle orders a fresh pool. Defaults to math/rand/v2.Shuffle.
	Shuffle func(n int, swap func(i, j int))
}

// Engine moves user sessions through quiz cycles over a read-only bank.
type Engine struct {
	bank    []models.Question
	store   *Store
	replay  bool
	shuffle func(n int, swap func(i, j int))
}

// NewEngine creates an engine over bank. The bank must not be modified
// afterwards.
func NewEngine(bank []models.Question, opts Options) *Engine {
	e := &Engine{
		bank:    bank,
		replay:  opts.Replay,
		shuffle: opts.Shuffle,
	}
	if e.shuffle == nil {
		e.shuffle = rand.Shuffle
	}
	e.store = NewStore(e.freshSession)
	return e
}

func (e *Engine) freshSession(userID int64) *Session {
	pool := make([]int, len(e.bank))
	for i := range pool {
		pool[i] = i
	}
	e.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return newSession(userID, pool)
}

// Total returns the bank size.
func (e *Engine) Total() int {
	return len(e.bank)
}

// ActiveSessions returns how many users have a session.
func (e *Engine) ActiveSessions() int {
	return e.store.Len()
}

// Session returns a snapshot of the user's session.
func (e *Engine) Session(userID int64) Session {
	return e.store.GetOrCreate(userID)
}

// Question returns the bank question with the given number.
func (e *Engine) Question(number int) (*models.Question, bool) {
	for i := range e.bank {
		if e.bank[i].Number == number {
			return &e.bank[i], true
		}
	}
	return nil, false
}

// Reset starts the user over with zeroed counters and a freshly shuffled pool.
func (e *Engine) Reset(userID int64) Session {
	return e.store.Reset(userID)
}

// NextQuestion presents the next question of the user's cycle.
func (e *Engine) NextQuestion(userID int64) (Next, error) {
	if len(e.bank) == 0 {
		return Next{}, ErrNoQuestions
	}
	var next Next
	err := e.store.Update(userID, func(s *Session) error {
		next = e.advance(s)
		return nil
	})
	return next, err
}

// AdvanceIfCurrent presents the next question only if nothing happened to
// the session since generation was observed. It reports whether it fired.
func (e *Engine) AdvanceIfCurrent(userID int64, generation uint64) (Next, bool, error) {
	if len(e.bank) == 0 {
		return Next{}, false, ErrNoQuestions
	}
	var (
		next  Next
		fired bool
	)
	err := e.store.Update(userID, func(s *Session) error {
		if s.Generation != generation {
			return nil
		}
		next = e.advance(s)
		fired = true
		return nil
	})
	return next, fired, err
}

// advance must run under the session lock.
func (e *Engine) advance(s *Session) Next {
	if s.HasCurrent() {
		return Next{Presentation: e.present(s), Repeat: true}
	}

	if len(s.Pool) == 0 {
		sum := summarize(s, len(e.bank))
		next := Next{Final: &sum}
		if e.replay {
			fresh := e.freshSession(s.UserID)
			fresh.Generation = s.Generation + 1
			fresh.Cycle = s.Cycle + 1
			*s = *fresh
			next.Rearmed = true
		}
		return next
	}

	idx := s.Pool[0]
	s.Pool = s.Pool[1:]
	s.Presented = append(s.Presented, idx)
	s.Current = idx
	s.Generation++
	return Next{Presentation: e.present(s)}
}

func (e *Engine) present(s *Session) *Presentation {
	q := &e.bank[s.Current]
	opts := make([]Option, len(q.Options))
	for i, text := range q.Options {
		opts[i] = Option{Index: i, Label: OptionLabel(i), Text: text}
	}
	return &Presentation{
		Question:   q,
		Options:    opts,
		Number:     len(s.Presented),
		Total:      len(e.bank),
		Remaining:  len(s.Pool),
		Generation: s.Generation,
	}
}

// SubmitAnswer scores option for the question numbered questionRef.
// The question must be the one currently awaiting an answer.
func (e *Engine) SubmitAnswer(userID int64, questionRef, option int) (Outcome, error) {
	var out Outcome
	err := e.store.Update(userID, func(s *Session) error {
		if !s.HasCurrent() {
			return ErrNoActiveQuestion
		}
		q := &e.bank[s.Current]
		if q.Number != questionRef {
			return ErrNoActiveQuestion
		}
		if option < 0 || option >= len(q.Options) {
			return ErrMalformedEvent
		}

		isCorrect := option == q.Correct
		s.Answered++
		if isCorrect {
			s.Correct++
		}
		s.Current = noQuestion
		s.History = append(s.History, q.Number)
		s.Generation++

		out = Outcome{
			Question:      q,
			Chosen:        option,
			IsCorrect:     isCorrect,
			CorrectOption: q.CorrectOption(),
			Explanation:   q.Explanation,
			Correct:       s.Correct,
			Answered:      s.Answered,
			Percentage:    Percentage(s.Correct, s.Answered),
			Remaining:     len(s.Pool),
			Completed:     len(s.Pool) == 0,
			Generation:    s.Generation,
		}
		if out.Completed {
			sum := summarize(s, len(e.bank))
			out.Summary = &sum
		}
		return nil
	})
	return out, err
}

// Cancel drops the question awaiting an answer without scoring it.
// The question stays consumed for this cycle.
func (e *Engine) Cancel(userID int64) error {
	return e.cancel(userID, func(*models.Question) bool { return true })
}

// CancelQuestion is Cancel for the question numbered questionRef only.
// A cancel from an older question message yields ErrNoActiveQuestion.
func (e *Engine) CancelQuestion(userID int64, questionRef int) error {
	return e.cancel(userID, func(q *models.Question) bool { return q.Number == questionRef })
}

func (e *Engine) cancel(userID int64, match func(*models.Question) bool) error {
	return e.store.Update(userID, func(s *Session) error {
		if !s.HasCurrent() || !match(&e.bank[s.Current]) {
			return ErrNoActiveQuestion
		}
		s.Current = noQuestion
		s.Generation++
		return nil
	})
}

// Summary reports the user's score. It never fails; check HasAnswers.
func (e *Engine) Summary(userID int64) Summary {
	var sum Summary
	_ = e.store.Update(userID, func(s *Session) error {
		sum = summarize(s, len(e.bank))
		return nil
	})
	return sum
}

// LastQuestion returns the most recently presented question of the cycle.
func (e *Engine) LastQuestion(userID int64) (*models.Question, bool) {
	var q *models.Question
	_ = e.store.Update(userID, func(s *Session) error {
		if n := len(s.Presented); n > 0 {
			q = &e.bank[s.Presented[n-1]]
		}
		return nil
	})
	return q, q != nil
}
