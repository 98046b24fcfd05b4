package models

// Question is one multiple-choice quiz question.
// Questions are loaded once at startup and never mutated.
type Question struct {
	Number      int
	Text        string
	Options     []string
	Correct     int
	Explanation string
}

// CorrectOption returns the text of the correct option.
func (q *Question) CorrectOption() string {
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return ""
	}
	return q.Options[q.Correct]
}

// Valid reports whether the question can be asked.
func (q *Question) Valid() bool {
	return q.Text != "" && len(q.Options) >= 2 && q.Correct >= 0 && q.Correct < len(q.Options)
}

// UserActivity stores user interaction with questions
type UserActivity struct {
	UserID         int64
	QuestionNumber int
	AnswerNumber   int
	Correct        bool
	Timestamp      int64
}

// MissedQuestion is a question a user got wrong, with how often.
type MissedQuestion struct {
	QuestionNumber int
	Misses         int
}
