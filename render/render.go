// Package render turns quiz state into Telegram HTML text and button
// descriptions. Nothing here performs I/O.
package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/korjavin/quizbot/models"
	"github.com/korjavin/quizbot/quiz"
)

// Button is one selectable answer option.
type Button struct {
	Label string
	Text  string
	Data  string
}

// Missed is a question the user often gets wrong.
type Missed struct {
	Number int
	Text   string
	Misses int
}

// Welcome greets a user after /start.
func Welcome(name string, total int) string {
	return fmt.Sprintf(`👋 Hello, %s!

🎓 <b>Quiz bot</b>

📊 <b>Questions:</b> %d

📚 <b>Commands:</b>
/quiz - next question
/score - your current score
/stats - detailed statistics
/reset - start over
/help - how it works

✨ Send /quiz to begin!`, html.EscapeString(name), total)
}

// Help explains the commands. advance is the auto-advance delay, zero when disabled.
func Help(total int, advance time.Duration) string {
	var b strings.Builder
	b.WriteString("📖 <b>How to use the bot:</b>\n\n")
	b.WriteString("1️⃣ Send /quiz to get a question\n")
	b.WriteString("2️⃣ Pick an answer from the buttons\n")
	b.WriteString("3️⃣ You are told right away whether it was correct, with an explanation\n")
	if advance > 0 {
		fmt.Fprintf(&b, "4️⃣ The next question arrives after %s\n", formatDelay(advance))
	} else {
		b.WriteString("4️⃣ Send /quiz again for the next question\n")
	}
	fmt.Fprintf(&b, "5️⃣ After all %d questions you get your final result\n\n", total)
	b.WriteString("/score and /stats show your progress, /reset starts over, /cancel drops the current question, /explain asks for a deeper explanation of the last question.\n\n")
	b.WriteString("Good luck! 🍀")
	return b.String()
}

// NoQuestions is shown when the bank is empty.
func NoQuestions() string {
	return "⚠️ Sorry, no questions are available right now."
}

// Question renders a presentation and its answer buttons.
func Question(p *quiz.Presentation) (string, []Button) {
	var b strings.Builder
	fmt.Fprintf(&b, "❓ <b>Question %d of %d</b>\n\n", p.Number, p.Total)
	b.WriteString(html.EscapeString(p.Question.Text))
	fmt.Fprintf(&b, "\n\n📊 <b>Remaining after this one:</b> %d", p.Remaining)

	buttons := make([]Button, len(p.Options))
	for i, opt := range p.Options {
		buttons[i] = Button{
			Label: opt.Label,
			Text:  fmt.Sprintf("%s) %s", opt.Label, opt.Text),
			Data:  AnswerData(p.Question.Number, opt.Index),
		}
	}
	return b.String(), buttons
}

// Outcome renders the result of an answer. advance is the auto-advance
// delay, zero when disabled.
func Outcome(o quiz.Outcome, advance time.Duration) string {
	var b strings.Builder
	if o.IsCorrect {
		b.WriteString("✅ <b>Correct!</b> 🎉")
	} else {
		b.WriteString("❌ <b>Wrong!</b>\n\n✅ Correct answer: ")
		b.WriteString(html.EscapeString(o.CorrectOption))
	}

	if o.Explanation != "" {
		b.WriteString("\n\n💡 <b>Explanation:</b>\n")
		b.WriteString(html.EscapeString(o.Explanation))
	}

	fmt.Fprintf(&b, "\n\n📊 <b>Your score:</b> %d / %d (%d%%)", o.Correct, o.Answered, o.Percentage)

	switch {
	case o.Completed && o.Summary != nil:
		b.WriteString("\n\n🎊 <b>You have answered every question!</b>\n\n")
		b.WriteString(summaryBlock(*o.Summary))
		b.WriteString("\n\nSend /reset to start over.")
	case advance > 0:
		fmt.Fprintf(&b, "\n\n⏳ Next question in %s...", formatDelay(advance))
	default:
		fmt.Fprintf(&b, "\n\n📝 <b>Remaining:</b> %d\nSend /quiz for the next question.", o.Remaining)
	}
	return b.String()
}

// Final renders the terminal result of a cycle.
func Final(s quiz.Summary, rearmed bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>Final result</b> %s\n\n", ratingEmoji(s.Rating), ratingEmoji(s.Rating))
	b.WriteString(summaryBlock(s))
	if rearmed {
		b.WriteString("\n\n🔄 The questions have been reshuffled. Send /quiz to play again.")
	} else {
		b.WriteString("\n\nSend /reset to start over.")
	}
	return b.String()
}

// Score renders the running score of the current round.
func Score(s quiz.Summary) string {
	if !s.HasAnswers {
		return fmt.Sprintf("📊 You have not answered any question yet!\n\n📚 Questions available: %d\n\nSend /quiz to begin.", s.Total)
	}
	return fmt.Sprintf(`📊 <b>Your current score:</b>

✅ Correct: %d
❌ Wrong: %d
📝 Answered: %d / %d
📈 Percentage: %d%%
📚 Remaining: %d

🏆 Rating: %s`, s.Correct, s.Wrong, s.Answered, s.Total, s.Percentage, s.Remaining, ratingText(s.Rating))
}

// History is what the answer journal remembers about a user across sessions.
type History struct {
	Correct int
	Wrong   int
	Missed  []Missed
}

func (h History) empty() bool {
	return h.Correct+h.Wrong == 0 && len(h.Missed) == 0
}

// Stats renders the detailed statistics, adding journal history if any.
func Stats(s quiz.Summary, name string, h History) string {
	if !s.HasAnswers && h.empty() {
		return fmt.Sprintf("📊 No statistics yet!\n\n📚 Questions available: %d\n\nSend /quiz to begin.", s.Total)
	}

	var b strings.Builder
	b.WriteString("📈 <b>Detailed statistics</b>\n\n")
	if name != "" {
		fmt.Fprintf(&b, "👤 <b>User:</b> %s\n\n", html.EscapeString(name))
	}
	if s.HasAnswers {
		b.WriteString(summaryBlock(s))
	} else {
		b.WriteString("📝 No answers in this round yet.")
	}
	fmt.Fprintf(&b, "\n\n📚 <b>Progress:</b> %d / %d (%d%%)", s.Answered, s.Total, s.Progress)
	if s.Cycle > 0 {
		fmt.Fprintf(&b, "\n🔁 Completed rounds: %d", s.Cycle)
	}

	if all := h.Correct + h.Wrong; all > 0 {
		fmt.Fprintf(&b, "\n\n🗂 <b>All time:</b> %d of %d correct (%d%%)", h.Correct, all, quiz.Percentage(h.Correct, all))
	}

	if len(h.Missed) > 0 {
		b.WriteString("\n\n<b>Most challenging questions:</b>\n")
		for i, m := range h.Missed {
			fmt.Fprintf(&b, "%d. #%d: %s (missed %d×)\n", i+1, m.Number, html.EscapeString(truncate(m.Text, 50)), m.Misses)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// ResetDone confirms /reset.
func ResetDone() string {
	return "🔄 Your results have been reset!\n\nSend /quiz to start again."
}

// Cancelled confirms a dropped question.
func Cancelled() string {
	return "❌ Question cancelled. Send /quiz for another one."
}

// NothingToCancel answers /cancel with no question awaiting.
func NothingToCancel() string {
	return "There is no question to cancel. Send /quiz to get one."
}

// TryAgain is shown for stale or duplicate answers.
func TryAgain() string {
	return "⚠️ That question is no longer active, please try again with /quiz."
}

// GenericError is shown for events that cannot be interpreted.
func GenericError() string {
	return "❌ Something went wrong while processing your answer."
}

// Unknown answers unrecognised commands.
func Unknown() string {
	return "Unknown command. Use /quiz for a question or /help for assistance."
}

// Explanation renders a long-form explanation of q.
func Explanation(q *models.Question, text string) string {
	return fmt.Sprintf("🧠 <b>About question #%d</b>\n\n%s", q.Number, html.EscapeString(text))
}

// NothingToExplain answers /explain before any question was asked.
func NothingToExplain() string {
	return "Please use /quiz to get a question before asking for an explanation."
}

// ExplainUnavailable is shown when no explanation can be produced.
func ExplainUnavailable() string {
	return "Sorry, explanations are not available at the moment."
}

func summaryBlock(s quiz.Summary) string {
	return fmt.Sprintf(`✅ Correct: %d
❌ Wrong: %d
📝 Answered: %d of %d
🎯 Percentage: %d%%
⭐ Rating: %s`, s.Correct, s.Wrong, s.Answered, s.Total, s.Percentage, ratingText(s.Rating))
}

func ratingText(r quiz.Rating) string {
	if r == "" {
		return "-"
	}
	return string(r) + " " + ratingEmoji(r)
}

func ratingEmoji(r quiz.Rating) string {
	switch r {
	case quiz.RatingExcellent:
		return "🏆"
	case quiz.RatingVeryGood:
		return "🎉"
	case quiz.RatingGood:
		return "👏"
	case quiz.RatingAcceptable:
		return "📖"
	default:
		return "📝"
	}
}

func formatDelay(d time.Duration) string {
	if d%time.Second == 0 {
		secs := int(d / time.Second)
		if secs == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", secs)
	}
	return d.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
