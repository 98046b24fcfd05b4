package quiz

import "math"

// Rating is the qualitative bucket of a percentage.
type Rating string

const (
	RatingExcellent        Rating = "excellent"
	RatingVeryGood         Rating = "very good"
	RatingGood             Rating = "good"
	RatingAcceptable       Rating = "acceptable"
	RatingNeedsImprovement Rating = "needs improvement"
)

// Summary is a score report derived from session counters.
type Summary struct {
	Correct    int
	Answered   int
	Wrong      int
	Total      int
	Remaining  int
	Percentage int
	Progress   int
	Rating     Rating
	HasAnswers bool
	Cycle      int
}

// Percentage returns round(100*correct/answered), rounding halves away
// from zero, or 0 when nothing was answered.
func Percentage(correct, answered int) int {
	if answered <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(answered)))
}

// RateScore buckets a percentage.
func RateScore(percentage int) Rating {
	switch {
	case percentage >= 90:
		return RatingExcellent
	case percentage >= 80:
		return RatingVeryGood
	case percentage >= 70:
		return RatingGood
	case percentage >= 60:
		return RatingAcceptable
	default:
		return RatingNeedsImprovement
	}
}

func summarize(s *Session, total int) Summary {
	sum := Summary{
		Correct:    s.Correct,
		Answered:   s.Answered,
		Wrong:      s.Answered - s.Correct,
		Total:      total,
		Remaining:  len(s.Pool),
		HasAnswers: s.Answered > 0,
		Cycle:      s.Cycle,
	}
	if s.HasCurrent() {
		sum.Remaining++
	}
	if sum.HasAnswers {
		sum.Percentage = Percentage(s.Correct, s.Answered)
		sum.Rating = RateScore(sum.Percentage)
	}
	if total > 0 {
		sum.Progress = Percentage(s.Answered, total)
	}
	return sum
}
