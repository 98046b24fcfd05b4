package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/korjavin/quizbot/quiz"
)

const (
	answerPrefix = "answer:"
	cancelPrefix = "cancel:"
)

// AnswerData encodes an answer button payload.
func AnswerData(questionNumber, option int) string {
	return fmt.Sprintf("%s%d:%d", answerPrefix, questionNumber, option)
}

// CancelData encodes the payload of the cancel button under a question.
func CancelData(questionNumber int) string {
	return fmt.Sprintf("%s%d", cancelPrefix, questionNumber)
}

// IsCancelData reports whether data looks like a cancel payload.
func IsCancelData(data string) bool {
	return strings.HasPrefix(data, cancelPrefix)
}

// ParseCancelData decodes a cancel payload into its question number.
func ParseCancelData(data string) (int, error) {
	if !IsCancelData(data) {
		return 0, fmt.Errorf("%w: unexpected callback %q", quiz.ErrMalformedEvent, data)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(data, cancelPrefix))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid question number: %v", quiz.ErrMalformedEvent, err)
	}
	return n, nil
}

// IsAnswerData reports whether data looks like an answer payload.
func IsAnswerData(data string) bool {
	return strings.HasPrefix(data, answerPrefix)
}

// ParseAnswerData decodes an answer payload. Anything else yields
// quiz.ErrMalformedEvent.
func ParseAnswerData(data string) (questionNumber, option int, err error) {
	if !IsAnswerData(data) {
		return 0, 0, fmt.Errorf("%w: unexpected callback %q", quiz.ErrMalformedEvent, data)
	}
	parts := strings.Split(strings.TrimPrefix(data, answerPrefix), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: invalid callback format %q", quiz.ErrMalformedEvent, data)
	}

	questionNumber, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid question number: %v", quiz.ErrMalformedEvent, err)
	}
	option, err = strconv.Atoi(parts[1])
	if err != nil || option < 0 {
		return 0, 0, fmt.Errorf("%w: invalid option %q", quiz.ErrMalformedEvent, parts[1])
	}
	return questionNumber, option, nil
}
