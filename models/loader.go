package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
)

// questionRecord is the on-disk form. Older question files name the
// correct index "correct_answer" instead of "correct".
type questionRecord struct {
	ID            *int     `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	Correct       *int     `json:"correct"`
	CorrectAnswer *int     `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// LoadQuestions loads questions from a JSON file. Both a bare array and an
// object with a "questions" array are accepted. Records that cannot be asked,
// or whose id is already taken, are skipped.
func LoadQuestions(path string) ([]Question, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	records, err := decodeRecords(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	questions := make([]Question, 0, len(records))
	taken := make(map[int]bool, len(records))
	for i, r := range records {
		q := Question{
			Number:      i + 1,
			Text:        r.Question,
			Options:     r.Options,
			Correct:     -1,
			Explanation: r.Explanation,
		}
		if r.ID != nil {
			q.Number = *r.ID
		}
		switch {
		case r.Correct != nil:
			q.Correct = *r.Correct
		case r.CorrectAnswer != nil:
			q.Correct = *r.CorrectAnswer
		}

		if !q.Valid() {
			log.Printf("Skipping question #%d in %s: invalid record", q.Number, path)
			continue
		}
		// Answer buttons and cached explanations are keyed by number.
		if taken[q.Number] {
			log.Printf("Skipping question #%d in %s: duplicate id", q.Number, path)
			continue
		}
		taken[q.Number] = true
		questions = append(questions, q)
	}

	return questions, nil
}

func decodeRecords(data []byte) ([]questionRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty question source")
	}

	var records []questionRecord
	if data[0] == '[' {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, err
		}
		return records, nil
	}

	var wrapped struct {
		Questions []questionRecord `json:"questions"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Questions == nil {
		return nil, errors.New(`missing "questions" array`)
	}
	return wrapped.Questions, nil
}

// LoadBank loads the question bank and never fails: on any error it logs
// once and returns an empty bank.
func LoadBank(path string) []Question {
	questions, err := LoadQuestions(path)
	if err != nil {
		log.Printf("Warning: failed to load questions from %s: %v", path, err)
		return []Question{}
	}
	log.Printf("Loaded %d questions from %s", len(questions), path)
	return questions
}
