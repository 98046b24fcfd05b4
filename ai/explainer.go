package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/korjavin/quizbot/models"
	openai "github.com/sashabaranov/go-openai"
)

const apiTimeout = 60 * time.Second

// Explainer asks an OpenAI-compatible chat model for a longer explanation
// of a quiz question.
type Explainer struct {
	client *openai.Client
	model  string
}

// NewExplainer creates a client. baseURL may point at any OpenAI-compatible
// API (Deepseek, a local gateway); empty means api.openai.com.
func NewExplainer(apiKey, baseURL, model string) *Explainer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Explainer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// ExplainQuestion returns a plain-text explanation of q.
func (e *Explainer) ExplainQuestion(ctx context.Context, q *models.Question) (string, error) {
	startTime := time.Now()
	log.Printf("Requesting explanation of question %d from %s", q.Number, e.model)

	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a patient tutor. Answer in plain text without markdown.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(q),
			},
		},
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("explanation timed out after %v: %w", time.Since(startTime), err)
		}
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in API response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("empty explanation in API response")
	}

	log.Printf("Explanation of question %d completed in %v. Content length: %d",
		q.Number, time.Since(startTime), len(content))
	return content, nil
}

func buildPrompt(q *models.Question) string {
	var b strings.Builder
	b.WriteString("Please help me understand the following multiple-choice quiz question.\n\n")
	b.WriteString("1. Explain why the correct answer is correct\n")
	b.WriteString("2. Explain briefly why each other option is wrong\n")
	b.WriteString("3. Suggest a short memory aid\n\n")
	fmt.Fprintf(&b, "Question: %s\n\nOptions:\n", q.Text)
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "%c) %s\n", 'A'+i, opt)
	}
	fmt.Fprintf(&b, "\nCorrect answer: %s\n", q.CorrectOption())
	if q.Explanation != "" {
		fmt.Fprintf(&b, "Short explanation already given: %s\n", q.Explanation)
	}
	b.WriteString("\nBe concise.")
	return b.String()
}
