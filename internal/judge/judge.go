// Package judge calls the external answer-judgment model. Judgment itself is
// a black box: this client only carries the exercise context over and parses
// the verdict back.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

type EvaluationRequest struct {
	Question        string
	ExpectedAnswer  string
	AcceptedAnswers []string
	ExerciseType    string
	Submission      string
	AttemptNumber   int
	AgeBand         string
}

type Verdict struct {
	IsCorrect bool   `json:"is_correct"`
	Feedback  string `json:"feedback"`
}

type Judge interface {
	Evaluate(ctx context.Context, req EvaluationRequest) (*Verdict, error)
}

type LLMJudge struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
	Model   string
}

func NewLLMJudge(baseURL, apiKey, model string) *LLMJudge {
	return &LLMJudge{
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
	}
}

type chatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []chatCompletionMessage `json:"messages"`
	Stream      bool                    `json:"stream"`
	Temperature *float64                `json:"temperature,omitempty"`
}

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
	} `json:"choices"`
}

const systemPrompt = `You are grading a child's answer to an exercise.
Decide whether the submitted answer is correct. Accept the expected answer,
any listed alternate, and semantically equivalent phrasings. Then write one
or two sentences of encouraging feedback suited to the child's age band and
attempt number; never reveal the correct answer in feedback.
Respond with JSON only: {"is_correct": true|false, "feedback": "..."}`

// Evaluate submits the answer for judgment. Transient failures are retried
// once after a short backoff; after that the error surfaces to the caller,
// which must not persist an attempt for the submission.
func (j *LLMJudge) Evaluate(ctx context.Context, req EvaluationRequest) (*Verdict, error) {
	verdict, err := j.evaluateOnce(ctx, req)
	if err == nil {
		return verdict, nil
	}
	log.Printf("judge call failed, retrying once: %v", err)

	select {
	case <-time.After(500 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return j.evaluateOnce(ctx, req)
}

func (j *LLMJudge) evaluateOnce(ctx context.Context, req EvaluationRequest) (*Verdict, error) {
	userMessage := fmt.Sprintf(
		"Exercise type: %s\nQuestion: %s\nExpected answer: %s\nAccepted alternates: %s\nChild's age band: %s\nAttempt number: %d\nSubmitted answer: %s",
		req.ExerciseType,
		req.Question,
		req.ExpectedAnswer,
		strings.Join(req.AcceptedAnswers, "; "),
		req.AgeBand,
		req.AttemptNumber,
		req.Submission,
	)

	temperature := 0.2
	request := chatCompletionRequest{
		Model: j.Model,
		Messages: []chatCompletionMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		Stream:      false,
		Temperature: &temperature,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, j.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if j.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+j.APIKey)
	}

	resp, err := j.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("judge request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("judge returned status %d: %.200s", resp.StatusCode, string(raw))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(raw, &completion); err != nil {
		return nil, fmt.Errorf("invalid judge response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("judge returned no choices")
	}

	return parseVerdict(completion.Choices[0].Message.Content)
}

func parseVerdict(content string) (*Verdict, error) {
	content = strings.TrimSpace(content)
	// Models sometimes wrap JSON in a code fence
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	if start := strings.Index(content, "{"); start > 0 {
		content = content[start:]
	}
	if end := strings.LastIndex(content, "}"); end >= 0 {
		content = content[:end+1]
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return nil, fmt.Errorf("could not parse judge verdict: %w", err)
	}
	return &verdict, nil
}
