// Package aigrader is the client boundary for the external AI grading
// and hinting service (§6.5). No AI/LLM SDK appears anywhere in the
// example pack, so this client is a plain net/http JSON client — see
// DESIGN.md for the stdlib justification.
package aigrader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/apperr"
)

// QualityResult is the AI grader's assessment of submitted code.
type QualityResult struct {
	Score     int            `json:"score"`
	Breakdown map[string]int `json:"breakdown"`
	Feedback  string         `json:"feedback"`
}

// HintResult is a generated coaching hint.
type HintResult struct {
	Content string `json:"content"`
	Level   int    `json:"level"`
}

// Client is the §6.5 AI grader / hinter boundary.
type Client interface {
	// AnalyzeCodeQuality scores quality+creativity for a submission.
	AnalyzeCodeQuality(ctx context.Context, code, language, challengeContext string) (*QualityResult, error)

	// GenerateHint produces the next coaching hint for a player's current code.
	GenerateHint(ctx context.Context, code, language, challengeContext string, hintLevel int) (*HintResult, error)
}

type httpClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient constructs an HTTP-based AI grader/hinter client with a hard
// per-call deadline.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *logrus.Logger) Client {
	return &httpClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type analyzeRequest struct {
	Code    string `json:"code"`
	Language string `json:"language"`
	Context string `json:"context"`
}

// AnalyzeCodeQuality scores quality+creativity; callers must apply the
// deterministic fallback defaults on error rather than propagating it
// to the player as a hard failure.
func (c *httpClient) AnalyzeCodeQuality(ctx context.Context, code, language, challengeContext string) (*QualityResult, error) {
	var result QualityResult
	if err := c.post(ctx, "/v1/analyze", analyzeRequest{Code: code, Language: language, Context: challengeContext}, &result); err != nil {
		return nil, apperr.Wrap(apperr.CodeGraderUnavailable, "AI grader request failed", err)
	}
	return &result, nil
}

type hintRequest struct {
	Code      string `json:"code"`
	Language  string `json:"language"`
	Context   string `json:"context"`
	HintLevel int    `json:"hint_level"`
}

// GenerateHint produces the next coaching hint; callers are responsible
// for the hidden-test redaction pass before the content reaches a player.
func (c *httpClient) GenerateHint(ctx context.Context, code, language, challengeContext string, hintLevel int) (*HintResult, error) {
	var result HintResult
	if err := c.post(ctx, "/v1/hint", hintRequest{Code: code, Language: language, Context: challengeContext, HintLevel: hintLevel}, &result); err != nil {
		return nil, apperr.Wrap(apperr.CodeGraderUnavailable, "AI hint request failed", err)
	}
	return &result, nil
}

func (c *httpClient) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("AI service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("AI service returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode AI service response: %w", err)
	}

	return nil
}
