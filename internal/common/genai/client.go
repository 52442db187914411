// internal/common/genai/client.go
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"dealflow-workers/internal/assessment"
	"dealflow-workers/internal/common/config"
	"dealflow-workers/internal/common/http"
	"dealflow-workers/internal/common/logger"
)

const systemPrompt = `You are a property development investment analyst. Given a deal's ` +
	`financials and criteria evaluation, respond with a single JSON object containing ` +
	`"summary" (2-3 sentences), "pathToGreen" (array of concrete actions, empty for ` +
	`green deals) and "recommendations" (array of next steps). Explain the given result; ` +
	`never invent different scores or statuses. Respond with JSON only.`

// Client calls a chat-completion style GenAI endpoint to produce deal
// insights. It implements assessment.InsightsGenerator.
type Client struct {
	cfg    config.GenAIConfig
	client *http.Client
	log    logger.Logger
}

func NewClient(cfg config.GenAIConfig, log logger.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	return &Client{
		cfg:    cfg,
		client: http.NewClient(timeout),
		log:    log.WithFields(map[string]interface{}{"component": "genai"}),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate produces insights for an assessed deal. A single attempt is made;
// callers degrade to templated fallback text on error rather than retrying.
func (c *Client) Generate(ctx context.Context, req assessment.InsightsRequest) (*assessment.Insights, error) {
	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(req)},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", assessment.ErrInsightsUnavailable, err)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", assessment.ErrInsightsUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: deadline exceeded", assessment.ErrInsightsUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", assessment.ErrInsightsUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", assessment.ErrInsightsUnavailable, resp.StatusCode, string(msg))
	}

	var apiResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", assessment.ErrInsightsUnavailable, err)
	}

	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", assessment.ErrInsightsMalformed)
	}

	insights, err := assessment.ParseInsights(apiResp.Choices[0].Message.Content)
	if err != nil {
		c.log.Warn("GenAI returned unparseable insights", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	return insights, nil
}

func buildUserPrompt(req assessment.InsightsRequest) string {
	var parts []string

	if req.Input != nil && req.Input.Name != "" {
		parts = append(parts, "Opportunity: "+req.Input.Name)
	}
	parts = append(parts, fmt.Sprintf("Deal status: %s (final score %d)", req.Status, req.Score))
	parts = append(parts, fmt.Sprintf(
		"Financials: total cost $%.0f, total revenue $%.0f, gross margin $%.0f (%.1f%%)",
		req.Financials.TotalCost, req.Financials.TotalRevenue,
		req.Financials.GrossMargin, req.Financials.GrossMarginPercent,
	))
	parts = append(parts, fmt.Sprintf(
		"Margin thresholds: %.1f%% for green, %.1f%% for amber",
		req.Criteria.GreenGMThreshold, req.Criteria.AmberGMThreshold,
	))

	if failed := names(req.Failed); len(failed) > 0 {
		parts = append(parts, "Failed criteria: "+strings.Join(failed, "; "))
	}
	if attention := names(req.Attention); len(attention) > 0 {
		parts = append(parts, "Needs attention: "+strings.Join(attention, "; "))
	}
	if passed := names(req.Passed); len(passed) > 0 {
		parts = append(parts, "Passed criteria: "+strings.Join(passed, "; "))
	}

	return strings.Join(parts, "\n")
}

func names(results []assessment.CriterionResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		if r.Detail != "" {
			out = append(out, fmt.Sprintf("%s (%s)", r.Name, r.Detail))
			continue
		}
		out = append(out, r.Name)
	}
	return out
}
