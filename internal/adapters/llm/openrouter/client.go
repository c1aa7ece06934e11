package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/randomtoy/wheel-go/internal/domain"
	"github.com/randomtoy/wheel-go/internal/ports"
)

const maxResponseBytes = 1 << 20

// Client implements ports.FactTeller via the OpenRouter API.
type Client struct {
	httpClient     *http.Client
	apiKey         string
	baseURL        string
	model          string
	fallbackModels []string
	logger         *slog.Logger
}

func NewClient(httpClient *http.Client, apiKey, baseURL, model string, fallbackModels []string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient:     httpClient,
		apiKey:         apiKey,
		baseURL:        strings.TrimRight(baseURL, "/"),
		model:          model,
		fallbackModels: fallbackModels,
		logger:         logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// TellFact asks the primary model and then each fallback in order.
func (c *Client) TellFact(ctx context.Context, in ports.FactInput) (ports.FactOutput, error) {
	models := make([]string, 0, 1+len(c.fallbackModels))
	models = append(models, c.model)
	models = append(models, c.fallbackModels...)

	var lastErr error
	for _, model := range models {
		out, err := c.factWithModel(ctx, in, model)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if len(models) > 1 {
			c.logger.WarnContext(ctx, "model failed, trying next", "model", model, "error", err)
		}
	}
	return ports.FactOutput{}, lastErr
}

func (c *Client) factWithModel(ctx context.Context, in ports.FactInput, model string) (ports.FactOutput, error) {
	system := buildSystemPrompt(in.Lang)
	user := fmt.Sprintf("Item: %q", in.Item)

	content, err := c.callLLM(ctx, model, system, user)
	if err != nil {
		return ports.FactOutput{}, fmt.Errorf("%w: %w", domain.ErrUpstreamLLM, err)
	}

	out, err := parseFact(content)
	if err != nil {
		c.logger.WarnContext(ctx, "LLM returned invalid JSON, retrying", "model", model, "error", err)
		content, err = c.callLLM(ctx, model, system, retryPrompt(content))
		if err != nil {
			return ports.FactOutput{}, fmt.Errorf("%w: %w", domain.ErrUpstreamLLM, err)
		}
		if out, err = parseFact(content); err != nil {
			return ports.FactOutput{}, fmt.Errorf("%w: %w", domain.ErrInvalidLLMJSON, err)
		}
	}
	out.Model = model
	return out, nil
}

// parseFact decodes the model's answer, tolerating a markdown code fence.
func parseFact(content string) (ports.FactOutput, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	var out ports.FactOutput
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return ports.FactOutput{}, err
	}
	out.Fact = strings.TrimSpace(out.Fact)
	if out.Fact == "" {
		return ports.FactOutput{}, errors.New(`empty "fact" field`)
	}
	return out, nil
}

func (c *Client) callLLM(ctx context.Context, model, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upstream status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// languageName returns the English name of a BCP 47 tag, or "" for
// English and unparseable tags.
func languageName(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	if base.String() == "en" {
		return ""
	}
	return display.English.Languages().Name(tag)
}

func buildSystemPrompt(lang string) string {
	langInstruction := ""
	if name := languageName(lang); name != "" {
		langInstruction = fmt.Sprintf("\n- Respond entirely in %s.", name)
	}

	return fmt.Sprintf(`You share one short, light-hearted fun fact about whatever a prize wheel landed on.

Rules:
- One sentence, at most 200 characters.
- Keep it family friendly and true.
- If the item is not a real thing, make a playful remark about it instead.%s

Respond with ONLY a JSON object (no markdown, no code fences, no extra text) matching this exact schema:
{"fact": "<your fun fact>"}`, langInstruction)
}

func retryPrompt(badJSON string) string {
	return fmt.Sprintf(`Your previous response was not valid JSON. Here is what you returned:
%s

Return ONLY the corrected JSON object matching this schema (no markdown, no code fences):
{"fact": "<your fun fact>"}`, badJSON)
}
