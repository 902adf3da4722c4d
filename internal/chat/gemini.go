package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lethanhdat107/govivu/internal/models"
	"github.com/lethanhdat107/govivu/internal/utils"
)

// geminiClient talks to a generateContent endpoint. It rotates through the
// configured keys: 429/503 retries the same key with exponential backoff,
// any other failure abandons the key and moves to the next one.
type geminiClient struct {
	endpoint      string
	model         string
	apiKeys       []string
	retriesPerKey int
	baseDelay     time.Duration
	timeout       time.Duration
	client        httpDoer
	sleep         func(time.Duration)
}

func newGeminiClient(cfg utils.SecondaryProviderConfig, baseDelay time.Duration) *geminiClient {
	retries := cfg.RetriesPerKey
	if retries <= 0 {
		retries = 2
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &geminiClient{
		endpoint:      strings.TrimRight(cfg.Endpoint, "/"),
		model:         cfg.Model,
		apiKeys:       cfg.APIKeys,
		retriesPerKey: retries,
		baseDelay:     baseDelay,
		timeout:       timeout,
		client:        &http.Client{},
		sleep:         time.Sleep,
	}
}

func (c *geminiClient) name() string { return "secondary" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// toGeminiRequest remaps roles for the generateContent wire format: the
// system turn becomes a dedicated instruction field and assistant turns use
// the provider-native "model" role.
func toGeminiRequest(turns []models.Turn) geminiRequest {
	var req geminiRequest
	req.Contents = make([]geminiContent, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case models.RoleSystem:
			req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: turn.Content}}}
		case models.RoleAssistant:
			req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: turn.Content}}})
		default:
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: turn.Content}}})
		}
	}
	return req
}

func (c *geminiClient) complete(ctx context.Context, turns []models.Turn) (string, error) {
	if len(c.apiKeys) == 0 {
		return "", &ProviderError{Provider: c.name(), Kind: FailureAuth, Err: fmt.Errorf("no api keys configured")}
	}

	body, err := json.Marshal(toGeminiRequest(turns))
	if err != nil {
		return "", &ProviderError{Provider: c.name(), Kind: FailureUnknown, Err: err}
	}

	var lastErr *ProviderError
	for _, key := range c.apiKeys {
		for attempt := 1; attempt <= c.retriesPerKey; attempt++ {
			text, provErr := c.completeOnce(ctx, key, body)
			if provErr == nil {
				return text, nil
			}
			lastErr = provErr

			retryable := provErr.Kind == FailureRateLimited || provErr.Kind == FailureUnavailable
			if retryable && attempt < c.retriesPerKey {
				c.sleep(time.Duration(1<<uint(attempt)) * c.baseDelay)
				continue
			}
			// Exhausted or non-retryable: advance to the next key.
			break
		}
	}

	return "", lastErr
}

func (c *geminiClient) completeOnce(ctx context.Context, apiKey string, body []byte) (string, *ProviderError) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.endpoint, c.model, url.QueryEscape(apiKey))
	request, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: c.name(), Kind: FailureUnknown, Err: err}
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.client.Do(request)
	if err != nil {
		kind := classifyTransportError(err)
		if callCtx.Err() == context.DeadlineExceeded {
			kind = FailureTimeout
		}
		return "", &ProviderError{Provider: c.name(), Kind: kind, Err: err}
	}
	defer response.Body.Close()

	respBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", &ProviderError{Provider: c.name(), Kind: FailureUnknown, Err: err}
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", &ProviderError{
			Provider: c.name(),
			Kind:     classifyStatus(response.StatusCode),
			Status:   response.StatusCode,
			Err:      fmt.Errorf("generateContent failed: %s", snippet(respBody)),
		}
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", &ProviderError{Provider: c.name(), Kind: FailureUnknown, Err: fmt.Errorf("decode generateContent response: %w", err)}
	}
	if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
		return "", &ProviderError{Provider: c.name(), Kind: FailureUnknown, Err: fmt.Errorf("response contained no candidates")}
	}

	text := strings.TrimSpace(apiResp.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", &ProviderError{Provider: c.name(), Kind: FailureUnknown, Err: fmt.Errorf("response candidate was empty")}
	}

	return text, nil
}
