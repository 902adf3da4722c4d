package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lethanhdat107/govivu/internal/models"
	"github.com/lethanhdat107/govivu/internal/utils"
)

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// openAIClient talks to an OpenAI-compatible /chat/completions endpoint.
// It has a single credential; on 429 it waits a fixed delay and retries up
// to its try budget, any other failure ends the attempt run.
type openAIClient struct {
	endpoint   string
	model      string
	apiKey     string
	retries    int
	retryDelay time.Duration
	timeout    time.Duration
	client     httpDoer
	sleep      func(time.Duration)
}

func newOpenAIClient(cfg utils.PrimaryProviderConfig, retryDelay time.Duration) *openAIClient {
	retries := cfg.Retries
	if retries <= 0 {
		retries = 3
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &openAIClient{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		retries:    retries,
		retryDelay: retryDelay,
		timeout:    timeout,
		client:     &http.Client{},
		sleep:      time.Sleep,
	}
}

func (c *openAIClient) name() string { return "primary" }

type openAIRequest struct {
	Model    string        `json:"model"`
	Messages []models.Turn `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message models.Turn `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *openAIClient) complete(ctx context.Context, turns []models.Turn) (string, error) {
	body, err := json.Marshal(openAIRequest{Model: c.model, Messages: turns})
	if err != nil {
		return "", &ProviderError{Provider: c.name(), Kind: FailureUnknown, Err: err}
	}

	var lastErr *ProviderError
	for attempt := 1; attempt <= c.retries; attempt++ {
		text, provErr := c.completeOnce(ctx, body)
		if provErr == nil {
			return text, nil
		}
		lastErr = provErr

		if provErr.Kind == FailureRateLimited && attempt < c.retries {
			c.sleep(c.retryDelay)
			continue
		}
		break
	}

	return "", lastErr
}

func (c *openAIClient) completeOnce(ctx context.Context, body []byte) (string, *ProviderError) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: c.name(), Kind: FailureUnknown, Err: err}
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
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
			Err:      fmt.Errorf("chat completion failed: %s", snippet(respBody)),
		}
	}

	var apiResp openAIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", &ProviderError{Provider: c.name(), Kind: FailureUnknown, Err: fmt.Errorf("decode chat response: %w", err)}
	}
	if apiResp.Error != nil && apiResp.Error.Message != "" {
		return "", &ProviderError{Provider: c.name(), Kind: FailureUnknown, Err: fmt.Errorf("chat api error: %s", apiResp.Error.Message)}
	}
	if len(apiResp.Choices) == 0 || strings.TrimSpace(apiResp.Choices[0].Message.Content) == "" {
		return "", &ProviderError{Provider: c.name(), Kind: FailureUnknown, Err: fmt.Errorf("chat response contained no choices")}
	}

	return apiResp.Choices[0].Message.Content, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}
