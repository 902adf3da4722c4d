package chat

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lethanhdat107/govivu/internal/models"
	"github.com/lethanhdat107/govivu/internal/utils"
)

type completionClient interface {
	name() string
	complete(ctx context.Context, turns []models.Turn) (string, error)
}

// Orchestrator sequences provider calls: a short throttle before the first
// call, then each configured provider in order until one returns text.
type Orchestrator struct {
	clients  []completionClient
	preDelay time.Duration
	sleep    func(time.Duration)
	logger   *zap.SugaredLogger
}

func NewOrchestrator(cfg utils.ProvidersConfig, chatCfg utils.ChatConfig, logger *zap.SugaredLogger) *Orchestrator {
	primary := newOpenAIClient(cfg.Primary, chatCfg.RetryDelay)
	secondary := newGeminiClient(cfg.Secondary, chatCfg.RetryDelay)

	order := cfg.Order
	if len(order) == 0 {
		order = []string{"primary", "secondary"}
	}

	clients := make([]completionClient, 0, 2)
	for _, name := range order {
		switch name {
		case "primary":
			clients = append(clients, primary)
		case "secondary":
			clients = append(clients, secondary)
		}
	}
	if len(clients) == 0 {
		clients = []completionClient{primary, secondary}
	}

	return &Orchestrator{
		clients:  clients,
		preDelay: chatCfg.PreCallDelay,
		sleep:    time.Sleep,
		logger:   logger,
	}
}

// Complete produces one reply for the turn sequence. On total failure the
// returned error is always a *ProviderError describing the last attempt.
func (o *Orchestrator) Complete(ctx context.Context, turns []models.Turn) (string, error) {
	if o.preDelay > 0 {
		o.sleep(o.preDelay)
	}

	var lastErr *ProviderError
	for _, client := range o.clients {
		text, err := client.complete(ctx, turns)
		if err == nil {
			return text, nil
		}

		var provErr *ProviderError
		if errors.As(err, &provErr) {
			lastErr = provErr
		} else {
			lastErr = &ProviderError{Provider: client.name(), Kind: FailureUnknown, Err: err}
		}
		o.logger.Warnw("provider attempt failed",
			"provider", client.name(),
			"failure", lastErr.Kind.String(),
			"status", lastErr.Status,
			"error", lastErr.Err,
		)
	}

	if lastErr == nil {
		lastErr = &ProviderError{Kind: FailureUnknown, Err: errors.New("no providers configured")}
	}
	return "", lastErr
}
