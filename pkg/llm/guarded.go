package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/logging"
	"github.com/ekaya-inc/ekaya-catalog/pkg/retry"
)

// GuardedClient retries transient failures of the wrapped client and stops
// calling it while the circuit breaker is open.
type GuardedClient struct {
	inner   LLMClient
	breaker *CircuitBreaker
	retry   *retry.Config
	logger  *zap.Logger
}

// NewGuardedClient wraps inner. A nil retryCfg uses retry.LLMConfig().
func NewGuardedClient(inner LLMClient, breaker *CircuitBreaker, retryCfg *retry.Config, logger *zap.Logger) *GuardedClient {
	if breaker == nil {
		breaker = NewCircuitBreaker(DefaultCircuitBreakerConfig())
	}
	if retryCfg == nil {
		retryCfg = retry.LLMConfig()
	}
	return &GuardedClient{
		inner:   inner,
		breaker: breaker,
		retry:   retryCfg,
		logger:  logger.Named("llm-guard"),
	}
}

// GenerateResponse implements LLMClient.
func (g *GuardedClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	if err := g.breaker.Allow(); err != nil {
		return nil, NewErrorWithContext(ErrorTypeUnavailable, "description model unavailable", false, err,
			g.inner.GetModel(), g.inner.GetEndpoint(), 0)
	}

	result, err := retry.DoWithResultIfRetryable(ctx, g.retry, func() (*GenerateResponseResult, error) {
		return g.inner.GenerateResponse(ctx, prompt, systemMessage, temperature)
	})
	if err != nil {
		// Configuration errors say nothing about provider health.
		if t := GetErrorType(err); t != ErrorTypeAuth && t != ErrorTypeModel {
			g.breaker.RecordFailure()
		}
		g.logger.Warn("LLM call failed",
			zap.String("model", g.inner.GetModel()),
			zap.String("circuit", g.breaker.State().String()),
			zap.String("error", logging.SanitizeError(err)))
		return nil, err
	}

	g.breaker.RecordSuccess()
	return result, nil
}

// GetModel implements LLMClient.
func (g *GuardedClient) GetModel() string {
	return g.inner.GetModel()
}

// GetEndpoint implements LLMClient.
func (g *GuardedClient) GetEndpoint() string {
	return g.inner.GetEndpoint()
}

// Breaker exposes the circuit breaker for health reporting.
func (g *GuardedClient) Breaker() *CircuitBreaker {
	return g.breaker
}
