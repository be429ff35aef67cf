package evaluator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"job-agent-core/internal/config"
	"job-agent-core/internal/logging"
	"job-agent-core/internal/logging/types"
	"job-agent-core/pkg/models"
)

// Manager manages evaluation providers and their lifecycle. Every call is
// rate limited and bounded by the configured per-request timeout.
type Manager struct {
	config   *config.Config
	factory  *Factory
	provider Provider
	limiter  *rate.Limiter
	logger   types.Logger
	mu       sync.RWMutex
	healthy  bool
}

// NewManager creates a new evaluator manager instance
func NewManager(cfg *config.Config) *Manager {
	perMin := cfg.LLM.RatePerMin
	if perMin <= 0 {
		perMin = 60
	}

	return &Manager{
		config:  cfg,
		factory: NewFactory(cfg),
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
		logger:  logging.GetGlobalLogger(),
	}
}

// Start initializes the manager and creates the provider
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Starting evaluator manager", map[string]interface{}{
		"provider": m.config.LLM.Provider,
	})

	provider, err := m.factory.CreateProvider()
	if err != nil {
		return fmt.Errorf("failed to create evaluation provider: %w", err)
	}

	m.provider = provider

	ctx, cancel := context.WithTimeout(context.Background(), m.config.LLM.Timeout)
	defer cancel()

	if err := m.provider.IsHealthy(ctx); err != nil {
		m.logger.Warn("Evaluation provider health check failed - AI evaluation will be unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		m.healthy = false
		// Allow the server to start without the provider
	} else {
		m.healthy = true
		m.logger.Info("Evaluator manager started successfully", map[string]interface{}{
			"provider": m.provider.GetProviderName(),
		})
	}

	return nil
}

// Stop shuts down the manager
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Stopping evaluator manager")
	m.provider = nil
	m.healthy = false
	return nil
}

func (m *Manager) acquire(ctx context.Context) (Provider, context.Context, context.CancelFunc, error) {
	m.mu.RLock()
	provider := m.provider
	healthy := m.healthy
	m.mu.RUnlock()

	if provider == nil {
		return nil, nil, nil, fmt.Errorf("evaluator manager not started or provider not available")
	}

	if !healthy {
		return nil, nil, nil, fmt.Errorf("evaluation provider is not available - check API key configuration (set LLM_API_KEY environment variable)")
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("rate limit wait aborted: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, m.config.LLM.Timeout)
	return provider, callCtx, cancel, nil
}

// Sanitize strips PII from raw CV text using the configured provider
func (m *Manager) Sanitize(ctx context.Context, rawCV string) (string, error) {
	provider, callCtx, cancel, err := m.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	return provider.Sanitize(callCtx, rawCV)
}

// EvaluateRelevance judges a job listing against the candidate profile
func (m *Manager) EvaluateRelevance(ctx context.Context, job models.JobListing, sanitizedCV string) (*models.RelevanceResult, error) {
	provider, callCtx, cancel, err := m.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	return provider.EvaluateRelevance(callCtx, job, sanitizedCV)
}

// ExtractSkills pulls the skills a saved job listing asks for
func (m *Manager) ExtractSkills(ctx context.Context, job models.JobListing) ([]string, error) {
	provider, callCtx, cancel, err := m.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	return provider.ExtractSkills(callCtx, job)
}

// IsHealthy checks if the manager and provider are healthy
func (m *Manager) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy && m.provider != nil
}

// GetProviderName returns the name of the current provider
func (m *Manager) GetProviderName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.provider != nil {
		return m.provider.GetProviderName()
	}
	return "none"
}

// CheckHealth performs a health check on the provider
func (m *Manager) CheckHealth(ctx context.Context) error {
	m.mu.RLock()
	provider := m.provider
	m.mu.RUnlock()

	if provider == nil {
		return fmt.Errorf("evaluation provider not available")
	}

	err := provider.IsHealthy(ctx)

	m.mu.Lock()
	m.healthy = (err == nil)
	m.mu.Unlock()

	return err
}
