package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fleetops/workorder-service/internal/domain"
	"github.com/fleetops/workorder-service/internal/repository"
	"github.com/fleetops/workorder-service/internal/sla"
	apperrors "github.com/fleetops/workorder-service/pkg/util/errorutil"
)

const policyCacheKey = "sla:policies"

// CacheStore is the subset of Redis used for caching.
type CacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// SlaPolicyService manages SLA policies. Reads go through a Redis copy of the full
// policy list; any write drops it. Cache failures fall back to the database.
type SlaPolicyService struct {
	repo   repository.SlaPolicyRepository
	cache  CacheStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewSlaPolicyService constructs the service. cache may be nil.
func NewSlaPolicyService(repo repository.SlaPolicyRepository, cache CacheStore, ttl time.Duration, logger *zap.Logger) *SlaPolicyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SlaPolicyService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// List returns all policies ordered by category.
func (s *SlaPolicyService) List(ctx context.Context) ([]domain.SlaPolicy, error) {
	if cached, ok := s.readCache(ctx); ok {
		return cached, nil
	}
	policies, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if policies == nil {
		policies = []domain.SlaPolicy{}
	}
	s.writeCache(ctx, policies)
	return policies, nil
}

// PolicySet indexes the current policies for the SLA engine.
func (s *SlaPolicyService) PolicySet(ctx context.Context) (sla.PolicySet, error) {
	policies, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return sla.NewPolicySet(policies), nil
}

// Get returns the policy of one service category.
func (s *SlaPolicyService) Get(ctx context.Context, categoryID string) (*domain.SlaPolicy, error) {
	policy, err := s.repo.GetByCategory(ctx, categoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("sla policy", map[string]any{"service_category_id": categoryID})
		}
		return nil, apperrors.MapError(err)
	}
	return policy, nil
}

// Upsert creates or replaces the policy of a category.
func (s *SlaPolicyService) Upsert(ctx context.Context, policy *domain.SlaPolicy) (*domain.SlaPolicy, error) {
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, policy); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx)
	return policy, nil
}

// Delete removes the policy of a category.
func (s *SlaPolicyService) Delete(ctx context.Context, categoryID string) error {
	if err := s.repo.Delete(ctx, categoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("sla policy", map[string]any{"service_category_id": categoryID})
		}
		return apperrors.MapError(err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *SlaPolicyService) readCache(ctx context.Context) ([]domain.SlaPolicy, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, policyCacheKey)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("sla policy cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var policies []domain.SlaPolicy
	if err := json.Unmarshal([]byte(raw), &policies); err != nil {
		s.logger.Warn("sla policy cache corrupt", zap.Error(err))
		return nil, false
	}
	return policies, true
}

func (s *SlaPolicyService) writeCache(ctx context.Context, policies []domain.SlaPolicy) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(policies)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, policyCacheKey, string(payload), s.ttl); err != nil {
		s.logger.Warn("sla policy cache write failed", zap.Error(err))
	}
}

func (s *SlaPolicyService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, policyCacheKey); err != nil {
		s.logger.Warn("sla policy cache invalidation failed", zap.Error(err))
	}
}

func validatePolicy(policy *domain.SlaPolicy) error {
	if policy == nil {
		return apperrors.NewValidationError("policy is required", nil)
	}
	policy.ServiceCategoryID = strings.TrimSpace(policy.ServiceCategoryID)
	policy.Name = strings.TrimSpace(policy.Name)
	if policy.ServiceCategoryID == "" {
		return apperrors.NewValidationError("service_category_id is required", nil)
	}
	if policy.Name == "" {
		policy.Name = policy.ServiceCategoryID
	}
	for field, hours := range map[string]*float64{
		"resolution_hours":     policy.ResolutionHours,
		"first_response_hours": policy.FirstResponseHours,
		"response_hours":       policy.ResponseHours,
		"repair_hours":         policy.RepairHours,
	} {
		if hours != nil && *hours <= 0 {
			return apperrors.NewValidationError("hours must be positive", map[string]any{"field": field})
		}
		if hours != nil && *hours > domain.MaxPolicyHours {
			return apperrors.NewValidationError("hours exceed maximum", map[string]any{"field": field, "max": domain.MaxPolicyHours})
		}
	}
	for priority, hours := range policy.PriorityHours {
		if _, ok := domain.ParsePriority(string(priority)); !ok {
			return apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
		}
		if hours <= 0 {
			return apperrors.NewValidationError("hours must be positive", map[string]any{"priority": priority})
		}
		if hours > domain.MaxPolicyHours {
			return apperrors.NewValidationError("hours exceed maximum", map[string]any{"priority": priority, "max": domain.MaxPolicyHours})
		}
	}
	return nil
}
