// internal/workers/assessment/assess-deal/store.go
package assessdeal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dealflow-workers/internal/assessment"
	stderrors "dealflow-workers/internal/common/errors"
	"dealflow-workers/internal/common/logger"
	"dealflow-workers/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

const criteriaQuery = `
	SELECT version, criteria_json
	FROM assessment_criteria
	WHERE company_id = $1 AND active = true
	ORDER BY created_at DESC
	LIMIT 1`

// CriteriaStore resolves the rule set for a company: redis cache first, then
// postgres, then the configured defaults when the company has no row.
type CriteriaStore struct {
	db       *sql.DB
	cache    *redis.Client
	defaults assessment.AssessmentCriteria
	ttl      time.Duration
	logger   logger.Logger
}

func NewCriteriaStore(db *sql.DB, cache *redis.Client, defaults assessment.AssessmentCriteria, ttl time.Duration, log logger.Logger) *CriteriaStore {
	return &CriteriaStore{
		db:       db,
		cache:    cache,
		defaults: defaults,
		ttl:      ttl,
		logger:   log.WithFields(map[string]interface{}{"component": "criteria-store"}),
	}
}

// Load returns the criteria for companyID plus the source they came from
// ("company" or "default"). Cache errors degrade to a database read.
func (s *CriteriaStore) Load(ctx context.Context, companyID string) (assessment.AssessmentCriteria, string, error) {
	if companyID == "" {
		return s.defaults, "default", nil
	}

	cacheKey := "criteria:" + companyID

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		switch {
		case err == nil:
			var criteria assessment.AssessmentCriteria
			if err := json.Unmarshal([]byte(cached), &criteria); err == nil {
				metrics.CriteriaCacheHits.WithLabelValues("hit").Inc()
				return criteria, "company", nil
			}
			// Corrupt cache entry; fall through to the database.
			s.cache.Del(ctx, cacheKey)
		case errors.Is(err, redis.Nil):
			metrics.CriteriaCacheHits.WithLabelValues("miss").Inc()
		default:
			metrics.CriteriaCacheHits.WithLabelValues("error").Inc()
			s.logger.Warn("criteria cache unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	criteria, found, err := s.loadFromDatabase(ctx, companyID)
	if err != nil {
		return assessment.AssessmentCriteria{}, "", err
	}
	if !found {
		return s.defaults, "default", nil
	}

	if s.cache != nil {
		if raw, err := json.Marshal(criteria); err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw, s.ttl).Err(); err != nil {
				s.logger.Warn("failed to cache criteria", map[string]interface{}{
					"companyId": companyID,
					"error":     err.Error(),
				})
			}
		}
	}

	return criteria, "company", nil
}

func (s *CriteriaStore) loadFromDatabase(ctx context.Context, companyID string) (assessment.AssessmentCriteria, bool, error) {
	var version string
	var criteriaJSON []byte

	err := s.db.QueryRowContext(ctx, criteriaQuery, companyID).Scan(&version, &criteriaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return assessment.AssessmentCriteria{}, false, nil
	}
	if err != nil {
		return assessment.AssessmentCriteria{}, false, stderrors.NewCriteriaLoadFailedError(err)
	}

	var criteria assessment.AssessmentCriteria
	if err := json.Unmarshal(criteriaJSON, &criteria); err != nil {
		return assessment.AssessmentCriteria{}, false, stderrors.NewCriteriaInvalidError(
			fmt.Sprintf("companyId %s: %v", companyID, err))
	}
	if criteria.Version == "" {
		criteria.Version = version
	}

	if criteria.GreenGMThreshold <= criteria.AmberGMThreshold {
		return assessment.AssessmentCriteria{}, false, stderrors.NewCriteriaInvalidError(
			fmt.Sprintf("companyId %s: green threshold (%.1f) must be above amber threshold (%.1f)",
				companyID, criteria.GreenGMThreshold, criteria.AmberGMThreshold))
	}

	return criteria, true, nil
}

// Invalidate drops a company's cached criteria, forcing the next Load to hit
// the database.
func (s *CriteriaStore) Invalidate(ctx context.Context, companyID string) error {
	if s.cache == nil || companyID == "" {
		return nil
	}
	return s.cache.Del(ctx, "criteria:"+companyID).Err()
}
