package services

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/regfolio/backend/src/database"
	"github.com/username/regfolio/backend/src/logger"
	"github.com/username/regfolio/backend/src/model"
	"github.com/username/regfolio/backend/src/models"
)

const (
	ckFilingStatus = "status_filing_user_%d_%s"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type statusServiceImpl struct {
	statusCache *cache.Cache
}

// NewStatusService creates the status query service backed by the shared
// in-process cache.
func NewStatusService(statusCache *cache.Cache) StatusService {
	return &statusServiceImpl{statusCache: statusCache}
}

// GetStatus answers from cache when it can. Only terminal statuses are
// cached; a pending filing is re-read every time because its status is about
// to change.
func (s *statusServiceImpl) GetStatus(userID int, submissionID string) (*FilingStatus, error) {
	cacheKey := fmt.Sprintf(ckFilingStatus, userID, submissionID)
	if cached, found := s.statusCache.Get(cacheKey); found {
		logger.L.Debug("cache hit for filing status", "userID", userID, "submissionID", submissionID)
		return cached.(*FilingStatus), nil
	}

	rec, err := model.GetFilingBySubmissionID(database.DB, userID, submissionID)
	if err != nil {
		return nil, err
	}

	status := &FilingStatus{
		SubmissionID:     rec.SubmissionID,
		FilingType:       rec.FilingType,
		CompanyNumber:    rec.CompanyNumber,
		Status:           rec.Status,
		GatewayReference: rec.GatewayReference,
		CorrelationID:    rec.CorrelationID,
		Errors:           decodeSubmissionErrors(rec.ErrorsJSON),
		SubmittedAt:      rec.SubmittedAt,
	}

	if isTerminalStatus(rec.Status) {
		s.statusCache.Set(cacheKey, status, DefaultCacheExpiration)
	}
	return status, nil
}

func isTerminalStatus(status string) bool {
	switch status {
	case models.FilingStatusAccepted, models.FilingStatusRejected, models.FilingStatusFailed:
		return true
	}
	return false
}
