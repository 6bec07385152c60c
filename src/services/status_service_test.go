package services

import (
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/regfolio/backend/src/database"
	"github.com/username/regfolio/backend/src/model"
	"github.com/username/regfolio/backend/src/models"
)

func insertFilingForStatus(t *testing.T, userID int, submissionID, status string) *model.FilingRecord {
	t.Helper()
	rec := &model.FilingRecord{
		UserID:        userID,
		SubmissionID:  submissionID,
		FilingType:    string(models.FilingTypeConfirmationStatement),
		CompanyNumber: "12345678",
		Status:        status,
	}
	tx, err := database.DB.Begin()
	require.NoError(t, err)
	require.NoError(t, model.InsertFiling(tx, rec))
	require.NoError(t, tx.Commit())
	return rec
}

func TestStatusService_ReturnsStoredVerdict(t *testing.T) {
	setupTestDB(t)
	user := seedUser(t, "watcher")
	svc := NewStatusService(cache.New(DefaultCacheExpiration, CacheCleanupInterval))

	rec := insertFilingForStatus(t, user.ID, "sub-status-1", models.FilingStatusPending)
	now := time.Now()
	rec.Status = models.FilingStatusRejected
	rec.CorrelationID = "CORR9"
	rec.ErrorsJSON = `[{"code":"502","message":"Authentication Failure"}]`
	rec.SubmittedAt = &now
	require.NoError(t, model.UpdateFilingResult(database.DB, rec))

	status, err := svc.GetStatus(user.ID, "sub-status-1")
	require.NoError(t, err)
	assert.Equal(t, models.FilingStatusRejected, status.Status)
	assert.Equal(t, "CORR9", status.CorrelationID)
	require.Len(t, status.Errors, 1)
	assert.Equal(t, "502", status.Errors[0].Code)
}

func TestStatusService_TerminalStatusIsCached(t *testing.T) {
	setupTestDB(t)
	user := seedUser(t, "cachefan")
	svc := NewStatusService(cache.New(DefaultCacheExpiration, CacheCleanupInterval))

	rec := insertFilingForStatus(t, user.ID, "sub-status-2", models.FilingStatusAccepted)

	first, err := svc.GetStatus(user.ID, "sub-status-2")
	require.NoError(t, err)
	assert.Equal(t, models.FilingStatusAccepted, first.Status)

	// A terminal verdict never changes, so the row mutation must not show.
	rec.Status = models.FilingStatusRejected
	require.NoError(t, model.UpdateFilingResult(database.DB, rec))

	second, err := svc.GetStatus(user.ID, "sub-status-2")
	require.NoError(t, err)
	assert.Equal(t, models.FilingStatusAccepted, second.Status)
}

func TestStatusService_PendingIsAlwaysReRead(t *testing.T) {
	setupTestDB(t)
	user := seedUser(t, "impatient")
	svc := NewStatusService(cache.New(DefaultCacheExpiration, CacheCleanupInterval))

	rec := insertFilingForStatus(t, user.ID, "sub-status-3", models.FilingStatusPending)

	first, err := svc.GetStatus(user.ID, "sub-status-3")
	require.NoError(t, err)
	assert.Equal(t, models.FilingStatusPending, first.Status)

	rec.Status = models.FilingStatusAccepted
	rec.GatewayReference = "S999"
	require.NoError(t, model.UpdateFilingResult(database.DB, rec))

	second, err := svc.GetStatus(user.ID, "sub-status-3")
	require.NoError(t, err)
	assert.Equal(t, models.FilingStatusAccepted, second.Status)
	assert.Equal(t, "S999", second.GatewayReference)
}

func TestStatusService_ScopedToOwner(t *testing.T) {
	setupTestDB(t)
	owner := seedUser(t, "owner")
	other := seedUser(t, "other")
	svc := NewStatusService(cache.New(DefaultCacheExpiration, CacheCleanupInterval))

	insertFilingForStatus(t, owner.ID, "sub-status-4", models.FilingStatusAccepted)

	_, err := svc.GetStatus(other.ID, "sub-status-4")
	assert.ErrorIs(t, err, model.ErrFilingNotFound)
}
