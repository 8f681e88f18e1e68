package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/escrow-admin/internal/metrics"
	"github.com/smartdevs17/escrow-admin/internal/models"
	"github.com/smartdevs17/escrow-admin/pkg/utils"
)

// Journal records operator actions. Storage failures are logged and never
// fail the action being recorded. A nil *Journal records nothing.
type Journal struct {
	store   Store
	metrics *metrics.Manager
	logger  *logrus.Entry
	now     func() time.Time
}

// New creates a journal over store
func New(store Store, m *metrics.Manager) *Journal {
	return &Journal{
		store:   store,
		metrics: m,
		logger:  utils.ComponentLogger("journal"),
		now:     time.Now,
	}
}

// Start records the beginning of an action and returns its record.
func (j *Journal) Start(ctx context.Context, dealID int64, action, wallet string) *models.ActionRecord {
	if j == nil {
		return nil
	}
	record := &models.ActionRecord{
		ID:            uuid.NewString(),
		DealIDOnChain: dealID,
		Action:        action,
		Status:        models.ActionStatusStarted,
		TxHashes:      []string{},
		Wallet:        wallet,
		StartedAt:     j.now().UTC(),
	}

	err := j.store.SaveAction(context.WithoutCancel(ctx), record)
	j.metrics.RecordJournalOperation("save", err)
	if err != nil {
		j.logger.WithError(err).WithField("action", action).Warn("Failed to journal action start")
	}
	return record
}

// Finish records the terminal outcome of an action started with Start.
func (j *Journal) Finish(ctx context.Context, record *models.ActionRecord, txHashes []string, actionErr error) {
	if j == nil || record == nil {
		return
	}
	finished := j.now().UTC()
	record.FinishedAt = &finished
	record.TxHashes = append([]string{}, txHashes...)
	if actionErr != nil {
		msg := actionErr.Error()
		record.Error = &msg
		record.Status = models.ActionStatusFailed
	} else {
		record.Status = models.ActionStatusSucceeded
	}

	err := j.store.UpdateAction(context.WithoutCancel(ctx), record)
	j.metrics.RecordJournalOperation("update", err)
	if err != nil {
		j.logger.WithError(err).WithFields(logrus.Fields{
			"action": record.Action,
			"id":     record.ID,
		}).Warn("Failed to journal action outcome")
	}
}

// List returns journal entries matching filter
func (j *Journal) List(ctx context.Context, filter models.ActionFilter) ([]*models.ActionRecord, error) {
	if j == nil {
		return nil, nil
	}
	records, err := j.store.ListActions(ctx, filter)
	j.metrics.RecordJournalOperation("list", err)
	return records, err
}

// Healthy reports whether the store answers a ping. A nil journal is
// healthy.
func (j *Journal) Healthy() bool {
	if j == nil {
		return true
	}
	return j.store.Ping() == nil
}

// Close closes the underlying store
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.store.Close()
}
