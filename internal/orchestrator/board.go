package orchestrator

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/escrow-admin/internal/metrics"
	"github.com/smartdevs17/escrow-admin/internal/models"
	"github.com/smartdevs17/escrow-admin/pkg/utils"
)

// BoardState is a point-in-time copy of the deals board.
type BoardState struct {
	Deals      []models.Deal `json:"deals"`
	Loading    bool          `json:"loading"`
	Error      *string       `json:"error"`
	Creating   bool          `json:"creating"`
	FormError  *string       `json:"formError"`
	NextDealID int64         `json:"nextDealId"`
}

// Board is the list of all deals plus the create form.
type Board struct {
	gateway BoardGateway
	metrics *metrics.Manager
	logger  *logrus.Entry

	mu         sync.Mutex
	deals      []models.Deal
	loading    bool
	err        *string
	creating   bool
	formErr    *string
	nextDealID int64
}

// NewBoard creates an empty board
func NewBoard(gw BoardGateway, m *metrics.Manager) *Board {
	return &Board{
		gateway:    gw,
		metrics:    m,
		logger:     utils.ComponentLogger("board"),
		deals:      []models.Deal{},
		nextDealID: 1,
	}
}

// Refresh replaces the list with the backend's, latest update first. On
// failure the current list is kept and the board error is set.
func (b *Board) Refresh(ctx context.Context) error {
	b.mu.Lock()
	if b.loading {
		b.mu.Unlock()
		return ErrBusy
	}
	b.loading = true
	b.err = nil
	b.mu.Unlock()

	deals, err := b.gateway.ListDeals(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loading = false
	if err != nil {
		msg := FailureMessage(err, "Failed to load deals")
		b.err = &msg
		b.metrics.RecordRefresh("deals", "failure")
		b.logger.WithError(err).Warn("Deal list fetch failed")
		return &ActionError{Action: "list", Message: msg, Err: err}
	}

	models.SortByUpdatedDesc(deals)
	b.deals = deals
	b.metrics.RecordRefresh("deals", "success")
	return nil
}

// Create submits a new deal. The created record is placed at the top of
// the current list without a refetch, and the suggested next id advances.
func (b *Board) Create(ctx context.Context, req models.CreateDealRequest) (*models.Deal, error) {
	b.mu.Lock()
	if b.creating {
		b.mu.Unlock()
		return nil, ErrBusy
	}
	b.creating = true
	b.formErr = nil
	b.mu.Unlock()

	deal, err := b.create(ctx, req)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.creating = false
	if err != nil {
		msg := FailureMessage(err, "Failed")
		b.formErr = &msg
		b.logger.WithError(err).WithField("deal_id", req.DealIDOnChain).Warn("Deal create failed")
		return nil, &ActionError{Action: "create", Message: msg, Err: err}
	}

	b.deals = append([]models.Deal{*deal}, b.deals...)
	b.nextDealID = req.DealIDOnChain + 1
	b.logger.WithField("deal_id", deal.DealIDOnChain).Info("Deal created")
	return deal, nil
}

func (b *Board) create(ctx context.Context, req models.CreateDealRequest) (*models.Deal, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return b.gateway.CreateDeal(ctx, req)
}

// Snapshot returns a copy of the board state
func (b *Board) Snapshot() BoardState {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := BoardState{
		Deals:      append([]models.Deal{}, b.deals...),
		Loading:    b.loading,
		Creating:   b.creating,
		NextDealID: b.nextDealID,
	}
	if b.err != nil {
		msg := *b.err
		state.Error = &msg
	}
	if b.formErr != nil {
		msg := *b.formErr
		state.FormError = &msg
	}
	return state
}

// Deals returns a copy of the current list
func (b *Board) Deals() []models.Deal {
	return b.Snapshot().Deals
}

// Reset clears the list, e.g. after the wallet switched chains.
func (b *Board) Reset() {
	b.mu.Lock()
	b.deals = []models.Deal{}
	b.err = nil
	b.mu.Unlock()
}
