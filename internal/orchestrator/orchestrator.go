// Package orchestrator owns per-deal view state and sequences the
// operator actions against the backend and the escrow contracts.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smartdevs17/escrow-admin/internal/contracts"
	"github.com/smartdevs17/escrow-admin/internal/journal"
	"github.com/smartdevs17/escrow-admin/internal/metrics"
	"github.com/smartdevs17/escrow-admin/internal/models"
)

var (
	// ErrBusy is returned when an action is triggered while another action
	// or a load holds the view.
	ErrBusy = errors.New("another action is in progress")
	// ErrDealNotLoaded is returned by fund when no deal is loaded.
	ErrDealNotLoaded = errors.New("deal is not loaded")
)

// Gateway is the backend surface a deal view uses.
type Gateway interface {
	GetDeal(ctx context.Context, dealID int64) (*models.Deal, error)
	GetRisk(ctx context.Context, dealID int64) (*models.DealRisk, error)
	RescoreRisk(ctx context.Context, dealID int64) (*models.DealRisk, error)
	AdminRelease(ctx context.Context, dealID int64) (*models.AdminActionResult, error)
	AdminRefund(ctx context.Context, dealID int64) (*models.AdminActionResult, error)
}

// BoardGateway is the backend surface the deals board uses.
type BoardGateway interface {
	ListDeals(ctx context.Context) ([]models.Deal, error)
	CreateDeal(ctx context.Context, req models.CreateDealRequest) (*models.Deal, error)
}

// Chain resolves signer-bound contract bindings.
type Chain interface {
	EscrowAddress() (common.Address, error)
	TokenContract(ctx context.Context) (contracts.Token, error)
	EscrowContract(ctx context.Context) (contracts.Escrow, error)
}

// WalletInfo exposes the connected address for journaling.
type WalletInfo interface {
	Address() (common.Address, bool)
}

// Options carries the optional collaborators of a view.
type Options struct {
	// Timeout bounds a single action. Zero disables the bound.
	Timeout time.Duration
	Journal *journal.Journal
	Metrics *metrics.Manager
	Wallet  WalletInfo
}

// Busy names the action currently holding a view.
type Busy string

const (
	BusyNone       Busy = ""
	BusyFunding    Busy = "funding"
	BusyCompleting Busy = "completing"
	BusyDisputing  Busy = "disputing"
	BusyReleasing  Busy = "releasing"
	BusyRefunding  Busy = "refunding"
	BusyRescoring  Busy = "rescoring"
)

// RiskStatus is the display state of a deal's risk annotation.
type RiskStatus string

const (
	RiskIdle        RiskStatus = "idle"
	RiskLoading     RiskStatus = "loading"
	RiskAvailable   RiskStatus = "available"
	RiskUnavailable RiskStatus = "unavailable"
)

// RiskState pairs the risk annotation with its display state.
type RiskState struct {
	Status RiskStatus       `json:"status"`
	Risk   *models.DealRisk `json:"risk,omitempty"`
}

// ActionError is a failed action with the message shown to the operator.
type ActionError struct {
	Action  string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return e.Message
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
