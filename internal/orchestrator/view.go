package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/escrow-admin/internal/contracts"
	"github.com/smartdevs17/escrow-admin/internal/models"
	"github.com/smartdevs17/escrow-admin/pkg/utils"
	"golang.org/x/sync/errgroup"
)

type actionSpec struct {
	busy  Busy
	name  string // journal and metrics label
	title string // operator-facing prefix for fallback messages
}

func (s actionSpec) fallback() string { return s.title + " failed" }
func (s actionSpec) timedOut() string { return s.title + " timed out" }

var (
	fundAction     = actionSpec{busy: BusyFunding, name: "fund", title: "Fund"}
	completeAction = actionSpec{busy: BusyCompleting, name: "complete", title: "markCompleted"}
	disputeAction  = actionSpec{busy: BusyDisputing, name: "dispute", title: "Dispute"}
	releaseAction  = actionSpec{busy: BusyReleasing, name: "release", title: "Release"}
	refundAction   = actionSpec{busy: BusyRefunding, name: "refund", title: "Refund"}
	rescoreAction  = actionSpec{busy: BusyRescoring, name: "rescore", title: "Rescore"}
)

// ViewState is a point-in-time copy of a deal view.
type ViewState struct {
	DealIDOnChain int64        `json:"dealIdOnChain"`
	Deal          *models.Deal `json:"deal"`
	Risk          RiskState    `json:"risk"`
	Busy          Busy         `json:"busy"`
	Loading       bool         `json:"loading"`
	Error         *string      `json:"error"`
	Disabled      bool         `json:"disabled"`
}

// DealView holds the state of one deal as seen by the operator and allows
// at most one action in flight at a time.
type DealView struct {
	dealID  int64
	gateway Gateway
	chain   Chain
	opts    Options
	logger  *logrus.Entry

	mu      sync.Mutex
	deal    *models.Deal
	risk    RiskState
	busy    Busy
	loading bool
	err     *string
	loaded  bool

	// prev is the view this one replaced on a registry reset. Its action,
	// if still running, holds the lock for this deal too.
	prev *DealView
}

// NewDealView creates a view for dealID. The id is not validated here;
// every operation applies the validation gate itself.
func NewDealView(dealID int64, gw Gateway, chain Chain, opts Options) *DealView {
	return &DealView{
		dealID:  dealID,
		gateway: gw,
		chain:   chain,
		opts:    opts,
		logger:  utils.ComponentLogger("orchestrator").WithField("deal_id", dealID),
		risk:    RiskState{Status: RiskIdle},
	}
}

// DealID returns the on-chain deal id of the view.
func (v *DealView) DealID() int64 {
	return v.dealID
}

// Snapshot returns a copy of the current view state.
func (v *DealView) Snapshot() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()

	state := ViewState{
		DealIDOnChain: v.dealID,
		Busy:          v.busy,
		Loading:       v.loading,
		Disabled:      v.loading || v.busy != BusyNone,
		Risk:          RiskState{Status: v.risk.Status},
	}
	if v.deal != nil {
		d := *v.deal
		state.Deal = &d
	}
	if v.risk.Risk != nil {
		r := *v.risk.Risk
		r.RiskReasons = append([]string(nil), v.risk.Risk.RiskReasons...)
		state.Risk.Risk = &r
	}
	if v.err != nil {
		msg := *v.err
		state.Error = &msg
	}
	return state
}

// EnsureLoaded performs the initial load once.
func (v *DealView) EnsureLoaded(ctx context.Context) error {
	v.mu.Lock()
	loaded := v.loaded
	v.mu.Unlock()
	if loaded {
		return nil
	}
	return v.Refresh(ctx)
}

// Refresh reloads the deal and its risk annotation. It is rejected while
// an action or another load holds the view.
func (v *DealView) Refresh(ctx context.Context) error {
	if err := v.beginLoad(); err != nil {
		return err
	}
	v.refreshBoth(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.loaded = true
	if v.err != nil {
		return &ActionError{Action: "load", Message: *v.err}
	}
	return nil
}

// Fund approves the escrow to spend the deal amount and then funds the
// deal, each step awaited to confirmation. A failed approve means fund is
// never sent. A failed fund after a confirmed approve leaves the allowance
// outstanding.
func (v *DealView) Fund(ctx context.Context) error {
	return v.run(ctx, fundAction, true, v.fundSteps, v.refreshBoth)
}

// MarkCompleted marks the deal completed on chain.
func (v *DealView) MarkCompleted(ctx context.Context) error {
	return v.run(ctx, completeAction, false, v.escrowStep(func(ctx context.Context, e contracts.Escrow, id int64) (contracts.PendingTx, error) {
		return e.MarkCompleted(ctx, id)
	}), v.refreshBoth)
}

// Dispute opens a dispute on chain.
func (v *DealView) Dispute(ctx context.Context) error {
	return v.run(ctx, disputeAction, false, v.escrowStep(func(ctx context.Context, e contracts.Escrow, id int64) (contracts.PendingTx, error) {
		return e.Dispute(ctx, id)
	}), v.refreshBoth)
}

// AdminRelease asks the backend to release the escrowed funds. On failure
// the backend message is shown and nothing is refetched.
func (v *DealView) AdminRelease(ctx context.Context) error {
	return v.run(ctx, releaseAction, false, v.adminStep(v.gateway.AdminRelease), v.refreshBoth)
}

// AdminRefund asks the backend to refund the escrowed funds.
func (v *DealView) AdminRefund(ctx context.Context) error {
	return v.run(ctx, refundAction, false, v.adminStep(v.gateway.AdminRefund), v.refreshBoth)
}

// Rescore asks the backend to recompute risk, then refetches risk and the
// deal in that order. A rescore failure only marks risk unavailable.
func (v *DealView) Rescore(ctx context.Context) error {
	return v.run(ctx, rescoreAction, false, func(ctx context.Context, _ *models.Deal, _ *[]string) error {
		_, err := v.gateway.RescoreRisk(ctx, v.dealID)
		return err
	}, func(ctx context.Context) {
		v.setLoading(true)
		defer v.setLoading(false)
		v.loadRisk(ctx)
		v.loadDeal(ctx)
	})
}

type actionStep func(ctx context.Context, deal *models.Deal, txHashes *[]string) error

// run executes one action under the busy lock. The lock is taken before
// the first network call and released on every exit path.
func (v *DealView) run(ctx context.Context, spec actionSpec, requireDeal bool, step actionStep, after func(context.Context)) error {
	deal, err := v.begin(spec, requireDeal)
	if err != nil {
		return err
	}
	defer v.finish()

	start := time.Now()
	logger := v.logger.WithField("action", spec.name)
	logger.Info("Action started")
	v.opts.Metrics.ActionStarted(spec.name)
	record := v.opts.Journal.Start(ctx, v.dealID, spec.name, v.walletAddress())

	actx, cancel := v.actionContext(ctx)
	defer cancel()

	var txHashes []string
	stepErr := step(actx, deal, &txHashes)

	if stepErr != nil {
		msg := FailureMessage(stepErr, spec.fallback())
		if errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			msg = spec.timedOut()
		}
		v.opts.Journal.Finish(ctx, record, txHashes, errors.New(msg))

		if spec.busy == BusyRescoring {
			v.opts.Metrics.ActionFinished(spec.name, "downgraded", time.Since(start))
			logger.WithError(stepErr).Warn("Rescore failed, risk unavailable")
			v.mu.Lock()
			v.risk = RiskState{Status: RiskUnavailable}
			v.mu.Unlock()
			return nil
		}

		v.opts.Metrics.ActionFinished(spec.name, "failure", time.Since(start))
		logger.WithError(stepErr).WithField("tx_hashes", txHashes).Warn("Action failed")
		v.mu.Lock()
		v.err = &msg
		v.mu.Unlock()
		return &ActionError{Action: spec.name, Message: msg, Err: stepErr}
	}

	// Refresh is not bound by the action timeout.
	after(ctx)

	v.opts.Journal.Finish(ctx, record, txHashes, nil)
	v.opts.Metrics.ActionFinished(spec.name, "success", time.Since(start))
	logger.WithFields(logrus.Fields{
		"tx_hashes": txHashes,
		"duration":  time.Since(start),
	}).Info("Action succeeded")
	return nil
}

func (v *DealView) begin(spec actionSpec, requireDeal bool) (*models.Deal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := models.ValidateDealID(v.dealID); err != nil {
		msg := err.Error()
		v.err = &msg
		return nil, err
	}
	if requireDeal && v.deal == nil {
		return nil, ErrDealNotLoaded
	}
	if v.busy != BusyNone || v.loading {
		return nil, ErrBusy
	}
	if spec.busy == BusyRescoring && v.risk.Status == RiskLoading {
		return nil, ErrBusy
	}
	if v.prev != nil {
		if v.prev.inFlight() {
			return nil, ErrBusy
		}
		v.prev = nil
	}

	v.busy = spec.busy
	v.err = nil

	var deal *models.Deal
	if v.deal != nil {
		d := *v.deal
		deal = &d
	}
	return deal, nil
}

func (v *DealView) inFlight() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.busy != BusyNone {
		return true
	}
	return v.prev != nil && v.prev.inFlight()
}

func (v *DealView) finish() {
	v.mu.Lock()
	v.busy = BusyNone
	v.mu.Unlock()
}

func (v *DealView) beginLoad() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := models.ValidateDealID(v.dealID); err != nil {
		msg := err.Error()
		v.deal = nil
		v.err = &msg
		v.loaded = true
		return err
	}
	if v.busy != BusyNone || v.loading {
		return ErrBusy
	}
	v.loading = true
	v.err = nil
	return nil
}

func (v *DealView) setLoading(loading bool) {
	v.mu.Lock()
	v.loading = loading
	v.mu.Unlock()
}

func (v *DealView) actionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if v.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, v.opts.Timeout)
}

func (v *DealView) walletAddress() string {
	if v.opts.Wallet == nil {
		return ""
	}
	if addr, ok := v.opts.Wallet.Address(); ok {
		return addr.Hex()
	}
	return ""
}

// refreshBoth fetches the deal and its risk concurrently. Neither fetch
// affects the other.
func (v *DealView) refreshBoth(ctx context.Context) {
	v.setLoading(true)
	defer v.setLoading(false)

	var g errgroup.Group
	g.Go(func() error {
		v.loadDeal(ctx)
		return nil
	})
	g.Go(func() error {
		v.loadRisk(ctx)
		return nil
	})
	_ = g.Wait()
}

func (v *DealView) loadDeal(ctx context.Context) {
	v.mu.Lock()
	v.err = nil
	v.mu.Unlock()

	deal, err := v.gateway.GetDeal(ctx, v.dealID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		msg := FailureMessage(err, "Failed to load deal")
		v.deal = nil
		v.err = &msg
		v.opts.Metrics.RecordRefresh("deal", "failure")
		v.logger.WithError(err).Warn("Deal fetch failed")
		return
	}
	v.deal = deal
	v.opts.Metrics.RecordRefresh("deal", "success")
}

// loadRisk never surfaces an error; a failed fetch leaves risk unavailable.
func (v *DealView) loadRisk(ctx context.Context) {
	v.mu.Lock()
	v.risk.Status = RiskLoading
	v.mu.Unlock()

	risk, err := v.gateway.GetRisk(ctx, v.dealID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.risk = RiskState{Status: RiskUnavailable}
		v.opts.Metrics.RecordRefresh("risk", "failure")
		v.logger.WithError(err).Warn("Risk fetch failed")
		return
	}
	v.risk = RiskState{Status: RiskAvailable, Risk: risk}
	v.opts.Metrics.RecordRefresh("risk", "success")
}
