package orchestrator

import (
	"sort"
	"sync"

	"github.com/smartdevs17/escrow-admin/internal/models"
)

// Registry hands out one DealView per deal id.
type Registry struct {
	gateway Gateway
	chain   Chain
	opts    Options

	mu      sync.Mutex
	views   map[int64]*DealView
	retired map[int64]*DealView
}

// NewRegistry creates an empty registry
func NewRegistry(gw Gateway, chain Chain, opts Options) *Registry {
	return &Registry{
		gateway: gw,
		chain:   chain,
		opts:    opts,
		views:   make(map[int64]*DealView),
		retired: make(map[int64]*DealView),
	}
}

// View returns the view for dealID, creating it on first use.
func (r *Registry) View(dealID int64) (*DealView, error) {
	if err := models.ValidateDealID(dealID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.views[dealID]; ok {
		return v, nil
	}
	v := NewDealView(dealID, r.gateway, r.chain, r.opts)
	if prev, ok := r.retired[dealID]; ok {
		delete(r.retired, dealID)
		if prev.inFlight() {
			v.prev = prev
		}
	}
	r.views[dealID] = v
	return v, nil
}

// Reset drops every view. Actions already running finish on their
// detached view; later lookups start from a fresh load, and a fresh view
// refuses actions until the detached one is done.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, v := range r.retired {
		if !v.inFlight() {
			delete(r.retired, id)
		}
	}
	for id, v := range r.views {
		if v.inFlight() {
			r.retired[id] = v
		}
	}
	r.views = make(map[int64]*DealView)
}

// IDs returns the ids of all live views in ascending order.
func (r *Registry) IDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.views))
	for id := range r.views {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
