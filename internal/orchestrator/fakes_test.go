package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/smartdevs17/escrow-admin/internal/contracts"
	"github.com/smartdevs17/escrow-admin/internal/models"
)

var (
	escrowAddr = common.HexToAddress("0x00000000000000000000000000000000000000e5")
	tokenAddr  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

// callLog records calls across fakes so ordering can be asserted.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	l.calls = append(l.calls, call)
	l.mu.Unlock()
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) count(call string) int {
	n := 0
	for _, c := range l.all() {
		if c == call {
			n++
		}
	}
	return n
}

type fakeGateway struct {
	log *callLog

	mu         sync.Mutex
	deals      []*models.Deal // successive GetDeal results; the last one repeats
	dealErr    error
	risk       *models.DealRisk
	riskErr    error
	rescoreErr error
	adminErr   error
	list       []models.Deal
	listErr    error
	createErr  error
}

func newDeal(id int64, amount string, status models.DealStatus) *models.Deal {
	return &models.Deal{
		ID:            fmt.Sprintf("rec-%d", id),
		DealIDOnChain: id,
		ClientWallet:  "0x1111111111111111111111111111111111111111",
		SellerWallet:  "0x2222222222222222222222222222222222222222",
		Token:         tokenAddr.Hex(),
		Amount:        amount,
		Status:        status,
		CreatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (g *fakeGateway) GetDeal(ctx context.Context, id int64) (*models.Deal, error) {
	g.log.add("getDeal")
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dealErr != nil {
		return nil, g.dealErr
	}
	if len(g.deals) == 0 {
		return nil, fmt.Errorf("deal %d not found", id)
	}
	d := *g.deals[0]
	if len(g.deals) > 1 {
		g.deals = g.deals[1:]
	}
	return &d, nil
}

func (g *fakeGateway) GetRisk(ctx context.Context, id int64) (*models.DealRisk, error) {
	g.log.add("getRisk")
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.riskErr != nil {
		return nil, g.riskErr
	}
	if g.risk == nil {
		return &models.DealRisk{DealIDOnChain: id}, nil
	}
	r := *g.risk
	return &r, nil
}

func (g *fakeGateway) RescoreRisk(ctx context.Context, id int64) (*models.DealRisk, error) {
	g.log.add("rescore")
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rescoreErr != nil {
		return nil, g.rescoreErr
	}
	return &models.DealRisk{DealIDOnChain: id}, nil
}

func (g *fakeGateway) AdminRelease(ctx context.Context, id int64) (*models.AdminActionResult, error) {
	g.log.add("adminRelease")
	return g.admin()
}

func (g *fakeGateway) AdminRefund(ctx context.Context, id int64) (*models.AdminActionResult, error) {
	g.log.add("adminRefund")
	return g.admin()
}

func (g *fakeGateway) admin() (*models.AdminActionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.adminErr != nil {
		return nil, g.adminErr
	}
	hash := "0xadmin"
	return &models.AdminActionResult{OK: true, TxHash: &hash}, nil
}

func (g *fakeGateway) ListDeals(ctx context.Context) ([]models.Deal, error) {
	g.log.add("listDeals")
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	return append([]models.Deal(nil), g.list...), nil
}

func (g *fakeGateway) CreateDeal(ctx context.Context, req models.CreateDealRequest) (*models.Deal, error) {
	g.log.add("createDeal")
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	d := newDeal(req.DealIDOnChain, req.Amount, models.DealStatusCreated)
	return d, nil
}

type fakeTx struct {
	hash    common.Hash
	waitErr error
	block   chan struct{}
	log     *callLog
	name    string
}

func (t *fakeTx) Hash() common.Hash { return t.hash }

func (t *fakeTx) Wait(ctx context.Context) (*types.Receipt, error) {
	t.log.add(t.name + ".wait")
	if t.block != nil {
		select {
		case <-t.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if t.waitErr != nil {
		return nil, t.waitErr
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: t.hash}, nil
}

type fakeChain struct {
	log *callLog

	escrowAddrErr error
	tokenErr      error
	escrowErr     error

	approveErr     error
	approveWaitErr error
	approveBlock   chan struct{}
	fundErr        error
	fundWaitErr    error
	completeErr    error

	approvedSpender common.Address
	approvedAmount  *big.Int
}

func (c *fakeChain) EscrowAddress() (common.Address, error) {
	if c.escrowAddrErr != nil {
		return common.Address{}, c.escrowAddrErr
	}
	return escrowAddr, nil
}

func (c *fakeChain) TokenContract(ctx context.Context) (contracts.Token, error) {
	if c.tokenErr != nil {
		return nil, c.tokenErr
	}
	return &fakeToken{chain: c}, nil
}

func (c *fakeChain) EscrowContract(ctx context.Context) (contracts.Escrow, error) {
	if c.escrowErr != nil {
		return nil, c.escrowErr
	}
	return &fakeEscrow{chain: c}, nil
}

type fakeToken struct{ chain *fakeChain }

func (t *fakeToken) Address() common.Address { return tokenAddr }

func (t *fakeToken) Approve(ctx context.Context, spender common.Address, amount *big.Int) (contracts.PendingTx, error) {
	c := t.chain
	c.log.add("approve")
	if c.approveErr != nil {
		return nil, c.approveErr
	}
	c.approvedSpender = spender
	c.approvedAmount = new(big.Int).Set(amount)
	return &fakeTx{hash: common.HexToHash("0xa1"), waitErr: c.approveWaitErr, block: c.approveBlock, log: c.log, name: "approve"}, nil
}

func (t *fakeToken) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (t *fakeToken) Decimals(ctx context.Context) (uint8, error) { return 18, nil }

type fakeEscrow struct{ chain *fakeChain }

func (e *fakeEscrow) Address() common.Address { return escrowAddr }

func (e *fakeEscrow) Fund(ctx context.Context, dealID int64) (contracts.PendingTx, error) {
	c := e.chain
	c.log.add("fund")
	if c.fundErr != nil {
		return nil, c.fundErr
	}
	return &fakeTx{hash: common.HexToHash("0xf1"), waitErr: c.fundWaitErr, log: c.log, name: "fund"}, nil
}

func (e *fakeEscrow) MarkCompleted(ctx context.Context, dealID int64) (contracts.PendingTx, error) {
	c := e.chain
	c.log.add("markCompleted")
	if c.completeErr != nil {
		return nil, c.completeErr
	}
	return &fakeTx{hash: common.HexToHash("0xc1"), log: c.log, name: "markCompleted"}, nil
}

func (e *fakeEscrow) Dispute(ctx context.Context, dealID int64) (contracts.PendingTx, error) {
	e.chain.log.add("dispute")
	return &fakeTx{hash: common.HexToHash("0xd1"), log: e.chain.log, name: "dispute"}, nil
}
