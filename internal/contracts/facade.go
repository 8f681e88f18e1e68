package contracts

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/escrow-admin/internal/metrics"
	"github.com/smartdevs17/escrow-admin/internal/models"
	"github.com/smartdevs17/escrow-admin/internal/wallet"
	"github.com/smartdevs17/escrow-admin/pkg/utils"
)

// Token is the ERC20 surface used by the panel.
type Token interface {
	Address() common.Address
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (PendingTx, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Decimals(ctx context.Context) (uint8, error)
}

// Escrow is the escrow contract surface used by the panel.
type Escrow interface {
	Address() common.Address
	Fund(ctx context.Context, dealID int64) (PendingTx, error)
	MarkCompleted(ctx context.Context, dealID int64) (PendingTx, error)
	Dispute(ctx context.Context, dealID int64) (PendingTx, error)
}

// SignerSource supplies a signer, connecting the wallet if needed.
type SignerSource interface {
	Signer(ctx context.Context) (*wallet.Signer, error)
}

// Config configures the facade
type Config struct {
	TokenAddress  string
	EscrowAddress string
	PollInterval  time.Duration
	Metrics       *metrics.Manager
}

// Facade resolves configured contracts into signer-bound bindings. A new
// binding is built on every call so it always uses the session's current
// account and chain.
type Facade struct {
	tokenAddress  string
	escrowAddress string
	signers       SignerSource
	pollInterval  time.Duration
	metrics       *metrics.Manager
	logger        *logrus.Entry
}

// NewFacade creates a contract facade
func NewFacade(cfg Config, signers SignerSource) *Facade {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Facade{
		tokenAddress:  strings.TrimSpace(cfg.TokenAddress),
		escrowAddress: strings.TrimSpace(cfg.EscrowAddress),
		signers:       signers,
		pollInterval:  interval,
		metrics:       cfg.Metrics,
		logger:        utils.ComponentLogger("contracts"),
	}
}

// EscrowAddress resolves the configured escrow address.
func (f *Facade) EscrowAddress() (common.Address, error) {
	return resolveAddress("escrow contract address", f.escrowAddress)
}

// TokenAddress resolves the configured token address.
func (f *Facade) TokenAddress() (common.Address, error) {
	return resolveAddress("token contract address", f.tokenAddress)
}

// TokenContract returns a signer-bound ERC20 binding.
func (f *Facade) TokenContract(ctx context.Context) (Token, error) {
	addr, err := f.TokenAddress()
	if err != nil {
		return nil, err
	}
	erc20, _, err := parsedABIs()
	if err != nil {
		return nil, err
	}
	c, err := f.bind(ctx, addr, erc20)
	if err != nil {
		return nil, err
	}
	return &tokenContract{c}, nil
}

// EscrowContract returns a signer-bound escrow binding.
func (f *Facade) EscrowContract(ctx context.Context) (Escrow, error) {
	addr, err := f.EscrowAddress()
	if err != nil {
		return nil, err
	}
	_, escrow, err := parsedABIs()
	if err != nil {
		return nil, err
	}
	c, err := f.bind(ctx, addr, escrow)
	if err != nil {
		return nil, err
	}
	return &escrowContract{c}, nil
}

func (f *Facade) bind(ctx context.Context, addr common.Address, parsed abi.ABI) (*boundContract, error) {
	if f.signers == nil {
		return nil, wallet.ErrNoWalletFound
	}
	signer, err := f.signers.Signer(ctx)
	if err != nil {
		return nil, err
	}
	return &boundContract{
		address:  addr,
		contract: bind.NewBoundContract(addr, parsed, signer.Backend, signer.Backend, signer.Backend),
		signer:   signer,
		facade:   f,
	}, nil
}

func resolveAddress(setting, raw string) (common.Address, error) {
	if raw == "" {
		return common.Address{}, &models.ConfigurationError{Setting: setting, Reason: "not configured"}
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, &models.ConfigurationError{Setting: setting, Reason: fmt.Sprintf("not a valid hex address: %q", raw)}
	}
	return common.HexToAddress(raw), nil
}

type boundContract struct {
	address  common.Address
	contract *bind.BoundContract
	signer   *wallet.Signer
	facade   *Facade
}

func (c *boundContract) Address() common.Address {
	return c.address
}

func (c *boundContract) transact(ctx context.Context, method string, params ...interface{}) (PendingTx, error) {
	opts := *c.signer.Opts
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, method, params...)
	if err != nil {
		classified := classifySendError(method, err)
		outcome := "error"
		if IsReverted(classified) {
			outcome = "reverted"
		}
		c.facade.metrics.RecordTransaction(method, outcome)
		c.facade.logger.WithFields(logrus.Fields{
			"method":   method,
			"contract": c.address.Hex(),
			"error":    err,
		}).Warn("Transaction rejected")
		return nil, classified
	}

	c.facade.metrics.RecordTransaction(method, "sent")
	c.facade.logger.WithFields(logrus.Fields{
		"method":   method,
		"contract": c.address.Hex(),
		"tx_hash":  tx.Hash().Hex(),
		"from":     c.signer.Address.Hex(),
	}).Info("Transaction sent")

	return &pendingTx{
		hash:     tx.Hash(),
		method:   method,
		reader:   c.signer.Backend,
		interval: c.facade.pollInterval,
		metrics:  c.facade.metrics,
		logger:   c.facade.logger,
	}, nil
}

func (c *boundContract) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx, From: c.signer.Address}
	if err := c.contract.Call(opts, &out, method, params...); err != nil {
		return nil, classifySendError(method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return out, nil
}

type tokenContract struct {
	*boundContract
}

func (t *tokenContract) Approve(ctx context.Context, spender common.Address, amount *big.Int) (PendingTx, error) {
	return t.transact(ctx, "approve", spender, amount)
}

func (t *tokenContract) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	out, err := t.call(ctx, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("allowance returned %T", out[0])
	}
	return v, nil
}

func (t *tokenContract) Decimals(ctx context.Context) (uint8, error) {
	out, err := t.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	v, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals returned %T", out[0])
	}
	return v, nil
}

type escrowContract struct {
	*boundContract
}

func (e *escrowContract) Fund(ctx context.Context, dealID int64) (PendingTx, error) {
	return e.dealCall(ctx, "fund", dealID)
}

func (e *escrowContract) MarkCompleted(ctx context.Context, dealID int64) (PendingTx, error) {
	return e.dealCall(ctx, "markCompleted", dealID)
}

func (e *escrowContract) Dispute(ctx context.Context, dealID int64) (PendingTx, error) {
	return e.dealCall(ctx, "dispute", dealID)
}

func (e *escrowContract) dealCall(ctx context.Context, method string, dealID int64) (PendingTx, error) {
	if err := models.ValidateDealID(dealID); err != nil {
		return nil, err
	}
	return e.transact(ctx, method, big.NewInt(dealID))
}
