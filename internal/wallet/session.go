package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/escrow-admin/internal/metrics"
	"github.com/smartdevs17/escrow-admin/pkg/utils"
)

// Account is the result of a successful connect.
type Account struct {
	Address common.Address `json:"address"`
	ChainID *big.Int       `json:"chainId"`
}

// Signer bundles what a contract binding needs to send transactions.
type Signer struct {
	Opts    *bind.TransactOpts
	Backend Backend
	Address common.Address
	ChainID *big.Int
}

// State is a point-in-time view of the session.
type State struct {
	Present   bool    `json:"present"`
	Connected bool    `json:"connected"`
	Address   *string `json:"address"`
	ChainID   *int64  `json:"chainId"`
}

// Session tracks the connected wallet account for the lifetime of the
// process. There is at most one session per process.
type Session struct {
	mu       sync.RWMutex
	provider Provider
	address  *common.Address
	chainID  *big.Int

	reloadMu    sync.Mutex
	reloadHooks []func()

	unsubscribe func()
	logger      *logrus.Entry
	metrics     *metrics.Manager
}

// NewSession creates a session over p, which may be nil (no wallet).
func NewSession(p Provider, m *metrics.Manager) *Session {
	s := &Session{
		provider: p,
		logger:   utils.ComponentLogger("wallet"),
		metrics:  m,
	}
	if p != nil {
		s.unsubscribe = p.Subscribe(Listener{
			OnAccountsChanged: s.handleAccountsChanged,
			OnChainChanged:    s.handleChainChanged,
		})
	}
	return s
}

// Present reports whether a wallet provider is available at all.
func (s *Session) Present() bool {
	return s.provider != nil
}

// Connect requests account access and records the active account.
func (s *Session) Connect(ctx context.Context) (*Account, error) {
	if s.provider == nil {
		return nil, ErrNoWalletFound
	}

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		s.metrics.RecordWalletEvent("connect_failed", s.Connected())
		if errors.Is(err, ErrUserRejected) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to request accounts: %w", err)
	}
	if len(accounts) == 0 {
		s.metrics.RecordWalletEvent("connect_failed", s.Connected())
		return nil, ErrUserRejected
	}

	chainID, err := s.provider.ChainID(ctx)
	if err != nil {
		s.metrics.RecordWalletEvent("connect_failed", s.Connected())
		return nil, err
	}

	addr := accounts[0]
	s.mu.Lock()
	s.address = &addr
	s.chainID = new(big.Int).Set(chainID)
	s.mu.Unlock()

	s.metrics.RecordWalletEvent("connect", true)
	s.logger.WithFields(logrus.Fields{
		"address":  addr.Hex(),
		"chain_id": chainID.String(),
	}).Info("Wallet connected")

	return &Account{Address: addr, ChainID: new(big.Int).Set(chainID)}, nil
}

// Address returns the connected address, if any.
func (s *Session) Address() (common.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.address == nil {
		return common.Address{}, false
	}
	return *s.address, true
}

// ChainID returns the chain id seen at connect time, or nil.
func (s *Session) ChainID() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.chainID == nil {
		return nil
	}
	return new(big.Int).Set(s.chainID)
}

// Connected reports whether an account is connected.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address != nil && s.chainID != nil
}

// WrongNetwork reports whether a connected wallet is on a chain other than
// target. A disconnected session is never on the wrong network.
func (s *Session) WrongNetwork(target int64) bool {
	id := s.ChainID()
	return id != nil && s.Connected() && id.Cmp(big.NewInt(target)) != 0
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() State {
	state := State{Present: s.Present()}
	if addr, ok := s.Address(); ok {
		hex := addr.Hex()
		state.Address = &hex
	}
	if id := s.ChainID(); id != nil && id.IsInt64() {
		v := id.Int64()
		state.ChainID = &v
	}
	state.Connected = state.Address != nil && state.ChainID != nil
	return state
}

// Signer returns a signer for the connected account, connecting first when
// no account is connected yet.
func (s *Session) Signer(ctx context.Context) (*Signer, error) {
	if s.provider == nil {
		return nil, ErrNoWalletFound
	}

	if !s.Connected() {
		if _, err := s.Connect(ctx); err != nil {
			return nil, err
		}
	}

	// A disconnect can land between Connect and here.
	s.mu.RLock()
	if s.address == nil || s.chainID == nil {
		s.mu.RUnlock()
		return nil, ErrUserRejected
	}
	addr := *s.address
	chainID := new(big.Int).Set(s.chainID)
	s.mu.RUnlock()

	opts, err := s.provider.SignerFor(addr, chainID)
	if err != nil {
		return nil, err
	}
	backend, err := s.provider.Backend(ctx)
	if err != nil {
		return nil, err
	}
	return &Signer{Opts: opts, Backend: backend, Address: addr, ChainID: chainID}, nil
}

// OnReload registers a hook run after every chainChanged notification.
func (s *Session) OnReload(hook func()) {
	s.reloadMu.Lock()
	s.reloadHooks = append(s.reloadHooks, hook)
	s.reloadMu.Unlock()
}

// Close detaches from the provider.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *Session) handleAccountsChanged(accounts []common.Address) {
	s.mu.Lock()
	if len(accounts) == 0 {
		s.address = nil
	} else {
		addr := accounts[0]
		s.address = &addr
	}
	connected := s.address != nil && s.chainID != nil
	s.mu.Unlock()

	s.metrics.RecordWalletEvent("accounts_changed", connected)
	s.logger.WithField("accounts", len(accounts)).Info("Wallet accounts changed")
}

// handleChainChanged drops all session state; signers and anything derived
// from them belong to the old chain.
func (s *Session) handleChainChanged(chainID *big.Int) {
	s.mu.Lock()
	s.address = nil
	s.chainID = nil
	s.mu.Unlock()

	s.metrics.RecordWalletEvent("chain_changed", false)
	s.logger.WithField("chain_id", chainID.String()).Warn("Wallet chain changed, reloading")

	s.reloadMu.Lock()
	hooks := append([]func(){}, s.reloadHooks...)
	s.reloadMu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}
