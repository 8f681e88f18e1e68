package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/escrow-admin/internal/models"
	"github.com/smartdevs17/escrow-admin/pkg/utils"
)

// KeyProvider is a Provider backed by a single local key and an RPC node.
type KeyProvider struct {
	mu sync.Mutex

	rpcURL      string
	dialTimeout time.Duration
	client      *ethclient.Client

	key          *ecdsa.PrivateKey
	keystoreJSON []byte
	passphrase   string

	listeners   map[int]Listener
	nextID      int
	lastChainID *big.Int

	logger *logrus.Entry
}

// NewKeyProviderFromHex creates a provider from a hex-encoded private key.
func NewKeyProviderFromHex(rpcURL, hexKey string) (*KeyProvider, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid wallet private key: %w", err)
	}
	p := newKeyProvider(rpcURL)
	p.key = key
	return p, nil
}

// NewKeyProviderFromKeystore creates a provider from an encrypted keystore
// file. The key is decrypted on the first account request.
func NewKeyProviderFromKeystore(rpcURL string, keyJSON []byte, passphrase string) (*KeyProvider, error) {
	if !json.Valid(keyJSON) {
		return nil, fmt.Errorf("keystore file is not valid JSON")
	}
	p := newKeyProvider(rpcURL)
	p.keystoreJSON = keyJSON
	p.passphrase = passphrase
	return p, nil
}

func newKeyProvider(rpcURL string) *KeyProvider {
	return &KeyProvider{
		rpcURL:      strings.TrimSpace(rpcURL),
		dialTimeout: 30 * time.Second,
		listeners:   make(map[int]Listener),
		logger:      utils.ComponentLogger("wallet"),
	}
}

// RequestAccounts unlocks the key if needed and returns its address.
func (p *KeyProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.key == nil {
		if p.keystoreJSON == nil {
			return nil, ErrUserRejected
		}
		unlocked, err := keystore.DecryptKey(p.keystoreJSON, p.passphrase)
		if err != nil {
			if errors.Is(err, keystore.ErrDecrypt) {
				return nil, ErrUserRejected
			}
			return nil, fmt.Errorf("failed to unlock keystore: %w", err)
		}
		p.key = unlocked.PrivateKey
	}
	return []common.Address{crypto.PubkeyToAddress(p.key.PublicKey)}, nil
}

// ChainID returns the chain id reported by the node.
func (p *KeyProvider) ChainID(ctx context.Context) (*big.Int, error) {
	client, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	id, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	p.mu.Lock()
	if p.lastChainID == nil {
		p.lastChainID = new(big.Int).Set(id)
	}
	p.mu.Unlock()
	return id, nil
}

// SignerFor returns transaction options signing with the unlocked key.
func (p *KeyProvider) SignerFor(account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	p.mu.Lock()
	key := p.key
	p.mu.Unlock()

	if key == nil {
		return nil, ErrUserRejected
	}
	if crypto.PubkeyToAddress(key.PublicKey) != account {
		return nil, fmt.Errorf("account %s is not managed by this wallet", account.Hex())
	}
	return bind.NewKeyedTransactorWithChainID(key, chainID)
}

// Backend returns the node connection used for contract calls.
func (p *KeyProvider) Backend(ctx context.Context) (Backend, error) {
	client, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Subscribe registers a listener and returns its removal func.
func (p *KeyProvider) Subscribe(l Listener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = l

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// SwitchAccount replaces the signing key and notifies listeners.
func (p *KeyProvider) SwitchAccount(hexKey string) error {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return fmt.Errorf("invalid wallet private key: %w", err)
	}

	p.mu.Lock()
	p.key = key
	p.keystoreJSON = nil
	p.mu.Unlock()

	p.emitAccounts([]common.Address{crypto.PubkeyToAddress(key.PublicKey)})
	return nil
}

// Lock forgets the unlocked key. Listeners see an empty account list.
func (p *KeyProvider) Lock() {
	p.mu.Lock()
	p.key = nil
	p.mu.Unlock()

	p.emitAccounts(nil)
}

// Watch polls the node's chain id and emits chainChanged when it moves.
func (p *KeyProvider) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.WithField("interval", interval).Debug("Watching chain id")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollChainID(ctx)
		}
	}
}

func (p *KeyProvider) pollChainID(ctx context.Context) {
	client, err := p.dial(ctx)
	if err != nil {
		p.logger.WithError(err).Debug("Chain id poll skipped")
		return
	}

	pollCtx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()

	id, err := client.ChainID(pollCtx)
	if err != nil {
		p.logger.WithError(err).Warn("Failed to poll chain id")
		return
	}

	p.mu.Lock()
	previous := p.lastChainID
	p.lastChainID = new(big.Int).Set(id)
	p.mu.Unlock()

	if previous != nil && previous.Cmp(id) != 0 {
		p.logger.WithFields(logrus.Fields{
			"from": previous.String(),
			"to":   id.String(),
		}).Info("Chain changed")
		p.emitChain(id)
	}
}

// Close releases the node connection.
func (p *KeyProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}

func (p *KeyProvider) dial(ctx context.Context) (*ethclient.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	if p.rpcURL == "" {
		return nil, &models.ConfigurationError{Setting: "chain RPC URL", Reason: "not configured"}
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()

	client, err := ethclient.DialContext(dialCtx, p.rpcURL)
	if err != nil {
		return nil, utils.WrapAppError(utils.ErrCodeBlockchain, "Failed to connect to chain node", err)
	}
	p.client = client
	return client, nil
}

func (p *KeyProvider) snapshotListeners() []Listener {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		out = append(out, l)
	}
	return out
}

func (p *KeyProvider) emitAccounts(accounts []common.Address) {
	for _, l := range p.snapshotListeners() {
		if l.OnAccountsChanged != nil {
			l.OnAccountsChanged(accounts)
		}
	}
}

func (p *KeyProvider) emitChain(id *big.Int) {
	for _, l := range p.snapshotListeners() {
		if l.OnChainChanged != nil {
			l.OnChainChanged(new(big.Int).Set(id))
		}
	}
}
