package wallet

import (
	"context"
	"errors"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/smartdevs17/escrow-admin/internal/config"
	"github.com/smartdevs17/escrow-admin/pkg/utils"
)

var (
	// ErrNoWalletFound is returned when no wallet provider is present.
	ErrNoWalletFound = errors.New("No wallet found")
	// ErrUserRejected is returned when the provider declines account access.
	ErrUserRejected = errors.New("User rejected the request")
)

// Backend is what contract bindings need from a provider's node connection.
type Backend interface {
	bind.ContractBackend
	ChainID(ctx context.Context) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Listener receives provider notifications. Either callback may be nil.
type Listener struct {
	OnAccountsChanged func(accounts []common.Address)
	OnChainChanged    func(chainID *big.Int)
}

// Provider is a wallet capable of exposing accounts and signing transactions.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (*big.Int, error)
	SignerFor(account common.Address, chainID *big.Int) (*bind.TransactOpts, error)
	Backend(ctx context.Context) (Backend, error)
	Subscribe(l Listener) (unsubscribe func())
}

// Detect builds the configured provider. It returns a nil Provider and no
// error when no wallet material is configured.
func Detect(cfg config.WalletConfig, chain config.ChainConfig) (Provider, error) {
	if !cfg.Present() {
		return nil, nil
	}

	timeout := chain.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	if key := strings.TrimSpace(cfg.PrivateKey); key != "" {
		p, err := NewKeyProviderFromHex(chain.RPCURL, key)
		if err != nil {
			return nil, err
		}
		p.dialTimeout = timeout
		return p, nil
	}

	keyJSON, err := os.ReadFile(cfg.KeystorePath)
	if err != nil {
		return nil, utils.WrapAppError(utils.ErrCodeWallet, "Failed to read keystore", err)
	}
	p, err := NewKeyProviderFromKeystore(chain.RPCURL, keyJSON, cfg.KeystorePassphrase)
	if err != nil {
		return nil, err
	}
	p.dialTimeout = timeout
	return p, nil
}
