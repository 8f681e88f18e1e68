package wallet

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

type fakeProvider struct {
	mu        sync.Mutex
	accounts  []common.Address
	chainID   *big.Int
	reject    bool
	listeners []Listener
}

func (f *fakeProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject {
		return nil, ErrUserRejected
	}
	return append([]common.Address{}, f.accounts...), nil
}

func (f *fakeProvider) ChainID(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.chainID), nil
}

func (f *fakeProvider) SignerFor(account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{From: account}, nil
}

func (f *fakeProvider) Backend(ctx context.Context) (Backend, error) {
	return nil, nil
}

func (f *fakeProvider) Subscribe(l Listener) func() {
	f.mu.Lock()
	f.listeners = append(f.listeners, l)
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.listeners = nil
		f.mu.Unlock()
	}
}

func (f *fakeProvider) emitAccounts(accs []common.Address) {
	f.mu.Lock()
	ls := append([]Listener{}, f.listeners...)
	f.mu.Unlock()
	for _, l := range ls {
		l.OnAccountsChanged(accs)
	}
}

func (f *fakeProvider) emitChain(id int64) {
	f.mu.Lock()
	f.chainID = big.NewInt(id)
	ls := append([]Listener{}, f.listeners...)
	f.mu.Unlock()
	for _, l := range ls {
		l.OnChainChanged(big.NewInt(id))
	}
}
