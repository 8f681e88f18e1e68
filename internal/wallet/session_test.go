package wallet

import (
	"context"
	"io"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func TestConnectWithoutProvider(t *testing.T) {
	s := NewSession(nil, nil)

	assert.False(t, s.Present())
	_, err := s.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNoWalletFound)

	_, err = s.Signer(context.Background())
	assert.ErrorIs(t, err, ErrNoWalletFound)
}

func TestConnectRejected(t *testing.T) {
	s := NewSession(&fakeProvider{reject: true, chainID: big.NewInt(31)}, nil)

	_, err := s.Connect(context.Background())
	assert.ErrorIs(t, err, ErrUserRejected)
	assert.False(t, s.Connected())
}

func TestConnectEmptyAccountsIsRejection(t *testing.T) {
	s := NewSession(&fakeProvider{chainID: big.NewInt(31)}, nil)

	_, err := s.Connect(context.Background())
	assert.ErrorIs(t, err, ErrUserRejected)
}

func TestConnectRecordsAccount(t *testing.T) {
	s := NewSession(&fakeProvider{accounts: []common.Address{alice, bob}, chainID: big.NewInt(31)}, nil)

	acct, err := s.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, alice, acct.Address)
	assert.Equal(t, int64(31), acct.ChainID.Int64())

	addr, ok := s.Address()
	require.True(t, ok)
	assert.Equal(t, alice, addr)
	assert.False(t, s.WrongNetwork(31))
	assert.True(t, s.WrongNetwork(30))

	state := s.Snapshot()
	assert.True(t, state.Connected)
	require.NotNil(t, state.Address)
	assert.Equal(t, alice.Hex(), *state.Address)
}

func TestSignerConnectsOnDemand(t *testing.T) {
	s := NewSession(&fakeProvider{accounts: []common.Address{bob}, chainID: big.NewInt(1337)}, nil)
	require.False(t, s.Connected())

	signer, err := s.Signer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bob, signer.Address)
	assert.Equal(t, bob, signer.Opts.From)
	assert.True(t, s.Connected())
}

func TestAccountsChanged(t *testing.T) {
	p := &fakeProvider{accounts: []common.Address{alice}, chainID: big.NewInt(31)}
	s := NewSession(p, nil)
	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	p.emitAccounts([]common.Address{bob, alice})
	addr, ok := s.Address()
	require.True(t, ok)
	assert.Equal(t, bob, addr)

	p.emitAccounts(nil)
	_, ok = s.Address()
	assert.False(t, ok)
	assert.False(t, s.Connected())
}

// onMessage runs fn once when an entry with the given message is logged.
type onMessage struct {
	message string
	once    sync.Once
	fn      func()
}

func (h *onMessage) Levels() []logrus.Level { return logrus.AllLevels }

func (h *onMessage) Fire(e *logrus.Entry) error {
	if e.Message == h.message {
		h.once.Do(h.fn)
	}
	return nil
}

func TestSignerAfterDisconnectDuringConnect(t *testing.T) {
	p := &fakeProvider{accounts: []common.Address{alice}, chainID: big.NewInt(31)}
	s := NewSession(p, nil)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.AddHook(&onMessage{message: "Wallet connected", fn: func() { p.emitAccounts(nil) }})
	s.logger = logrus.NewEntry(logger)

	var signer *Signer
	var err error
	require.NotPanics(t, func() { signer, err = s.Signer(context.Background()) })
	assert.ErrorIs(t, err, ErrUserRejected)
	assert.Nil(t, signer)
	assert.False(t, s.Connected())

	signer, err = s.Signer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, alice, signer.Address)
}

func TestChainChangedClearsStateAndReloads(t *testing.T) {
	p := &fakeProvider{accounts: []common.Address{alice}, chainID: big.NewInt(31)}
	s := NewSession(p, nil)
	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	reloads := 0
	s.OnReload(func() { reloads++ })

	p.emitChain(30)

	assert.Equal(t, 1, reloads)
	assert.False(t, s.Connected())
	assert.Nil(t, s.ChainID())
	assert.False(t, s.WrongNetwork(31))

	signer, err := s.Signer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(30), signer.ChainID.Int64())
}

func TestCloseUnsubscribes(t *testing.T) {
	p := &fakeProvider{accounts: []common.Address{alice}, chainID: big.NewInt(31)}
	s := NewSession(p, nil)
	s.Close()

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Empty(t, p.listeners)
}
