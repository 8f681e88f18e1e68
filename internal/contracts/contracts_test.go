package contracts

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/smartdevs17/escrow-admin/internal/models"
	"github.com/smartdevs17/escrow-admin/internal/wallet"
	"github.com/smartdevs17/escrow-admin/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dataError struct {
	msg  string
	data interface{}
}

func (e *dataError) Error() string          { return e.msg }
func (e *dataError) ErrorCode() int         { return 3 }
func (e *dataError) ErrorData() interface{} { return e.data }

func revertData(t *testing.T, reason string) string {
	t.Helper()
	strType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: strType}}.Pack(reason)
	require.NoError(t, err)
	return hexutil.Encode(append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...))
}

func TestABIsExposeMinimalSurface(t *testing.T) {
	erc20, escrow, err := parsedABIs()
	require.NoError(t, err)

	for _, m := range []string{"approve", "allowance", "decimals"} {
		assert.Contains(t, erc20.Methods, m)
	}
	assert.Len(t, erc20.Methods, 3)
	for _, m := range []string{"fund", "markCompleted", "dispute"} {
		assert.Contains(t, escrow.Methods, m)
	}
	assert.Equal(t, "fund(uint256)", escrow.Methods["fund"].Sig)
	assert.Equal(t, "approve(address,uint256)", erc20.Methods["approve"].Sig)
}

func TestAddressesFailWithConfigurationError(t *testing.T) {
	f := NewFacade(Config{TokenAddress: "", EscrowAddress: "0xnothex"}, nil)

	_, err := f.TokenContract(context.Background())
	var cfgErr *models.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "token contract address", cfgErr.Setting)

	_, err = f.EscrowContract(context.Background())
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "escrow contract address", cfgErr.Setting)
}

type staticSigner struct {
	calls  int
	signer *wallet.Signer
	err    error
}

func (s *staticSigner) Signer(ctx context.Context) (*wallet.Signer, error) {
	s.calls++
	return s.signer, s.err
}

func TestContractsObtainSignerAfterAddress(t *testing.T) {
	src := &staticSigner{err: wallet.ErrNoWalletFound}
	f := NewFacade(Config{}, src)

	_, err := f.EscrowContract(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, src.calls, "signer must not be requested when the address is missing")

	f = NewFacade(Config{EscrowAddress: "0x00000000000000000000000000000000000000e5"}, src)
	_, err = f.EscrowContract(context.Background())
	assert.ErrorIs(t, err, wallet.ErrNoWalletFound)
	assert.Equal(t, 1, src.calls)
}

func TestBindingsUseCurrentSigner(t *testing.T) {
	from := common.HexToAddress("0x0000000000000000000000000000000000000abc")
	src := &staticSigner{signer: &wallet.Signer{
		Opts:    &bind.TransactOpts{From: from},
		Address: from,
		ChainID: big.NewInt(31),
	}}
	f := NewFacade(Config{
		TokenAddress:  "0x00000000000000000000000000000000000000aa",
		EscrowAddress: "0x00000000000000000000000000000000000000e5",
	}, src)

	token, err := f.TokenContract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000aa"), token.Address())

	escrow, err := f.EscrowContract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000e5"), escrow.Address())
	assert.Equal(t, 2, src.calls)

	_, err = escrow.Fund(context.Background(), 0)
	assert.ErrorIs(t, err, models.ErrInvalidDealID)
}

func TestClassifyRevertData(t *testing.T) {
	err := classifySendError("approve", &dataError{msg: "execution reverted", data: revertData(t, "ERC20: insufficient balance")})

	var ce *ChainError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, Reverted, ce.Kind)
	assert.Equal(t, "execution reverted: ERC20: insufficient balance", ce.ShortMessage())
	assert.True(t, IsReverted(err))
}

func TestClassifyRevertText(t *testing.T) {
	err := classifySendError("fund", errors.New("failed to estimate gas needed: execution reverted: Deal not found"))

	var ce *ChainError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "execution reverted: Deal not found", ce.Error())
}

func TestClassifyOtherErrors(t *testing.T) {
	cause := errors.New("connection refused")
	err := classifySendError("fund", cause)

	assert.False(t, IsReverted(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "fund failed: connection refused", err.Error())
	assert.Nil(t, classifySendError("fund", nil))
}

type fakeReceipts struct {
	mu       sync.Mutex
	misses   int
	receipt  *types.Receipt
	requests int
}

func (f *fakeReceipts) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	if f.requests <= f.misses {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

func newPending(reader ReceiptReader) *pendingTx {
	return &pendingTx{
		hash:     common.HexToHash("0x01"),
		method:   "fund",
		reader:   reader,
		interval: time.Millisecond,
		logger:   utils.ComponentLogger("contracts"),
	}
}

func TestWaitPollsUntilMined(t *testing.T) {
	reader := &fakeReceipts{misses: 3, receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(10)}}

	receipt, err := newPending(reader).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), receipt.BlockNumber.Int64())
	assert.Equal(t, 4, reader.requests)
}

func TestWaitFailedStatus(t *testing.T) {
	reader := &fakeReceipts{receipt: &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(1)}}

	_, err := newPending(reader).Wait(context.Background())
	var ce *ChainError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, TransactionFailed, ce.Kind)
	require.NotNil(t, ce.TxHash)
}

func TestWaitHonoursContext(t *testing.T) {
	reader := &fakeReceipts{misses: 1 << 30}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newPending(reader).Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
