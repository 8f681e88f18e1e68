package contracts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// ErrorKind classifies on-chain failures.
type ErrorKind int

const (
	// Reverted means the node refused the call before it was mined.
	Reverted ErrorKind = iota + 1
	// TransactionFailed means the transaction was mined with a failed status.
	TransactionFailed
)

func (k ErrorKind) String() string {
	switch k {
	case Reverted:
		return "reverted"
	case TransactionFailed:
		return "transaction_failed"
	default:
		return "unknown"
	}
}

const revertPrefix = "execution reverted"

// ChainError is an on-chain failure with a short human-readable message.
type ChainError struct {
	Kind   ErrorKind
	Method string
	Short  string
	TxHash *common.Hash
	Err    error
}

func (e *ChainError) Error() string {
	if e.Short != "" {
		return e.Short
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s", e.Method, e.Kind)
}

// ShortMessage returns the provider-style summary, e.g. the revert reason.
func (e *ChainError) ShortMessage() string {
	return e.Short
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

// IsReverted reports whether err is a revert of any call.
func IsReverted(err error) bool {
	var ce *ChainError
	return errors.As(err, &ce) && ce.Kind == Reverted
}

// classifySendError turns a send-time failure into a ChainError when it
// carries revert information; other errors are returned wrapped.
func classifySendError(method string, err error) error {
	if err == nil {
		return nil
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if short, ok := decodeRevertData(dataErr.ErrorData()); ok {
			return &ChainError{Kind: Reverted, Method: method, Short: short, Err: err}
		}
	}

	// Binding layers format estimate-gas failures with %v, which drops the
	// rpc error chain but keeps the node's text.
	msg := err.Error()
	if idx := strings.Index(msg, revertPrefix); idx >= 0 {
		return &ChainError{Kind: Reverted, Method: method, Short: msg[idx:], Err: err}
	}

	return fmt.Errorf("%s failed: %w", method, err)
}

func decodeRevertData(data interface{}) (string, bool) {
	hexData, ok := data.(string)
	if !ok || hexData == "" {
		return "", false
	}
	raw, err := hexutil.Decode(hexData)
	if err != nil {
		return "", false
	}
	reason, err := abi.UnpackRevert(raw)
	if err != nil {
		if len(raw) == 0 {
			return revertPrefix, true
		}
		return "", false
	}
	return revertPrefix + ": " + reason, true
}
