package contracts

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/escrow-admin/internal/metrics"
)

// PendingTx is a submitted transaction awaiting confirmation.
type PendingTx interface {
	Hash() common.Hash
	Wait(ctx context.Context) (*types.Receipt, error)
}

// ReceiptReader fetches transaction receipts.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type pendingTx struct {
	hash     common.Hash
	method   string
	reader   ReceiptReader
	interval time.Duration
	metrics  *metrics.Manager
	logger   *logrus.Entry
}

func (p *pendingTx) Hash() common.Hash {
	return p.hash
}

// Wait polls for the receipt until it appears or ctx ends. A mined
// transaction with failed status is a TransactionFailed ChainError.
func (p *pendingTx) Wait(ctx context.Context) (*types.Receipt, error) {
	start := time.Now()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		receipt, err := p.reader.TransactionReceipt(ctx, p.hash)
		switch {
		case err == nil && receipt != nil:
			p.metrics.RecordReceiptWait(p.method, time.Since(start))
			if receipt.Status != types.ReceiptStatusSuccessful {
				p.metrics.RecordTransaction(p.method, "failed")
				hash := p.hash
				return receipt, &ChainError{
					Kind:   TransactionFailed,
					Method: p.method,
					Short:  "transaction execution reverted",
					TxHash: &hash,
				}
			}
			p.metrics.RecordTransaction(p.method, "confirmed")
			p.logger.WithFields(logrus.Fields{
				"method":   p.method,
				"tx_hash":  p.hash.Hex(),
				"block":    receipt.BlockNumber,
				"gas_used": receipt.GasUsed,
			}).Info("Transaction confirmed")
			return receipt, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			p.logger.WithError(err).WithField("tx_hash", p.hash.Hex()).Warn("Failed to fetch receipt, retrying")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
