package orchestrator

import (
	"context"

	"github.com/smartdevs17/escrow-admin/internal/contracts"
	"github.com/smartdevs17/escrow-admin/internal/models"
)

func (v *DealView) fundSteps(ctx context.Context, deal *models.Deal, txHashes *[]string) error {
	amount, err := deal.AmountWei()
	if err != nil {
		return err
	}
	escrowAddr, err := v.chain.EscrowAddress()
	if err != nil {
		return err
	}
	token, err := v.chain.TokenContract(ctx)
	if err != nil {
		return err
	}
	escrow, err := v.chain.EscrowContract(ctx)
	if err != nil {
		return err
	}

	approveTx, err := token.Approve(ctx, escrowAddr, amount)
	if err != nil {
		return err
	}
	*txHashes = append(*txHashes, approveTx.Hash().Hex())
	if _, err := approveTx.Wait(ctx); err != nil {
		return err
	}

	fundTx, err := escrow.Fund(ctx, v.dealID)
	if err != nil {
		v.logger.WithField("approve_tx", approveTx.Hash().Hex()).Warn("Fund failed after approve confirmed, allowance left outstanding")
		return err
	}
	*txHashes = append(*txHashes, fundTx.Hash().Hex())
	if _, err := fundTx.Wait(ctx); err != nil {
		v.logger.WithField("approve_tx", approveTx.Hash().Hex()).Warn("Fund failed after approve confirmed, allowance left outstanding")
		return err
	}
	return nil
}

func (v *DealView) escrowStep(call func(ctx context.Context, e contracts.Escrow, dealID int64) (contracts.PendingTx, error)) actionStep {
	return func(ctx context.Context, _ *models.Deal, txHashes *[]string) error {
		escrow, err := v.chain.EscrowContract(ctx)
		if err != nil {
			return err
		}
		tx, err := call(ctx, escrow, v.dealID)
		if err != nil {
			return err
		}
		*txHashes = append(*txHashes, tx.Hash().Hex())
		_, err = tx.Wait(ctx)
		return err
	}
}

func (v *DealView) adminStep(call func(ctx context.Context, dealID int64) (*models.AdminActionResult, error)) actionStep {
	return func(ctx context.Context, _ *models.Deal, txHashes *[]string) error {
		result, err := call(ctx, v.dealID)
		if err != nil {
			return err
		}
		if result != nil && result.TxHash != nil {
			*txHashes = append(*txHashes, *result.TxHash)
		}
		return nil
	}
}
