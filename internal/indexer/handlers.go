package indexer

import (
	"context"
	"fmt"

	"aave-ledger-go/internal/ledger"
	"aave-ledger-go/internal/models"
	"aave-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// HandleBorrow registers the borrower and opens a loan on the beneficiary's balance
func (i *Indexer) HandleBorrow(ctx context.Context, e *models.BorrowEvent) (Outcome, error) {
	tokenIds := i.tracked(models.AddressId(e.Reserve))
	if len(tokenIds) == 0 {
		return OutcomeIgnored, nil
	}
	if err := requireNonNegative("borrow amount", e.Amount); err != nil {
		return OutcomeIgnored, err
	}

	return i.apply(ctx, e, tokenIds, false, func(tx store.Tx) error {
		token, balance, err := i.balanceFor(ctx, tx, models.AddressId(e.OnBehalfOf), tokenIds[0])
		if err != nil {
			return err
		}
		if err := i.ledger.AddBorrower(ctx, tx, token, balance.UserId); err != nil {
			return err
		}
		_, _, err = i.ledger.CreateLoan(ctx, tx, balance, e)
		return err
	})
}

// HandleRepay queues the repaid amount until the next reserve update
func (i *Indexer) HandleRepay(ctx context.Context, e *models.RepayEvent) (Outcome, error) {
	tokenIds := i.tracked(models.AddressId(e.Reserve))
	if len(tokenIds) == 0 {
		return OutcomeIgnored, nil
	}
	if err := requireNonNegative("repay amount", e.Amount); err != nil {
		return OutcomeIgnored, err
	}

	return i.apply(ctx, e, tokenIds, false, func(tx store.Tx) error {
		_, balance, err := i.balanceFor(ctx, tx, models.AddressId(e.User), tokenIds[0])
		if err != nil {
			return err
		}
		balance.PendingRepaid = balance.PendingRepaid.Add(e.Amount)
		return i.commit(ctx, tx, balance, e.EventMeta, true)
	})
}

// HandleSupply queues the supplied amount on the beneficiary's balance
func (i *Indexer) HandleSupply(ctx context.Context, e *models.SupplyEvent) (Outcome, error) {
	tokenIds := i.tracked(models.AddressId(e.Reserve))
	if len(tokenIds) == 0 {
		return OutcomeIgnored, nil
	}
	if err := requireNonNegative("supply amount", e.Amount); err != nil {
		return OutcomeIgnored, err
	}

	return i.apply(ctx, e, tokenIds, false, func(tx store.Tx) error {
		_, balance, err := i.balanceFor(ctx, tx, models.AddressId(e.OnBehalfOf), tokenIds[0])
		if err != nil {
			return err
		}
		balance.PendingSupplied = balance.PendingSupplied.Add(e.Amount)
		return i.commit(ctx, tx, balance, e.EventMeta, false)
	})
}

// HandleWithdraw queues the withdrawn amount on the owner's balance
func (i *Indexer) HandleWithdraw(ctx context.Context, e *models.WithdrawEvent) (Outcome, error) {
	tokenIds := i.tracked(models.AddressId(e.Reserve))
	if len(tokenIds) == 0 {
		return OutcomeIgnored, nil
	}
	if err := requireNonNegative("withdraw amount", e.Amount); err != nil {
		return OutcomeIgnored, err
	}

	return i.apply(ctx, e, tokenIds, false, func(tx store.Tx) error {
		_, balance, err := i.balanceFor(ctx, tx, models.AddressId(e.User), tokenIds[0])
		if err != nil {
			return err
		}
		balance.PendingWithdrawn = balance.PendingWithdrawn.Add(e.Amount)
		return i.commit(ctx, tx, balance, e.EventMeta, false)
	})
}

// HandleLiquidationCall seizes collateral and wipes the debt side, each only
// when its reserve is tracked.
func (i *Indexer) HandleLiquidationCall(ctx context.Context, e *models.LiquidationCallEvent) (Outcome, error) {
	collateralId := models.AddressId(e.CollateralAsset)
	debtId := models.AddressId(e.DebtAsset)

	tokenIds := i.tracked(collateralId, debtId)
	if len(tokenIds) == 0 {
		return OutcomeIgnored, nil
	}
	if err := requireNonNegative("liquidated collateral", e.LiquidatedCollateralAmount); err != nil {
		return OutcomeIgnored, err
	}

	userId := models.AddressId(e.User)
	return i.apply(ctx, e, tokenIds, false, func(tx store.Tx) error {
		if _, ok := i.assets[collateralId]; ok {
			_, balance, err := i.balanceFor(ctx, tx, userId, collateralId)
			if err != nil {
				return err
			}
			balance.TotalSupplied = balance.TotalSupplied.Sub(e.LiquidatedCollateralAmount)
			if balance.TotalSupplied.IsNegative() {
				zap.L().Warn("Collateral seized beyond committed supply",
					zap.String("balance_id", balance.Id),
					zap.String("total_supplied", balance.TotalSupplied.String()))
			}
			if err := i.commit(ctx, tx, balance, e.EventMeta, true); err != nil {
				return err
			}
		}

		if _, ok := i.assets[debtId]; ok {
			_, balance, err := i.balanceFor(ctx, tx, userId, debtId)
			if err != nil {
				return err
			}
			deleted, err := i.ledger.DeleteLoans(ctx, tx, balance)
			if err != nil {
				return err
			}
			balance.TotalBorrowed = decimal.Zero
			balance.AccruedInterest = decimal.Zero
			if err := i.commit(ctx, tx, balance, e.EventMeta, true); err != nil {
				return err
			}

			zap.L().Info("Debt position liquidated",
				zap.String("balance_id", balance.Id),
				zap.Int("loans_deleted", deleted),
				zap.String("liquidator", models.AddressId(e.Liquidator)))
		}
		return nil
	})
}

// HandleReserveDataUpdated reconciles the transaction sender's balance in the reserve
func (i *Indexer) HandleReserveDataUpdated(ctx context.Context, e *models.ReserveDataUpdatedEvent) (Outcome, error) {
	tokenIds := i.tracked(models.AddressId(e.Reserve))
	if len(tokenIds) == 0 {
		return OutcomeIgnored, nil
	}
	if models.AddressId(e.TxFrom) == i.nullAddress {
		return OutcomeIgnored, fmt.Errorf("%w: reserve data update without a sender", ledger.ErrInvalidEvent)
	}

	update := ledger.RateUpdate{
		LiquidityIndex:     e.LiquidityIndex,
		StableBorrowRate:   e.StableBorrowRate,
		VariableBorrowRate: e.VariableBorrowRate,
	}
	return i.apply(ctx, e, tokenIds, true, func(tx store.Tx) error {
		_, balance, err := i.balanceFor(ctx, tx, models.AddressId(e.TxFrom), tokenIds[0])
		if err != nil {
			return err
		}
		_, err = i.ledger.Reconcile(ctx, tx, balance, update, e.EventMeta)
		return err
	})
}

// HandleTransfer moves supplied position between two holders of a tracked aToken.
// Mints and burns are skipped since Supply and Withdraw already cover them.
func (i *Indexer) HandleTransfer(ctx context.Context, e *models.TransferEvent) (Outcome, error) {
	asset, ok := i.aTokens[models.AddressId(e.Token)]
	if !ok {
		return OutcomeIgnored, nil
	}
	from, to := models.AddressId(e.From), models.AddressId(e.To)
	if from == i.nullAddress || to == i.nullAddress {
		return OutcomeIgnored, nil
	}
	if err := requireNonNegative("transfer value", e.Value); err != nil {
		return OutcomeIgnored, err
	}

	tokenIds := i.tracked(asset.Address)
	return i.apply(ctx, e, tokenIds, false, func(tx store.Tx) error {
		_, sender, err := i.balanceFor(ctx, tx, from, tokenIds[0])
		if err != nil {
			return err
		}
		sender.TotalSupplied = sender.TotalSupplied.Sub(e.Value)
		if err := i.commit(ctx, tx, sender, e.EventMeta, true); err != nil {
			return err
		}

		_, receiver, err := i.balanceFor(ctx, tx, to, tokenIds[0])
		if err != nil {
			return err
		}
		receiver.TotalSupplied = receiver.TotalSupplied.Add(e.Value)
		return i.commit(ctx, tx, receiver, e.EventMeta, true)
	})
}

// commit recomputes the derived position, stamps provenance and saves the balance
func (i *Indexer) commit(ctx context.Context, tx store.Tx, balance *models.Balance, meta models.EventMeta, snapshot bool) error {
	balance.RecomputeNet()
	ledger.Touch(balance, meta)
	if err := tx.SaveBalance(ctx, balance); err != nil {
		return err
	}
	if !snapshot {
		return nil
	}
	_, err := i.ledger.UpdateSnapshot(ctx, tx, balance, meta)
	return err
}
