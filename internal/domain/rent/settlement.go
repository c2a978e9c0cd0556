package rent

import (
	"context"
	"math/big"
)

const settlementOp = "settlement"

// Settlement moves payment token amounts, pulling from the payer through Spender's allowance.
type Settlement struct {
	Spender Address
}

// Check verifies the payer can cover amount and has authorized Spender for it.
func (s Settlement) Check(ctx context.Context, token Fungible, payer Address, amount *big.Int) error {
	balance, err := token.BalanceOf(ctx, payer)
	if err != nil {
		return wrapKind(settlementOp, KindTransferRejected, err)
	}
	if balance.Cmp(amount) < 0 {
		return fail(settlementOp, KindInsufficientFunds, "balance %s of %q is below %s", balance, payer, amount)
	}
	if payer == s.Spender {
		return nil
	}
	allowance, err := token.Allowance(ctx, payer, s.Spender)
	if err != nil {
		return wrapKind(settlementOp, KindTransferRejected, err)
	}
	if allowance.Cmp(amount) < 0 {
		return fail(settlementOp, KindTransferRejected, "allowance %s of %q is below %s", allowance, payer, amount)
	}
	return nil
}

// Settle transfers amount from payer to payee.
func (s Settlement) Settle(ctx context.Context, token Fungible, payer, payee Address, amount *big.Int) error {
	if err := s.Check(ctx, token, payer, amount); err != nil {
		return err
	}
	if err := token.TransferFrom(ctx, s.Spender, payer, payee, amount); err != nil {
		return wrapKind(settlementOp, KindTransferRejected, err)
	}
	return nil
}
