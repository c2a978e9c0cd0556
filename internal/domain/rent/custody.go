package rent

import "context"

const custodyOp = "custody"

// Custody moves assets among owner, escrow and tenant.
type Custody struct{}

// Check verifies that from holds the asset and operator may move it on from's behalf.
func (Custody) Check(ctx context.Context, asset NonFungible, id TokenID, from, operator Address) error {
	holder, err := asset.OwnerOf(ctx, id)
	if err != nil {
		return wrapKind(custodyOp, KindTransferRejected, err)
	}
	if holder != from {
		return fail(custodyOp, KindTransferRejected, "asset %d is held by %q, not %q", id, holder, from)
	}
	if operator == from {
		return nil
	}
	approved, err := asset.IsApprovedForAll(ctx, from, operator)
	if err != nil {
		return wrapKind(custodyOp, KindTransferRejected, err)
	}
	if !approved {
		return fail(custodyOp, KindTransferRejected, "%q is not approved to move assets of %q", operator, from)
	}
	return nil
}

// Transfer moves the asset from one holder to another after checking authority.
func (c Custody) Transfer(ctx context.Context, asset NonFungible, id TokenID, from, to, operator Address) error {
	if err := c.Check(ctx, asset, id, from, operator); err != nil {
		return err
	}
	if err := asset.TransferFrom(ctx, operator, from, to, id); err != nil {
		return wrapKind(custodyOp, KindTransferRejected, err)
	}
	return nil
}
