package ledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leomorozovskii/erc721-rent/internal/config"
	"github.com/leomorozovskii/erc721-rent/internal/domain/rent"
)

func TestLedger_Resolve(t *testing.T) {
	ctx := context.Background()
	l := New()

	_, err := l.DeployCollection("land")
	require.NoError(t, err)
	_, err = l.DeployComposable("estate")
	require.NoError(t, err)
	_, err = l.DeployToken("mana")
	require.NoError(t, err)

	_, err = l.DeployToken("mana")
	require.ErrorIs(t, err, ErrContractExists)
	_, err = l.DeployToken(rent.ZeroAddress)
	require.ErrorIs(t, err, ErrZeroAddress)

	land, err := l.NonFungible(ctx, "land")
	require.NoError(t, err)
	_, isFingerprinter := land.(rent.Fingerprinter)
	require.False(t, isFingerprinter)
	_, isWriter := land.(rent.MetadataWriter)
	require.True(t, isWriter)

	estate, err := l.NonFungible(ctx, "estate")
	require.NoError(t, err)
	_, isFingerprinter = estate.(rent.Fingerprinter)
	require.True(t, isFingerprinter)

	_, err = l.NonFungible(ctx, "mana")
	require.ErrorIs(t, err, ErrWrongCapability)
	_, err = l.Fungible(ctx, "land")
	require.ErrorIs(t, err, ErrWrongCapability)
	_, err = l.Fungible(ctx, "nowhere")
	require.ErrorIs(t, err, ErrUnknownContract)

	_, err = l.Composable("land")
	require.ErrorIs(t, err, ErrNotComposable)
	c, err := l.Collection("estate")
	require.NoError(t, err)
	require.Equal(t, rent.Address("estate"), c.Ref())
}

func TestCollection_Transfer(t *testing.T) {
	ctx := context.Background()
	l := New()
	land, err := l.DeployCollection("land")
	require.NoError(t, err)

	require.NoError(t, land.Mint("alice", 1))
	require.ErrorIs(t, land.Mint("bob", 1), ErrTokenExists)

	// Strangers cannot move the asset
	require.ErrorIs(t, land.TransferFrom(ctx, "escrow", "alice", "escrow", 1), ErrNotApproved)
	require.ErrorIs(t, land.TransferFrom(ctx, "bob", "bob", "escrow", 1), ErrNotOwner)

	land.SetApprovalForAll("alice", "escrow", true)
	ok, err := land.IsApprovedForAll(ctx, "alice", "escrow")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, land.TransferFrom(ctx, "escrow", "alice", "escrow", 1))
	owner, err := land.OwnerOf(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, rent.Address("escrow"), owner)

	// The holder moves its own assets
	require.NoError(t, land.TransferFrom(ctx, "escrow", "escrow", "alice", 1))

	land.SetApprovalForAll("alice", "escrow", false)
	ok, err = land.IsApprovedForAll(ctx, "alice", "escrow")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = land.OwnerOf(ctx, 99)
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestCollection_SetTokenURI(t *testing.T) {
	ctx := context.Background()
	land := newCollection("land")
	require.NoError(t, land.Mint("escrow", 1))

	require.ErrorIs(t, land.SetTokenURI(ctx, "bob", 1, "ipfs://x"), ErrNotApproved)
	require.NoError(t, land.SetTokenURI(ctx, "escrow", 1, "ipfs://x"))

	uri, err := land.TokenURI(1)
	require.NoError(t, err)
	require.Equal(t, "ipfs://x", uri)
}

func TestToken_TransferFrom(t *testing.T) {
	ctx := context.Background()
	mana := newToken("mana")
	require.NoError(t, mana.Mint("bob", big.NewInt(100)))

	err := mana.TransferFrom(ctx, "escrow", "bob", "alice", big.NewInt(40))
	require.ErrorIs(t, err, ErrInsufficientAllowance)

	require.NoError(t, mana.Approve("bob", "escrow", big.NewInt(50)))
	require.NoError(t, mana.TransferFrom(ctx, "escrow", "bob", "alice", big.NewInt(40)))

	allowance, err := mana.Allowance(ctx, "bob", "escrow")
	require.NoError(t, err)
	require.Equal(t, int64(10), allowance.Int64())

	balance, err := mana.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, int64(60), balance.Int64())
	balance, err = mana.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(40), balance.Int64())

	// Holders spend without allowance
	require.ErrorIs(t, mana.TransferFrom(ctx, "bob", "bob", "alice", big.NewInt(61)), ErrInsufficientBalance)
	require.NoError(t, mana.TransferFrom(ctx, "bob", "bob", "alice", big.NewInt(60)))

	require.ErrorIs(t, mana.Mint("bob", big.NewInt(-1)), ErrInvalidAmount)
	require.ErrorIs(t, mana.TransferFrom(ctx, "bob", "bob", rent.ZeroAddress, big.NewInt(1)), ErrZeroAddress)
}

func TestToken_BalanceIsCopied(t *testing.T) {
	ctx := context.Background()
	mana := newToken("mana")
	require.NoError(t, mana.Mint("bob", big.NewInt(100)))

	balance, err := mana.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	balance.SetInt64(0)

	balance, err = mana.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, int64(100), balance.Int64())
}

func TestComposable_Fingerprint(t *testing.T) {
	ctx := context.Background()
	estate := newComposable("estate")
	require.NoError(t, estate.Mint("alice", 1))
	require.NoError(t, estate.Mint("alice", 2))

	empty, err := estate.Fingerprint(ctx, 1)
	require.NoError(t, err)
	require.Len(t, empty, 32)

	require.NoError(t, estate.AddChildren(1, 10, 11))
	withChildren, err := estate.Fingerprint(ctx, 1)
	require.NoError(t, err)
	require.NotEqual(t, empty, withChildren)

	// Insertion order does not matter
	other := newComposable("estate")
	require.NoError(t, other.Mint("alice", 1))
	require.NoError(t, other.AddChildren(1, 11, 10))
	same, err := other.Fingerprint(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, withChildren, same)

	// Different assets with the same children differ
	require.NoError(t, estate.AddChildren(2, 10, 11))
	second, err := estate.Fingerprint(ctx, 2)
	require.NoError(t, err)
	require.NotEqual(t, withChildren, second)

	require.NoError(t, estate.RemoveChildren(1, 10, 11))
	restored, err := estate.Fingerprint(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, empty, restored)
	require.Empty(t, estate.Children(1))

	_, err = estate.Fingerprint(ctx, 99)
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	l := New()
	err := Seed(l, config.LedgerConfig{
		Tokens: []config.TokenFixture{{
			Ref:      "mana",
			Balances: map[string]string{"bob": "1000000000000000000000"},
			Allowances: []config.AllowanceFixture{
				{Owner: "bob", Spender: "escrow", Amount: "500"},
			},
		}},
		Collections: []config.CollectionFixture{
			{
				Ref:       "land",
				Assets:    []config.AssetFixture{{ID: 1, Owner: "alice", URI: "ipfs://land-1"}},
				Operators: []config.OperatorFixture{{Owner: "alice", Operator: "escrow"}},
			},
			{
				Ref:        "estate",
				Composable: true,
				Assets:     []config.AssetFixture{{ID: 5, Owner: "alice", Children: []uint64{1, 2}}},
			},
		},
	})
	require.NoError(t, err)

	mana, err := l.Token("mana")
	require.NoError(t, err)
	balance, err := mana.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000000", balance.String())
	allowance, err := mana.Allowance(ctx, "bob", "escrow")
	require.NoError(t, err)
	require.Equal(t, int64(500), allowance.Int64())

	land, err := l.Collection("land")
	require.NoError(t, err)
	uri, err := land.TokenURI(1)
	require.NoError(t, err)
	require.Equal(t, "ipfs://land-1", uri)
	ok, err := land.IsApprovedForAll(ctx, "alice", "escrow")
	require.NoError(t, err)
	require.True(t, ok)

	estate, err := l.Composable("estate")
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, estate.Children(5))
}

func TestSeed_Rejects(t *testing.T) {
	err := Seed(New(), config.LedgerConfig{
		Tokens: []config.TokenFixture{{Ref: "mana", Balances: map[string]string{"bob": "lots"}}},
	})
	require.ErrorIs(t, err, ErrInvalidAmount)

	err = Seed(New(), config.LedgerConfig{
		Collections: []config.CollectionFixture{{
			Ref:    "land",
			Assets: []config.AssetFixture{{ID: 1, Owner: "alice", Children: []uint64{2}}},
		}},
	})
	require.ErrorIs(t, err, ErrNotComposable)
}
