package rent_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/leomorozovskii/erc721-rent/internal/clock"
	"github.com/leomorozovskii/erc721-rent/internal/domain/event"
	"github.com/leomorozovskii/erc721-rent/internal/domain/rent"
	"github.com/leomorozovskii/erc721-rent/internal/ledger"
	"github.com/leomorozovskii/erc721-rent/internal/repository"
	"github.com/leomorozovskii/erc721-rent/internal/repository/mocks"
)

// brokenToken passes every check but refuses to move funds.
type brokenToken struct {
	rent.Fungible
}

func (brokenToken) TransferFrom(context.Context, rent.Address, rent.Address, rent.Address, *big.Int) error {
	return errors.New("token paused")
}

type contractsWithToken struct {
	*ledger.Ledger
	token rent.Fungible
}

func (c contractsWithToken) Fungible(context.Context, rent.Address) (rent.Fungible, error) {
	return c.token, nil
}

type mockFixture struct {
	svc      *rent.Service
	rents    *mocks.RentRepository
	notifier *mocks.Notifier
	ledger   *ledger.Ledger
	land     *ledger.Collection
	mana     *ledger.Token
	clock    *clock.Manual
}

func newMockFixture(t *testing.T) *mockFixture {
	t.Helper()
	l := ledger.New()
	land, err := l.DeployCollection(landRef)
	require.NoError(t, err)
	require.NoError(t, land.Mint(alice, 1))
	land.SetApprovalForAll(alice, escrow, true)

	mana, err := l.DeployToken(manaRef)
	require.NoError(t, err)
	require.NoError(t, mana.Mint(bob, big.NewInt(1000)))
	require.NoError(t, mana.Approve(bob, escrow, big.NewInt(1000)))

	f := &mockFixture{
		rents:    new(mocks.RentRepository),
		notifier: new(mocks.Notifier),
		ledger:   l,
		land:     land,
		mana:     mana,
		clock:    clock.NewManual(start),
	}
	f.svc = rent.NewService(f.rents, l, f.notifier, f.clock, rent.Options{Escrow: escrow}, nil)
	return f
}

func openOffer() *rent.Rent {
	return &rent.Rent{
		ID:        "rent-1",
		AssetRef:  landRef,
		TokenRef:  manaRef,
		AssetID:   1,
		Owner:     alice,
		Rate:      big.NewInt(10),
		Duration:  day,
		ExpiresAt: start.Add(time.Hour),
		CreatedAt: start,
	}
}

func TestService_CreateReplacesUnsigned(t *testing.T) {
	f := newMockFixture(t)
	ctx := context.Background()
	key := rent.Key{AssetRef: landRef, AssetID: 1}

	f.rents.On("Get", ctx, key).Return(openOffer(), nil)
	f.rents.On("Save", ctx, mock.MatchedBy(func(r *rent.Rent) bool {
		return r.ID != "rent-1" && r.Rate.Int64() == 20 && !r.Signed()
	})).Return(nil)
	f.notifier.On("Notify", ctx, mock.MatchedBy(func(evt *event.Event) bool {
		return evt.Type == event.TypeRentCreated && evt.Owner == string(alice) && evt.Rate == "20"
	})).Return(errors.New("event log offline"))

	rec, err := f.svc.CreateRent(ctx, rent.CreateRequest{
		AssetRef:  landRef,
		TokenRef:  manaRef,
		AssetID:   1,
		Rate:      big.NewInt(20),
		Duration:  day,
		ExpiresAt: start.Add(2 * time.Hour),
		Caller:    alice,
	})
	require.NoError(t, err, "a failed notification does not undo the transition")
	require.NotEqual(t, "rent-1", rec.ID)
	require.True(t, start.Equal(rec.CreatedAt))

	f.rents.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestService_SignStorageFailure(t *testing.T) {
	f := newMockFixture(t)
	ctx := context.Background()
	key := rent.Key{AssetRef: landRef, AssetID: 1}

	f.rents.On("Get", ctx, key).Return(openOffer(), nil)
	f.rents.On("Save", ctx, mock.Anything).Return(errors.New("disk full"))

	_, err := f.svc.SignRent(ctx, rent.SignRequest{
		AssetRef:     landRef,
		AssetID:      1,
		ExpectedRate: big.NewInt(10),
		Caller:       bob,
	})
	require.ErrorContains(t, err, "disk full")
	require.Equal(t, rent.Kind(""), rent.KindOf(err))

	owner, err := f.land.OwnerOf(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, alice, owner, "custody returned to the owner")

	balance, err := f.mana.BalanceOf(ctx, bob)
	require.NoError(t, err)
	require.Equal(t, int64(1000), balance.Int64())

	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestService_SignFingerprintUnreadable(t *testing.T) {
	f := newMockFixture(t)
	ctx := context.Background()
	_, err := f.ledger.DeployComposable(estateRef)
	require.NoError(t, err)

	key := rent.Key{AssetRef: estateRef, AssetID: 9}
	offer := openOffer()
	offer.AssetRef = estateRef
	offer.AssetID = 9
	f.rents.On("Get", ctx, key).Return(offer, nil)

	_, err = f.svc.SignRent(ctx, rent.SignRequest{
		AssetRef:     estateRef,
		AssetID:      9,
		ExpectedRate: big.NewInt(10),
		Fingerprint:  []byte{1},
		Caller:       bob,
	})
	require.ErrorIs(t, err, rent.ErrNotFound)

	balance, err := f.mana.BalanceOf(ctx, bob)
	require.NoError(t, err)
	require.Equal(t, int64(1000), balance.Int64())
	f.rents.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestService_SignPaymentFailure(t *testing.T) {
	f := newMockFixture(t)
	ctx := context.Background()
	key := rent.Key{AssetRef: landRef, AssetID: 1}
	offer := openOffer()

	contracts := contractsWithToken{Ledger: f.ledger, token: brokenToken{Fungible: f.mana}}
	svc := rent.NewService(f.rents, contracts, f.notifier, f.clock, rent.Options{Escrow: escrow}, nil)

	f.rents.On("Get", ctx, key).Return(offer, nil)
	f.rents.On("Save", ctx, mock.MatchedBy(func(r *rent.Rent) bool { return r.Signed() })).Return(nil).Once()
	f.rents.On("Save", mock.Anything, mock.MatchedBy(func(r *rent.Rent) bool { return !r.Signed() })).Return(nil).Once()

	_, err := svc.SignRent(ctx, rent.SignRequest{
		AssetRef:     landRef,
		AssetID:      1,
		ExpectedRate: big.NewInt(10),
		Caller:       bob,
	})
	require.ErrorIs(t, err, rent.ErrTransferRejected)

	owner, err := f.land.OwnerOf(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, alice, owner)

	f.rents.AssertExpectations(t)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestService_FinishStorageFailure(t *testing.T) {
	f := newMockFixture(t)
	ctx := context.Background()
	key := rent.Key{AssetRef: landRef, AssetID: 1}

	signed := openOffer()
	signed.Tenant = bob
	signed.DueTime = start
	require.NoError(t, f.land.TransferFrom(ctx, escrow, alice, escrow, 1))

	f.rents.On("Get", ctx, key).Return(signed, nil)
	f.rents.On("Delete", ctx, key).Return(errors.New("disk full"))

	err := f.svc.FinishRent(ctx, key, alice)
	require.ErrorContains(t, err, "disk full")

	owner, err := f.land.OwnerOf(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, escrow, owner, "custody stays with escrow")
}

func TestService_LoadFailure(t *testing.T) {
	f := newMockFixture(t)
	ctx := context.Background()
	key := rent.Key{AssetRef: landRef, AssetID: 1}

	f.rents.On("Get", ctx, key).Return(nil, errors.New("connection reset"))

	_, err := f.svc.GetRent(ctx, key)
	require.ErrorContains(t, err, "connection reset")

	err = f.svc.CancelRent(ctx, key, alice)
	require.Error(t, err)
	require.Equal(t, rent.Kind(""), rent.KindOf(err))
}

func TestService_GetRentEmptySlot(t *testing.T) {
	f := newMockFixture(t)
	ctx := context.Background()
	key := rent.Key{AssetRef: landRef, AssetID: 1}

	f.rents.On("Get", ctx, key).Return(nil, repository.ErrNotFound)

	rec, err := f.svc.GetRent(ctx, key)
	require.NoError(t, err)
	require.True(t, rec.IsZero())
}

func TestService_NilNotifier(t *testing.T) {
	f := newMockFixture(t)
	ctx := context.Background()
	key := rent.Key{AssetRef: landRef, AssetID: 1}
	svc := rent.NewService(f.rents, f.ledger, nil, f.clock, rent.Options{Escrow: escrow}, nil)

	f.rents.On("Get", ctx, key).Return(openOffer(), nil)
	f.rents.On("Delete", ctx, key).Return(nil)

	require.NoError(t, svc.CancelRent(ctx, key, alice))
	require.Equal(t, escrow, svc.Escrow())
}
