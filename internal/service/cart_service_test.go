package service

import (
	"context"
	"testing"

	"storefront/internal/auth"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperty_CartAddMergesLines(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("adding q1 then q2 yields one line of q1+q2", prop.ForAll(
		func(q1, q2 int) bool {
			svc := newTestServices()
			ctx := context.Background()
			product := svc.store.addProduct("Widget", "2.50", 1000)
			userID := uuid.New()

			if _, err := svc.cart.Add(ctx, userID, product.ID, q1); err != nil {
				t.Logf("FAIL: First add failed: %v", err)
				return false
			}
			if _, err := svc.cart.Add(ctx, userID, product.ID, q2); err != nil {
				t.Logf("FAIL: Second add failed: %v", err)
				return false
			}

			cart, err := svc.cart.List(ctx, userID)
			if err != nil {
				t.Logf("FAIL: List failed: %v", err)
				return false
			}
			if len(cart.Lines) != 1 || cart.Lines[0].Quantity != q1+q2 {
				t.Logf("FAIL: Expected one line of %d, got %+v", q1+q2, cart.Lines)
				return false
			}

			expected := decimal.RequireFromString("2.50").Mul(decimal.NewFromInt(int64(q1 + q2)))
			if !cart.Total.Equal(expected) {
				t.Logf("FAIL: Expected total %s, got %s", expected, cart.Total)
				return false
			}
			return true
		},
		gen.IntRange(1, 100),
		gen.IntRange(1, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestCartAddRejections(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	product := svc.store.addProduct("Widget", "2.50", 3)
	userID := uuid.New()

	_, err := svc.cart.Add(ctx, userID, product.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.cart.Add(ctx, userID, product.ID, -2)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.cart.Add(ctx, userID, product.ID, 4)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = svc.cart.Add(ctx, userID, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrNotFound)

	cart, err := svc.cart.List(ctx, userID)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCartAddForMissingUserIsUnauthenticated(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	svc.store.requireUsers = true
	product := svc.store.addProduct("Widget", "1.00", 5)

	_, err := svc.cart.Add(ctx, uuid.New(), product.ID, 1)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Empty(t, svc.store.cart)

	user, err := svc.users.Register(ctx, "alice", "a@x.com", "pw")
	require.NoError(t, err)
	_, err = svc.cart.Add(ctx, user.ID, product.ID, 1)
	require.NoError(t, err)
}

func TestCartTotalUsesLivePrices(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	product := svc.store.addProduct("Widget", "2.00", 10)
	userID := uuid.New()

	_, err := svc.cart.Add(ctx, userID, product.ID, 3)
	require.NoError(t, err)

	svc.store.products[product.ID].Price = decimal.RequireFromString("3.00")

	cart, err := svc.cart.List(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "9.00", cart.Total.StringFixed(2))
}

func TestCartRemoveAndClearAreIdempotent(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	a := svc.store.addProduct("A", "1.00", 10)
	b := svc.store.addProduct("B", "1.00", 10)
	userID := uuid.New()

	_, err := svc.cart.Add(ctx, userID, a.ID, 1)
	require.NoError(t, err)
	_, err = svc.cart.Add(ctx, userID, b.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.cart.Remove(ctx, userID, a.ID))
	require.NoError(t, svc.cart.Remove(ctx, userID, a.ID))

	cart, err := svc.cart.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, b.ID, cart.Lines[0].Product.ID)

	require.NoError(t, svc.cart.Clear(ctx, userID))
	require.NoError(t, svc.cart.Clear(ctx, userID))
}
