package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alcyxob/planmarket/internal/domain"
	"github.com/alcyxob/planmarket/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGrant_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.store.addUser(domain.RoleMember)
	plan := f.store.addPlan(primitive.NewObjectID(), threeWeekPlan, true)

	req := GrantRequest{
		UserID: user.ID, PlanID: plan.ID,
		Amount: decimal.RequireFromString("20.00"), Currency: "USD", ExternalTxID: "txn_1",
	}

	first, result, err := f.entitlements.Grant(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, repository.Created, result)

	second, result, err := f.entitlements.Grant(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, repository.AlreadyExists, result)
	assert.Equal(t, first.ID, second.ID)

	assert.Equal(t, 1, f.store.purchaseCount())
	owned, err := f.entitlements.HasEntitlement(ctx, user.ID, plan.ID)
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestGrant_ConcurrentCallsCreateOneRow(t *testing.T) {
	f := newFixture(t)
	userID, planID := primitive.NewObjectID(), primitive.NewObjectID()

	var wg sync.WaitGroup
	results := make([]repository.InsertResult, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, r, err := f.entitlements.Grant(context.Background(), GrantRequest{
				UserID: userID, PlanID: planID, Amount: decimal.NewFromInt(5), ExternalTxID: "txn_race",
			})
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	created := 0
	for _, r := range results {
		if r == repository.Created {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, f.store.purchaseCount())
}

func TestGrant_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := primitive.NewObjectID()

	_, _, err := f.entitlements.Grant(ctx, GrantRequest{PlanID: id, ExternalTxID: "t"})
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, _, err = f.entitlements.Grant(ctx, GrantRequest{UserID: id, PlanID: id})
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, _, err = f.entitlements.Grant(ctx, GrantRequest{UserID: id, PlanID: id, ExternalTxID: "t", Amount: decimal.NewFromInt(-1)})
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func TestGrant_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.insertPurchaseErr = errors.New("connection reset")

	_, _, err := f.entitlements.Grant(context.Background(), GrantRequest{
		UserID: primitive.NewObjectID(), PlanID: primitive.NewObjectID(), ExternalTxID: "txn",
	})
	assert.ErrorContains(t, err, "connection reset")
}

func TestHasEntitlement_NilIDs(t *testing.T) {
	f := newFixture(t)
	owned, err := f.entitlements.HasEntitlement(context.Background(), primitive.NilObjectID, primitive.NewObjectID())
	require.NoError(t, err)
	assert.False(t, owned)
}

func TestGetPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID, planID := primitive.NewObjectID(), primitive.NewObjectID()

	_, err := f.entitlements.GetPurchase(ctx, userID, planID)
	assert.ErrorIs(t, err, ErrPurchaseNotFound)

	f.store.addPurchase(userID, planID)
	p, err := f.entitlements.GetPurchase(ctx, userID, planID)
	require.NoError(t, err)
	assert.Equal(t, planID, p.PlanID)
}
