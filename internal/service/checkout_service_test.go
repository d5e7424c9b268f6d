package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alcyxob/planmarket/internal/domain"
	"github.com/alcyxob/planmarket/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStartCheckout_ReturnsProcessorToken(t *testing.T) {
	f := newFixture(t)
	user := f.store.addUser(domain.RoleMember)
	plan := f.store.addPlan(primitive.NewObjectID(), threeWeekPlan, true)

	f.processor.On("CreateCheckout", mock.Anything, payment.CheckoutRequest{
		PriceID: "pri_test", UserID: user.ID.Hex(), PlanID: plan.ID.Hex(),
	}).Return(&payment.Checkout{TransactionID: "txn_123", URL: "https://pay.example/txn_123"}, nil).Once()

	session, err := f.checkout.StartCheckout(context.Background(), user.ID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, "txn_123", session.Token)
	assert.Equal(t, "https://pay.example/txn_123", session.URL)
	assert.Equal(t, 0, f.store.purchaseCount(), "checkout never writes entitlements")
}

func TestStartCheckout_AlreadyOwnedNeverReachesProcessor(t *testing.T) {
	f := newFixture(t)
	user := f.store.addUser(domain.RoleMember)
	plan := f.store.addPlan(primitive.NewObjectID(), threeWeekPlan, true)
	f.store.addPurchase(user.ID, plan.ID)

	_, err := f.checkout.StartCheckout(context.Background(), user.ID, plan.ID)
	assert.ErrorIs(t, err, ErrAlreadyOwned)
	f.processor.AssertNotCalled(t, "CreateCheckout", mock.Anything, mock.Anything)
}

func TestStartCheckout_PlanNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.checkout.StartCheckout(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrPlanNotFound)

	draft := f.store.addPlan(primitive.NewObjectID(), threeWeekPlan, false)
	_, err = f.checkout.StartCheckout(context.Background(), primitive.NewObjectID(), draft.ID)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestStartCheckout_UpstreamFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	plan := f.store.addPlan(primitive.NewObjectID(), threeWeekPlan, true)
	userID := primitive.NewObjectID()

	f.processor.On("CreateCheckout", mock.Anything, mock.Anything).
		Return(nil, errors.Join(payment.ErrUpstream, context.DeadlineExceeded)).Once()

	_, err := f.checkout.StartCheckout(context.Background(), userID, plan.ID)
	require.Error(t, err)
	assert.Equal(t, KindUpstream, KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The user may simply retry.
	f.processor.On("CreateCheckout", mock.Anything, mock.Anything).
		Return(&payment.Checkout{TransactionID: "txn_retry"}, nil).Once()
	session, err := f.checkout.StartCheckout(context.Background(), userID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, "txn_retry", session.Token)
}
