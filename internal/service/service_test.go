package service

import (
	"testing"

	"github.com/alcyxob/planmarket/internal/logger"
)

// threeWeekPlan has three weeks, each with two workout days and one rest day.
const threeWeekPlan = `{"schemaVersion":1,"weeks":[
 {"id":"w1","title":"Base","days":[
  {"id":"d1","type":"workout","title":"Push","duration":45,"exercises":[{"name":"Bench","sets":4,"reps":"8","weight":"60kg"}]},
  {"id":"d2","type":"workout","title":"Pull","duration":45},
  {"id":"d3","type":"rest","title":"Off"}]},
 {"id":"w2","title":"Build","days":[
  {"id":"d1","type":"workout"},{"id":"d2","type":"workout"},{"id":"d3","type":"rest"}]},
 {"id":"w3","title":"Peak","days":[
  {"id":"d1","type":"workout"},{"id":"d2","type":"workout"},{"id":"d3","type":"rest"}]}
]}`

const restOnlyPlan = `{"schemaVersion":1,"weeks":[{"id":"w1","title":"Deload","days":[{"id":"d1","type":"rest"}]}]}`

type fixture struct {
	store     *memStore
	tx        *memTx
	processor *mockProcessor
	guard     *memGuard
	archive   *memArchive

	entitlements EntitlementService
	checkout     CheckoutService
	events       PaymentEventService
	plans        PlanService
	progress     ProgressService
	reviews      ReviewService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	log := logger.Nop()
	f := &fixture{
		store:     store,
		tx:        &memTx{store: store},
		processor: &mockProcessor{},
		guard:     newMemGuard(),
		archive:   &memArchive{},
	}

	users := memUserRepo{store}
	plans := memPlanRepo{store}
	purchases := memPurchaseRepo{store}
	completions := memCompletionRepo{store}
	reviews := memReviewRepo{store}

	f.entitlements = NewEntitlementService(purchases, log)
	f.checkout = NewCheckoutService(plans, f.entitlements, f.processor, log)
	f.events = NewPaymentEventService(f.processor, plans, f.entitlements, f.guard, log)
	f.plans = NewPlanService(plans, users, f.entitlements, f.archive, log)
	f.progress = NewProgressService(plans, completions, f.entitlements, log)
	f.reviews = NewReviewService(f.tx, reviews, plans, users, purchases, log)

	t.Cleanup(func() { f.processor.AssertExpectations(t) })
	return f
}
