package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alcyxob/planmarket/internal/domain"
	"github.com/alcyxob/planmarket/internal/payment"
	"github.com/alcyxob/planmarket/internal/repository"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type pairKey struct {
	userID primitive.ObjectID
	planID primitive.ObjectID
}

type completionKey struct {
	pairKey
	weekID string
	dayID  string
}

// memStore is an in-memory stand-in for the database. memTx gives it
// serializable transactions with rollback.
type memStore struct {
	mu          sync.Mutex
	users       map[primitive.ObjectID]domain.User
	plans       map[primitive.ObjectID]domain.Plan
	purchases   map[pairKey]domain.Purchase
	completions map[completionKey]domain.Completion
	reviews     map[pairKey]domain.Review

	// fault injection
	insertPurchaseErr error
	userAggregateErr  error
	addArchivedErr    error
	clock             time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[primitive.ObjectID]domain.User{},
		plans:       map[primitive.ObjectID]domain.Plan{},
		purchases:   map[pairKey]domain.Purchase{},
		completions: map[completionKey]domain.Completion{},
		reviews:     map[pairKey]domain.Review{},
		clock:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// now returns a strictly increasing timestamp so orderings are stable.
func (s *memStore) now() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

type memSnapshot struct {
	users       map[primitive.ObjectID]domain.User
	plans       map[primitive.ObjectID]domain.Plan
	purchases   map[pairKey]domain.Purchase
	completions map[completionKey]domain.Completion
	reviews     map[pairKey]domain.Review
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		users:       copyMap(s.users),
		plans:       copyMap(s.plans),
		purchases:   copyMap(s.purchases),
		completions: copyMap(s.completions),
		reviews:     copyMap(s.reviews),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.plans = snap.plans
	s.purchases = snap.purchases
	s.completions = snap.completions
	s.reviews = snap.reviews
}

func (s *memStore) addUser(role domain.Role) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := domain.User{ID: primitive.NewObjectID(), Name: string(role), Email: primitive.NewObjectID().Hex() + "@example.com", Role: role}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addPlan(creatorID primitive.ObjectID, raw string, published bool) domain.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := domain.Plan{
		ID:             primitive.NewObjectID(),
		CreatorID:      creatorID,
		Slug:           "plan-" + primitive.NewObjectID().Hex(),
		Title:          "Plan",
		Price:          domain.MustDecimal("20.00"),
		Currency:       "USD",
		PaddlePriceID:  "pri_test",
		IsPublished:    published,
		Content:        raw,
		SchemaVersion:  1,
		ContentVersion: 1,
	}
	s.plans[p.ID] = p
	return p
}

func (s *memStore) addPurchase(userID, planID primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchases[pairKey{userID, planID}] = domain.Purchase{
		ID: primitive.NewObjectID(), UserID: userID, PlanID: planID,
		Amount: domain.MustDecimal("20.00"), Currency: "USD", ExternalTxID: "txn_seed", CreatedAt: s.now(),
	}
}

func (s *memStore) purchaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.purchases)
}

func (s *memStore) plan(id primitive.ObjectID) domain.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plans[id]
}

func (s *memStore) user(id primitive.ObjectID) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

// --- TxRunner ---

type memTx struct {
	store *memStore
	mu    sync.Mutex
	runs  int
}

func (t *memTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs++
	snap := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// --- UserRepository ---

type memUserRepo struct{ *memStore }

func (r memUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r memUserRepo) SetRatingAggregate(_ context.Context, id primitive.ObjectID, avg domain.Decimal, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.userAggregateErr != nil {
		return r.userAggregateErr
	}
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.AvgRating = avg
	u.NoReviews = count
	r.users[id] = u
	return nil
}

// --- PlanRepository ---

type memPlanRepo struct{ *memStore }

func (r memPlanRepo) Create(_ context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.plans {
		if p.CreatorID == plan.CreatorID && p.Slug == plan.Slug {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	plan.ID = primitive.NewObjectID()
	plan.CreatedAt = r.now()
	plan.UpdatedAt = plan.CreatedAt
	r.plans[plan.ID] = *plan
	return plan.ID, nil
}

func (r memPlanRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r memPlanRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Plan{}
	for _, id := range ids {
		if p, ok := r.plans[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memPlanRepo) ListIDsByCreator(_ context.Context, creatorID primitive.ObjectID) ([]primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []primitive.ObjectID
	for id, p := range r.plans {
		if p.CreatorID == creatorID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r memPlanRepo) Update(_ context.Context, plan *domain.Plan, expectedContentVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.plans[plan.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.ContentVersion != expectedContentVersion {
		return repository.ErrStale
	}
	for id, p := range r.plans {
		if id != plan.ID && p.CreatorID == stored.CreatorID && p.Slug == plan.Slug {
			return repository.ErrDuplicate
		}
	}
	updated := *plan
	updated.CreatorID = stored.CreatorID
	updated.CreatedAt = stored.CreatedAt
	updated.AvgRating = stored.AvgRating
	updated.NoReviews = stored.NoReviews
	updated.IsPublished = stored.IsPublished
	updated.ArchivedVersions = stored.ArchivedVersions
	updated.UpdatedAt = r.now()
	r.plans[plan.ID] = updated
	return nil
}

func (r memPlanRepo) AddArchivedVersion(_ context.Context, planID primitive.ObjectID, archived domain.ArchivedContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[planID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.addArchivedErr != nil {
		return r.addArchivedErr
	}
	p.ArchivedVersions = append(append([]domain.ArchivedContent{}, p.ArchivedVersions...), archived)
	r.plans[planID] = p
	return nil
}

func (r memPlanRepo) SetPublished(_ context.Context, id primitive.ObjectID, published bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.IsPublished = published
	r.plans[id] = p
	return nil
}

func (r memPlanRepo) SetRatingAggregate(_ context.Context, id primitive.ObjectID, avg domain.Decimal, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.AvgRating = avg
	p.NoReviews = count
	r.plans[id] = p
	return nil
}

// --- PurchaseRepository ---

type memPurchaseRepo struct{ *memStore }

func (r memPurchaseRepo) Exists(_ context.Context, userID, planID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.purchases[pairKey{userID, planID}]
	return ok, nil
}

func (r memPurchaseRepo) InsertIfAbsent(_ context.Context, p *domain.Purchase) (repository.InsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertPurchaseErr != nil {
		return 0, r.insertPurchaseErr
	}
	key := pairKey{p.UserID, p.PlanID}
	if _, ok := r.purchases[key]; ok {
		return repository.AlreadyExists, nil
	}
	p.ID = primitive.NewObjectID()
	p.CreatedAt = r.now()
	r.purchases[key] = *p
	return repository.Created, nil
}

func (r memPurchaseRepo) Get(_ context.Context, userID, planID primitive.ObjectID) (*domain.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.purchases[pairKey{userID, planID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r memPurchaseRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]domain.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Purchase{}
	for k, p := range r.purchases {
		if k.userID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- CompletionRepository ---

type memCompletionRepo struct{ *memStore }

func (r memCompletionRepo) InsertIfAbsent(_ context.Context, c *domain.Completion) (repository.InsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := completionKey{pairKey{c.UserID, c.PlanID}, c.WeekID, c.DayID}
	if _, ok := r.completions[key]; ok {
		return repository.AlreadyExists, nil
	}
	c.ID = primitive.NewObjectID()
	c.CompletedAt = r.now()
	r.completions[key] = *c
	return repository.Created, nil
}

func (r memCompletionRepo) Delete(_ context.Context, userID, planID primitive.ObjectID, weekID, dayID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := completionKey{pairKey{userID, planID}, weekID, dayID}
	_, ok := r.completions[key]
	delete(r.completions, key)
	return ok, nil
}

func (r memCompletionRepo) ListByUserAndPlan(_ context.Context, userID, planID primitive.ObjectID) ([]domain.Completion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Completion{}
	for k, c := range r.completions {
		if k.userID == userID && k.planID == planID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.Before(out[j].CompletedAt) })
	return out, nil
}

// --- ReviewRepository ---

type memReviewRepo struct{ *memStore }

func (r memReviewRepo) Create(_ context.Context, review *domain.Review) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey{review.UserID, review.PlanID}
	if _, ok := r.reviews[key]; ok {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	review.ID = primitive.NewObjectID()
	review.CreatedAt = r.now()
	review.UpdatedAt = review.CreatedAt
	r.reviews[key] = *review
	return review.ID, nil
}

func (r memReviewRepo) Get(_ context.Context, userID, planID primitive.ObjectID) (*domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.reviews[pairKey{userID, planID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rv, nil
}

func (r memReviewRepo) Update(_ context.Context, review *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey{review.UserID, review.PlanID}
	stored, ok := r.reviews[key]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Rating = review.Rating
	stored.Comment = review.Comment
	stored.UpdatedAt = r.now()
	r.reviews[key] = stored
	review.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r memReviewRepo) Delete(_ context.Context, userID, planID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey{userID, planID}
	if _, ok := r.reviews[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.reviews, key)
	return nil
}

func (r memReviewRepo) ListByPlan(_ context.Context, planID primitive.ObjectID, limit int64) ([]domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Review{}
	for k, rv := range r.reviews {
		if k.planID == planID {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memReviewRepo) StatsForPlans(_ context.Context, planIDs []primitive.ObjectID) (domain.RatingStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[primitive.ObjectID]bool, len(planIDs))
	for _, id := range planIDs {
		want[id] = true
	}
	var stats domain.RatingStats
	for k, rv := range r.reviews {
		if want[k.planID] {
			stats.Sum += int64(rv.Rating)
			stats.Count++
		}
	}
	return stats, nil
}

// --- payment.Processor ---

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	args := m.Called(ctx, req)
	checkout, _ := args.Get(0).(*payment.Checkout)
	return checkout, args.Error(1)
}

func (m *mockProcessor) ParseWebhook(ctx context.Context, payload []byte, signature string) (payment.Event, error) {
	args := m.Called(ctx, payload, signature)
	event, _ := args.Get(0).(payment.Event)
	return event, args.Error(1)
}

// --- EventGuard ---

type memGuard struct {
	mu     sync.Mutex
	seen   map[string]bool
	marked []string
	err    error
	onMark func(eventID string)
}

func newMemGuard() *memGuard { return &memGuard{seen: map[string]bool{}} }

func (g *memGuard) Seen(_ context.Context, eventID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	return g.seen[eventID], nil
}

func (g *memGuard) Mark(_ context.Context, eventID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	if g.onMark != nil {
		g.onMark(eventID)
	}
	g.seen[eventID] = true
	g.marked = append(g.marked, eventID)
	return nil
}

// --- ContentArchiver ---

type archiveCall struct {
	planID  string
	version int
	raw     string
}

type memArchive struct {
	mu        sync.Mutex
	calls     []archiveCall
	discarded []string
	err       error
	seq       int
}

func (a *memArchive) Archive(_ context.Context, planID string, version int, raw string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.seq++
	a.calls = append(a.calls, archiveCall{planID, version, raw})
	return fmt.Sprintf("plans/%s/content/v%d-%d.json", planID, version, a.seq), nil
}

func (a *memArchive) DownloadURL(_ context.Context, key string) (string, error) {
	return "https://archive.example/" + key + "?signed=1", nil
}

func (a *memArchive) Discard(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.discarded = append(a.discarded, key)
	return nil
}
