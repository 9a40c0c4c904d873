package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"orderhub-bot/internal/model"
	"orderhub-bot/internal/notify"
	"orderhub-bot/internal/service"
	"orderhub-bot/internal/session"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures notifications for assertions.
type recordingSink struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (s *recordingSink) Notify(ctx context.Context, recipient string, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSink) last(t *testing.T) notify.Message {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.sent)
	return s.sent[len(s.sent)-1]
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// fakeFulfiller lets tests script the commit outcome.
type fakeFulfiller struct {
	commit func(ctx context.Context, account *model.Account, lines []model.DraftLine) (*model.Order, error)
	calls  int
}

func (f *fakeFulfiller) Commit(ctx context.Context, account *model.Account, lines []model.DraftLine) (*model.Order, error) {
	f.calls++
	return f.commit(ctx, account, lines)
}

// fakeFeedback records feedback in memory.
type fakeFeedback struct {
	recorded []string
	fail     bool
}

func (f *fakeFeedback) Record(ctx context.Context, accountID int64, message string) error {
	if f.fail {
		return errors.New("feedback store down")
	}
	f.recorded = append(f.recorded, message)
	return nil
}

type engineFixture struct {
	engine   *Engine
	sessions session.Store
	sink     *recordingSink
	fulfill  *fakeFulfiller
	feedback *fakeFeedback
	account  *model.Account
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	repo := newFakeCatalog()
	repo.add("Paracetamol", 12, "12.50")
	repo.add("Ibuprofen", 50, "8.00")

	sessions := session.NewMemoryStore(0)
	t.Cleanup(func() { sessions.Close() })

	sink := &recordingSink{}
	fulfill := &fakeFulfiller{
		commit: func(ctx context.Context, account *model.Account, lines []model.DraftLine) (*model.Order, error) {
			return &model.Order{
				Reference:   "ORD-test",
				AccountID:   account.ID,
				Status:      model.OrderStatusPending,
				TotalAmount: decimal.RequireFromString("62.50"),
			}, nil
		},
	}
	feedback := &fakeFeedback{}

	engine := NewEngine(sessions, newTestResolver(t, repo), fulfill, feedback, sink)
	return &engineFixture{
		engine:   engine,
		sessions: sessions,
		sink:     sink,
		fulfill:  fulfill,
		feedback: feedback,
		account:  &model.Account{ID: 7, DisplayName: "Acme Pharmacy", ExternalIdentity: "chat-7"},
	}
}

func (f *engineFixture) handle(t *testing.T, text string) {
	t.Helper()
	require.NoError(t, f.engine.HandleMessage(context.Background(), f.account, text))
}

func (f *engineFixture) session(t *testing.T) *model.Session {
	t.Helper()
	sess, err := f.sessions.Get(context.Background(), f.account.ID)
	require.NoError(t, err)
	return sess
}

func TestIdleNonCommandIsNoOp(t *testing.T) {
	f := newEngineFixture(t)

	f.handle(t, "hello there")

	assert.Nil(t, f.session(t))
	assert.Zero(t, f.sink.count())
}

func TestOrderCommandStartsIntake(t *testing.T) {
	f := newEngineFixture(t)

	f.handle(t, "/order")

	sess := f.session(t)
	require.NotNil(t, sess)
	assert.Equal(t, model.PhaseAwaitingItems, sess.Phase)
	assert.Empty(t, sess.Draft)
	assert.Contains(t, f.sink.last(t).Text, "name,quantity")
}

func TestValidItemsMoveToConfirmation(t *testing.T) {
	f := newEngineFixture(t)

	f.handle(t, "/order")
	f.handle(t, "Paracetamol,5")

	sess := f.session(t)
	require.NotNil(t, sess)
	assert.Equal(t, model.PhaseAwaitingConfirmation, sess.Phase)
	require.Len(t, sess.Draft, 1)
	assert.Equal(t, int64(5), sess.Draft[0].Quantity)

	summary := f.sink.last(t)
	assert.Contains(t, summary.Text, "Paracetamol x5 @ 12.50 = 62.50")
	assert.Contains(t, summary.Text, "Total: 62.50")
	assert.NotNil(t, summary.Markup)
}

func TestFuzzyTypoResolvesInFlow(t *testing.T) {
	f := newEngineFixture(t)

	f.handle(t, "/order")
	f.handle(t, "Paracetmol,5")

	sess := f.session(t)
	require.NotNil(t, sess)
	assert.Equal(t, model.PhaseAwaitingConfirmation, sess.Phase)
	assert.Equal(t, "Paracetamol", sess.Draft[0].Name)
}

func TestMalformedSegmentsKeepAwaitingItems(t *testing.T) {
	f := newEngineFixture(t)

	f.handle(t, "/order")
	f.handle(t, "Paracetamol,five; Zzzzzz,2; Ibuprofen,3")

	sess := f.session(t)
	require.NotNil(t, sess)
	assert.Equal(t, model.PhaseAwaitingItems, sess.Phase)
	assert.Empty(t, sess.Draft)

	// All problems surfaced in one reply.
	reply := f.sink.last(t).Text
	assert.Contains(t, reply, "quantity is not a number")
	assert.Contains(t, reply, "Zzzzzz: not found")
}

func TestInsufficientStockSurfacesAvailability(t *testing.T) {
	f := newEngineFixture(t)

	f.handle(t, "/order")
	f.handle(t, "Paracetamol,100")

	sess := f.session(t)
	assert.Equal(t, model.PhaseAwaitingItems, sess.Phase)
	assert.Contains(t, f.sink.last(t).Text, "available: 12")
}

func TestEmptyResolutionKeepsAwaitingItems(t *testing.T) {
	f := newEngineFixture(t)

	f.handle(t, "/order")
	f.handle(t, "just chatting")

	sess := f.session(t)
	require.NotNil(t, sess)
	assert.Equal(t, model.PhaseAwaitingItems, sess.Phase)
}

func TestConfirmCommitsAndDestroysSession(t *testing.T) {
	f := newEngineFixture(t)

	f.handle(t, "/order")
	f.handle(t, "Paracetamol,5")
	f.handle(t, "/confirm")

	assert.Equal(t, 1, f.fulfill.calls)
	assert.Nil(t, f.session(t))
	msg := f.sink.last(t).Text
	assert.Contains(t, msg, "ORD-test")
	assert.Contains(t, msg, "62.50")
}

func TestConfirmWithoutDraftIsRejected(t *testing.T) {
	f := newEngineFixture(t)

	f.handle(t, "/confirm")

	assert.Zero(t, f.fulfill.calls)
	assert.Contains(t, f.sink.last(t).Text, "nothing to confirm")
}

func TestStockChangedKeepsDraftForRetry(t *testing.T) {
	f := newEngineFixture(t)
	f.fulfill.commit = func(ctx context.Context, account *model.Account, lines []model.DraftLine) (*model.Order, error) {
		return nil, &service.CommitError{
			Reason:    service.CommitStockChanged,
			Offending: []model.StockLevel{{CatalogItemID: 1, Name: "Paracetamol", Remaining: 3}},
		}
	}

	f.handle(t, "/order")
	f.handle(t, "Paracetamol,5")
	f.handle(t, "/confirm")

	sess := f.session(t)
	require.NotNil(t, sess)
	assert.Equal(t, model.PhaseAwaitingConfirmation, sess.Phase)
	require.Len(t, sess.Draft, 1)

	reply := f.sink.last(t).Text
	assert.Contains(t, reply, "Stock changed")
	assert.Contains(t, reply, "Paracetamol (available: 3)")
}

func TestPersistenceFailureKeepsDraftForRetry(t *testing.T) {
	f := newEngineFixture(t)
	f.fulfill.commit = func(ctx context.Context, account *model.Account, lines []model.DraftLine) (*model.Order, error) {
		return nil, &service.CommitError{Reason: service.CommitPersistenceFailure, Err: errors.New("db gone")}
	}

	f.handle(t, "/order")
	f.handle(t, "Paracetamol,5")
	f.handle(t, "/confirm")

	sess := f.session(t)
	require.NotNil(t, sess)
	assert.Equal(t, model.PhaseAwaitingConfirmation, sess.Phase)
	require.Len(t, sess.Draft, 1)
	assert.Contains(t, f.sink.last(t).Text, "draft is safe")
}

func TestEditReturnsToItemsWithEmptyDraft(t *testing.T) {
	f := newEngineFixture(t)

	f.handle(t, "/order")
	f.handle(t, "Paracetamol,5")
	f.handle(t, "/edit")

	sess := f.session(t)
	require.NotNil(t, sess)
	assert.Equal(t, model.PhaseAwaitingItems, sess.Phase)
	assert.Empty(t, sess.Draft)
}

func TestOrderCommandMidFlowDiscardsDraft(t *testing.T) {
	f := newEngineFixture(t)

	f.handle(t, "/order")
	f.handle(t, "Paracetamol,5")
	f.handle(t, "/order")

	sess := f.session(t)
	require.NotNil(t, sess)
	assert.Equal(t, model.PhaseAwaitingItems, sess.Phase)
	assert.Empty(t, sess.Draft)
}

func TestCancelDestroysSession(t *testing.T) {
	f := newEngineFixture(t)

	f.handle(t, "/order")
	f.handle(t, "Paracetamol,5")
	f.handle(t, "/cancel")

	assert.Nil(t, f.session(t))
	assert.Contains(t, f.sink.last(t).Text, "cancelled")
}

func TestFeedbackFlow(t *testing.T) {
	f := newEngineFixture(t)

	f.handle(t, "/feedback")
	sess := f.session(t)
	require.NotNil(t, sess)
	assert.Equal(t, model.PhaseAwaitingFeedback, sess.Phase)

	f.handle(t, "delivery was quick, thanks")

	assert.Equal(t, []string{"delivery was quick, thanks"}, f.feedback.recorded)
	assert.Nil(t, f.session(t))
	assert.Contains(t, f.sink.last(t).Text, "Thanks")
}

func TestFeedbackStoreFailureKeepsSession(t *testing.T) {
	f := newEngineFixture(t)
	f.feedback.fail = true

	f.handle(t, "/feedback")
	f.handle(t, "some feedback")

	sess := f.session(t)
	require.NotNil(t, sess)
	assert.Equal(t, model.PhaseAwaitingFeedback, sess.Phase)
}

func TestUnknownCommandIgnored(t *testing.T) {
	f := newEngineFixture(t)

	f.handle(t, "/frobnicate")

	assert.Nil(t, f.session(t))
	assert.Zero(t, f.sink.count())
}

func TestConcurrentAccountsAreIndependent(t *testing.T) {
	f := newEngineFixture(t)
	other := &model.Account{ID: 8, DisplayName: "Other", ExternalIdentity: "chat-8"}

	f.handle(t, "/order")
	require.NoError(t, f.engine.HandleMessage(context.Background(), other, "/order"))
	f.handle(t, "Paracetamol,5")

	// Account 7 advanced; account 8 is still awaiting items.
	assert.Equal(t, model.PhaseAwaitingConfirmation, f.session(t).Phase)

	otherSess, err := f.sessions.Get(context.Background(), other.ID)
	require.NoError(t, err)
	require.NotNil(t, otherSess)
	assert.Equal(t, model.PhaseAwaitingItems, otherSess.Phase)
}
