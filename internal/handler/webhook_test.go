package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"orderhub-bot/internal/catalog"
	"orderhub-bot/internal/chat"
	"orderhub-bot/internal/model"
	"orderhub-bot/internal/notify"
	"orderhub-bot/internal/repository"
	"orderhub-bot/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticRoster knows a single account.
type staticRoster struct {
	account *model.Account
}

func (r *staticRoster) GetByExternalIdentity(ctx context.Context, externalID string) (*model.Account, error) {
	if r.account != nil && r.account.ExternalIdentity == externalID {
		return r.account, nil
	}
	return nil, nil
}

func (r *staticRoster) ListAccounts(ctx context.Context) ([]model.Account, error) {
	if r.account == nil {
		return nil, nil
	}
	return []model.Account{*r.account}, nil
}

func (r *staticRoster) CreateAccount(ctx context.Context, account *model.Account) error {
	return nil
}

var _ repository.AccountRepository = (*staticRoster)(nil)

// emptyCatalog satisfies the resolver with no items.
type emptyCatalog struct{}

func (emptyCatalog) ListItems(ctx context.Context) ([]model.CatalogItem, error) { return nil, nil }
func (emptyCatalog) GetItemByName(ctx context.Context, name string) (*model.CatalogItem, error) {
	return nil, nil
}
func (emptyCatalog) GetItem(ctx context.Context, id int64) (*model.CatalogItem, error) {
	return nil, nil
}
func (emptyCatalog) CreateItem(ctx context.Context, item *model.CatalogItem) error { return nil }
func (emptyCatalog) AdjustStock(ctx context.Context, id int64, delta int64) (int64, error) {
	return 0, nil
}

// noCommit should never be reached in these tests.
type noCommit struct{}

func (noCommit) Commit(ctx context.Context, account *model.Account, lines []model.DraftLine) (*model.Order, error) {
	return nil, nil
}

type noFeedback struct{}

func (noFeedback) Record(ctx context.Context, accountID int64, message string) error { return nil }

type silentSink struct{}

func (silentSink) Notify(ctx context.Context, recipient string, msg notify.Message) error {
	return nil
}

func newChatHandler(t *testing.T, roster *staticRoster) *ChatHandler {
	t.Helper()
	sessions := session.NewMemoryStore(0)
	t.Cleanup(func() { sessions.Close() })

	idx := catalog.NewIndex(catalog.DefaultThreshold)
	resolver := chat.NewResolver(emptyCatalog{}, idx)
	engine := chat.NewEngine(sessions, resolver, noCommit{}, noFeedback{}, silentSink{})
	return NewChatHandler(chat.NewGate(roster), engine)
}

func postInbound(h *ChatHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/inbound", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Inbound(rec, req)
	return rec
}

func TestInboundKnownSenderAccepted(t *testing.T) {
	roster := &staticRoster{account: &model.Account{ID: 1, DisplayName: "Acme", ExternalIdentity: "chat-1"}}
	h := newChatHandler(t, roster)

	rec := postInbound(h, `{"sender":"chat-1","text":"/order"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestInboundUnknownSenderDenied(t *testing.T) {
	h := newChatHandler(t, &staticRoster{})

	rec := postInbound(h, `{"sender":"chat-stranger","text":"/order"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "ACCESS_DENIED")
}

func TestInboundMissingSenderRejected(t *testing.T) {
	h := newChatHandler(t, &staticRoster{})

	rec := postInbound(h, `{"text":"/order"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInboundInvalidJSONRejected(t *testing.T) {
	h := newChatHandler(t, &staticRoster{})

	rec := postInbound(h, `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
