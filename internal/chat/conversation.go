package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"orderhub-bot/internal/model"
	"orderhub-bot/internal/notify"
	"orderhub-bot/internal/service"
	"orderhub-bot/internal/session"

	"github.com/shopspring/decimal"
)

// Fulfiller commits a confirmed draft. On failure it returns a
// *service.CommitError describing whether the caller may simply retry.
type Fulfiller interface {
	Commit(ctx context.Context, account *model.Account, lines []model.DraftLine) (*model.Order, error)
}

// FeedbackRecorder stores free-text feedback messages.
type FeedbackRecorder interface {
	Record(ctx context.Context, accountID int64, message string) error
}

// Engine is the per-account conversation state machine. Each account
// has at most one live session; messages for the same account are
// serialized through a per-account lock, so the transport may deliver
// concurrently without cross-talk.
type Engine struct {
	sessions session.Store
	resolver *Resolver
	fulfill  Fulfiller
	feedback FeedbackRecorder
	notifier notify.Sink

	locks accountLocks
}

// NewEngine creates the conversation engine.
func NewEngine(sessions session.Store, resolver *Resolver, fulfill Fulfiller, feedback FeedbackRecorder, notifier notify.Sink) *Engine {
	return &Engine{
		sessions: sessions,
		resolver: resolver,
		fulfill:  fulfill,
		feedback: feedback,
		notifier: notifier,
	}
}

// HandleMessage routes one inbound message through the state machine.
// The returned error is infrastructural (session store failure); every
// user-facing problem is surfaced through the notification sink and the
// session is left in a state the caller can recover from.
func (e *Engine) HandleMessage(ctx context.Context, account *model.Account, text string) error {
	unlock := e.locks.lock(account.ID)
	defer unlock()

	sess, err := e.sessions.Get(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	trimmed := strings.TrimSpace(text)
	if cmd, ok := parseCommand(trimmed); ok {
		return e.handleCommand(ctx, account, sess, cmd)
	}

	if sess == nil {
		// Idle + non-command text is a no-op, not an error.
		return nil
	}

	switch sess.Phase {
	case model.PhaseAwaitingItems:
		return e.handleItems(ctx, account, sess, trimmed)
	case model.PhaseAwaitingConfirmation:
		e.send(ctx, account, notify.Message{
			Text:   "You have an order waiting for confirmation. Reply /confirm to place it, /edit to re-enter items, or /cancel to abort.",
			Markup: confirmMarkup(),
		})
		return nil
	case model.PhaseAwaitingFeedback:
		return e.handleFeedback(ctx, account, trimmed)
	default:
		// Unknown phase in a stored session; drop it rather than wedge
		// the account.
		return e.sessions.Delete(ctx, account.ID)
	}
}

// command is a recognized slash command.
type command string

const (
	cmdOrder    command = "order"
	cmdConfirm  command = "confirm"
	cmdEdit     command = "edit"
	cmdCancel   command = "cancel"
	cmdFeedback command = "feedback"
)

// parseCommand extracts a slash command from the start of a message.
func parseCommand(text string) (command, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	word := strings.Fields(text)[0]
	return command(strings.ToLower(strings.TrimPrefix(word, "/"))), true
}

func (e *Engine) handleCommand(ctx context.Context, account *model.Account, sess *model.Session, cmd command) error {
	switch cmd {
	case cmdOrder:
		// A command mid-flow restarts intake and discards any prior
		// unconfirmed draft. Explicit reset, never a silent merge.
		if err := e.sessions.Put(ctx, &model.Session{
			AccountID: account.ID,
			Phase:     model.PhaseAwaitingItems,
		}); err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}
		e.send(ctx, account, notify.Message{Text: promptItems})
		return nil

	case cmdConfirm:
		if sess == nil || sess.Phase != model.PhaseAwaitingConfirmation {
			e.send(ctx, account, notify.Message{Text: "There is nothing to confirm yet. Send /order to start an order."})
			return nil
		}
		return e.commit(ctx, account, sess)

	case cmdEdit:
		if sess == nil {
			e.send(ctx, account, notify.Message{Text: "No active order. Send /order to start one."})
			return nil
		}
		if err := e.sessions.Put(ctx, &model.Session{
			AccountID: account.ID,
			Phase:     model.PhaseAwaitingItems,
		}); err != nil {
			return fmt.Errorf("failed to reset session: %w", err)
		}
		e.send(ctx, account, notify.Message{Text: promptItems})
		return nil

	case cmdCancel:
		if sess != nil {
			if err := e.sessions.Delete(ctx, account.ID); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
			e.send(ctx, account, notify.Message{Text: "Order cancelled."})
		}
		return nil

	case cmdFeedback:
		if err := e.sessions.Put(ctx, &model.Session{
			AccountID: account.ID,
			Phase:     model.PhaseAwaitingFeedback,
		}); err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}
		e.send(ctx, account, notify.Message{Text: "We are listening. Send your feedback as your next message."})
		return nil

	default:
		// Unrecognized commands are ignored, same as stray text.
		return nil
	}
}

// handleItems parses and resolves an item message. Any parse or
// resolution error keeps the session in AwaitingItems untouched, with
// every problem surfaced in one reply.
func (e *Engine) handleItems(ctx context.Context, account *model.Account, sess *model.Session, text string) error {
	parsed, parseErrs := ParseOrder(text)
	resolved, resolveErrs := e.resolver.Resolve(ctx, parsed)

	if len(parseErrs) > 0 || len(resolveErrs) > 0 || len(resolved) == 0 {
		var b strings.Builder
		b.WriteString("Your order could not be processed:\n")
		for _, pe := range parseErrs {
			fmt.Fprintf(&b, "- %s\n", pe.Error())
		}
		for _, re := range resolveErrs {
			fmt.Fprintf(&b, "- %s\n", re.Error())
		}
		if len(parseErrs) == 0 && len(resolveErrs) == 0 {
			b.Reset()
			b.WriteString("I did not find any items in that message.\n")
		}
		b.WriteString("Please resend your items as: name,quantity; name,quantity")
		e.send(ctx, account, notify.Message{Text: b.String()})
		return nil
	}

	sess.Phase = model.PhaseAwaitingConfirmation
	sess.Draft = resolved
	if err := e.sessions.Put(ctx, sess); err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}

	e.send(ctx, account, notify.Message{
		Text:   summarize(resolved),
		Markup: confirmMarkup(),
	})
	return nil
}

// commit runs the fulfillment transaction. On success the session is
// destroyed; on any failure it stays at AwaitingConfirmation with the
// draft intact so the caller may retry without re-entering the order.
func (e *Engine) commit(ctx context.Context, account *model.Account, sess *model.Session) error {
	order, err := e.fulfill.Commit(ctx, account, sess.Draft)
	if err != nil {
		var ce *service.CommitError
		if errors.As(err, &ce) && ce.Reason == service.CommitStockChanged {
			var b strings.Builder
			b.WriteString("Stock changed while you were confirming:\n")
			for _, l := range ce.Offending {
				fmt.Fprintf(&b, "- %s (available: %d)\n", l.Name, l.Remaining)
			}
			b.WriteString("Reply /confirm to retry or /edit to change your order.")
			e.send(ctx, account, notify.Message{Text: b.String()})
			return nil
		}
		log.Printf("[Conversation] Commit failed for account %d: %v", account.ID, err)
		e.send(ctx, account, notify.Message{
			Text: "Something went wrong placing your order. Your draft is safe - reply /confirm to retry or /edit to change it.",
		})
		return nil
	}

	if err := e.sessions.Delete(ctx, account.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	e.send(ctx, account, notify.Message{
		Text: fmt.Sprintf("Order %s placed! Total: %s. Thank you.", order.Reference, order.TotalAmount.StringFixed(2)),
	})
	return nil
}

// handleFeedback records the message and returns the account to Idle.
func (e *Engine) handleFeedback(ctx context.Context, account *model.Account, text string) error {
	if err := e.feedback.Record(ctx, account.ID, text); err != nil {
		log.Printf("[Conversation] Failed to record feedback for account %d: %v", account.ID, err)
		e.send(ctx, account, notify.Message{Text: "Could not save your feedback, please try again."})
		return nil
	}
	if err := e.sessions.Delete(ctx, account.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	e.send(ctx, account, notify.Message{Text: "Thanks for the feedback!"})
	return nil
}

const promptItems = "What would you like to order? Send items as: name,quantity; name,quantity"

// summarize renders the confirmation summary with a 2-decimal total.
func summarize(lines []model.DraftLine) string {
	var b strings.Builder
	b.WriteString("Order summary:\n")
	total := decimal.Zero
	for i, line := range lines {
		lineTotal := line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity))
		total = total.Add(lineTotal)
		fmt.Fprintf(&b, "%d. %s x%d @ %s = %s\n",
			i+1, line.Name, line.Quantity,
			line.UnitPrice.StringFixed(2), lineTotal.Round(2).StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s\n", total.Round(2).StringFixed(2))
	b.WriteString("Reply /confirm to place the order, /edit to re-enter items, or /cancel to abort.")
	return b.String()
}

func confirmMarkup() map[string]interface{} {
	return map[string]interface{}{
		"buttons": []string{"/confirm", "/edit", "/cancel"},
	}
}

// send delivers a notification, logging failures. Delivery is
// fire-and-forget by contract; a dropped message never mutates state.
func (e *Engine) send(ctx context.Context, account *model.Account, msg notify.Message) {
	if err := e.notifier.Notify(ctx, account.ExternalIdentity, msg); err != nil {
		log.Printf("[Conversation] Notification to %s failed: %v", account.ExternalIdentity, err)
	}
}

// accountLocks serializes message handling per account.
type accountLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// lock acquires the account's mutex, creating it on first use, and
// returns the unlock func.
func (l *accountLocks) lock(accountID int64) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int64]*sync.Mutex)
	}
	m, ok := l.locks[accountID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[accountID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
