package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"orderhub-bot/internal/notify"
	"orderhub-bot/internal/repository"
)

// ReminderConfig holds configuration for the reminder scheduler.
type ReminderConfig struct {
	// Interval is how often the sweep runs. Default: 24 hours.
	Interval time.Duration

	// Window is how far back the sweep looks for orders when deciding
	// who already ordered. Default: 24 hours.
	Window time.Duration
}

// ReminderScheduler periodically compares the full reseller roster
// against the accounts that recently ordered and nudges the rest.
// It only reads the same account/order interfaces the core uses; no
// shared mutable state beyond the store itself.
type ReminderScheduler struct {
	accounts repository.AccountRepository
	orders   repository.OrderRepository
	notifier notify.Sink
	config   ReminderConfig

	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewReminderScheduler creates a reminder scheduler.
func NewReminderScheduler(
	accounts repository.AccountRepository,
	orders repository.OrderRepository,
	notifier notify.Sink,
	config ReminderConfig,
) *ReminderScheduler {
	if config.Interval == 0 {
		config.Interval = 24 * time.Hour
	}
	if config.Window == 0 {
		config.Window = 24 * time.Hour
	}

	return &ReminderScheduler{
		accounts: accounts,
		orders:   orders,
		notifier: notifier,
		config:   config,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the reminder scheduler.
func (s *ReminderScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	log.Printf("[ReminderScheduler] Started - Interval: %v, Window: %v",
		s.config.Interval, s.config.Window)

	go s.run()
}

// run is the main sweep loop.
func (s *ReminderScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			if _, err := s.runSweep(); err != nil {
				log.Printf("[ReminderScheduler] Sweep failed: %v", err)
			}
		case <-s.stopCh:
			log.Printf("[ReminderScheduler] Stopped")
			return
		}
	}
}

// runSweep notifies every roster account without a recent order and
// returns how many reminders were sent.
func (s *ReminderScheduler) runSweep() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	since := time.Now().Add(-s.config.Window)
	ordered, err := s.orders.AccountIDsWithOrdersSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("failed to list ordering accounts: %w", err)
	}

	roster, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list roster: %w", err)
	}

	sent := 0
	for _, acct := range roster {
		if _, ok := ordered[acct.ID]; ok {
			continue
		}
		msg := notify.Message{
			Text: fmt.Sprintf("Hi %s! You have not placed an order today. Send /order to get started.", acct.DisplayName),
		}
		if err := s.notifier.Notify(ctx, acct.ExternalIdentity, msg); err != nil {
			log.Printf("[ReminderScheduler] Reminder to %s failed: %v", acct.ExternalIdentity, err)
			continue
		}
		sent++
	}

	if sent > 0 {
		log.Printf("[ReminderScheduler] Sent %d reminders", sent)
	}
	return sent, nil
}

// Stop stops the reminder scheduler.
func (s *ReminderScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

// RunNow triggers an immediate sweep.
func (s *ReminderScheduler) RunNow() (int, error) {
	return s.runSweep()
}
