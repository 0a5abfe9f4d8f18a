// Package worker serves authorization requests from the event bus.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/warden/internal/domain"
)

// Evaluator authorizes one transaction.
type Evaluator interface {
	Evaluate(ctx context.Context, tx *domain.TransactionContext) (*domain.EvaluationResult, error)
}

// HistoryRecorder appends settled transactions to history.
type HistoryRecorder interface {
	RecordTransaction(ctx context.Context, tx *domain.CompletedTransaction) error
}

// ErrorReply is sent back when a request cannot be answered with a decision.
// Approved is always false so callers that only read it fail closed.
type ErrorReply struct {
	Error    string `json:"error"`
	Approved bool   `json:"approved"`
}

// Worker answers authorization requests and records settled transactions.
type Worker struct {
	bus       domain.EventBus
	evaluator Evaluator
	history   HistoryRecorder

	mu            sync.Mutex
	subscriptions []domain.Subscription
}

// NewWorker creates a worker. A nil history disables the completed-transaction feed.
func NewWorker(bus domain.EventBus, evaluator Evaluator, history HistoryRecorder) *Worker {
	return &Worker{
		bus:       bus,
		evaluator: evaluator,
		history:   history,
	}
}

// Start subscribes to the worker's topics.
func (w *Worker) Start(ctx context.Context) error {
	sub, err := w.bus.Subscribe(ctx, domain.TopicAuthorize, w.handleAuthorize)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", domain.TopicAuthorize, err)
	}
	w.track(sub)

	if w.history != nil {
		sub, err := w.bus.Subscribe(ctx, domain.TopicTransactionCompleted, w.handleCompleted)
		if err != nil {
			w.Stop()
			return fmt.Errorf("subscribe %s: %w", domain.TopicTransactionCompleted, err)
		}
		w.track(sub)
	}

	slog.Info("worker started",
		"topics", w.GetStats().Topics,
	)
	return nil
}

// Run starts the worker and blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Stop()
}

func (w *Worker) track(sub domain.Subscription) {
	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, sub)
	w.mu.Unlock()
}

// handleAuthorize decodes a transaction, evaluates it and replies with the
// decision. Anything that prevents a decision is answered with an ErrorReply.
func (w *Worker) handleAuthorize(ctx context.Context, msg *domain.Message) ([]byte, error) {
	start := time.Now()

	var tx domain.TransactionContext
	if err := json.Unmarshal(msg.Payload, &tx); err != nil {
		slog.Error("failed to parse authorization request",
			"message_id", msg.ID,
			"error", err,
		)
		return errorReply(fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
	}

	res, err := w.evaluator.Evaluate(ctx, &tx)
	if err != nil {
		slog.Error("authorization failed",
			"tx_id", tx.ID,
			"program", tx.Program,
			"error", err,
		)
		return errorReply(err)
	}

	reply, err := json.Marshal(res)
	if err != nil {
		return errorReply(err)
	}

	slog.Info("transaction authorized",
		"tx_id", tx.ID,
		"program", tx.Program,
		"approved", res.Approved,
		"risk_score", res.RiskScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return reply, nil
}

// handleCompleted appends a settled transaction to history.
func (w *Worker) handleCompleted(ctx context.Context, msg *domain.Message) ([]byte, error) {
	var tx domain.CompletedTransaction
	if err := json.Unmarshal(msg.Payload, &tx); err != nil {
		return nil, fmt.Errorf("%w: completed transaction: %v", domain.ErrInvalidInput, err)
	}
	if tx.Status == "" {
		tx.Status = domain.TxStatusCompleted
	}
	if err := w.history.RecordTransaction(ctx, &tx); err != nil {
		return nil, fmt.Errorf("record transaction %s: %w", tx.ID, err)
	}

	slog.Debug("transaction recorded",
		"tx_id", tx.ID,
		"wallet_id", tx.WalletID,
		"amount", tx.Amount,
	)
	return nil, nil
}

func errorReply(err error) ([]byte, error) {
	data, _ := json.Marshal(ErrorReply{Error: err.Error()})
	return data, err
}

// Stop unsubscribes from every topic.
func (w *Worker) Stop() error {
	w.mu.Lock()
	subs := w.subscriptions
	w.subscriptions = nil
	w.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
			errs = append(errs, err)
		}
	}

	slog.Info("worker stopped")
	return errors.Join(errs...)
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
