package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/opensource-finance/warden/internal/bus"
	"github.com/opensource-finance/warden/internal/domain"
)

// stubEvaluator approves everything except the SNAP bar code, and fails for
// the program named "DOWN".
type stubEvaluator struct{}

func (stubEvaluator) Evaluate(ctx context.Context, tx *domain.TransactionContext) (*domain.EvaluationResult, error) {
	if tx.Program == "DOWN" {
		return nil, fmt.Errorf("%w: connection refused", domain.ErrRepositoryUnavailable)
	}
	res := &domain.EvaluationResult{
		TransactionID:   tx.ID,
		Approved:        true,
		Reasons:         []string{},
		AppliedRules:    []domain.AppliedRule{},
		RequiredActions: []string{},
	}
	if tx.MerchantCategoryCode == "5813" {
		res.Approved = false
		res.Reasons = []string{"MCC 5813 (Drinking Places) not allowed for SNAP"}
		res.RiskScore = 80
	}
	return res, nil
}

type memoryHistory struct {
	mu  sync.Mutex
	txs []domain.CompletedTransaction
	err error
}

func (m *memoryHistory) RecordTransaction(ctx context.Context, tx *domain.CompletedTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.txs = append(m.txs, *tx)
	return nil
}

func (m *memoryHistory) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

func TestWorker(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	ctx := context.Background()

	t.Run("StartAndStop", func(t *testing.T) {
		w := NewWorker(eventBus, stubEvaluator{}, &memoryHistory{})
		if err := w.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		stats := w.GetStats()
		if stats.SubscriptionCount != 2 {
			t.Errorf("expected 2 subscriptions, got %d", stats.SubscriptionCount)
		}

		if err := w.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
		if n := w.GetStats().SubscriptionCount; n != 0 {
			t.Errorf("expected 0 subscriptions after stop, got %d", n)
		}
	})

	t.Run("NoHistoryFeed", func(t *testing.T) {
		w := NewWorker(eventBus, stubEvaluator{}, nil)
		if err := w.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		stats := w.GetStats()
		if stats.SubscriptionCount != 1 || stats.Topics[0] != domain.TopicAuthorize {
			t.Errorf("expected only %s, got %v", domain.TopicAuthorize, stats.Topics)
		}
	})

	t.Run("AuthorizeRequestReply", func(t *testing.T) {
		w := NewWorker(eventBus, stubEvaluator{}, nil)
		if err := w.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		payload, _ := json.Marshal(domain.TransactionContext{
			ID:                   "tx-001",
			Program:              "SNAP",
			Amount:               25,
			MerchantCategoryCode: "5813",
		})

		rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		reply, err := eventBus.Request(rctx, domain.TopicAuthorize, payload)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}

		var res domain.EvaluationResult
		if err := json.Unmarshal(reply, &res); err != nil {
			t.Fatalf("failed to parse reply: %v", err)
		}
		if res.TransactionID != "tx-001" {
			t.Errorf("expected transaction 'tx-001', got '%s'", res.TransactionID)
		}
		if res.Approved {
			t.Error("expected bar purchase to be denied")
		}
		if res.RiskScore != 80 {
			t.Errorf("expected risk 80, got %d", res.RiskScore)
		}
	})
}

func TestHandleAuthorizeErrors(t *testing.T) {
	w := NewWorker(nil, stubEvaluator{}, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		payload []byte
		wantErr error
	}{
		{"Malformed", []byte("{not json"), domain.ErrInvalidInput},
		{"RepositoryDown", mustJSON(t, domain.TransactionContext{ID: "tx", Program: "DOWN"}), domain.ErrRepositoryUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := w.handleAuthorize(ctx, &domain.Message{ID: "m1", Payload: tt.payload})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}

			var er ErrorReply
			if err := json.Unmarshal(reply, &er); err != nil {
				t.Fatalf("failed to parse error reply: %v", err)
			}
			if er.Approved {
				t.Error("error reply must not approve")
			}
			if er.Error == "" {
				t.Error("expected error message in reply")
			}
		})
	}
}

func TestHandleCompleted(t *testing.T) {
	ctx := context.Background()
	history := &memoryHistory{}
	w := NewWorker(nil, stubEvaluator{}, history)

	payload := mustJSON(t, domain.CompletedTransaction{
		ID:       "tx-9",
		WalletID: "wallet-1",
		Program:  "TANF",
		MCC:      "6011",
		Amount:   200,
	})
	if _, err := w.handleCompleted(ctx, &domain.Message{Payload: payload}); err != nil {
		t.Fatalf("handleCompleted failed: %v", err)
	}
	if history.len() != 1 {
		t.Fatalf("expected 1 recorded transaction, got %d", history.len())
	}
	if got := history.txs[0].Status; got != domain.TxStatusCompleted {
		t.Errorf("expected status %q, got %q", domain.TxStatusCompleted, got)
	}

	if _, err := w.handleCompleted(ctx, &domain.Message{Payload: []byte("[")}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	history.err = errors.New("disk full")
	if _, err := w.handleCompleted(ctx, &domain.Message{Payload: payload}); err == nil {
		t.Error("expected store failure to surface")
	}
}

func TestCompletedFeedOverBus(t *testing.T) {
	eventBus := bus.NewChannelBus(10)
	defer eventBus.Close()

	history := &memoryHistory{}
	w := NewWorker(eventBus, stubEvaluator{}, history)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	payload := mustJSON(t, domain.CompletedTransaction{ID: "tx-1", WalletID: "w", Amount: 10})
	if err := eventBus.Publish(context.Background(), domain.TopicTransactionCompleted, payload); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for history.len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if history.len() != 1 {
		t.Errorf("expected transaction to be recorded, got %d", history.len())
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}
