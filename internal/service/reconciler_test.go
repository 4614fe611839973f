package service

import (
	"context"
	"testing"
	"time"

	"github.com/ordernotify/whatsapp-dispatch/internal/domain"
)

func newReconcilerFixture(t *testing.T) (*Reconciler, *memMessageRepo, *domain.Message) {
	t.Helper()

	repo := newMemMessageRepo()
	d := newTestDispatcher(t, repo, orderConfirmationResolver(), okProvider())

	msg, err := d.SendRaw(context.Background(), RawSend{Destination: "+15551234567", Body: "hello"})
	if err != nil {
		t.Fatalf("SendRaw() error = %v", err)
	}
	if msg.Status != domain.StatusSent {
		t.Fatalf("fixture status = %s, want sent", msg.Status)
	}

	r, err := NewReconciler(repo, nil)
	if err != nil {
		t.Fatalf("NewReconciler() error = %v", err)
	}
	return r, repo, msg
}

func TestReconciler_AppliesDeliveredThenRead(t *testing.T) {
	t.Parallel()

	r, repo, msg := newReconcilerFixture(t)
	deliveredAt := msg.LastStatusAt.Add(time.Minute)

	outcome := r.Process(context.Background(), ProviderStatusEvent{
		ProviderMessageID: *msg.ProviderMessageID,
		Status:            "delivered",
		Timestamp:         deliveredAt,
	})
	if outcome != OutcomeApplied {
		t.Fatalf("outcome = %s, want applied", outcome)
	}

	outcome = r.Process(context.Background(), ProviderStatusEvent{
		ProviderMessageID: *msg.ProviderMessageID,
		Status:            "read",
		Timestamp:         deliveredAt.Add(time.Minute),
	})
	if outcome != OutcomeApplied {
		t.Fatalf("outcome = %s, want applied", outcome)
	}

	stored, _ := repo.GetByID(context.Background(), msg.ID)
	if stored.Status != domain.StatusRead {
		t.Fatalf("status = %s, want read", stored.Status)
	}
	// pending, sent, delivered, read
	if len(stored.History) != 4 {
		t.Fatalf("history length = %d, want 4", len(stored.History))
	}
}

func TestReconciler_DuplicateReplayIsIdempotent(t *testing.T) {
	t.Parallel()

	r, repo, msg := newReconcilerFixture(t)
	deliveredAt := msg.LastStatusAt.Add(time.Minute)
	event := ProviderStatusEvent{
		ProviderMessageID: *msg.ProviderMessageID,
		Status:            "delivered",
		Timestamp:         deliveredAt,
	}

	if outcome := r.Process(context.Background(), event); outcome != OutcomeApplied {
		t.Fatalf("first outcome = %s, want applied", outcome)
	}
	if outcome := r.Process(context.Background(), event); outcome != OutcomeDuplicate {
		t.Fatalf("replay outcome = %s, want duplicate", outcome)
	}

	stored, _ := repo.GetByID(context.Background(), msg.ID)
	deliveredEvents := 0
	for _, e := range stored.History {
		if e.Status == domain.StatusDelivered {
			deliveredEvents++
		}
	}
	if deliveredEvents != 1 {
		t.Fatalf("delivered history events = %d, want exactly 1", deliveredEvents)
	}
}

func TestReconciler_AcceptsEqualTimestampTransition(t *testing.T) {
	t.Parallel()

	r, repo, msg := newReconcilerFixture(t)

	// Provider timestamps have second granularity; sent and delivered can
	// share one. Only strictly older events are out of order.
	outcome := r.Process(context.Background(), ProviderStatusEvent{
		ProviderMessageID: *msg.ProviderMessageID,
		Status:            "delivered",
		Timestamp:         msg.LastStatusAt,
	})
	if outcome != OutcomeApplied {
		t.Fatalf("outcome = %s, want applied for an equal-timestamp legal transition", outcome)
	}

	stored, _ := repo.GetByID(context.Background(), msg.ID)
	if stored.Status != domain.StatusDelivered {
		t.Fatalf("status = %s, want delivered", stored.Status)
	}
}

func TestReconciler_RejectsOutOfOrderEvent(t *testing.T) {
	t.Parallel()

	r, repo, msg := newReconcilerFixture(t)
	deliveredAt := msg.LastStatusAt.Add(2 * time.Minute)

	if outcome := r.Process(context.Background(), ProviderStatusEvent{
		ProviderMessageID: *msg.ProviderMessageID,
		Status:            "delivered",
		Timestamp:         deliveredAt,
	}); outcome != OutcomeApplied {
		t.Fatalf("outcome = %s, want applied", outcome)
	}

	// A failed event with an older timestamp arrives late.
	outcome := r.Process(context.Background(), ProviderStatusEvent{
		ProviderMessageID: *msg.ProviderMessageID,
		Status:            "failed",
		Timestamp:         deliveredAt.Add(-time.Minute),
	})
	if outcome != OutcomeOutOfOrder {
		t.Fatalf("outcome = %s, want out_of_order", outcome)
	}

	stored, _ := repo.GetByID(context.Background(), msg.ID)
	if stored.Status != domain.StatusDelivered {
		t.Fatalf("status = %s, want delivered untouched", stored.Status)
	}
}

func TestReconciler_RejectsIllegalTransition(t *testing.T) {
	t.Parallel()

	repo := newMemMessageRepo()
	providerID := "wamid.PENDING"
	pending := &domain.Message{
		ID:                "m-pending",
		Destination:       "+15551234567",
		Body:              "hello",
		Status:            domain.StatusPending,
		ProviderMessageID: &providerID,
		AttemptCount:      1,
		LastStatusAt:      time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
	}
	if err := repo.Create(context.Background(), pending); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	r, err := NewReconciler(repo, nil)
	if err != nil {
		t.Fatalf("NewReconciler() error = %v", err)
	}

	// read requires delivered first; pending -> read skips the graph.
	outcome := r.Process(context.Background(), ProviderStatusEvent{
		ProviderMessageID: providerID,
		Status:            "read",
		Timestamp:         pending.LastStatusAt.Add(time.Minute),
	})
	if outcome != OutcomeIllegalTransition {
		t.Fatalf("outcome = %s, want illegal_transition", outcome)
	}

	stored, _ := repo.GetByID(context.Background(), "m-pending")
	if stored.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending untouched", stored.Status)
	}
}

func TestReconciler_UnknownMessageAndStatus(t *testing.T) {
	t.Parallel()

	r, _, msg := newReconcilerFixture(t)

	outcome := r.Process(context.Background(), ProviderStatusEvent{
		ProviderMessageID: "wamid.NEVER-SEEN",
		Status:            "delivered",
		Timestamp:         time.Now().UTC(),
	})
	if outcome != OutcomeUnknownMessage {
		t.Fatalf("outcome = %s, want unknown_message", outcome)
	}

	outcome = r.Process(context.Background(), ProviderStatusEvent{
		ProviderMessageID: *msg.ProviderMessageID,
		Status:            "teleported",
		Timestamp:         time.Now().UTC(),
	})
	if outcome != OutcomeUnknownStatus {
		t.Fatalf("outcome = %s, want unknown_status", outcome)
	}
}

func TestReconciler_ProcessBatchIsolatesEvents(t *testing.T) {
	t.Parallel()

	r, repo, msg := newReconcilerFixture(t)
	deliveredAt := msg.LastStatusAt.Add(time.Minute)

	outcomes := r.ProcessBatch(context.Background(), []ProviderStatusEvent{
		{ProviderMessageID: "wamid.NEVER-SEEN", Status: "delivered", Timestamp: deliveredAt},
		{ProviderMessageID: *msg.ProviderMessageID, Status: "bogus", Timestamp: deliveredAt},
		{ProviderMessageID: *msg.ProviderMessageID, Status: "delivered", Timestamp: deliveredAt},
	})

	want := []Outcome{OutcomeUnknownMessage, OutcomeUnknownStatus, OutcomeApplied}
	if len(outcomes) != len(want) {
		t.Fatalf("outcomes length = %d, want %d", len(outcomes), len(want))
	}
	for i := range want {
		if outcomes[i] != want[i] {
			t.Fatalf("outcomes[%d] = %s, want %s", i, outcomes[i], want[i])
		}
	}

	stored, _ := repo.GetByID(context.Background(), msg.ID)
	if stored.Status != domain.StatusDelivered {
		t.Fatalf("status = %s, want delivered", stored.Status)
	}
}

func TestReconciler_SentReplayAfterDeliveryIsRejected(t *testing.T) {
	t.Parallel()

	r, repo, msg := newReconcilerFixture(t)
	deliveredAt := msg.LastStatusAt.Add(time.Minute)

	if outcome := r.Process(context.Background(), ProviderStatusEvent{
		ProviderMessageID: *msg.ProviderMessageID,
		Status:            "delivered",
		Timestamp:         deliveredAt,
	}); outcome != OutcomeApplied {
		t.Fatalf("outcome = %s, want applied", outcome)
	}

	// The provider re-sends the original sent notification after delivery.
	outcome := r.Process(context.Background(), ProviderStatusEvent{
		ProviderMessageID: *msg.ProviderMessageID,
		Status:            "sent",
		Timestamp:         deliveredAt.Add(time.Second),
	})
	if outcome != OutcomeIllegalTransition {
		t.Fatalf("outcome = %s, want illegal_transition", outcome)
	}

	stored, _ := repo.GetByID(context.Background(), msg.ID)
	if stored.Status != domain.StatusDelivered {
		t.Fatalf("status = %s, want delivered", stored.Status)
	}
}
