package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/voucherpool/voucherbot/internal/services/voucher/domain"
	"github.com/voucherpool/voucherbot/internal/transport/forum"
)

func memberPost(topicID int, username, content string) []forum.Post {
	return []forum.Post{{ID: 1, TopicID: topicID, Username: username, Content: content}}
}

func TestHandleMessageIgnoresBotOwnPost(t *testing.T) {
	t.Parallel()

	store := &fakeStore{pool: domain.NewPool()}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	handled, err := driver.HandleMessage(context.Background(), forum.Topic{ID: 10}, memberPost(10, "voucherbot", "anything"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !handled {
		t.Fatal("handled = false, want true for the bot's own post")
	}
	if len(transport.replies) != 0 {
		t.Fatalf("replies = %d, want 0", len(transport.replies))
	}
}

func TestHandleMessageUnknownContentStaysUnhandled(t *testing.T) {
	t.Parallel()

	store := &fakeStore{pool: domain.NewPool()}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	handled, err := driver.HandleMessage(context.Background(), forum.Topic{ID: 10, Title: "hi"}, memberPost(10, "alice", "hello there"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if handled {
		t.Fatal("handled = true, want false for unrecognized content")
	}
}

func TestHandleMessageClaimsReturnedCodePost(t *testing.T) {
	t.Parallel()

	store := &fakeStore{pool: domain.NewPool()}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	handled, err := driver.HandleMessage(context.Background(), forum.Topic{ID: 10}, memberPost(10, "alice", "new code CHAOS42"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !handled {
		t.Fatal("handled = false, want true so no fallback reply lands on a return thread")
	}
	if len(transport.replies) != 0 {
		t.Fatalf("replies = %d, want 0; the poll cycle owns return processing", len(transport.replies))
	}
}

func TestHandleMessageAcceptanceAwardsFirstWinner(t *testing.T) {
	t.Parallel()

	pool := domain.NewPool()
	pool.IngestCodes([]string{"CHAOS123"}, "sponsor", seasonClock)
	pool.Vouchers[0].AddOffer("alice", 501, seasonClock.Add(-4*time.Hour))
	pool.Vouchers[0].AddOffer("bob", 502, seasonClock.Add(-time.Hour))
	pool.Queue = []string{"alice", "bob"}
	store := &fakeStore{pool: pool}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	handled, err := driver.HandleMessage(context.Background(), forum.Topic{ID: 502}, memberPost(502, "bob", "VOUCHER-ACCEPT please"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !handled {
		t.Fatal("handled = false, want true")
	}

	voucher := store.pool.Vouchers[0]
	if voucher.Owner != "bob" {
		t.Fatalf("owner = %q, want bob", voucher.Owner)
	}
	if voucher.MessageID != 502 {
		t.Fatalf("delivery thread = %d, want the acceptance thread 502", voucher.MessageID)
	}
	if len(voucher.OfferedTo) != 2 {
		t.Fatalf("offers after award = %d, want history kept for late acceptances", len(voucher.OfferedTo))
	}
	if got := store.pool.Queue; len(got) != 1 || got[0] != "alice" {
		t.Fatalf("queue = %v, want [alice]", got)
	}

	var deliveredOnThread, lapsedNotified bool
	for _, reply := range transport.replies {
		if reply.TopicID == 502 && strings.Contains(reply.Content, "CHAOS123") {
			deliveredOnThread = true
		}
		if reply.TopicID == 501 {
			lapsedNotified = true
		}
	}
	if !deliveredOnThread {
		t.Fatalf("replies = %+v, want the code on thread 502", transport.replies)
	}
	if !lapsedNotified {
		t.Fatalf("replies = %+v, want a lapse notice on thread 501", transport.replies)
	}
}

func TestHandleMessageAcceptanceLosesRace(t *testing.T) {
	t.Parallel()

	pool := domain.NewPool()
	pool.IngestCodes([]string{"CHAOS123"}, "sponsor", seasonClock)
	pool.Vouchers[0].AddOffer("alice", 501, seasonClock.Add(-4*time.Hour))
	pool.Vouchers[0].AddOffer("bob", 502, seasonClock.Add(-time.Hour))
	pool.Queue = []string{"alice", "bob"}
	store := &fakeStore{pool: pool}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	// bob wins; alice accepts afterwards on her own offer thread.
	if _, err := driver.HandleMessage(context.Background(), forum.Topic{ID: 502}, memberPost(502, "bob", "VOUCHER-ACCEPT")); err != nil {
		t.Fatalf("HandleMessage() winner error = %v", err)
	}
	putsAfterWinner := store.puts
	repliesAfterWinner := len(transport.replies)

	handled, err := driver.HandleMessage(context.Background(), forum.Topic{ID: 501}, memberPost(501, "alice", "VOUCHER-ACCEPT"))
	if err != nil {
		t.Fatalf("HandleMessage() loser error = %v", err)
	}
	if !handled {
		t.Fatal("handled = false, want true so the loser never gets the fallback reply")
	}
	if store.puts != putsAfterWinner {
		t.Fatalf("store writes = %d, want unchanged %d for a lost race", store.puts, putsAfterWinner)
	}
	if got := store.pool.Vouchers[0].Owner; got != "bob" {
		t.Fatalf("owner = %q, want bob", got)
	}
	loserReplies := transport.replies[repliesAfterWinner:]
	if len(loserReplies) != 1 || loserReplies[0].TopicID != 501 {
		t.Fatalf("loser replies = %+v, want exactly one lapse notice on thread 501", loserReplies)
	}
	if strings.Contains(loserReplies[0].Content, "CHAOS123") {
		t.Fatalf("loser reply %q leaks the code", loserReplies[0].Content)
	}
}

func TestHandleMessageConcurrentAcceptancesSingleOwner(t *testing.T) {
	t.Parallel()

	pool := domain.NewPool()
	pool.IngestCodes([]string{"CHAOS123"}, "sponsor", seasonClock)
	pool.Vouchers[0].AddOffer("alice", 501, seasonClock.Add(-4*time.Hour))
	pool.Vouchers[0].AddOffer("bob", 502, seasonClock.Add(-time.Hour))
	pool.Queue = []string{"alice", "bob"}
	store := &fakeStore{pool: pool}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	acceptances := []struct {
		topicID  int
		username string
	}{
		{501, "alice"},
		{502, "bob"},
	}
	var wg sync.WaitGroup
	for _, acceptance := range acceptances {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handled, err := driver.HandleMessage(context.Background(), forum.Topic{ID: acceptance.topicID}, memberPost(acceptance.topicID, acceptance.username, "VOUCHER-ACCEPT"))
			if err != nil {
				t.Errorf("HandleMessage(%s) error = %v", acceptance.username, err)
			}
			if !handled {
				t.Errorf("HandleMessage(%s) handled = false, want true", acceptance.username)
			}
		}()
	}
	wg.Wait()

	owner := store.pool.Vouchers[0].Owner
	if owner != "alice" && owner != "bob" {
		t.Fatalf("owner = %q, want exactly one of the racing members", owner)
	}
	deliveries := 0
	for _, reply := range transport.replies {
		if strings.Contains(reply.Content, "CHAOS123") {
			deliveries++
		}
	}
	if deliveries != 1 {
		t.Fatalf("code deliveries = %d, want exactly 1", deliveries)
	}
}

func TestHandleMessageUnsolicitedAcceptance(t *testing.T) {
	t.Parallel()

	store := &fakeStore{pool: domain.NewPool()}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	handled, err := driver.HandleMessage(context.Background(), forum.Topic{ID: 999}, memberPost(999, "mallory", "VOUCHER-ACCEPT"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if handled {
		t.Fatal("handled = true, want false for an acceptance without a matching offer")
	}
}

func TestHandleMessageDemand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		title      string
		content    string
		existing   map[string]int
		queue      []string
		wantDemand int
		wantInMap  bool
		wantQueue  []string
	}{
		{
			name:       "explicit count",
			content:    "voucher-request 3",
			wantDemand: 3,
			wantInMap:  true,
		},
		{
			name:       "count from title",
			title:      "voucher-request 2",
			content:    "voucher-request",
			wantDemand: 2,
			wantInMap:  true,
		},
		{
			name:       "default one",
			content:    "voucher-request",
			wantDemand: 1,
			wantInMap:  true,
		},
		{
			name:      "zero withdraws",
			content:   "voucher-request 0",
			existing:  map[string]int{"alice": 2},
			queue:     []string{"alice", "bob", "alice"},
			wantQueue: []string{"bob"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pool := domain.NewPool()
			for name, count := range tt.existing {
				pool.Demand[name] = count
			}
			pool.Queue = tt.queue
			store := &fakeStore{pool: pool}
			transport := newFakeTransport()
			driver := newTestDriver(t, store, transport, seasonClock)

			handled, err := driver.HandleMessage(context.Background(), forum.Topic{ID: 10, Title: tt.title}, memberPost(10, "alice", tt.content))
			if err != nil {
				t.Fatalf("HandleMessage() error = %v", err)
			}
			if !handled {
				t.Fatal("handled = false, want true")
			}
			if len(transport.replies) != 1 {
				t.Fatalf("replies = %d, want 1", len(transport.replies))
			}

			got, ok := store.pool.Demand["alice"]
			if ok != tt.wantInMap {
				t.Fatalf("demand entry present = %v, want %v", ok, tt.wantInMap)
			}
			if got != tt.wantDemand {
				t.Fatalf("demand = %d, want %d", got, tt.wantDemand)
			}
			if tt.wantQueue != nil {
				if len(store.pool.Queue) != len(tt.wantQueue) {
					t.Fatalf("queue = %v, want %v", store.pool.Queue, tt.wantQueue)
				}
				for i, name := range tt.wantQueue {
					if store.pool.Queue[i] != name {
						t.Fatalf("queue = %v, want %v", store.pool.Queue, tt.wantQueue)
					}
				}
			}
		})
	}
}

func TestHandleMessageWithdrawWithoutDemand(t *testing.T) {
	t.Parallel()

	store := &fakeStore{pool: domain.NewPool()}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	handled, err := driver.HandleMessage(context.Background(), forum.Topic{ID: 10}, memberPost(10, "alice", "voucher-request 0"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !handled {
		t.Fatal("handled = false, want true")
	}
	if store.puts != 0 {
		t.Fatalf("store writes = %d, want 0", store.puts)
	}
	if len(transport.replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(transport.replies))
	}
}

func TestHandleMessageListIngestsBatch(t *testing.T) {
	t.Parallel()

	pool := domain.NewPool()
	epoch := domain.EpochID(seasonClock)
	pool.Topics[epoch] = 300
	store := &fakeStore{pool: pool}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	content := "here you go: CHAOS1 CHAOS2 CHAOS1 CHAOS3"
	handled, err := driver.HandleMessage(context.Background(), forum.Topic{ID: 10, Title: "voucher-list"}, memberPost(10, "sponsor", content))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !handled {
		t.Fatal("handled = false, want true")
	}

	vouchers := store.pool.Vouchers
	if len(vouchers) != 3 {
		t.Fatalf("vouchers = %d, want 3 after deduplication", len(vouchers))
	}
	for i, voucher := range vouchers {
		if voucher.Index != i {
			t.Fatalf("voucher %d has index %d", i, voucher.Index)
		}
		if voucher.OldOwner != "sponsor" {
			t.Fatalf("old owner = %q, want sponsor", voucher.OldOwner)
		}
	}

	var announced bool
	for _, reply := range transport.replies {
		if reply.TopicID == 300 {
			announced = true
		}
	}
	if !announced {
		t.Fatalf("replies = %+v, want an announcement on the distribution topic", transport.replies)
	}
}

func TestHandleMessageListRejectsSecondBatch(t *testing.T) {
	t.Parallel()

	pool := domain.NewPool()
	pool.IngestCodes([]string{"CHAOS1"}, "sponsor", seasonClock)
	store := &fakeStore{pool: pool}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	handled, err := driver.HandleMessage(context.Background(), forum.Topic{ID: 10, Title: "voucher-list"}, memberPost(10, "sponsor", "CHAOS9"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !handled {
		t.Fatal("handled = false, want true")
	}
	if store.puts != 0 {
		t.Fatalf("store writes = %d, want 0", store.puts)
	}
	if got := store.pool.Vouchers[0].Code; got != "CHAOS1" {
		t.Fatalf("code = %q, want the original CHAOS1", got)
	}
}

func TestHandleMessageTotalReported(t *testing.T) {
	t.Parallel()

	store := &fakeStore{pool: domain.NewPool()}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	handled, err := driver.HandleMessage(context.Background(), forum.Topic{ID: 10}, memberPost(10, "carol", "voucher-total-reported 42"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !handled {
		t.Fatal("handled = false, want true")
	}
	if got := store.pool.TotalReported; got != 42 {
		t.Fatalf("total reported = %d, want 42", got)
	}

	// A second report is rejected.
	if _, err := driver.HandleMessage(context.Background(), forum.Topic{ID: 11}, memberPost(11, "dave", "voucher-total-reported 50")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if got := store.pool.TotalReported; got != 42 {
		t.Fatalf("total reported = %d, want unchanged 42", got)
	}
}

func TestHandleMessageTotalReportedTooLate(t *testing.T) {
	t.Parallel()

	pool := domain.NewPool()
	pool.IngestCodes([]string{"CHAOS1"}, "sponsor", seasonClock)
	store := &fakeStore{pool: pool}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	if _, err := driver.HandleMessage(context.Background(), forum.Topic{ID: 10}, memberPost(10, "carol", "voucher-total-reported 42")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if got := store.pool.TotalReported; got != 0 {
		t.Fatalf("total reported = %d, want 0 once vouchers exist", got)
	}
}

func TestHandleMessagePhase(t *testing.T) {
	t.Parallel()

	store := &fakeStore{pool: domain.NewPool()}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	handled, err := driver.HandleMessage(context.Background(), forum.Topic{ID: 10}, memberPost(10, "carol", "voucher-phase 2025-12-27 to 2025-12-30"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !handled {
		t.Fatal("handled = false, want true")
	}

	phase, ok := store.pool.Phases[domain.EpochID(seasonClock)]
	if !ok {
		t.Fatal("phase was not stored")
	}
	wantStart := time.Date(2025, time.December, 27, 0, 0, 0, 0, time.UTC)
	if !phase.Start.Equal(wantStart) {
		t.Fatalf("phase start = %v, want %v", phase.Start, wantStart)
	}
	wantEnd := time.Date(2025, time.December, 30, 23, 59, 59, 0, time.UTC)
	if !phase.End.Equal(wantEnd) {
		t.Fatalf("phase end = %v, want inclusive %v", phase.End, wantEnd)
	}
}

func TestHandleMessagePhaseMissingRange(t *testing.T) {
	t.Parallel()

	store := &fakeStore{pool: domain.NewPool()}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	if _, err := driver.HandleMessage(context.Background(), forum.Topic{ID: 10}, memberPost(10, "carol", "voucher-phase soon")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if len(store.pool.Phases) != 0 {
		t.Fatalf("phases = %v, want none", store.pool.Phases)
	}
	if len(transport.replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(transport.replies))
	}
}

func TestHandleMessageExhausted(t *testing.T) {
	t.Parallel()

	pool := domain.NewPool()
	epoch := domain.EpochID(seasonClock)
	pool.Phases[epoch] = domain.PhaseRange{
		Start: time.Date(2025, time.December, 27, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.December, 30, 23, 59, 59, 0, time.UTC),
	}
	store := &fakeStore{pool: pool}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	handled, err := driver.HandleMessage(context.Background(), forum.Topic{ID: 10}, memberPost(10, "carol", "voucher-exhausted-at 2025-12-28 14:30"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !handled {
		t.Fatal("handled = false, want true")
	}

	phase := store.pool.Phases[epoch]
	if phase.ExhaustedAt == nil {
		t.Fatal("exhaustion timestamp was not stored")
	}
	want := time.Date(2025, time.December, 28, 14, 30, 0, 0, time.UTC)
	if !phase.ExhaustedAt.Equal(want) {
		t.Fatalf("exhausted at = %v, want %v", phase.ExhaustedAt, want)
	}
}

func TestHandleMessageExhaustedOutsidePhase(t *testing.T) {
	t.Parallel()

	pool := domain.NewPool()
	epoch := domain.EpochID(seasonClock)
	pool.Phases[epoch] = domain.PhaseRange{
		Start: time.Date(2025, time.December, 27, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.December, 30, 23, 59, 59, 0, time.UTC),
	}
	store := &fakeStore{pool: pool}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	if _, err := driver.HandleMessage(context.Background(), forum.Topic{ID: 10}, memberPost(10, "carol", "voucher-exhausted-at 2026-01-05 10:00")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if store.pool.Phases[epoch].ExhaustedAt != nil {
		t.Fatal("exhaustion outside the phase must be rejected")
	}
}
