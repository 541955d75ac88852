package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/voucherpool/voucherbot/internal/services/voucher/domain"
)

func deliveredPool(t *testing.T, owner string) domain.Pool {
	t.Helper()
	pool := domain.NewPool()
	pool.IngestCodes([]string{"CHAOS123"}, "sponsor", seasonClock.Add(-48*time.Hour))
	pool.Vouchers[0].Owner = owner
	pool.Vouchers[0].MessageID = 77
	pool.Vouchers[0].History = []domain.Handoff{{Username: owner, ReceivedAt: seasonClock.Add(-24 * time.Hour)}}
	pool.Topics[domain.EpochID(seasonClock)] = 300
	return pool
}

func returnToken(t *testing.T, index, historyLength int) string {
	t.Helper()
	token, err := domain.EncodeIdentifier(index, historyLength, domain.EpochID(seasonClock))
	if err != nil {
		t.Fatalf("EncodeIdentifier() error = %v", err)
	}
	return token
}

func TestHandleMailListIngestsBatch(t *testing.T) {
	t.Parallel()

	pool := domain.NewPool()
	pool.Topics[domain.EpochID(seasonClock)] = 300
	store := &fakeStore{pool: pool}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	mail := Mail{
		From:    "sponsor@example.org",
		Subject: "this year's batch",
		Body:    "Hi,\n\nBEGIN VOUCHER LIST\nCHAOS1 CHAOS2\nCHAOS3\nEND VOUCHER LIST\n\nCheers",
	}
	if err := driver.HandleMail(context.Background(), "", mail); err != nil {
		t.Fatalf("HandleMail() error = %v", err)
	}

	if len(store.pool.Vouchers) != 3 {
		t.Fatalf("vouchers = %d, want 3", len(store.pool.Vouchers))
	}
	for i, voucher := range store.pool.Vouchers {
		if voucher.Index != i {
			t.Fatalf("voucher %d has index %d", i, voucher.Index)
		}
	}
	var announced bool
	for _, reply := range transport.replies {
		if reply.TopicID == 300 {
			announced = true
			if strings.Contains(reply.Content, mail.From) {
				t.Fatalf("announcement %q leaks the sender address", reply.Content)
			}
		}
	}
	if !announced {
		t.Fatalf("replies = %+v, want an announcement on the distribution topic", transport.replies)
	}
}

func TestHandleMailListIsIdempotent(t *testing.T) {
	t.Parallel()

	pool := domain.NewPool()
	pool.IngestCodes([]string{"CHAOS1"}, "sponsor", seasonClock)
	store := &fakeStore{pool: pool}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	mail := Mail{Body: "BEGIN VOUCHER LIST\nCHAOS9\nEND VOUCHER LIST"}
	if err := driver.HandleMail(context.Background(), "", mail); err != nil {
		t.Fatalf("HandleMail() error = %v", err)
	}
	if store.puts != 0 {
		t.Fatalf("store writes = %d, want 0", store.puts)
	}
	if got := store.pool.Vouchers[0].Code; got != "CHAOS1" {
		t.Fatalf("code = %q, want the original CHAOS1", got)
	}
}

func TestHandleMailListWithoutMarkersIsDropped(t *testing.T) {
	t.Parallel()

	store := &fakeStore{pool: domain.NewPool()}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	if err := driver.HandleMail(context.Background(), "", Mail{Body: "CHAOS1 CHAOS2"}); err != nil {
		t.Fatalf("HandleMail() error = %v", err)
	}
	if len(store.pool.Vouchers) != 0 {
		t.Fatalf("vouchers = %d, want 0 without list markers", len(store.pool.Vouchers))
	}
}

func TestHandleMailReturnRecyclesVoucher(t *testing.T) {
	t.Parallel()

	store := &fakeStore{pool: deliveredPool(t, "alice")}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	mail := Mail{From: "alice@example.org", Body: "all done, replacement is CHAOS888"}
	if err := driver.HandleMail(context.Background(), returnToken(t, 0, 1), mail); err != nil {
		t.Fatalf("HandleMail() error = %v", err)
	}

	voucher := store.pool.Vouchers[0]
	if voucher.Owner != "" {
		t.Fatalf("owner = %q, want released", voucher.Owner)
	}
	if voucher.Code != "CHAOS888" {
		t.Fatalf("code = %q, want CHAOS888", voucher.Code)
	}
	if voucher.MessageID != 0 {
		t.Fatalf("delivery thread = %d, want cleared", voucher.MessageID)
	}
	if voucher.History[0].ReturnedAt == nil {
		t.Fatal("handoff was not stamped as returned")
	}
	if len(transport.replies) != 1 || transport.replies[0].TopicID != 77 {
		t.Fatalf("replies = %+v, want a thanks on the delivery thread", transport.replies)
	}
}

func TestHandleMailReturnReplayIsDropped(t *testing.T) {
	t.Parallel()

	// The token was minted when the history had one entry; a second handoff
	// happened since, so the mail is stale.
	pool := deliveredPool(t, "bob")
	pool.Vouchers[0].History = append(pool.Vouchers[0].History, domain.Handoff{Username: "bob", ReceivedAt: seasonClock.Add(-time.Hour)})
	store := &fakeStore{pool: pool}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	mail := Mail{Body: "returning CHAOS888"}
	if err := driver.HandleMail(context.Background(), returnToken(t, 0, 1), mail); err != nil {
		t.Fatalf("HandleMail() error = %v", err)
	}
	if store.puts != 0 {
		t.Fatalf("store writes = %d, want 0 for a replayed mail", store.puts)
	}
	if got := store.pool.Vouchers[0].Owner; got != "bob" {
		t.Fatalf("owner = %q, want bob untouched", got)
	}
	if len(transport.replies) != 0 {
		t.Fatalf("replies = %d, want 0", len(transport.replies))
	}
}

func TestHandleMailReturnOwnerlessIsDropped(t *testing.T) {
	t.Parallel()

	pool := deliveredPool(t, "alice")
	pool.Vouchers[0].Owner = ""
	pool.Vouchers[0].History = []domain.Handoff{}
	store := &fakeStore{pool: pool}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	if err := driver.HandleMail(context.Background(), returnToken(t, 0, 0), Mail{Body: "CHAOS888"}); err != nil {
		t.Fatalf("HandleMail() error = %v", err)
	}
	if store.puts != 0 {
		t.Fatalf("store writes = %d, want 0", store.puts)
	}
}

func TestHandleMailReturnAfterPhaseEnd(t *testing.T) {
	t.Parallel()

	pool := deliveredPool(t, "alice")
	pool.Phases[domain.EpochID(seasonClock)] = domain.PhaseRange{
		Start: seasonClock.Add(-72 * time.Hour),
		End:   seasonClock.Add(-time.Hour),
	}
	store := &fakeStore{pool: pool}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	if err := driver.HandleMail(context.Background(), returnToken(t, 0, 1), Mail{Body: "CHAOS888"}); err != nil {
		t.Fatalf("HandleMail() error = %v", err)
	}
	if store.puts != 0 {
		t.Fatalf("store writes = %d, want 0 after the phase ended", store.puts)
	}
	if got := store.pool.Vouchers[0].Owner; got != "alice" {
		t.Fatalf("owner = %q, want alice untouched", got)
	}
}

func TestHandleMailReturnUnknownEpochIsDropped(t *testing.T) {
	t.Parallel()

	pool := deliveredPool(t, "alice")
	delete(pool.Topics, domain.EpochID(seasonClock))
	store := &fakeStore{pool: pool}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	if err := driver.HandleMail(context.Background(), returnToken(t, 0, 1), Mail{Body: "CHAOS888"}); err != nil {
		t.Fatalf("HandleMail() error = %v", err)
	}
	if store.puts != 0 {
		t.Fatalf("store writes = %d, want 0", store.puts)
	}
}

func TestHandleMailReturnBadIdentifierIsDropped(t *testing.T) {
	t.Parallel()

	store := &fakeStore{pool: deliveredPool(t, "alice")}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	if err := driver.HandleMail(context.Background(), "not-a-token!", Mail{Body: "CHAOS888"}); err != nil {
		t.Fatalf("HandleMail() error = %v", err)
	}
	if store.puts != 0 {
		t.Fatalf("store writes = %d, want 0", store.puts)
	}
}

func TestHandleMailReturnOutOfRangeIndexIsDropped(t *testing.T) {
	t.Parallel()

	store := &fakeStore{pool: deliveredPool(t, "alice")}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	if err := driver.HandleMail(context.Background(), returnToken(t, 5, 1), Mail{Body: "CHAOS888"}); err != nil {
		t.Fatalf("HandleMail() error = %v", err)
	}
	if store.puts != 0 {
		t.Fatalf("store writes = %d, want 0", store.puts)
	}
}

func TestHandleMailReturnWithoutCodeIsDropped(t *testing.T) {
	t.Parallel()

	store := &fakeStore{pool: deliveredPool(t, "alice")}
	transport := newFakeTransport()
	driver := newTestDriver(t, store, transport, seasonClock)

	if err := driver.HandleMail(context.Background(), returnToken(t, 0, 1), Mail{Body: "thanks, it was great"}); err != nil {
		t.Fatalf("HandleMail() error = %v", err)
	}
	if store.puts != 0 {
		t.Fatalf("store writes = %d, want 0 without a replacement code", store.puts)
	}
	if got := store.pool.Vouchers[0].Owner; got != "alice" {
		t.Fatalf("owner = %q, want alice untouched", got)
	}
}
