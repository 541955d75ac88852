// Package app orchestrates the voucher distribution engine: the poll-cycle
// driver, the private-message handlers, and the inbound-mail ingress.
package app

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/voucherpool/voucherbot/internal/services/voucher/domain"
	"github.com/voucherpool/voucherbot/internal/services/voucher/render"
	"github.com/voucherpool/voucherbot/internal/services/voucher/storage"
	"github.com/voucherpool/voucherbot/internal/transport/forum"
)

// AcceptTrigger is the literal a member replies with to claim an offer.
const AcceptTrigger = "VOUCHER-ACCEPT"

var (
	demandTriggers    = []string{"voucher-request", "voucherrequest", "voucher request"}
	totalTriggers     = []string{"voucher-total-reported", "voucher total reported"}
	listTriggers      = []string{"voucher-list", "voucherlist", "voucher list"}
	phaseTriggers     = []string{"voucher-phase", "voucherphase"}
	exhaustedTriggers = []string{"voucher-exhausted-at"}

	countPattern     = regexp.MustCompile(`\d+`)
	phasePattern     = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s+(?:to|bis)\s+(\d{4}-\d{2}-\d{2})`)
	exhaustedPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}`)
	listPattern      = regexp.MustCompile(`(?s)BEGIN VOUCHER LIST(.*?)END VOUCHER LIST`)
)

// Transport is the forum surface the engine consumes. The concrete client
// lives in internal/transport/forum; tests use fakes.
type Transport interface {
	CreateReply(ctx context.Context, topicID int, content string) (forum.Post, error)
	CreateTopic(ctx context.Context, category, title, content string) (forum.Post, error)
	CreatePrivateMessage(ctx context.Context, title, content string, recipients ...string) (forum.Post, error)
	UpdatePost(ctx context.Context, postID int, content string) error
	TopicPosts(ctx context.Context, topicID int) ([]forum.Post, error)
	CategoryTopics(ctx context.Context, category string) ([]forum.Topic, error)
	Username() string
}

// DriverConfig carries the engine's distribution settings.
type DriverConfig struct {
	// Category is the forum category hosting the distribution topic.
	Category string
	// MailboxUser and MailDomain form the plus-addressed return address,
	// <user>+voucheringress-<token>@<domain>.
	MailboxUser string
	MailDomain  string
	// Locale selects the member-facing message catalog.
	Locale string
	// ForceSeason bypasses the October-December season gate.
	ForceSeason bool
}

// Driver runs the distribution engine against one store and one transport.
// Each entry point loads a snapshot, mutates it, and writes it back in one
// call; the mutex serializes entry points so webhook handlers and the poll
// loop never interleave their read-modify-write cycles.
type Driver struct {
	mu      sync.Mutex
	store   storage.Store
	forum   Transport
	render  *render.Renderer
	cfg     DriverConfig
	clock   func() time.Time
	shuffle func([]string)
}

// NewDriver wires the engine. Nil clock and shuffle get real defaults;
// tests inject fixed ones.
func NewDriver(store storage.Store, transport Transport, cfg DriverConfig, clock func() time.Time, shuffle func([]string)) (*Driver, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &Driver{
		store:   store,
		forum:   transport,
		render:  render.New(cfg.Locale),
		cfg:     cfg,
		clock:   clock,
		shuffle: shuffle,
	}, nil
}

func (d *Driver) returnAddress(token string) string {
	return fmt.Sprintf("%s+voucheringress-%s@%s", d.cfg.MailboxUser, token, d.cfg.MailDomain)
}

// inSeason reports whether distribution is active. Vouchers only circulate
// in the months leading up to the congress.
func (d *Driver) inSeason(now time.Time) bool {
	if d.cfg.ForceSeason {
		return true
	}
	switch now.Month() {
	case time.October, time.November, time.December:
		return true
	default:
		return false
	}
}

func (d *Driver) loadPool(ctx context.Context) (domain.Pool, error) {
	pool, err := d.store.GetPool(ctx)
	if err != nil {
		return domain.Pool{}, fmt.Errorf("load pool: %w", err)
	}
	pool.Normalize()
	if err := pool.Validate(); err != nil {
		return domain.Pool{}, err
	}
	return pool, nil
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

// firstInt extracts the first embedded integer from rendered content.
func firstInt(content string) (int, bool) {
	match := countPattern.FindString(content)
	if match == "" {
		return 0, false
	}
	count, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return count, true
}
