// Package domain implements the voucher distribution engine: demand intake,
// fair queue construction, timed offer escalation, race-safe acceptance, and
// idempotent voucher return handling.
package domain

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

const (
	// OfferEscalationWindow is how long an offer stays exclusive before the
	// engine escalates to the next queue member.
	OfferEscalationWindow = 3 * time.Hour
	// MaxDeliveryAttempts bounds consecutive delivery failures before a
	// voucher is released back into rotation.
	MaxDeliveryAttempts = 10
)

// CodePattern matches a voucher code anywhere in rendered message content.
var CodePattern = regexp.MustCompile(`CHAOS[a-zA-Z0-9]+`)

var (
	// ErrVoucherOwned indicates an acceptance raced against an earlier winner.
	ErrVoucherOwned = errors.New("voucher is already owned")
	// ErrAlreadyDelivered indicates a delivery attempt on a voucher that has
	// a live delivery thread.
	ErrAlreadyDelivered = errors.New("voucher was already delivered")
	// ErrNoOwner indicates a delivery or return on a voucher nobody holds.
	ErrNoOwner = errors.New("voucher has no owner")
)

// State describes where a voucher sits in its lifecycle.
type State int

const (
	// StateAvailable means the voucher can be offered.
	StateAvailable State = iota
	// StateOffered means at least one unexpired offer is outstanding.
	StateOffered
	// StateOwned means a member accepted but the code was not delivered yet.
	StateOwned
	// StateDelivered means the code was sent on a delivery thread.
	StateDelivered
)

// Offer is one time-stamped proposal of a voucher to a member. Offers are
// superseded, never mutated.
type Offer struct {
	Username  string    `json:"username"`
	OfferedAt time.Time `json:"offered_at"`
	MessageID int       `json:"message_id"`
}

// Handoff is one entry in a voucher's append-only assignment audit trail.
type Handoff struct {
	Username   string     `json:"username"`
	ReceivedAt time.Time  `json:"received_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

// Voucher tracks one scarce code through offer, acceptance, delivery and
// return. The zero MessageID and empty Owner mean "none".
type Voucher struct {
	Index        int       `json:"index"`
	Code         string    `json:"code"`
	Owner        string    `json:"owner,omitempty"`
	OldOwner     string    `json:"old_owner,omitempty"`
	OfferedTo    []Offer   `json:"offered_to,omitempty"`
	History      []Handoff `json:"history"`
	MessageID    int       `json:"message_id,omitempty"`
	RetryCounter int       `json:"retry_counter,omitempty"`
	ReceivedAt   time.Time `json:"received_at"`
}

// State derives the lifecycle state from the record fields.
func (v *Voucher) State(now time.Time) State {
	switch {
	case v.Owner != "" && v.MessageID != 0:
		return StateDelivered
	case v.Owner != "":
		return StateOwned
	case v.lastOfferWithin(now, OfferEscalationWindow):
		return StateOffered
	default:
		return StateAvailable
	}
}

// LastOffer returns the most recent offer, or nil when none exist.
func (v *Voucher) LastOffer() *Offer {
	if len(v.OfferedTo) == 0 {
		return nil
	}
	return &v.OfferedTo[len(v.OfferedTo)-1]
}

// NeedsOffer reports whether the voucher should be offered to the next
// eligible queue member this cycle.
func (v *Voucher) NeedsOffer(now time.Time) bool {
	if v.Owner != "" {
		return false
	}
	return !v.lastOfferWithin(now, OfferEscalationWindow)
}

func (v *Voucher) lastOfferWithin(now time.Time, window time.Duration) bool {
	last := v.LastOffer()
	return last != nil && now.Sub(last.OfferedAt) <= window
}

// AddOffer appends an offer to the voucher's offer history.
func (v *Voucher) AddOffer(username string, messageID int, now time.Time) {
	v.OfferedTo = append(v.OfferedTo, Offer{
		Username:  username,
		OfferedAt: now,
		MessageID: messageID,
	})
}

// MarkDelivered records a successful code delivery: the delivery thread,
// a new handoff entry, and a cleared retry counter.
func (v *Voucher) MarkDelivered(messageID int, now time.Time) error {
	if v.MessageID != 0 {
		return ErrAlreadyDelivered
	}
	if v.Owner == "" {
		return ErrNoOwner
	}
	v.MessageID = messageID
	v.ReceivedAt = now
	v.RetryCounter = 0
	v.History = append(v.History, Handoff{Username: v.Owner, ReceivedAt: now})
	return nil
}

// RecordDeliveryFailure counts one failed delivery attempt. After
// MaxDeliveryAttempts consecutive failures the voucher is released back to
// available, the stale offer history is dropped, and true is returned.
func (v *Voucher) RecordDeliveryFailure() (gaveUp bool) {
	v.RetryCounter++
	if v.RetryCounter >= MaxDeliveryAttempts {
		v.Owner = ""
		v.OfferedTo = nil
		v.RetryCounter = 0
		return true
	}
	return false
}

// ApplyReturn recycles the voucher with a fresh code: the last handoff is
// stamped with the return time, ownership is cleared, and the previous round's
// offer history is dropped so the next offer starts from a clean slate.
func (v *Voucher) ApplyReturn(newCode string, now time.Time) error {
	if v.Owner == "" {
		return ErrNoOwner
	}
	if n := len(v.History); n > 0 {
		returnedAt := now
		v.History[n-1].ReturnedAt = &returnedAt
	}
	v.OldOwner = v.Owner
	v.Owner = ""
	v.OfferedTo = nil
	v.MessageID = 0
	v.Code = newCode
	v.ReceivedAt = now
	return nil
}

// Pool is the whole stored document: every voucher of the current list plus
// the queue, demand and per-epoch bookkeeping around it.
type Pool struct {
	Vouchers      []Voucher             `json:"vouchers"`
	Queue         []string              `json:"queue"`
	Demand        map[string]int        `json:"demand"`
	Topics        map[string]int        `json:"topics"`
	Phases        map[string]PhaseRange `json:"phases,omitempty"`
	TotalReported int                   `json:"total_reported,omitempty"`
}

// NewPool returns an empty pool with initialized lookup tables.
func NewPool() Pool {
	return Pool{
		Demand: map[string]int{},
		Topics: map[string]int{},
		Phases: map[string]PhaseRange{},
	}
}

// Normalize backfills nil tables on a pool loaded from storage.
func (p *Pool) Normalize() {
	if p.Demand == nil {
		p.Demand = map[string]int{}
	}
	if p.Topics == nil {
		p.Topics = map[string]int{}
	}
	if p.Phases == nil {
		p.Phases = map[string]PhaseRange{}
	}
}

// Validate checks programmer invariants on a loaded pool. A failure means
// corrupted storage and must surface immediately.
func (p *Pool) Validate() error {
	for i := range p.Vouchers {
		if p.Vouchers[i].Index != i {
			return fmt.Errorf("voucher at position %d has index %d: storage is corrupted", i, p.Vouchers[i].Index)
		}
	}
	return nil
}

// IngestCodes replaces the voucher list with a fresh batch. Indexes follow
// list position; oldOwner records who handed the batch over.
func (p *Pool) IngestCodes(codes []string, oldOwner string, now time.Time) {
	vouchers := make([]Voucher, 0, len(codes))
	for i, code := range codes {
		vouchers = append(vouchers, Voucher{
			Index:      i,
			Code:       code,
			OldOwner:   oldOwner,
			History:    []Handoff{},
			ReceivedAt: now,
		})
	}
	p.Vouchers = vouchers
}
