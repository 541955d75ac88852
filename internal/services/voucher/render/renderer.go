// Package render produces the localized plain-text copy the bot sends to
// members and posts to the distribution topic.
package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/voucherpool/voucherbot/internal/services/voucher/domain"
)

// Renderer formats member-facing messages in one configured language.
type Renderer struct {
	printer *message.Printer
}

// New builds a renderer for the given BCP 47 language tag. Unknown tags fall
// back to English.
func New(lang string) *Renderer {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		tag = language.English
	}
	return &Renderer{printer: message.NewPrinter(tag)}
}

// Offer is the private message proposing a voucher, naming the trigger the
// member replies with to accept.
func (r *Renderer) Offer(acceptTrigger string) string {
	return r.printer.Sprintf("voucher.offer.body", acceptTrigger)
}

// OfferLapsed tells a member their offer was taken by someone else.
func (r *Renderer) OfferLapsed() string {
	return r.printer.Sprintf("voucher.offer.lapsed")
}

// Delivery carries the actual code plus the return address for forwarding
// the replicated voucher.
func (r *Renderer) Delivery(code, returnAddress string) string {
	return r.printer.Sprintf("voucher.delivery.body", code, returnAddress)
}

// ReturnReceived thanks a member for a code returned on the delivery thread.
func (r *Renderer) ReturnReceived(code string) string {
	return r.printer.Sprintf("voucher.return.received", code)
}

// MailReturnReceived thanks a member for a code that arrived by email.
func (r *Renderer) MailReturnReceived() string {
	return r.printer.Sprintf("voucher.return.mail_received")
}

// DemandConfirmed confirms a member's requested voucher count.
func (r *Renderer) DemandConfirmed(count int) string {
	return r.printer.Sprintf("voucher.demand.confirmed", count)
}

// DemandWithdrawn confirms removal from the waiting list.
func (r *Renderer) DemandWithdrawn() string {
	return r.printer.Sprintf("voucher.demand.withdrawn")
}

// DemandNotFound explains that there was nothing to withdraw.
func (r *Renderer) DemandNotFound() string {
	return r.printer.Sprintf("voucher.demand.not_found")
}

// TotalReportedConfirmed thanks the reporter for the overall estimate.
func (r *Renderer) TotalReportedConfirmed(persons int) string {
	return r.printer.Sprintf("voucher.total.confirmed", persons)
}

// TotalReportedMissingCount asks for the missing number.
func (r *Renderer) TotalReportedMissingCount() string {
	return r.printer.Sprintf("voucher.total.missing_count")
}

// TotalReportedTooLate explains that vouchers already arrived.
func (r *Renderer) TotalReportedTooLate() string {
	return r.printer.Sprintf("voucher.total.too_late")
}

// TotalReportedDuplicate explains that an estimate already exists.
func (r *Renderer) TotalReportedDuplicate() string {
	return r.printer.Sprintf("voucher.total.duplicate")
}

// TotalReportedAnnouncement is the topic post announcing the estimate.
func (r *Renderer) TotalReportedAnnouncement(reportedBy string, persons int) string {
	return r.printer.Sprintf("voucher.total.announcement", reportedBy, persons)
}

// ListReceived confirms how many codes were ingested.
func (r *Renderer) ListReceived(total int) string {
	return r.printer.Sprintf("voucher.list.received", total)
}

// ListExists rejects a duplicate list submission.
func (r *Renderer) ListExists() string {
	return r.printer.Sprintf("voucher.list.exists")
}

// ListNoCodes explains that no codes matched the expected pattern.
func (r *Renderer) ListNoCodes() string {
	return r.printer.Sprintf("voucher.list.no_codes")
}

// ListAnnouncement is the topic post announcing a fresh batch.
func (r *Renderer) ListAnnouncement(reportedBy string, total int) string {
	return r.printer.Sprintf("voucher.list.announcement", reportedBy, total)
}

// MailListAnnouncement announces a batch that arrived by email. Mail sender
// addresses never appear in public topic posts.
func (r *Renderer) MailListAnnouncement(total int) string {
	return r.printer.Sprintf("voucher.list.mail_announcement", total)
}

// PhaseConfirmed acknowledges a recorded redemption phase.
func (r *Renderer) PhaseConfirmed(start, end time.Time) string {
	return r.printer.Sprintf("voucher.phase.confirmed", start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// PhaseMissingRange asks for a parseable date range.
func (r *Renderer) PhaseMissingRange() string {
	return r.printer.Sprintf("voucher.phase.missing_range")
}

// ExhaustedConfirmed acknowledges a recorded exhaustion timestamp.
func (r *Renderer) ExhaustedConfirmed() string {
	return r.printer.Sprintf("voucher.exhausted.confirmed")
}

// ExhaustedMissingTimestamp asks for a parseable timestamp.
func (r *Renderer) ExhaustedMissingTimestamp() string {
	return r.printer.Sprintf("voucher.exhausted.missing_timestamp")
}

// ExhaustedNoPhase explains that the phase range must be recorded first.
func (r *Renderer) ExhaustedNoPhase() string {
	return r.printer.Sprintf("voucher.exhausted.no_phase")
}

// ExhaustedOutsidePhase rejects a timestamp outside the phase range.
func (r *Renderer) ExhaustedOutsidePhase() string {
	return r.printer.Sprintf("voucher.exhausted.outside_phase")
}

// NotUnderstood is the fallback reply for an unrecognized private message.
func (r *Renderer) NotUnderstood() string {
	return r.printer.Sprintf("voucher.not_understood")
}

// TopicTitle names the distribution topic for one epoch.
func (r *Renderer) TopicTitle(epoch string) string {
	return fmt.Sprintf("Voucher %s", epoch)
}

// DeliveryTitle names the private delivery/offer thread for one epoch.
func (r *Renderer) DeliveryTitle(epoch string) string {
	return r.printer.Sprintf("voucher.delivery.title", epoch)
}

// StatusPost renders the distribution topic's standing summary post.
func (r *Renderer) StatusPost(pool domain.Pool, epoch string, now time.Time) string {
	var b strings.Builder

	available := 0
	for i := range pool.Vouchers {
		if pool.Vouchers[i].Owner == "" {
			available++
		}
	}
	totalDemand := len(pool.Queue)
	for _, count := range pool.Demand {
		totalDemand += count
	}

	fmt.Fprintf(&b, "%s\n\n", r.printer.Sprintf("voucher.status.intro", epoch))
	fmt.Fprintf(&b, "%s\n", r.printer.Sprintf("voucher.status.pool", len(pool.Vouchers), available))
	fmt.Fprintf(&b, "%s\n", r.printer.Sprintf("voucher.status.waiting", totalDemand))
	if pool.TotalReported > 0 {
		fmt.Fprintf(&b, "%s\n", r.printer.Sprintf("voucher.status.total_reported", pool.TotalReported))
	}

	if phase, ok := pool.Phases[epoch]; ok {
		fmt.Fprintf(&b, "%s\n", r.printer.Sprintf("voucher.status.phase",
			phase.Start.Format("2006-01-02"), phase.End.Format("2006-01-02")))
		if phase.ExhaustedAt != nil {
			fmt.Fprintf(&b, "%s\n", r.printer.Sprintf("voucher.status.exhausted",
				phase.ExhaustedAt.Format("2006-01-02 15:04")))
		}
	}

	if len(pool.Queue) > 0 {
		fmt.Fprintf(&b, "\n%s\n", r.printer.Sprintf("voucher.status.queue_heading"))
		for i, name := range pool.Queue {
			fmt.Fprintf(&b, "%d. @%s\n", i+1, name)
		}
	}

	names := make([]string, 0, len(pool.Demand))
	for name, count := range pool.Demand {
		if count > 0 {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		sort.Strings(names)
		fmt.Fprintf(&b, "\n%s\n", r.printer.Sprintf("voucher.status.demand_heading"))
		for _, name := range names {
			fmt.Fprintf(&b, "- @%s: %d\n", name, pool.Demand[name])
		}
	}

	fmt.Fprintf(&b, "\n%s\n", r.printer.Sprintf("voucher.status.updated", now.Format("2006-01-02 15:04")))
	return b.String()
}
