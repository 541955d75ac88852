package app

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/voucherpool/voucherbot/internal/services/voucher/domain"
	"github.com/voucherpool/voucherbot/internal/transport/forum"
)

// HandleMessage processes one private-message thread the bot participates
// in. It returns whether the message was recognized; unrecognized messages
// are the caller's to answer. Invocations are serialized and each works on a
// freshly loaded snapshot, so racing acceptances resolve to exactly one
// winner.
func (d *Driver) HandleMessage(ctx context.Context, topic forum.Topic, posts []forum.Post) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(posts) == 0 {
		return false, nil
	}
	last := posts[len(posts)-1]
	if last.Username == d.forum.Username() {
		return true, nil
	}
	content := last.Content
	lowerContent := strings.ToLower(content)
	lowerTitle := strings.ToLower(topic.Title)

	switch {
	case strings.Contains(strings.ToUpper(content), AcceptTrigger):
		return d.handleAcceptance(ctx, topic.ID, last.Username)
	case containsAny(lowerContent, totalTriggers):
		return true, d.handleTotalReported(ctx, topic.ID, last.Username, content)
	case containsAny(lowerContent, demandTriggers) || containsAny(lowerTitle, demandTriggers):
		return true, d.handleDemand(ctx, topic, last.Username, content)
	case containsAny(lowerTitle, listTriggers):
		return true, d.handleList(ctx, topic.ID, posts[0].Username, content)
	case containsAny(lowerContent, phaseTriggers):
		return true, d.handlePhase(ctx, topic.ID, content)
	case containsAny(lowerContent, exhaustedTriggers):
		return true, d.handleExhausted(ctx, topic.ID, content)
	case domain.CodePattern.MatchString(content):
		// A returned code on the delivery thread; the driver's reply scan
		// picks it up with full knowledge of which thread maps to which
		// voucher. Claim it so the member gets no fallback reply.
		return true, nil
	default:
		return false, nil
	}
}

// handleAcceptance awards the offered voucher to the first member whose
// acceptance is processed. A trigger on a thread with no recorded offer
// stays unhandled; an acceptance that arrives after the voucher was awarded
// still resolves through the kept offer history and is told the offer
// lapsed.
func (d *Driver) handleAcceptance(ctx context.Context, topicID int, username string) (bool, error) {
	pool, err := d.loadPool(ctx)
	if err != nil {
		return true, err
	}

	voucher, ok := pool.FindOfferThread(topicID, username)
	if !ok {
		return false, nil
	}

	lapsed, err := pool.Award(voucher, username)
	if err != nil {
		// Someone else accepted faster.
		log.Printf("acceptance by %s on voucher %d lost the race", username, voucher.Index)
		_, replyErr := d.forum.CreateReply(ctx, topicID, d.render.OfferLapsed())
		return true, replyErr
	}

	epoch := domain.EpochID(d.clock())
	if err := d.deliver(ctx, voucher, epoch, topicID); err != nil {
		// The award stands; the driver retries delivery next cycle.
		log.Printf("deliver accepted voucher %d to %s: %v", voucher.Index, username, err)
	}

	for _, offer := range lapsed {
		if _, err := d.forum.CreateReply(ctx, offer.MessageID, d.render.OfferLapsed()); err != nil {
			log.Printf("notify lapsed offer for %s: %v", offer.Username, err)
		}
	}

	return true, d.store.PutPool(ctx, pool)
}

func (d *Driver) handleDemand(ctx context.Context, topic forum.Topic, username, content string) error {
	count, ok := firstInt(content)
	if !ok {
		count, ok = firstInt(topic.Title)
	}
	if !ok {
		count = 1
	}

	pool, err := d.loadPool(ctx)
	if err != nil {
		return err
	}

	if count == 0 {
		if _, exists := pool.Demand[username]; !exists {
			_, err := d.forum.CreateReply(ctx, topic.ID, d.render.DemandNotFound())
			return err
		}
		delete(pool.Demand, username)
		pool.Queue = domain.RemoveFromQueue(pool.Queue, username)
		if err := d.store.PutPool(ctx, pool); err != nil {
			return err
		}
		_, err := d.forum.CreateReply(ctx, topic.ID, d.render.DemandWithdrawn())
		return err
	}

	pool.Demand[username] = count
	if err := d.store.PutPool(ctx, pool); err != nil {
		return err
	}
	_, err = d.forum.CreateReply(ctx, topic.ID, d.render.DemandConfirmed(count))
	return err
}

func (d *Driver) handleTotalReported(ctx context.Context, topicID int, username, content string) error {
	persons, ok := firstInt(content)
	if !ok {
		_, err := d.forum.CreateReply(ctx, topicID, d.render.TotalReportedMissingCount())
		return err
	}

	pool, err := d.loadPool(ctx)
	if err != nil {
		return err
	}
	if len(pool.Vouchers) > 0 {
		_, err := d.forum.CreateReply(ctx, topicID, d.render.TotalReportedTooLate())
		return err
	}
	if pool.TotalReported > 0 {
		_, err := d.forum.CreateReply(ctx, topicID, d.render.TotalReportedDuplicate())
		return err
	}

	pool.TotalReported = persons
	if err := d.store.PutPool(ctx, pool); err != nil {
		return err
	}
	if _, err := d.forum.CreateReply(ctx, topicID, d.render.TotalReportedConfirmed(persons)); err != nil {
		return err
	}
	d.announce(ctx, pool, d.render.TotalReportedAnnouncement(username, persons))
	return nil
}

// handleList ingests a voucher batch handed over by private message. Only
// one list is managed at a time; duplicates are rejected with a reply.
func (d *Driver) handleList(ctx context.Context, topicID int, reporter, content string) error {
	codes := uniqueCodes(domain.CodePattern.FindAllString(content, -1))
	if len(codes) == 0 {
		log.Printf("got a voucher list from %s, but no codes were found", reporter)
		_, err := d.forum.CreateReply(ctx, topicID, d.render.ListNoCodes())
		return err
	}

	pool, err := d.loadPool(ctx)
	if err != nil {
		return err
	}
	if len(pool.Vouchers) > 0 {
		log.Print("voucher list already exists, rejecting submission")
		_, err := d.forum.CreateReply(ctx, topicID, d.render.ListExists())
		return err
	}

	log.Printf("storing %d fresh vouchers from %s", len(codes), reporter)
	pool.IngestCodes(codes, reporter, d.clock())
	if err := d.store.PutPool(ctx, pool); err != nil {
		return err
	}
	if _, err := d.forum.CreateReply(ctx, topicID, d.render.ListReceived(len(codes))); err != nil {
		return err
	}
	d.announce(ctx, pool, d.render.ListAnnouncement("@"+reporter, len(codes)))
	return nil
}

func (d *Driver) handlePhase(ctx context.Context, topicID int, content string) error {
	match := phasePattern.FindStringSubmatch(content)
	if match == nil {
		_, err := d.forum.CreateReply(ctx, topicID, d.render.PhaseMissingRange())
		return err
	}
	start, err := time.Parse("2006-01-02", match[1])
	if err != nil {
		_, replyErr := d.forum.CreateReply(ctx, topicID, d.render.PhaseMissingRange())
		return replyErr
	}
	end, err := time.Parse("2006-01-02", match[2])
	if err != nil {
		_, replyErr := d.forum.CreateReply(ctx, topicID, d.render.PhaseMissingRange())
		return replyErr
	}

	pool, err := d.loadPool(ctx)
	if err != nil {
		return err
	}
	epoch := domain.EpochID(d.clock())
	pool.Phases[epoch] = domain.PhaseRange{Start: start, End: end.Add(24*time.Hour - time.Second)}
	if err := d.store.PutPool(ctx, pool); err != nil {
		return err
	}
	_, err = d.forum.CreateReply(ctx, topicID, d.render.PhaseConfirmed(start, end))
	return err
}

func (d *Driver) handleExhausted(ctx context.Context, topicID int, content string) error {
	match := exhaustedPattern.FindString(content)
	if match == "" {
		_, err := d.forum.CreateReply(ctx, topicID, d.render.ExhaustedMissingTimestamp())
		return err
	}
	exhaustedAt, err := time.Parse("2006-01-02 15:04", match)
	if err != nil {
		_, replyErr := d.forum.CreateReply(ctx, topicID, d.render.ExhaustedMissingTimestamp())
		return replyErr
	}

	pool, err := d.loadPool(ctx)
	if err != nil {
		return err
	}
	epoch := domain.EpochID(d.clock())
	phase, ok := pool.Phases[epoch]
	if !ok {
		_, err := d.forum.CreateReply(ctx, topicID, d.render.ExhaustedNoPhase())
		return err
	}
	if err := phase.MarkExhausted(exhaustedAt); err != nil {
		_, replyErr := d.forum.CreateReply(ctx, topicID, d.render.ExhaustedOutsidePhase())
		return replyErr
	}
	pool.Phases[epoch] = phase
	if err := d.store.PutPool(ctx, pool); err != nil {
		return err
	}
	_, err = d.forum.CreateReply(ctx, topicID, d.render.ExhaustedConfirmed())
	return err
}

// announce posts to the current epoch's distribution topic, if one exists.
func (d *Driver) announce(ctx context.Context, pool domain.Pool, content string) {
	topicID := pool.Topics[domain.EpochID(d.clock())]
	if topicID == 0 {
		return
	}
	if _, err := d.forum.CreateReply(ctx, topicID, content); err != nil {
		log.Printf("announce on distribution topic %d: %v", topicID, err)
	}
}

// ReplyNotUnderstood posts the fallback reply on a thread the engine could
// not interpret.
func (d *Driver) ReplyNotUnderstood(ctx context.Context, topicID int) error {
	_, err := d.forum.CreateReply(ctx, topicID, d.render.NotUnderstood())
	return err
}

func uniqueCodes(codes []string) []string {
	seen := map[string]bool{}
	unique := codes[:0]
	for _, code := range codes {
		if !seen[code] {
			seen[code] = true
			unique = append(unique, code)
		}
	}
	return unique
}
