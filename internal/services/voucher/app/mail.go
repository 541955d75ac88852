package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/voucherpool/voucherbot/internal/services/voucher/domain"
)

// Mail is one inbound email after upstream parsing: the routing token has
// already been extracted from the recipient address and the body reduced to
// plain text.
type Mail struct {
	From    string    `json:"from"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Date    time.Time `json:"date"`
	Body    string    `json:"body"`
}

// HandleMail processes one inbound email on the voucher ingress address. An
// empty param means an initial voucher list; otherwise the param is a
// voucher identifier and the mail carries a returned code. Malformed or
// stale mails are logged and dropped, never surfaced to the scheduler.
func (d *Driver) HandleMail(ctx context.Context, param string, mail Mail) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if strings.TrimSpace(param) == "" {
		return d.handleMailList(ctx, mail)
	}
	return d.handleMailReturn(ctx, param, mail)
}

// handleMailList ingests the initial voucher batch. Duplicate submissions
// are idempotent: once a list exists, further list mails are ignored.
func (d *Driver) handleMailList(ctx context.Context, mail Mail) error {
	pool, err := d.loadPool(ctx)
	if err != nil {
		return err
	}
	if len(pool.Vouchers) > 0 {
		log.Printf("voucher list already exists, ignoring list mail from %q", mail.From)
		return nil
	}

	match := listPattern.FindStringSubmatch(mail.Body)
	if match == nil {
		log.Printf("no voucher list found in mail: from=%q to=%q subject=%q", mail.From, mail.To, mail.Subject)
		return nil
	}
	codes := strings.Fields(match[1])
	if len(codes) == 0 {
		log.Printf("empty voucher list in mail: from=%q subject=%q", mail.From, mail.Subject)
		return nil
	}

	pool.IngestCodes(codes, d.forum.Username(), d.clock())
	if err := d.store.PutPool(ctx, pool); err != nil {
		return err
	}
	log.Printf("stored %d fresh vouchers from mail", len(codes))
	d.announce(ctx, pool, d.render.MailListAnnouncement(len(codes)))
	return nil
}

// handleMailReturn applies a returned code. The identifier's history length
// is a snapshot taken when the delivery went out; any mismatch with the live
// history means the mail was already processed (or delayed past another
// handoff) and is silently dropped.
func (d *Driver) handleMailReturn(ctx context.Context, param string, mail Mail) error {
	epoch, index, historyLength, err := domain.DecodeIdentifier(param)
	if err != nil {
		log.Printf("invalid identifier in mail: param=%q from=%q subject=%q: %v", param, mail.From, mail.Subject, err)
		return nil
	}

	pool, err := d.loadPool(ctx)
	if err != nil {
		return err
	}
	now := d.clock()

	if _, ok := pool.Topics[epoch]; !ok {
		log.Printf("no active distribution topic for %s, ignoring returned voucher", epoch)
		return nil
	}
	if phase, ok := pool.Phases[epoch]; ok && now.After(phase.End) {
		log.Printf("voucher phase for %s ended %s, ignoring returned voucher", epoch, phase.End.Format(time.RFC3339))
		return nil
	}
	if index < 0 || index >= len(pool.Vouchers) {
		log.Printf("invalid voucher index in mail: index=%d from=%q subject=%q", index, mail.From, mail.Subject)
		return nil
	}
	voucher := &pool.Vouchers[index]
	if voucher.Index != index {
		return fmt.Errorf("voucher at position %d has index %d: storage is corrupted", index, voucher.Index)
	}
	if len(voucher.History) != historyLength {
		log.Printf("mail already processed, history length mismatch: index=%d encoded=%d live=%d", index, historyLength, len(voucher.History))
		return nil
	}
	if voucher.Owner == "" {
		log.Printf("mail already processed, voucher %d has no owner", index)
		return nil
	}

	code := domain.CodePattern.FindString(mail.Body)
	if code == "" {
		log.Printf("no voucher code found in mail: from=%q to=%q subject=%q", mail.From, mail.To, mail.Subject)
		return nil
	}

	if voucher.MessageID != 0 {
		if _, err := d.forum.CreateReply(ctx, voucher.MessageID, d.render.MailReturnReceived()); err != nil {
			log.Printf("thank %s for mailed return: %v", voucher.Owner, err)
		}
	}
	if err := voucher.ApplyReturn(code, now); err != nil {
		log.Printf("apply mailed return on voucher %d: %v", index, err)
		return nil
	}
	if err := d.store.PutPool(ctx, pool); err != nil {
		return err
	}
	log.Printf("voucher %d returned by mail", index)
	return nil
}
