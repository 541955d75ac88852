package app

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/voucherpool/voucherbot/internal/services/voucher/domain"
	"github.com/voucherpool/voucherbot/internal/transport/forum"
)

// RunCycle executes one poll cycle: per voucher check-for-return, advance or
// escalate offers, and deliver pending codes; then keep the distribution
// topic up to date. All mutations happen on one snapshot written back at the
// end, so a failed cycle leaves storage untouched.
func (d *Driver) RunCycle(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock()
	if !d.inSeason(now) {
		log.Print("not voucher season, skipping cycle")
		return nil
	}

	pool, err := d.loadPool(ctx)
	if err != nil {
		return err
	}
	epoch := domain.EpochID(now)

	excluded := pool.ExcludedFromOffers(now)
	for i := range pool.Vouchers {
		voucher := &pool.Vouchers[i]

		if voucher.MessageID != 0 {
			d.checkForReturn(ctx, voucher, now)
		}

		if voucher.NeedsOffer(now) {
			pool.Queue = domain.ReplenishQueue(pool.Demand, pool.Queue, d.shuffle)
			if recipient, ok := pool.NextRecipient(excluded); ok {
				if d.sendOffer(ctx, voucher, recipient, epoch, now) {
					excluded[recipient] = true
				}
			}
		}

		if voucher.Owner != "" && voucher.MessageID == 0 {
			if err := d.deliver(ctx, voucher, epoch, 0); err != nil {
				log.Printf("deliver voucher %d to %s: %v", voucher.Index, voucher.Owner, err)
				if voucher.RecordDeliveryFailure() {
					log.Printf("giving up delivering voucher %d after %d attempts, releasing it", voucher.Index, domain.MaxDeliveryAttempts)
				}
			}
		}
	}

	d.maintainTopic(ctx, &pool, epoch, now)

	if err := d.store.PutPool(ctx, pool); err != nil {
		return err
	}
	return nil
}

// checkForReturn scans the delivery thread for a replied code, excluding the
// bot's own posts, and recycles the voucher on the first match.
func (d *Driver) checkForReturn(ctx context.Context, voucher *domain.Voucher, now time.Time) {
	posts, err := d.forum.TopicPosts(ctx, voucher.MessageID)
	if err != nil {
		log.Printf("scan delivery thread %d: %v", voucher.MessageID, err)
		return
	}
	var contents []string
	for _, post := range posts {
		if post.Username == d.forum.Username() {
			continue
		}
		contents = append(contents, post.Content)
	}
	code := domain.CodePattern.FindString(strings.Join(contents, " "))
	if code == "" {
		return
	}

	log.Printf("voucher %d returned by %s", voucher.Index, voucher.Owner)
	if _, err := d.forum.CreateReply(ctx, voucher.MessageID, d.render.ReturnReceived(code)); err != nil {
		log.Printf("thank %s for returned code: %v", voucher.Owner, err)
	}
	if err := voucher.ApplyReturn(code, now); err != nil {
		log.Printf("apply return on voucher %d: %v", voucher.Index, err)
	}
}

func (d *Driver) sendOffer(ctx context.Context, voucher *domain.Voucher, recipient, epoch string, now time.Time) bool {
	log.Printf("offering voucher %d to %s", voucher.Index, recipient)
	post, err := d.forum.CreatePrivateMessage(ctx, d.render.DeliveryTitle(epoch), d.render.Offer(AcceptTrigger), recipient)
	if err != nil {
		log.Printf("send offer to %s: %v", recipient, err)
		return false
	}
	voucher.AddOffer(recipient, post.TopicID, now)
	return true
}

// deliver sends the actual code to the owner. With topicID zero a fresh
// private thread is opened; otherwise the code lands on the given thread
// (the accepted offer's thread). The return address embeds the history
// length the delivery is about to establish, which is what makes duplicate
// return emails detectable later.
func (d *Driver) deliver(ctx context.Context, voucher *domain.Voucher, epoch string, topicID int) error {
	if voucher.MessageID != 0 {
		return domain.ErrAlreadyDelivered
	}
	token, err := domain.EncodeIdentifier(voucher.Index, len(voucher.History)+1, epoch)
	if err != nil {
		return err
	}
	content := d.render.Delivery(voucher.Code, d.returnAddress(token))

	log.Printf("sending voucher %d to %s", voucher.Index, voucher.Owner)
	var post forum.Post
	if topicID != 0 {
		post, err = d.forum.CreateReply(ctx, topicID, content)
	} else {
		post, err = d.forum.CreatePrivateMessage(ctx, d.render.DeliveryTitle(epoch), content, voucher.Owner)
	}
	if err != nil {
		return err
	}

	threadID := post.TopicID
	if topicID != 0 {
		threadID = topicID
	}
	return voucher.MarkDelivered(threadID, d.clock())
}

// maintainTopic discovers or creates the epoch's distribution topic and
// refreshes its standing status post. Transport failures here are logged and
// retried next cycle.
func (d *Driver) maintainTopic(ctx context.Context, pool *domain.Pool, epoch string, now time.Time) {
	title := d.render.TopicTitle(epoch)
	topicID := pool.Topics[epoch]

	if topicID == 0 {
		topics, err := d.forum.CategoryTopics(ctx, d.cfg.Category)
		if err != nil {
			log.Printf("list category topics: %v", err)
			return
		}
		for _, topic := range topics {
			if topic.Title == title {
				topicID = topic.ID
				pool.Topics[epoch] = topicID
				break
			}
		}
	}

	content := d.render.StatusPost(*pool, epoch, now)
	if topicID == 0 {
		log.Printf("creating distribution topic %q", title)
		post, err := d.forum.CreateTopic(ctx, d.cfg.Category, title, content)
		if err != nil {
			log.Printf("create distribution topic: %v", err)
			return
		}
		pool.Topics[epoch] = post.TopicID
		return
	}

	posts, err := d.forum.TopicPosts(ctx, topicID)
	if err != nil || len(posts) == 0 {
		log.Printf("load distribution topic %d: %v", topicID, err)
		return
	}
	if err := d.forum.UpdatePost(ctx, posts[0].ID, content); err != nil {
		log.Printf("update status post: %v", err)
	}
}
