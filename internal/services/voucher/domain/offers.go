package domain

import "time"

// ExcludedFromOffers collects members who must not receive a new offer this
// cycle: current owners and anyone holding an unexpired offer on any voucher.
// The returned set is mutated by the driver as it emits offers within one
// cycle, which keeps the one-offer-per-member rule cross-voucher.
func (p *Pool) ExcludedFromOffers(now time.Time) map[string]bool {
	excluded := map[string]bool{}
	for i := range p.Vouchers {
		v := &p.Vouchers[i]
		if v.Owner != "" {
			excluded[v.Owner] = true
		}
		for _, offer := range v.OfferedTo {
			if now.Sub(offer.OfferedAt) <= OfferEscalationWindow {
				excluded[offer.Username] = true
			}
		}
	}
	return excluded
}

// NextRecipient picks the first queue member not excluded from offers.
func (p *Pool) NextRecipient(excluded map[string]bool) (string, bool) {
	for _, name := range p.Queue {
		if !excluded[name] {
			return name, true
		}
	}
	return "", false
}

// FindOfferThread locates the voucher whose offer to username lives on the
// given message thread. Acceptance replies on any other thread are
// unsolicited and stay unhandled.
func (p *Pool) FindOfferThread(messageID int, username string) (*Voucher, bool) {
	for i := range p.Vouchers {
		for _, offer := range p.Vouchers[i].OfferedTo {
			if offer.MessageID == messageID && offer.Username == username {
				return &p.Vouchers[i], true
			}
		}
	}
	return nil, false
}

// Award assigns the voucher to the accepting member. The first invocation to
// observe an empty owner wins; any later acceptance sees ErrVoucherOwned.
// Exactly one matching queue entry is consumed. The offer history stays on
// the record so a late acceptance on a superseded offer thread still resolves
// to this voucher and gets the lapsed reply; the superseded offers are
// returned so their holders can be notified right away.
func (p *Pool) Award(v *Voucher, username string) ([]Offer, error) {
	if v.Owner != "" {
		return nil, ErrVoucherOwned
	}
	v.Owner = username
	p.Queue = RemoveFirstFromQueue(p.Queue, username)

	var lapsed []Offer
	for _, offer := range v.OfferedTo {
		if offer.Username != username {
			lapsed = append(lapsed, offer)
		}
	}
	return lapsed, nil
}
