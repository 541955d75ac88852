package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, "voucher.offer.body",
		"A voucher is available for you! Reply with %s in this thread to claim it. "+
			"The offer moves on to the next person in the queue after a while, so don't wait too long.")
	message.SetString(lang, "voucher.offer.lapsed",
		"Your voucher offer has lapsed. You will get a message once another voucher becomes available.")
	message.SetString(lang, "voucher.delivery.body",
		"Here is your voucher code:\n\n%s\n\n"+
			"Once you have used it, the replicated voucher can be sent directly to %s, "+
			"or you can simply reply to this thread with the new code.")
	message.SetString(lang, "voucher.delivery.title", "Your %s voucher")
	message.SetString(lang, "voucher.return.received",
		"Great, thanks a lot for %q!")
	message.SetString(lang, "voucher.return.mail_received",
		"Thank you, I received the replicated voucher by email!")
	message.SetString(lang, "voucher.demand.confirmed",
		"All right! I put you down for %d voucher(s). If you change your mind, "+
			"send me \"VOUCHER-REQUEST 0\" and I will remove you from the waiting list.")
	message.SetString(lang, "voucher.demand.withdrawn",
		"0 vouchers, then? Okay, I removed you from the waiting list.")
	message.SetString(lang, "voucher.demand.not_found",
		"I understood \"0 vouchers\" and wanted to remove you from the waiting list, "+
			"but I could not find you. Maybe a typo?\n\n"+
			"If you already received a voucher and want to return it, open the thread "+
			"where I sent you the voucher and reply with the replicated code.")
	message.SetString(lang, "voucher.total.confirmed",
		"Thanks for the information! I will note in my post that you reported %d person(s) to the organizers.")
	message.SetString(lang, "voucher.total.missing_count",
		"I could not find a number of persons in your message. "+
			"Please tell me how many persons you reported to the organizers.")
	message.SetString(lang, "voucher.total.too_late",
		"We already received vouchers. It is a bit late for an estimate now.")
	message.SetString(lang, "voucher.total.duplicate",
		"A number of persons has already been reported.")
	message.SetString(lang, "voucher.total.announcement",
		"@%s reported a total demand of %d person(s) to the congress organizers.")
	message.SetString(lang, "voucher.list.received",
		"Thanks for the list! I found and stored %d voucher(s). I will now distribute them to the waiting list.")
	message.SetString(lang, "voucher.list.exists",
		"A voucher list already exists. I can only manage one list.")
	message.SetString(lang, "voucher.list.no_codes",
		"I am really sorry, but I could not find any vouchers in your message. "+
			"I look for codes matching `CHAOS[a-zA-Z0-9]+`. Maybe the format changed? Then I would need an update.")
	message.SetString(lang, "voucher.list.announcement",
		"%s handed over %d voucher(s). The distribution starts now.")
	message.SetString(lang, "voucher.list.mail_announcement",
		"A batch of %d voucher(s) arrived by mail. The distribution starts now.")
	message.SetString(lang, "voucher.phase.confirmed",
		"Thanks for the information! Vouchers can be redeemed from %s until %s.")
	message.SetString(lang, "voucher.phase.missing_range",
		"I could not find a date range in your message. Use the format `YYYY-MM-DD to YYYY-MM-DD`.")
	message.SetString(lang, "voucher.exhausted.confirmed",
		"Thanks for the information! I will update my post.")
	message.SetString(lang, "voucher.exhausted.missing_timestamp",
		"I could not find a timestamp in your message. Use the format `YYYY-MM-DD HH:MM`.")
	message.SetString(lang, "voucher.exhausted.no_phase",
		"I could not find a voucher phase. Please record the phase first via "+
			"`VOUCHER-PHASE YYYY-MM-DD to YYYY-MM-DD` before telling me the vouchers ran out.")
	message.SetString(lang, "voucher.exhausted.outside_phase",
		"The exhaustion timestamp does not fall within the voucher phase. "+
			"Please give a timestamp between the phase start and end.")
	message.SetString(lang, "voucher.not_understood",
		"Sorry, I did not understand your message. Send me \"VOUCHER-REQUEST <count>\" to join the waiting list.")
	message.SetString(lang, "voucher.status.intro",
		"I am distributing the %s vouchers. Send me a private message containing "+
			"\"VOUCHER-REQUEST <count>\" to join the waiting list.")
	message.SetString(lang, "voucher.status.pool", "Vouchers under management: %d (%d available)")
	message.SetString(lang, "voucher.status.waiting", "Persons waiting: %d")
	message.SetString(lang, "voucher.status.total_reported", "Total demand reported to the organizers: %d")
	message.SetString(lang, "voucher.status.phase", "Redemption phase: %s until %s")
	message.SetString(lang, "voucher.status.exhausted", "Upstream pool exhausted since: %s")
	message.SetString(lang, "voucher.status.queue_heading", "Current queue:")
	message.SetString(lang, "voucher.status.demand_heading", "Outstanding demand:")
	message.SetString(lang, "voucher.status.updated", "Last updated: %s")
}
