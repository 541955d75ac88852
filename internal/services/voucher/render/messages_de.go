package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.German

	message.SetString(lang, "voucher.offer.body",
		"Ein Voucher ist für dich verfügbar! Antworte mit %s in diesem Thread, um ihn zu beanspruchen. "+
			"Das Angebot wandert nach einer Weile zur nächsten Person in der Warteschlange, warte also nicht zu lange.")
	message.SetString(lang, "voucher.offer.lapsed",
		"Dein Voucher ist ausgelaufen. Du erhältst eine Nachricht, wenn wieder ein Voucher verfügbar ist.")
	message.SetString(lang, "voucher.delivery.body",
		"Hier ist dein Voucher-Code:\n\n%s\n\n"+
			"Sobald du ihn benutzt hast, kann der replizierte Voucher direkt an %s geschickt werden, "+
			"oder du antwortest einfach in diesem Thread mit dem neuen Code.")
	message.SetString(lang, "voucher.delivery.title", "Dein %s Voucher")
	message.SetString(lang, "voucher.return.received",
		"Prima, vielen Dank für %q!")
	message.SetString(lang, "voucher.return.mail_received",
		"Vielen Dank, ich habe den replizierten Voucher per E-Mail erhalten!")
	message.SetString(lang, "voucher.demand.confirmed",
		"Alles klar! Ich habe dich für %d Voucher vorgemerkt. Falls du es dir anders überlegst, "+
			"schreibe mir \"VOUCHER-REQUEST 0\" und ich entferne dich aus der Warteschlange.")
	message.SetString(lang, "voucher.demand.withdrawn",
		"0 Voucher also? Okay, ich habe dich aus der Warteschlange entfernt.")
	message.SetString(lang, "voucher.demand.not_found",
		"Ich habe \"0 Voucher\" verstanden und wollte dich aus der Warteschlange entfernen, "+
			"aber ich konnte dich nicht finden. Vielleicht hast du dich vertippt?\n\n"+
			"Falls du bereits einen Voucher erhalten hast und ihn zurückgeben möchtest, "+
			"öffne den Thread, in dem ich dir den Voucher zugesendet habe, und antworte mit dem replizierten Code.")
	message.SetString(lang, "voucher.total.confirmed",
		"Danke für die Information! Ich schreibe in meinen Post, dass du %d Personen an die Organisation gemeldet hast.")
	message.SetString(lang, "voucher.total.missing_count",
		"Ich konnte keine Anzahl an Personen in deiner Nachricht finden. "+
			"Bitte gib an, wie viele Personen du den Organisatoren mitgeteilt hast.")
	message.SetString(lang, "voucher.total.too_late",
		"Wir haben doch schon Voucher erhalten. Ist jetzt ein bisschen spät für ne Abschätzung.")
	message.SetString(lang, "voucher.total.duplicate",
		"Es wurde bereits eine Anzahl an Personen gemeldet.")
	message.SetString(lang, "voucher.total.announcement",
		"@%s hat einen Gesamtbedarf von %d Personen an die Congress-Organisation gemeldet.")
	message.SetString(lang, "voucher.list.received",
		"Danke für die Liste! Ich habe %d Voucher gefunden und abgespeichert. Ich werde sie nun an die Interessenten verteilen.")
	message.SetString(lang, "voucher.list.exists",
		"Es existiert bereits eine Voucher-Liste. Ich kann nur eine Liste verwalten.")
	message.SetString(lang, "voucher.list.no_codes",
		"Es tut mir wirklich leid, aber ich konnte keine Voucher in deiner Nachricht finden. "+
			"Ich suche nach Vouchern mit diesem Muster: `CHAOS[a-zA-Z0-9]+`. "+
			"Vielleicht hat sich das Format geändert? Dann bräuchte ich ein Update.")
	message.SetString(lang, "voucher.list.announcement",
		"%s hat %d Voucher übergeben. Die Verteilung beginnt jetzt.")
	message.SetString(lang, "voucher.list.mail_announcement",
		"Es wurden %d Voucher per E-Mail übergeben. Die Verteilung beginnt jetzt.")
	message.SetString(lang, "voucher.phase.confirmed",
		"Danke für die Information! Die Voucher können vom %s bis %s genutzt werden.")
	message.SetString(lang, "voucher.phase.missing_range",
		"Ich konnte keinen Zeitraum in deiner Nachricht finden. Nutze das Format `YYYY-MM-DD to YYYY-MM-DD`.")
	message.SetString(lang, "voucher.exhausted.confirmed",
		"Danke für die Information! Ich aktualisiere meinen Post.")
	message.SetString(lang, "voucher.exhausted.missing_timestamp",
		"Ich konnte keinen Zeitpunkt in deiner Nachricht finden. Nutze das Format `YYYY-MM-DD HH:MM`.")
	message.SetString(lang, "voucher.exhausted.no_phase",
		"Ich konnte keinen Zeitraum für die Voucher finden. Bitte gib zuerst den Zeitraum mittels "+
			"`VOUCHER-PHASE YYYY-MM-DD to YYYY-MM-DD` an, bevor du mir mitteilst, dass die Voucher erschöpft sind.")
	message.SetString(lang, "voucher.exhausted.outside_phase",
		"Der Zeitpunkt liegt nicht innerhalb des Zeitraums, in dem die Voucher genutzt werden können. "+
			"Bitte gib einen Zeitpunkt zwischen Start- und Enddatum der Voucherphase an.")
	message.SetString(lang, "voucher.not_understood",
		"Entschuldige, ich habe deine Nachricht nicht verstanden. Schreibe mir \"VOUCHER-REQUEST <Anzahl>\", "+
			"um dich in die Warteschlange einzutragen.")
	message.SetString(lang, "voucher.status.intro",
		"Ich verteile die %s Voucher. Schreibe mir eine private Nachricht mit "+
			"\"VOUCHER-REQUEST <Anzahl>\", um dich in die Warteschlange einzutragen.")
	message.SetString(lang, "voucher.status.pool", "Verwaltete Voucher: %d (%d verfügbar)")
	message.SetString(lang, "voucher.status.waiting", "Wartende Personen: %d")
	message.SetString(lang, "voucher.status.total_reported", "Gemeldeter Gesamtbedarf: %d")
	message.SetString(lang, "voucher.status.phase", "Einlösephase: %s bis %s")
	message.SetString(lang, "voucher.status.exhausted", "Voucher-Pool erschöpft seit: %s")
	message.SetString(lang, "voucher.status.queue_heading", "Aktuelle Warteschlange:")
	message.SetString(lang, "voucher.status.demand_heading", "Offener Bedarf:")
	message.SetString(lang, "voucher.status.updated", "Zuletzt aktualisiert: %s")
}
