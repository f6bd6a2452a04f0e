package commands

import (
	"errors"

	"github.com/kamas-trade/kamasbot/internal/ledger"
	"github.com/kamas-trade/kamasbot/internal/report"
)

const (
	msgJournalNotFound = "Canal journal introuvable."
	msgReportNotFound  = "Canal rapport introuvable."
)

func handleData(c *Context) {
	if !c.RequireAdmin() {
		return
	}
	opts := optionMap(c.Interaction)
	kind, ok := ledger.ParseKind(getStringOption(opts, "type"))
	if !ok {
		c.Reply(msgInvalidLedger)
		return
	}
	// Validate before deferring.
	quantity, rate := getStringOption(opts, "montant_m"), getStringOption(opts, "taux")
	if _, err := ledger.ValidateAmount(quantity); err != nil {
		c.Reply(msgInvalidLedger)
		return
	}
	if _, err := ledger.ValidateAmount(rate); err != nil {
		c.Reply(msgInvalidLedger)
		return
	}

	c.Defer()
	author := report.Author{ID: c.UserID(), Name: c.DisplayName()}
	_, err := c.Deps.Ledger.Record(c.Context(), c.GuildID, author, kind, quantity, rate)
	switch {
	case err == nil:
		c.Reply("✅ Donnée enregistrée dans le journal. Le bilan a été mis à jour.")
	case errors.Is(err, report.ErrNotPublished):
		c.Log().WithError(err).Warn("journal entry recorded without report refresh")
		c.Reply("✅ Donnée enregistrée dans le journal. ⚠️ Le bilan n'a pas pu être mis à jour, lance /data_rebuild.")
	default:
		c.Log().WithError(err).Error("record journal entry")
		c.Reply(failureMessage(err, msgJournalNotFound))
	}
}

func handleDataIni(c *Context) {
	if !c.RequireAdmin() {
		return
	}
	c.Defer()
	if err := c.Deps.Ledger.ResetToZero(c.Context(), c.GuildID); err != nil {
		c.Log().WithError(err).Error("reset ledger report")
		c.Reply(failureMessage(err, msgReportNotFound))
		return
	}
	c.Reply("🧹 Bilan réinitialisé. Les tableaux et totaux sont à 0,00 € (journal non relu).")
}

func handleDataRebuild(c *Context) {
	if !c.RequireAdmin() {
		return
	}
	c.Defer()
	if _, err := c.Deps.Ledger.Rebuild(c.Context(), c.GuildID); err != nil {
		c.Log().WithError(err).Error("rebuild ledger report")
		c.Reply(failureMessage(err, "Canal journal ou rapport introuvable."))
		return
	}
	c.Reply("🔄 Bilan reconstruit à partir de l’historique du journal.")
}
