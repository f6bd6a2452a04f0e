package commands

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/kamas-trade/kamasbot/internal/render"
	"github.com/kamas-trade/kamasbot/internal/stock"
)

const (
	msgGlobalNotFound = "Channel global introuvable."
	msgAdminsNotFound = "Channel des stocks admins introuvable."
)

func handleStockPublishGlobal(c *Context) {
	if !c.RequireAdmin() {
		return
	}
	c.Defer()
	if _, _, err := c.Deps.Stock.PublishGlobal(c.Context(), c.GuildID); err != nil {
		c.Log().WithError(err).Error("publish global stock")
		c.Reply(failureMessage(err, msgGlobalNotFound))
		return
	}
	c.Reply("✅ Message de stock global publié et lié.")
}

func handleStockPublishAdmin(c *Context) {
	target, ok := adminTarget(c)
	if !ok {
		return
	}
	c.Defer()
	if _, _, err := c.Deps.Stock.PublishAdmin(c.Context(), c.GuildID, stock.AdminFromMember(target)); err != nil {
		c.Log().WithError(err).Error("publish admin stock")
		c.Reply(failureMessage(err, msgAdminsNotFound))
		return
	}
	c.Reply(fmt.Sprintf("✅ Message de stock créé pour %s.", mention(target.User.ID)))
}

func handleStockSetAdmin(c *Context) {
	target, ok := adminTarget(c)
	if !ok {
		return
	}
	amount, _ := getIntOption(optionMap(c.Interaction), "montant")
	if amount < 0 {
		c.Reply(msgInvalidKamas)
		return
	}
	c.Defer()
	got, err := c.Deps.Stock.SetAdmin(c.Context(), c.GuildID, stock.AdminFromMember(target), amount)
	if !stockSaved(c, err) {
		return
	}
	c.Reply(fmt.Sprintf("✅ Stock de %s fixé à %s kamas (global mis à jour).", mention(target.User.ID), render.Kamas(got)))
}

func handleStockAddAdmin(c *Context) { adjustAdmin(c, 1) }

func handleStockRemoveAdmin(c *Context) { adjustAdmin(c, -1) }

func adjustAdmin(c *Context, sign int64) {
	target, ok := adminTarget(c)
	if !ok {
		return
	}
	amount, _ := getIntOption(optionMap(c.Interaction), "montant")
	if amount <= 0 {
		c.Reply(msgInvalidKamas)
		return
	}
	c.Defer()
	got, err := c.Deps.Stock.AdjustAdmin(c.Context(), c.GuildID, stock.AdminFromMember(target), sign*amount)
	if !stockSaved(c, err) {
		return
	}
	symbol := "+"
	if sign < 0 {
		symbol = "-"
	}
	c.Reply(fmt.Sprintf("✅ Stock de %s ajusté (%s%s). Nouveau : %s kamas (global mis à jour).",
		mention(target.User.ID), symbol, render.Kamas(amount), render.Kamas(got)))
}

func handleStockRefresh(c *Context) {
	if !c.RequireAdmin() {
		return
	}
	c.Defer()
	if _, err := c.Deps.Stock.RefreshGlobal(c.Context(), c.GuildID); err != nil {
		c.Log().WithError(err).Error("refresh global stock")
		c.Reply(failureMessage(err, msgGlobalNotFound))
		return
	}
	c.Reply("🔄 Stock global recalculé et rafraîchi.")
}

// handleGlobalSetterDisabled answers /stock_set, /stock_add and
// /stock_remove. The global stock is derived, so they never touch it.
func handleGlobalSetterDisabled(c *Context) {
	c.Reply(msgGlobalIsDerived)
}

// adminTarget gates on the invoker's role and resolves the "admin" option,
// which must also hold the admin role.
func adminTarget(c *Context) (target *discordgo.Member, ok bool) {
	if !c.RequireAdmin() {
		return nil, false
	}
	target = getMemberOption(c.Interaction, optionMap(c.Interaction), "admin")
	if target == nil || !hasRole(target, c.Deps.Config.AdminRoleID) {
		c.Reply(msgNotAdminTarget)
		return nil, false
	}
	return target, true
}

// stockSaved replies on failure and reports whether the caller should send
// its success message. A saved balance whose summary lagged still counts.
func stockSaved(c *Context, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, stock.ErrNotRefreshed):
		c.Log().WithError(err).Warn("stock saved without summary refresh")
		return true
	}
	c.Log().WithError(err).Error("update admin stock")
	c.Reply(failureMessage(err, msgAdminsNotFound))
	return false
}
