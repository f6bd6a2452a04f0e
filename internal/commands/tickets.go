package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"github.com/kamas-trade/kamasbot/internal/platform"
	"github.com/kamas-trade/kamasbot/internal/render"
	"github.com/kamas-trade/kamasbot/internal/stock"
)

// Custom IDs. The close button and its modal carry the ticket side and the
// opener's user ID ("ticket_close:achat:123") so they survive restarts.
const (
	customIDOpenBuy    = "ticket_open:achat"
	customIDOpenSell   = "ticket_open:vente"
	customIDClose      = "ticket_close"
	customIDCloseModal = "ticket_close_modal"
	customIDAmount     = "amount"
)

const (
	sideBuy  = "achat"
	sideSell = "vente"
)

const (
	ticketPerms = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages |
		discordgo.PermissionAttachFiles | discordgo.PermissionEmbedLinks
	ticketAdminPerms = ticketPerms | discordgo.PermissionManageMessages
)

// ticketRef identifies a ticket from a close custom ID.
type ticketRef struct {
	Side     string
	OpenerID string
}

func (t ticketRef) suffix() string {
	return t.Side + ":" + t.OpenerID
}

// parseTicketRef reads "<prefix>:<side>:<opener>".
func parseTicketRef(customID, prefix string) (ticketRef, bool) {
	rest, ok := strings.CutPrefix(customID, prefix+":")
	if !ok {
		return ticketRef{}, false
	}
	side, opener, ok := strings.Cut(rest, ":")
	if !ok || (side != sideBuy && side != sideSell) || opener == "" || !allDigits(opener) {
		return ticketRef{}, false
	}
	return ticketRef{Side: side, OpenerID: opener}, true
}

// stockKind maps the customer's side of a ticket onto the admin's stock:
// a customer buying kamas takes them out of the admin's stock.
func (t ticketRef) stockKind() stock.Kind {
	if t.Side == sideBuy {
		return stock.KindSell
	}
	return stock.KindBuy
}

func handlePublishTickets(c *Context) {
	if !c.IsAdmin() {
		c.Reply("Seuls les administrateurs peuvent utiliser cette commande.")
		return
	}
	hubID := c.Deps.Config.TicketHubChannelID
	if hubID == "" {
		c.Reply("Salon hub introuvable.")
		return
	}

	doc := render.Document{
		Title: "🎟️ Support Kamas",
		Description: "Ouvrez un ticket en fonction de votre besoin :\n\n" +
			"💰 **Achat de kamas**\n" +
			"⭐ **Vente de kamas**\n\n" +
			"Cliquez sur l’un des boutons ci-dessous.",
		Color: render.ColorOrange,
	}
	_, err := c.Session.ChannelMessageSendComplex(hubID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{doc.Embed()},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "💰 Achat de kamas", Style: discordgo.SuccessButton, CustomID: customIDOpenBuy},
				discordgo.Button{Label: "⭐ Vente de kamas", Style: discordgo.PrimaryButton, CustomID: customIDOpenSell},
			}},
		},
	}, discordgo.WithContext(c.Context()))
	if err != nil {
		c.Log().WithError(err).Error("publish ticket hub")
		c.Reply(failureMessage(platform.Classify(err), "Salon hub introuvable."))
		return
	}
	c.Reply("✅ Message de tickets publié.")
}

func handleTicketOpen(c *Context) {
	side := sideBuy
	if c.Interaction.MessageComponentData().CustomID == customIDOpenSell {
		side = sideSell
	}
	cfg := c.Deps.Config
	if cfg.TicketCategoryID == "" {
		c.Reply("Catégorie de tickets introuvable.")
		return
	}
	user := c.Member.User

	overwrites := []*discordgo.PermissionOverwrite{
		// The @everyone role shares the guild's ID.
		{ID: c.Interaction.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: user.ID, Type: discordgo.PermissionOverwriteTypeMember, Allow: ticketPerms},
	}
	ping := mention(user.ID)
	if cfg.AdminRoleID != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: cfg.AdminRoleID, Type: discordgo.PermissionOverwriteTypeRole, Allow: ticketAdminPerms,
		})
		ping += " <@&" + cfg.AdminRoleID + ">"
	}

	ch, err := c.Session.GuildChannelCreateComplex(c.Interaction.GuildID, discordgo.GuildChannelCreateData{
		Name:                 ticketChannelName(side, user.Username),
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             cfg.TicketCategoryID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(c.Context()))
	if err != nil {
		c.Log().WithError(err).Error("create ticket channel")
		c.Reply(failureMessage(platform.Classify(err), "Catégorie de tickets introuvable."))
		return
	}

	ref := ticketRef{Side: side, OpenerID: user.ID}
	_, err = c.Session.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
		Content: ping,
		Embeds:  []*discordgo.MessageEmbed{ticketWelcome(side).Embed()},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "🔒 Fermeture ticket", Style: discordgo.DangerButton, CustomID: customIDClose + ":" + ref.suffix()},
			}},
		},
	}, discordgo.WithContext(c.Context()))
	if err != nil {
		c.Log().WithError(err).WithField("channel_id", ch.ID).Error("post ticket controls")
	}

	c.Log().WithFields(log.Fields{"channel_id": ch.ID, "side": side}).Info("ticket opened")
	c.Reply(fmt.Sprintf("Ticket créé : <#%s>", ch.ID))
}

func ticketChannelName(side, username string) string {
	return strings.ReplaceAll(strings.ToLower("ticket-"+side+"-"+username), " ", "-")
}

func ticketWelcome(side string) render.Document {
	title, verb := "🎫 Ticket — Achat de kamas", "acheter"
	if side == sideSell {
		title, verb = "🎫 Ticket — Vente de kamas", "vendre"
	}
	return render.Document{
		Title: title,
		Description: "Merci d’avoir ouvert un ticket !\n\n" +
			"👉 Indique précisément votre demande : **montant** que vous souhaitez " + verb + " (en kamas).\n\n" +
			"⏳ Un administrateur va vous répondre. Merci de patienter.\n\n" +
			"Quand l’échange est terminé, un **ADMIN** peut fermer le ticket avec le bouton ci-dessous.",
		Color: render.ColorOrange,
	}
}

func handleTicketClose(c *Context) {
	if !c.IsAdmin() {
		c.Reply("Seul un administrateur peut fermer ce ticket.")
		return
	}
	ref, ok := parseTicketRef(c.Interaction.MessageComponentData().CustomID, customIDClose)
	if !ok {
		c.Reply("Ticket inconnu : ferme ce salon manuellement.")
		return
	}
	err := c.Session.InteractionRespond(c.Interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: customIDCloseModal + ":" + ref.suffix(),
			Title:    "Fermeture du ticket",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    customIDAmount,
						Label:       "Montant de la transaction (en kamas)",
						Placeholder: "Ex: 12 500 000",
						Style:       discordgo.TextInputShort,
						Required:    true,
						MaxLength:   32,
					},
				}},
			},
		},
	})
	if err != nil {
		c.Log().WithError(err).Warn("open close-ticket modal")
	}
}

func handleTicketCloseSubmit(c *Context) {
	if !c.IsAdmin() {
		c.Reply("Seul un administrateur peut fermer ce ticket.")
		return
	}
	data := c.Interaction.ModalSubmitData()
	ref, ok := parseTicketRef(data.CustomID, customIDCloseModal)
	if !ok {
		c.Reply("Ticket inconnu : ferme ce salon manuellement.")
		return
	}
	raw := getModalValue(data, customIDAmount)
	amount, err := ParseKamas(raw)
	if err != nil {
		c.Reply(msgInvalidKamas)
		return
	}
	archiveID := c.Deps.Config.TicketArchiveChannelID
	if archiveID == "" {
		c.Reply("Canal d’archives introuvable. Préviens un administrateur.")
		return
	}

	c.Defer()
	line := fmt.Sprintf("**Transaction du %s** avec %s : **%s** de **%s** kamas. Transaction gérée par %s.",
		c.now().UTC().Format("02/01/2006 15:04 UTC"), mention(ref.OpenerID), ref.Side, render.Kamas(amount), mention(c.UserID()))
	if _, err := c.Session.ChannelMessageSend(archiveID, line, discordgo.WithContext(c.Context())); err != nil {
		c.Log().WithError(err).Error("archive ticket")
		c.Reply(failureMessage(platform.Classify(err), "Canal d’archives introuvable. Préviens un administrateur."))
		return
	}

	balance, err := c.Deps.Stock.ApplyTransaction(c.Context(), c.GuildID, c.Invoker(), ref.stockKind(), amount)
	entry := c.Log().WithFields(log.Fields{"side": ref.Side, "amount": amount, "opener_id": ref.OpenerID})
	if !stockSaved(c, err) {
		entry.Error("ticket archived but stock not updated")
		return
	}
	entry.WithField("balance", balance).Info("ticket closed")
	c.Reply("Ticket archivé et fermé. Le salon va être supprimé.")

	if !tryDelete(c, c.Interaction.ChannelID) {
		entry.WithField("channel_id", c.Interaction.ChannelID).Warn("ticket channel left in place")
	}
}
