package commands

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/kamas-trade/kamasbot/internal/platform"
)

const msgJournalIsReserved = "❌ Le journal est réservé à /data."

// handleEnvoyer posts a message as the bot, into the chosen channel or the
// current one. The journal channel is refused.
func handleEnvoyer(c *Context) {
	if !c.RequireAdmin() {
		return
	}
	opts := optionMap(c.Interaction)
	message := getStringOption(opts, "message")
	if message == "" {
		c.Reply("❌ Le message est vide.")
		return
	}
	target := c.Interaction.ChannelID
	if o, ok := opts["salon"]; ok {
		if id, _ := o.Value.(string); id != "" {
			target = id
		}
	}
	// Every bot message in the journal is replayed as an entry.
	if target == c.Deps.Config.DataLogChannelID {
		c.Reply(msgJournalIsReserved)
		return
	}

	_, err := c.Session.ChannelMessageSend(target, message, discordgo.WithContext(c.Context()))
	if err != nil {
		err = platform.Classify(err)
		c.Log().WithError(err).WithField("channel_id", target).Warn("envoyer")
		switch {
		case errors.Is(err, platform.ErrForbidden):
			c.Reply("❌ Je n'ai pas la permission d'envoyer des messages dans ce salon.")
		case errors.Is(err, platform.ErrChannelNotFound):
			c.Reply("Impossible d'envoyer ce message ici. Choisissez un salon textuel.")
		default:
			c.Reply("❌ Une erreur est survenue lors de l'envoi.")
		}
		return
	}
	c.Reply(fmt.Sprintf("✅ Message envoyé dans <#%s>.", target))
}
