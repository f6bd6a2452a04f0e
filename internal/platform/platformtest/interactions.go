package platformtest

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Reply is one answer given to an interaction, either the initial response or
// an edit of a deferred one.
type Reply struct {
	Type    discordgo.InteractionResponseType
	Content string
	Data    *discordgo.InteractionResponseData
}

// Replies returns every interaction answer recorded so far.
func (f *Fake) Replies() []Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Reply(nil), f.replies...)
}

// LastReply returns the text of the most recent answer, or "".
func (f *Fake) LastReply() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.replies) - 1; i >= 0; i-- {
		if f.replies[i].Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
			return f.replies[i].Content
		}
	}
	return ""
}

// CreatedChannels returns the channels created through the fake.
func (f *Fake) CreatedChannels() []discordgo.GuildChannelCreateData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]discordgo.GuildChannelCreateData(nil), f.created...)
}

// HasChannel reports whether channelID currently exists.
func (f *Fake) HasChannel(channelID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.channels[channelID]
	return ok
}

func (f *Fake) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := Reply{Type: resp.Type, Data: resp.Data}
	if resp.Data != nil {
		r.Content = resp.Data.Content
	}
	f.replies = append(f.replies, r)
	return nil
}

func (f *Fake) InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := Reply{Type: discordgo.InteractionResponseUpdateMessage}
	if newresp.Content != nil {
		r.Content = *newresp.Content
	}
	f.replies = append(f.replies, r)
	return &discordgo.Message{Content: r.Content}, nil
}

func (f *Fake) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sends++
	if err := f.checkLocked(channelID); err != nil {
		return nil, err
	}
	var embed *discordgo.MessageEmbed
	if len(data.Embeds) > 0 {
		embed = data.Embeds[0]
	}
	m := f.appendLocked(channelID, f.SelfID, data.Content, embed)
	m.Components = data.Components
	return m, nil
}

func (f *Fake) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNext; err != nil {
		f.failNext = nil
		return nil, err
	}
	f.next++
	id := fmt.Sprintf("%d", f.next)
	f.channels[id] = nil
	f.guilds[id] = guildID
	f.created = append(f.created, data)
	return &discordgo.Channel{ID: id, GuildID: guildID, Name: data.Name, Type: data.Type, ParentID: data.ParentID}, nil
}

func (f *Fake) ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked(channelID); err != nil {
		return nil, err
	}
	delete(f.channels, channelID)
	delete(f.guilds, channelID)
	return &discordgo.Channel{ID: channelID}, nil
}
