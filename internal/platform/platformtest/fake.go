// Package platformtest provides an in-memory Discord stand-in for tests.
package platformtest

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Fake implements platform.Messenger and platform.History over in-memory
// channels, plus the interaction and channel calls the command handlers make.
// Unknown channels answer like the REST API does. A channel belongs to no
// guild until AssignGuild places it in one.
type Fake struct {
	SelfID string

	mu        sync.Mutex
	next      int64
	channels  map[string][]*discordgo.Message
	guilds    map[string]string
	forbidden map[string]bool
	failNext  error
	replies   []Reply
	created   []discordgo.GuildChannelCreateData

	Sends   int
	Edits   int
	Fetches int
	Pages   int
}

func New(selfID string, channelIDs ...string) *Fake {
	f := &Fake{
		SelfID:    selfID,
		next:      1100000000000000000,
		channels:  make(map[string][]*discordgo.Message),
		guilds:    make(map[string]string),
		forbidden: make(map[string]bool),
	}
	for _, id := range channelIDs {
		f.channels[id] = nil
	}
	return f
}

// AddChannel creates an empty channel.
func (f *Fake) AddChannel(channelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelID]; !ok {
		f.channels[channelID] = nil
	}
}

// AssignGuild places the channels in guildID, creating them if needed.
func (f *Fake) AssignGuild(guildID string, channelIDs ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range channelIDs {
		if _, ok := f.channels[id]; !ok {
			f.channels[id] = nil
		}
		f.guilds[id] = guildID
	}
	return f
}

// RemoveChannel drops a channel and its messages.
func (f *Fake) RemoveChannel(channelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, channelID)
}

// Forbid makes every call on channelID fail with a missing-permissions error.
func (f *Fake) Forbid(channelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forbidden[channelID] = true
}

// FailNext makes the next call fail with err.
func (f *Fake) FailNext(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = err
}

// Post appends a message written by authorID, as if it came from elsewhere.
func (f *Fake) Post(channelID, authorID, content string) *discordgo.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appendLocked(channelID, authorID, content, nil)
}

// Delete removes a single message.
func (f *Fake) Delete(channelID, messageID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.channels[channelID]
	for i, m := range msgs {
		if m.ID == messageID {
			f.channels[channelID] = append(msgs[:i:i], msgs[i+1:]...)
			return
		}
	}
}

// Messages returns a copy of the channel's messages, oldest first.
func (f *Fake) Messages(channelID string) []*discordgo.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discordgo.Message(nil), f.channels[channelID]...)
}

// Message returns one message or nil.
func (f *Fake) Message(channelID, messageID string) *discordgo.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findLocked(channelID, messageID)
}

// Channel never consumes a FailNext error, so it does not shift failures
// meant for the message calls.
func (f *Fake) Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelID]; !ok {
		return nil, RESTError(http.StatusNotFound, discordgo.ErrCodeUnknownChannel)
	}
	return &discordgo.Channel{ID: channelID, GuildID: f.guilds[channelID]}, nil
}

func (f *Fake) ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fetches++
	if err := f.checkLocked(channelID); err != nil {
		return nil, err
	}
	m := f.findLocked(channelID, messageID)
	if m == nil {
		return nil, RESTError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage)
	}
	return m, nil
}

func (f *Fake) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sends++
	if err := f.checkLocked(channelID); err != nil {
		return nil, err
	}
	return f.appendLocked(channelID, f.SelfID, content, nil), nil
}

func (f *Fake) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sends++
	if err := f.checkLocked(channelID); err != nil {
		return nil, err
	}
	return f.appendLocked(channelID, f.SelfID, "", embed), nil
}

func (f *Fake) ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Edits++
	if err := f.checkLocked(channelID); err != nil {
		return nil, err
	}
	m := f.findLocked(channelID, messageID)
	if m == nil {
		return nil, RESTError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage)
	}
	m.Embeds = []*discordgo.MessageEmbed{embed}
	return m, nil
}

// ChannelMessages pages like the REST endpoint: with an after cursor it
// returns the oldest messages past it, otherwise the newest ones, and
// always newest first.
func (f *Fake) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pages++
	if err := f.checkLocked(channelID); err != nil {
		return nil, err
	}
	msgs := f.channels[channelID]

	var page []*discordgo.Message
	if afterID != "" {
		for _, m := range msgs {
			if idLess(afterID, m.ID) {
				page = append(page, m)
				if len(page) == limit {
					break
				}
			}
		}
	} else {
		for i := len(msgs) - 1; i >= 0 && len(page) < limit; i-- {
			if beforeID == "" || idLess(msgs[i].ID, beforeID) {
				page = append(page, msgs[i])
			}
		}
		return page, nil
	}
	sort.Slice(page, func(i, j int) bool { return idLess(page[j].ID, page[i].ID) })
	return page, nil
}

func (f *Fake) checkLocked(channelID string) error {
	if err := f.failNext; err != nil {
		f.failNext = nil
		return err
	}
	if _, ok := f.channels[channelID]; !ok {
		return RESTError(http.StatusNotFound, discordgo.ErrCodeUnknownChannel)
	}
	if f.forbidden[channelID] {
		return RESTError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions)
	}
	return nil
}

func (f *Fake) appendLocked(channelID, authorID, content string, embed *discordgo.MessageEmbed) *discordgo.Message {
	f.next++
	m := &discordgo.Message{
		ID:        fmt.Sprintf("%d", f.next),
		ChannelID: channelID,
		Content:   content,
		Author:    &discordgo.User{ID: authorID, Bot: authorID == f.SelfID},
	}
	if embed != nil {
		m.Embeds = []*discordgo.MessageEmbed{embed}
	}
	f.channels[channelID] = append(f.channels[channelID], m)
	return m
}

func (f *Fake) findLocked(channelID, messageID string) *discordgo.Message {
	for _, m := range f.channels[channelID] {
		if m.ID == messageID {
			return m
		}
	}
	return nil
}

// RESTError builds the error discordgo returns for a failed request.
func RESTError(status, code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status, Status: http.StatusText(status)},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: http.StatusText(status)},
	}
}

func idLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
