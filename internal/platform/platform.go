// Package platform holds the narrow slices of the Discord client that the
// ledger and stock code depend on, plus the error taxonomy used to tell a
// missing target apart from a permission problem or a transient failure.
package platform

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrForbidden       = errors.New("missing permissions")
)

// Channels resolves channel metadata.
type Channels interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Messenger is the part of *discordgo.Session used to post and maintain
// messages.
type Messenger interface {
	Channels
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// History pages through a channel's messages.
type History interface {
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

var _ Channels = (*discordgo.Session)(nil)
var _ Messenger = (*discordgo.Session)(nil)
var _ History = (*discordgo.Session)(nil)

// Classify maps a Discord REST error onto the package sentinels. Errors it
// does not recognise are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage:
			return errors.Join(ErrMessageNotFound, err)
		case discordgo.ErrCodeUnknownChannel:
			return errors.Join(ErrChannelNotFound, err)
		case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
			return errors.Join(ErrForbidden, err)
		}
	}
	if restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return errors.Join(ErrMessageNotFound, err)
		case http.StatusForbidden:
			return errors.Join(ErrForbidden, err)
		}
	}
	return err
}

// IsNotFound reports whether err means the addressed message or channel no
// longer exists.
func IsNotFound(err error) bool {
	err = Classify(err)
	return errors.Is(err, ErrMessageNotFound) || errors.Is(err, ErrChannelNotFound)
}

// IsTemporaryOrTimeout reports network-level failures worth reporting as
// "try again".
func IsTemporaryOrTimeout(err error) bool {
	if err == nil {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// RequireGuildChannel fails with ErrChannelNotFound unless channelID exists
// and belongs to guildID. A channel configured for one guild is invisible to
// every other guild.
func RequireGuildChannel(ctx context.Context, c Channels, guildID int64, channelID string) error {
	if channelID == "" {
		return fmt.Errorf("no channel configured: %w", ErrChannelNotFound)
	}
	ch, err := c.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		if errors.Is(Classify(err), ErrMessageNotFound) {
			return fmt.Errorf("resolve channel %s: %w", channelID, errors.Join(ErrChannelNotFound, err))
		}
		return fmt.Errorf("resolve channel %s: %w", channelID, Classify(err))
	}
	if ch.GuildID != strconv.FormatInt(guildID, 10) {
		return fmt.Errorf("channel %s is not in guild %d: %w", channelID, guildID, ErrChannelNotFound)
	}
	return nil
}
