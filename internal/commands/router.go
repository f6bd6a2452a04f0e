package commands

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Kind tags the interaction variant a route answers.
type Kind int

const (
	KindCommand Kind = iota
	KindButton
	KindModal
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindButton:
		return "button"
	case KindModal:
		return "modal"
	}
	return "unknown"
}

type HandlerFunc func(c *Context)

type route struct {
	kind   Kind
	name   string
	prefix bool
	handle HandlerFunc
}

// Router maps slash command names and component custom IDs to handlers.
type Router struct {
	routes []route
}

// NewRouter returns the router wired with every command, button and modal the
// bot knows about.
func NewRouter() *Router {
	r := &Router{}

	r.Command("data", handleData)
	r.Command("data_ini", handleDataIni)
	r.Command("data_rebuild", handleDataRebuild)

	r.Command("stock_publish_global", handleStockPublishGlobal)
	r.Command("stock_publish_admin", handleStockPublishAdmin)
	r.Command("stock_set_admin", handleStockSetAdmin)
	r.Command("stock_add_admin", handleStockAddAdmin)
	r.Command("stock_remove_admin", handleStockRemoveAdmin)
	r.Command("stock_refresh", handleStockRefresh)
	r.Command("stock_set", handleGlobalSetterDisabled)
	r.Command("stock_add", handleGlobalSetterDisabled)
	r.Command("stock_remove", handleGlobalSetterDisabled)

	r.Command("publish_tickets", handlePublishTickets)
	r.Button(customIDOpenBuy, handleTicketOpen)
	r.Button(customIDOpenSell, handleTicketOpen)
	r.ButtonPrefix(customIDClose, handleTicketClose)
	r.ModalPrefix(customIDCloseModal, handleTicketCloseSubmit)

	r.Command("envoyer", handleEnvoyer)
	return r
}

func (r *Router) Command(name string, h HandlerFunc) {
	r.routes = append(r.routes, route{kind: KindCommand, name: name, handle: h})
}

func (r *Router) Button(customID string, h HandlerFunc) {
	r.routes = append(r.routes, route{kind: KindButton, name: customID, handle: h})
}

// ButtonPrefix matches customID itself and any "customID:..." variant.
func (r *Router) ButtonPrefix(customID string, h HandlerFunc) {
	r.routes = append(r.routes, route{kind: KindButton, name: customID, prefix: true, handle: h})
}

func (r *Router) ModalPrefix(customID string, h HandlerFunc) {
	r.routes = append(r.routes, route{kind: KindModal, name: customID, prefix: true, handle: h})
}

// Lookup finds the handler for an interaction variant and its name.
func (r *Router) Lookup(kind Kind, name string) (HandlerFunc, bool) {
	for _, rt := range r.routes {
		if rt.kind != kind {
			continue
		}
		if rt.name == name || (rt.prefix && strings.HasPrefix(name, rt.name+":")) {
			return rt.handle, true
		}
	}
	return nil, false
}

// Dispatch runs the handler matching i. It reports false when nothing
// matched or the interaction came from outside a guild.
func (r *Router) Dispatch(ctx context.Context, s Session, i *discordgo.InteractionCreate, deps *Deps) bool {
	kind, name, ok := interactionKey(i)
	if !ok {
		return false
	}
	h, ok := r.Lookup(kind, name)
	if !ok {
		return false
	}

	c := NewContext(ctx, s, i, deps)
	if c.GuildID == 0 || c.Member == nil {
		c.Reply(msgGuildOnly)
		return true
	}
	c.Log().WithField("interaction", kind.String()+":"+name).Debug("dispatch")
	h(c)
	return true
}

func interactionKey(i *discordgo.InteractionCreate) (Kind, string, bool) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		return KindCommand, i.ApplicationCommandData().Name, true
	case discordgo.InteractionMessageComponent:
		return KindButton, i.MessageComponentData().CustomID, true
	case discordgo.InteractionModalSubmit:
		return KindModal, i.ModalSubmitData().CustomID, true
	}
	return 0, "", false
}
