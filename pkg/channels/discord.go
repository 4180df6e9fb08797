// Package channels adapts external chat transports onto pkg/bus's Router:
// each adapter translates a transport's native events into
// bus.InboundMessage and, symmetrically, is itself an eventbus listener for
// bus.OutboundMessage so replies flow back out the same transport.
package channels

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/sipeed/picoclaw/pkg/bus"
)

// ChannelDiscord is the channel name discord messages are tagged with.
const ChannelDiscord = "discord"

// DiscordAdapter bridges a Discord bot connection onto router. It is
// subscribed to router as a listener for bus.OutboundMessage (see
// HandleOutboundMessage) and, once Open, forwards every incoming Discord
// message as a bus.InboundMessage.
type DiscordAdapter struct {
	router  *bus.Router
	session *discordgo.Session
}

// NewDiscordAdapter authenticates a Discord session with token. The session
// is not opened yet; call Open to start receiving events.
func NewDiscordAdapter(router *bus.Router, token string) (*DiscordAdapter, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("channels: creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages

	a := &DiscordAdapter{router: router, session: session}
	session.AddHandler(a.onMessageCreate)
	return a, nil
}

// Open connects to Discord's gateway and subscribes the adapter to router
// for outbound replies.
func (a *DiscordAdapter) Open() error {
	if err := a.router.Subscribe(a); err != nil {
		return err
	}
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("channels: opening discord session: %w", err)
	}
	a.router.PublishSystem(bus.SystemEvent{Type: "adapter.connected", Source: ChannelDiscord})
	return nil
}

// Close disconnects from Discord's gateway and stops listening for replies.
func (a *DiscordAdapter) Close() error {
	a.router.Unsubscribe(a)
	return a.session.Close()
}

func (a *DiscordAdapter) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return // ignore the bot's own messages
	}

	msg := bus.InboundMessage{
		ID:         uuid.NewString(),
		Channel:    ChannelDiscord,
		SenderID:   m.Author.ID,
		ChatID:     m.ChannelID,
		Content:    m.Content,
		SessionKey: ChannelDiscord + ":" + m.ChannelID,
		ReceivedAt: time.Now(),
	}
	if err := a.router.PublishInboundAsync(msg); err != nil {
		a.router.PublishSystem(bus.SystemEvent{Type: "adapter.publish_failed", Source: ChannelDiscord, Data: err.Error()})
	}
}

// HandleOutboundMessage sends msg to Discord if it was addressed to this
// channel. Messages addressed to other channels are ignored, per the
// per-channel routing convention every adapter follows.
func (a *DiscordAdapter) HandleOutboundMessage(msg bus.OutboundMessage) error {
	if msg.Channel != ChannelDiscord {
		return nil
	}
	_, err := a.session.ChannelMessageSend(msg.ChatID, msg.Content)
	return err
}
