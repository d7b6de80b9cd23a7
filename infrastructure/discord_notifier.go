package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"tierledger/events"
	"tierledger/models"
)

const (
	colorInfo    = 0x3498DB
	colorWarning = 0xFEE75C
)

// WebhookExecutor is the part of a discordgo session used for alerts
type WebhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts operator alerts to a Discord webhook: every settlement,
// and approved requests at or above the alert threshold
type DiscordNotifier struct {
	session   WebhookExecutor
	webhookID string
	token     string
	threshold decimal.Decimal
}

// NewDiscordNotifier creates a webhook notifier
func NewDiscordNotifier(session WebhookExecutor, webhookID, token string, threshold decimal.Decimal) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		webhookID: webhookID,
		token:     token,
		threshold: threshold,
	}
}

// NewDiscordSession creates a token-less session; webhook execution needs none
func NewDiscordSession() (*discordgo.Session, error) {
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return session, nil
}

// Handle is subscribed to settlement_completed and request_processed events
func (n *DiscordNotifier) Handle(ctx context.Context, event events.Event) {
	embed := n.embedFor(event)
	if embed == nil {
		return
	}

	_, err := n.session.WebhookExecute(n.webhookID, n.token, false, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
		}).WithError(err).Warn("Failed to send Discord alert")
		return
	}
	log.WithField("eventType", event.Type()).Debug("Discord alert sent")
}

func (n *DiscordNotifier) embedFor(event events.Event) *discordgo.MessageEmbed {
	switch e := event.(type) {
	case events.SettlementCompletedEvent:
		return &discordgo.MessageEmbed{
			Title:     "Master settled",
			Color:     colorInfo,
			Timestamp: time.Now().Format(time.RFC3339),
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Super", Value: fmt.Sprintf("#%d", e.SuperID), Inline: true},
				{Name: "Master", Value: fmt.Sprintf("#%d", e.MasterID), Inline: true},
				{Name: "Amount", Value: e.Amount.StringFixed(2), Inline: true},
				{Name: "P/L cleared", Value: e.PLCleared.StringFixed(2), Inline: true},
			},
		}

	case events.RequestProcessedEvent:
		if e.Status != models.RequestStatusApproved || e.Amount.LessThan(n.threshold) {
			return nil
		}
		return &discordgo.MessageEmbed{
			Title:     fmt.Sprintf("Large %s approved", e.Kind),
			Color:     colorWarning,
			Timestamp: time.Now().Format(time.RFC3339),
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Request", Value: fmt.Sprintf("#%d", e.RequestID), Inline: true},
				{Name: "Account", Value: fmt.Sprintf("#%d", e.AccountID), Inline: true},
				{Name: "Approved by", Value: fmt.Sprintf("#%d", e.ActorID), Inline: true},
				{Name: "Amount", Value: e.Amount.StringFixed(2), Inline: true},
			},
		}
	}
	return nil
}
