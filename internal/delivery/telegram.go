package delivery

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tinyvc/tinyvc/internal/config"
	"github.com/tinyvc/tinyvc/models"
)

// Telegram message hard limit.
const maxMessageLen = 4096

// Broadcaster pushes a short digest of the weekly report to a telegram
// chat. Optional channel: a zero-value config disables it.
type Broadcaster struct {
	cfg    config.TelegramConfig
	logger zerolog.Logger
}

// NewBroadcaster creates a Broadcaster.
func NewBroadcaster(cfg config.TelegramConfig) *Broadcaster {
	return &Broadcaster{
		cfg:    cfg,
		logger: log.With().Str("component", "telegram_broadcaster").Logger(),
	}
}

// Configured reports whether telegram delivery is set up.
func (b *Broadcaster) Configured() bool {
	return b.cfg.BotToken != "" && b.cfg.ChatID != 0
}

// Send formats and sends the digest. Skips silently when unconfigured.
func (b *Broadcaster) Send(date string, analysis models.AnalysisOutput) error {
	if !b.Configured() {
		b.logger.Debug().Msg("telegram not configured, skipping broadcast")
		return nil
	}

	bot, err := tgbotapi.NewBotAPI(b.cfg.BotToken)
	if err != nil {
		return fmt.Errorf("creating telegram bot: %w", err)
	}

	msg := tgbotapi.NewMessage(b.cfg.ChatID, digest(date, analysis))
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}

	b.logger.Info().Int64("chat_id", b.cfg.ChatID).Msg("digest broadcast sent")
	return nil
}

// digest is the plain-text short form of the analysis.
func digest(date string, analysis models.AnalysisOutput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Weekly Investment Report - %s\n\n", date)
	sb.WriteString(analysis.ExecutiveSummary)
	sb.WriteString("\n\nTop picks:\n")

	picks := analysis.Opportunities
	if len(picks) > 5 {
		picks = picks[:5]
	}
	for _, opp := range picks {
		fmt.Fprintf(&sb, "* %s (conviction %d/100)\n", opp.Ticker, opp.ConvictionScore)
	}

	text := sb.String()
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen-3] + "..."
	}
	return text
}
