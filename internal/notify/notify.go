// Package notify tells operators about properties stored without a prediction.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/HousePricer/models"
)

// LogReporter records orphaned properties in the log only
type LogReporter struct {
	logger zerolog.Logger
}

// NewLogReporter creates a LogReporter
func NewLogReporter() *LogReporter {
	return &LogReporter{logger: log.With().Str("component", "orphan_reporter").Logger()}
}

// ReportOrphan logs the orphaned property id
func (r *LogReporter) ReportOrphan(_ context.Context, propertyID string, cause error) {
	r.logger.Error().Err(cause).Str("property_id", propertyID).Msg("Property stored without prediction, needs reconciliation")
}

// Sender is the part of the Telegram bot API used here
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// sendTimeout bounds a single Telegram API call
const sendTimeout = 10 * time.Second

// Telegram posts orphan alerts to an ops chat in the background
type Telegram struct {
	bot     Sender
	chatID  int64
	log     *LogReporter
	pending sync.WaitGroup
}

// NewTelegram authorizes the bot token and returns a reporter for chatID
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	client := &http.Client{Timeout: sendTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("initializing telegram bot: %w", err)
	}
	return NewTelegramWithSender(bot, chatID), nil
}

// NewTelegramWithSender builds a reporter around an existing sender
func NewTelegramWithSender(bot Sender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID, log: NewLogReporter()}
}

// ReportOrphan logs the orphan and queues an alert; it never waits for Telegram.
// Send failures are only logged.
func (t *Telegram) ReportOrphan(ctx context.Context, propertyID string, cause error) {
	t.log.ReportOrphan(ctx, propertyID, cause)

	text := fmt.Sprintf("⚠️ Property %s was stored without its prediction.\nCause: %v", propertyID, cause)
	msg := tgbotapi.NewMessage(t.chatID, text)

	t.pending.Add(1)
	go func() {
		defer t.pending.Done()
		if _, err := t.bot.Send(msg); err != nil {
			t.log.logger.Warn().Err(err).Str("property_id", propertyID).Msg("Failed to send orphan alert")
		}
	}()
}

// Wait blocks until queued alerts are sent or ctx is done
func (t *Telegram) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Multi fans an orphan report out to several reporters
type Multi []models.OrphanReporter

// ReportOrphan forwards to every reporter
func (m Multi) ReportOrphan(ctx context.Context, propertyID string, cause error) {
	for _, r := range m {
		r.ReportOrphan(ctx, propertyID, cause)
	}
}

// Wait drains every reporter that sends in the background
func (m Multi) Wait(ctx context.Context) error {
	for _, r := range m {
		if w, ok := r.(interface{ Wait(context.Context) error }); ok {
			if err := w.Wait(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}
