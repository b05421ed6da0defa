package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/MasterHarun/fantastic-octo-fiesta/internal/config"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/i18n"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/middleware"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/services/ai"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/services/cache"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/services/persona"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/services/session"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// ErrAckTimeout means the placeholder reply could not be sent before the
// gateway's acknowledgment deadline. The interaction is undeliverable from
// that point on; the failure is terminal, not retryable.
var ErrAckTimeout = errors.New("handlers: acknowledgment deadline missed")

// CommandHandler routes inbound gateway commands to the session engine.
type CommandHandler struct {
	bot         *tgbotapi.BotAPI
	config      *config.Config
	provider    ai.Service
	sessions    *session.Store
	personas    *persona.Registry
	cache       cache.Service
	rateLimiter middleware.RateLimiter
	localizer   *i18n.Localizer
	metrics     *middleware.Metrics
	logger      *logrus.Logger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(
	bot *tgbotapi.BotAPI,
	cfg *config.Config,
	provider ai.Service,
	sessions *session.Store,
	personas *persona.Registry,
	cache cache.Service,
	rateLimiter middleware.RateLimiter,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *CommandHandler {
	return &CommandHandler{
		bot:         bot,
		config:      cfg,
		provider:    provider,
		sessions:    sessions,
		personas:    personas,
		cache:       cache,
		rateLimiter: rateLimiter,
		localizer:   localizer,
		metrics:     metrics,
		logger:      logger,
	}
}

// HandleCommand processes one inbound command. The user is created lazily on
// first contact; the placeholder acknowledgment must land within the deadline
// or the whole interaction is abandoned.
func (h *CommandHandler) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	userID := message.From.ID
	command := message.Command()
	lang := h.config.I18n.DefaultLanguage

	if !h.sessions.Exists(userID) {
		h.sessions.Create(userID)
	}
	h.metrics.RecordCommandExecuted(command)
	h.metrics.SetActiveUsers(float64(h.sessions.Count()))

	placeholderID, err := h.acknowledge(ctx, chatID, message.MessageID, lang)
	if err != nil {
		if errors.Is(err, ErrAckTimeout) {
			h.metrics.RecordAckTimeout()
		}
		h.logger.WithError(err).WithFields(logrus.Fields{
			"chat_id": chatID,
			"user_id": userID,
			"command": command,
		}).Error("Failed to acknowledge command")
		h.metrics.RecordCommandFailed(command)
		return err
	}

	switch command {
	case "start":
		err = h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgWelcome, nil))
	case "help":
		err = h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgHelp, nil))
	case "chat":
		err = h.handleChat(ctx, message, placeholderID, lang)
	case "reset":
		err = h.handleReset(message, placeholderID, lang)
	case "private":
		err = h.handlePrivacy(message, placeholderID, lang, true)
	case "public":
		err = h.handlePrivacy(message, placeholderID, lang, false)
	case "persona":
		err = h.handlePersonaSelect(message, placeholderID, lang)
	case "personas":
		err = h.handlePersonaList(message, placeholderID, lang)
	case "persona_define":
		err = h.handlePersonaDefine(message, placeholderID, lang)
	case "persona_admin":
		err = h.handlePersonaAdmin(message, placeholderID, lang)
	case "stats":
		err = h.handleStats(message, placeholderID, lang)
	default:
		err = h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgUnknownCommand, nil))
	}

	if err != nil {
		h.metrics.RecordCommandFailed(command)
	}
	return err
}

// acknowledge sends the placeholder reply under the gateway deadline. The send
// runs in its own goroutine so a slow gateway call cannot outlive the deadline
// select; a miss permanently forfeits the interaction.
func (h *CommandHandler) acknowledge(ctx context.Context, chatID int64, replyTo int, lang string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, h.localizer.Get(lang, i18n.MsgProcessing, nil))
	msg.ReplyToMessageID = replyTo

	type sendResult struct {
		messageID int
		err       error
	}
	done := make(chan sendResult, 1)
	go func() {
		sent, err := h.bot.Send(msg)
		done <- sendResult{sent.MessageID, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return 0, res.err
		}
		return res.messageID, nil
	case <-time.After(h.config.Bot.AckDeadline):
		return 0, ErrAckTimeout
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// reply edits the placeholder with the final content; if the edit fails, a
// follow-up message is sent instead.
func (h *CommandHandler) reply(chatID int64, placeholderID int, content string) error {
	edit := tgbotapi.NewEditMessageText(chatID, placeholderID, content)
	if _, err := h.bot.Send(edit); err == nil {
		return nil
	}

	followup := tgbotapi.NewMessage(chatID, content)
	if _, err := h.bot.Send(followup); err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send follow-up message")
		return err
	}
	return nil
}

// replyHTML is reply with Telegram HTML parsing, falling back to plain text
// when the gateway rejects the markup.
func (h *CommandHandler) replyHTML(chatID int64, placeholderID int, html, plain string) error {
	edit := tgbotapi.NewEditMessageText(chatID, placeholderID, html)
	edit.ParseMode = "HTML"
	if _, err := h.bot.Send(edit); err == nil {
		return nil
	}

	h.logger.WithField("chat_id", chatID).Warn("Failed to send HTML response, trying plain text")
	return h.reply(chatID, placeholderID, plain)
}

// deliver routes final content according to the user's chat privacy: public
// replies edit the channel placeholder, private ones go to the user's own chat
// with a short notice left in the channel.
func (h *CommandHandler) deliver(userID, chatID int64, placeholderID int, html, plain, lang string, private bool) error {
	if !private || chatID == userID {
		return h.replyHTML(chatID, placeholderID, html, plain)
	}

	if err := h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgPrivateDelivery, nil)); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(userID, html)
	msg.ParseMode = "HTML"
	if _, err := h.bot.Send(msg); err != nil {
		msg.ParseMode = ""
		msg.Text = plain
		if _, err := h.bot.Send(msg); err != nil {
			h.logger.WithError(err).WithField("user_id", userID).Error("Failed to deliver private response")
			return err
		}
	}
	return nil
}
