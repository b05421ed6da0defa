package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/MasterHarun/fantastic-octo-fiesta/internal/i18n"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/middleware"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/models"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/services/ai"
	"github.com/MasterHarun/fantastic-octo-fiesta/pkg/logger"
	"github.com/MasterHarun/fantastic-octo-fiesta/pkg/markdown"
	"github.com/MasterHarun/fantastic-octo-fiesta/pkg/wordcount"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// chatSnapshot is the consistent view of user state taken under the table
// lock before the provider call. The lock is released before any I/O, so a
// settings change racing the call resolves last-write-wins at write-back.
type chatSnapshot struct {
	privacy bool
	persona models.Personality
	model   models.ModelProfile
	history []models.ChatEntry
}

// handleChat runs one chat turn: snapshot, assemble, call the provider with no
// locks held, then fold the completed turn back into the store.
func (h *CommandHandler) handleChat(ctx context.Context, message *tgbotapi.Message, placeholderID int, lang string) error {
	chatID := message.Chat.ID
	userID := message.From.ID
	prompt := strings.TrimSpace(message.CommandArguments())

	log := logger.WithInteraction(h.logger, chatID, userID)

	if prompt == "" {
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgPromptMissing, nil))
	}
	if err := middleware.ValidateInput(prompt); err != nil {
		log.WithError(err).Warn("Prompt validation failed")
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgPromptTooLong, nil))
	}

	if !h.rateLimiter.Allow(userID) {
		h.metrics.RecordRateLimitExceeded(strconv.FormatInt(userID, 10))
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgRateLimitExceeded, nil))
	}

	var snap chatSnapshot
	err := h.sessions.Read(userID, func(u *models.User) {
		snap.privacy = u.Settings.ChatPrivacy
		snap.persona = u.Settings.Personality
		snap.model = u.Settings.Model
		if conv, ok := u.Usage.ChannelHistory[chatID]; ok {
			snap.history = append([]models.ChatEntry(nil), conv.ChatHistory...)
		}
	})
	if err != nil {
		log.WithError(err).Error("Failed to snapshot user state")
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgError, nil))
	}

	if cached, found := h.cache.Get(ctx, prompt, snap.persona.Prompt, snap.model.ID); found {
		h.metrics.RecordCacheHit()
		return h.deliver(userID, chatID, placeholderID, markdown.ToTelegramHTML(cached), cached, lang, snap.privacy)
	}
	h.metrics.RecordCacheMiss()

	messages := ai.BuildMessages(snap.persona.Prompt, snap.history, prompt)

	start := time.Now()
	result, err := h.provider.Complete(ctx, messages, snap.model.ID, strconv.FormatInt(userID, 10))
	if err != nil {
		h.metrics.RecordProviderRequest(snap.model.ID, "error", time.Since(start))
		log.WithError(err).WithField("model", snap.model.ID).Error("Completion provider failed")
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgError, nil))
	}
	h.metrics.RecordProviderRequest(snap.model.ID, "success", time.Since(start))

	userTokens := result.Usage.PromptTokens
	completionTokens := result.Usage.CompletionTokens
	totalTokens := result.Usage.TotalTokens
	if totalTokens == 0 {
		// Provider omitted usage; keep the budget invariant holding with the
		// word-count approximation.
		userTokens = wordcount.Count(prompt)
		completionTokens = wordcount.Count(result.Content)
		totalTokens = userTokens + completionTokens
	}

	entry := models.NewChatEntry(prompt, result.Content, totalTokens, userTokens, completionTokens)

	err = h.sessions.Modify(userID, func(u *models.User) {
		u.Usage.RecordTurn(totalTokens)
		conv := u.Usage.Conversation(chatID)
		if conv.AddEntry(entry, u.Settings.Model.TokenLimit) {
			h.metrics.RecordEviction()
		}
	})
	if err != nil {
		log.WithError(err).Error("Failed to record chat turn")
	}

	if err := h.cache.Set(ctx, prompt, snap.persona.Prompt, snap.model.ID, result.Content); err != nil {
		log.WithError(err).Warn("Failed to cache response")
	}

	return h.deliver(userID, chatID, placeholderID, markdown.ToTelegramHTML(result.Content), result.Content, lang, snap.privacy)
}

// handleReset clears this conversation's retained history. Other conversations
// and the lifetime counters are untouched.
func (h *CommandHandler) handleReset(message *tgbotapi.Message, placeholderID int, lang string) error {
	chatID := message.Chat.ID
	userID := message.From.ID

	err := h.sessions.Modify(userID, func(u *models.User) {
		u.Usage.ResetConversation(chatID)
	})
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to reset conversation")
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgError, nil))
	}

	return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgHistoryReset, nil))
}

// handlePrivacy flips the user's chat privacy flag.
func (h *CommandHandler) handlePrivacy(message *tgbotapi.Message, placeholderID int, lang string, private bool) error {
	chatID := message.Chat.ID
	userID := message.From.ID

	err := h.sessions.Modify(userID, func(u *models.User) {
		u.Settings.ChatPrivacy = private
	})
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to set chat privacy")
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgError, nil))
	}

	messageID := i18n.MsgPrivacyPublic
	if private {
		messageID = i18n.MsgPrivacyPrivate
	}
	return h.reply(chatID, placeholderID, h.localizer.Get(lang, messageID, nil))
}

// handleStats reports the user's lifetime usage counters.
func (h *CommandHandler) handleStats(message *tgbotapi.Message, placeholderID int, lang string) error {
	chatID := message.Chat.ID
	userID := message.From.ID

	var (
		chatCount   int
		totalTokens int
		lastSeen    time.Time
	)
	err := h.sessions.Read(userID, func(u *models.User) {
		chatCount = u.Usage.ChatCount
		totalTokens = u.Usage.TotalTokens
		lastSeen = u.Usage.LastInteraction
	})
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to read usage")
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgError, nil))
	}

	text := h.localizer.Get(lang, i18n.MsgStats, map[string]interface{}{
		"Chats":    chatCount,
		"Tokens":   totalTokens,
		"LastSeen": lastSeen.Format("2006-01-02 15:04:05"),
	})
	return h.reply(chatID, placeholderID, text)
}
