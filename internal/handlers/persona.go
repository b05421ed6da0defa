package handlers

import (
	"errors"
	"strings"

	"github.com/MasterHarun/fantastic-octo-fiesta/internal/i18n"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/models"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/services/persona"
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/services/workflow"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// handlePersonaSelect switches the user's active persona. An unknown name
// leaves the current persona unchanged; matching is exact and case-sensitive.
func (h *CommandHandler) handlePersonaSelect(message *tgbotapi.Message, placeholderID int, lang string) error {
	chatID := message.Chat.ID
	userID := message.From.ID
	name := strings.TrimSpace(message.CommandArguments())

	// Registry first, user lock second; the two locks are never held together.
	p, err := h.personas.Get(name)
	if err != nil {
		if errors.Is(err, persona.ErrPersonaNotFound) {
			return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgPersonaNotFound, map[string]interface{}{
				"Name": name,
			}))
		}
		return err
	}

	err = h.sessions.Modify(userID, func(u *models.User) {
		u.Settings.Personality = p
	})
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to set persona")
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgError, nil))
	}

	return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgPersonaSet, map[string]interface{}{
		"Name": p.Name,
	}))
}

// handlePersonaList lists the registry, marking the caller's active persona.
// Runtime additions show up here but do not survive a restart.
func (h *CommandHandler) handlePersonaList(message *tgbotapi.Message, placeholderID int, lang string) error {
	chatID := message.Chat.ID
	userID := message.From.ID

	var active string
	if err := h.sessions.Read(userID, func(u *models.User) {
		active = u.Settings.Personality.Name
	}); err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to read active persona")
	}

	personas := h.personas.List()
	if len(personas) == 0 {
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgPersonaListEmpty, map[string]interface{}{
			"Default": h.personas.Default().Name,
		}))
	}

	var b strings.Builder
	b.WriteString(h.localizer.Get(lang, i18n.MsgPersonaList, nil))
	b.WriteString("\n")
	for _, p := range personas {
		marker := ""
		if p.Name == active {
			marker = " *"
		}
		desc := p.Description
		if desc != "" {
			desc = " - " + desc
		}
		b.WriteString(h.localizer.Get(lang, i18n.MsgPersonaListEntry, map[string]interface{}{
			"Name":        p.Name,
			"Description": desc,
			"Marker":      marker,
		}))
		b.WriteString("\n")
	}
	return h.reply(chatID, placeholderID, b.String())
}

// handlePersonaDefine advances the two-step persona definition workflow. The
// whole invocation runs under the user's command mutex so a rapid second
// command waits instead of racing on the command state.
func (h *CommandHandler) handlePersonaDefine(message *tgbotapi.Message, placeholderID int, lang string) error {
	chatID := message.Chat.ID
	userID := message.From.ID
	text := strings.TrimSpace(message.CommandArguments())

	if !h.config.IsAdmin(userID) {
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgAdminOnly, nil))
	}
	if text == "" {
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgPromptMissing, nil))
	}

	unlock := h.sessions.LockCommands(userID)
	defer unlock()

	var current models.CommandState
	if err := h.sessions.Read(userID, func(u *models.User) {
		current = u.Settings.CommandState
	}); err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to read command state")
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgError, nil))
	}

	t := workflow.Advance(current, text)

	switch t.Action {
	case workflow.ActionCreatePersona:
		// An existing persona keeps its prompt until the second step replaces it.
		if _, err := h.personas.Get(t.PersonaName); err != nil {
			h.personas.Upsert(t.PersonaName, "", "")
		}
	case workflow.ActionSetPrompt:
		description := ""
		if existing, err := h.personas.Get(t.PersonaName); err == nil {
			description = existing.Description
		}
		h.personas.Upsert(t.PersonaName, description, t.Prompt)
	}

	if err := h.sessions.Modify(userID, func(u *models.User) {
		u.Settings.CommandState = t.Next
	}); err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to advance command state")
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgError, nil))
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"persona": t.PersonaName,
	}).Info("Persona definition step completed")

	if t.Action == workflow.ActionCreatePersona {
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgPersonaPromptAsk, map[string]interface{}{
			"Name": t.PersonaName,
		}))
	}
	return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgPersonaDefined, map[string]interface{}{
		"Name": t.PersonaName,
	}))
}

// handlePersonaAdmin handles one-shot persona administration:
//
//	/persona_admin add <name> | <description> | <prompt>
//	/persona_admin remove <name>
func (h *CommandHandler) handlePersonaAdmin(message *tgbotapi.Message, placeholderID int, lang string) error {
	chatID := message.Chat.ID
	userID := message.From.ID

	if !h.config.IsAdmin(userID) {
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgAdminOnly, nil))
	}

	args := strings.TrimSpace(message.CommandArguments())
	sub, rest, _ := strings.Cut(args, " ")

	switch sub {
	case "add":
		parts := strings.SplitN(rest, "|", 3)
		if len(parts) != 3 {
			return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgPersonaAdminUsage, nil))
		}
		name := strings.TrimSpace(parts[0])
		description := strings.TrimSpace(parts[1])
		prompt := strings.TrimSpace(parts[2])
		if name == "" || prompt == "" {
			return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgPersonaAdminUsage, nil))
		}

		h.personas.Upsert(name, description, prompt)
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgPersonaAdded, map[string]interface{}{
			"Name": name,
		}))

	case "remove":
		name := strings.TrimSpace(rest)
		if name == "" {
			return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgPersonaAdminUsage, nil))
		}
		if err := h.personas.Remove(name); err != nil {
			return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgPersonaNotFound, map[string]interface{}{
				"Name": name,
			}))
		}
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgPersonaRemoved, map[string]interface{}{
			"Name": name,
		}))

	default:
		return h.reply(chatID, placeholderID, h.localizer.Get(lang, i18n.MsgPersonaAdminUsage, nil))
	}
}
