package i18n

import (
	"encoding/json"
	"fmt"

	"github.com/MasterHarun/fantastic-octo-fiesta/internal/config"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Localizer manages internationalization
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	// Load language files
	for _, lang := range cfg.Languages {
		if _, err := bundle.LoadMessageFile(fmt.Sprintf("configs/i18n/%s.json", lang)); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range cfg.Languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// Message IDs
const (
	MsgWelcome            = "welcome"
	MsgHelp               = "help"
	MsgProcessing         = "processing"
	MsgError              = "error"
	MsgUnknownCommand     = "unknown_command"
	MsgRateLimitExceeded  = "rate_limit_exceeded"
	MsgPromptMissing      = "prompt_missing"
	MsgPromptTooLong      = "prompt_too_long"
	MsgHistoryReset       = "history_reset"
	MsgPrivacyPrivate     = "privacy_private"
	MsgPrivacyPublic      = "privacy_public"
	MsgPrivateDelivery    = "private_delivery"
	MsgPersonaSet         = "persona_set"
	MsgPersonaNotFound    = "persona_not_found"
	MsgPersonaList        = "persona_list"
	MsgPersonaListEntry   = "persona_list_entry"
	MsgPersonaListEmpty   = "persona_list_empty"
	MsgPersonaAdded       = "persona_added"
	MsgPersonaRemoved     = "persona_removed"
	MsgPersonaPromptAsk   = "persona_prompt_ask"
	MsgPersonaDefined     = "persona_defined"
	MsgPersonaAdminUsage  = "persona_admin_usage"
	MsgStats              = "stats"
	MsgAdminOnly          = "admin_only"
)
