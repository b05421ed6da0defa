package models

import (
	"time"
)

// Message represents a single chat-completion message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat-completion roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ModelProfile identifies a supported completion model and its token budget.
// The set of profiles is fixed at startup from configuration.
type ModelProfile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TokenLimit int    `json:"token_limit"`
}

// Personality is a named system-prompt profile selectable per user.
// Tokens is the approximate word-count cost of the prompt.
type Personality struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Prompt      string `json:"prompt"`
	Tokens      int    `json:"tokens"`
}

// CommandStateKind tags the per-user command workflow state.
type CommandStateKind int

const (
	// CommandStateNone means no multi-step command is in progress.
	CommandStateNone CommandStateKind = iota
	// CommandStateAwaitingPersonalityPrompt means a persona was named and the
	// next define-persona input is its prompt body.
	CommandStateAwaitingPersonalityPrompt
)

// CommandState tracks a user's progress through a multi-step command.
// Exactly one state is active per user at any time.
type CommandState struct {
	Kind CommandStateKind
	// PersonaName is set only for CommandStateAwaitingPersonalityPrompt.
	PersonaName string
}

// ChatEntry is one completed chat turn. Entries are immutable once created;
// the evictor removes them as whole units.
type ChatEntry struct {
	CombinedText     string
	UserText         string
	AIText           string
	Timestamp        time.Time
	TotalTokens      int
	UserTokens       int
	CompletionTokens int
}

// NewChatEntry builds an entry for a completed turn, stamped now.
func NewChatEntry(userText, aiText string, totalTokens, userTokens, completionTokens int) ChatEntry {
	return ChatEntry{
		CombinedText:     userText + "\n" + aiText,
		UserText:         userText,
		AIText:           aiText,
		Timestamp:        time.Now(),
		TotalTokens:      totalTokens,
		UserTokens:       userTokens,
		CompletionTokens: completionTokens,
	}
}

// ConversationData holds one conversation's retained history for a user.
// Invariant: TokensUsed equals the sum of TotalTokens over ChatHistory,
// maintained incrementally by AddEntry and RemoveOldest.
type ConversationData struct {
	ConversationID int64
	TokensUsed     int
	ChatHistory    []ChatEntry
}

// NewConversationData creates empty conversation state for the given chat.
func NewConversationData(conversationID int64) *ConversationData {
	return &ConversationData{ConversationID: conversationID}
}

// AddEntry appends a completed turn and enforces the token budget: if the
// retained total exceeds tokenLimit afterwards, the single oldest entry is
// evicted. At most one removal per call, so a turn costing more than the whole
// budget leaves the conversation over budget until later turns drain it.
// Returns true when an eviction happened.
func (c *ConversationData) AddEntry(entry ChatEntry, tokenLimit int) bool {
	c.ChatHistory = append(c.ChatHistory, entry)
	c.TokensUsed += entry.TotalTokens

	if c.TokensUsed > tokenLimit && len(c.ChatHistory) > 1 {
		c.RemoveOldest()
		return true
	}
	return false
}

// RemoveOldest drops the oldest retained entry and its token cost.
func (c *ConversationData) RemoveOldest() {
	if len(c.ChatHistory) == 0 {
		return
	}
	c.TokensUsed -= c.ChatHistory[0].TotalTokens
	c.ChatHistory = c.ChatHistory[1:]
}

// Reset clears the retained history and its token count. Other conversations
// and the owning user's lifetime counters are unaffected.
func (c *ConversationData) Reset() {
	c.TokensUsed = 0
	c.ChatHistory = nil
}

// UserUsage accumulates a user's interaction statistics.
// TotalTokens is a lifetime counter and is never decremented by eviction.
type UserUsage struct {
	ChatCount       int
	LastInteraction time.Time
	TotalTokens     int
	ChannelHistory  map[int64]*ConversationData
}

// NewUserUsage creates empty usage state.
func NewUserUsage() UserUsage {
	return UserUsage{
		LastInteraction: time.Now(),
		ChannelHistory:  make(map[int64]*ConversationData),
	}
}

// Conversation returns the conversation state for the given chat, creating it
// lazily on first use.
func (u *UserUsage) Conversation(conversationID int64) *ConversationData {
	if u.ChannelHistory == nil {
		u.ChannelHistory = make(map[int64]*ConversationData)
	}
	conv, ok := u.ChannelHistory[conversationID]
	if !ok {
		conv = NewConversationData(conversationID)
		u.ChannelHistory[conversationID] = conv
	}
	return conv
}

// RecordTurn updates the lifetime counters for one completed chat turn.
func (u *UserUsage) RecordTurn(totalTokens int) {
	u.ChatCount++
	u.LastInteraction = time.Now()
	u.TotalTokens += totalTokens
}

// ResetConversation clears one conversation's history without touching the
// lifetime counters or other conversations.
func (u *UserUsage) ResetConversation(conversationID int64) {
	if conv, ok := u.ChannelHistory[conversationID]; ok {
		conv.Reset()
	}
}

// UserSettings holds a user's mutable preferences. Settings are mutated only
// through the session store's Modify.
type UserSettings struct {
	ChatPrivacy  bool
	Personality  Personality
	Model        ModelProfile
	CommandState CommandState
}

// User is the per-user aggregate owned by the session store. Users are created
// lazily on first interaction and live for the process lifetime.
type User struct {
	ID       int64
	Settings UserSettings
	Usage    UserUsage
}

// NewUser creates a user with the given defaults.
func NewUser(id int64, defaultPersona Personality, defaultModel ModelProfile) *User {
	return &User{
		ID: id,
		Settings: UserSettings{
			Personality: defaultPersona,
			Model:       defaultModel,
		},
		Usage: NewUserUsage(),
	}
}

// Clone returns a deep copy of the user, safe to read after the store's lock
// is released.
func (u *User) Clone() *User {
	cp := *u
	cp.Usage.ChannelHistory = make(map[int64]*ConversationData, len(u.Usage.ChannelHistory))
	for id, conv := range u.Usage.ChannelHistory {
		convCp := *conv
		convCp.ChatHistory = append([]ChatEntry(nil), conv.ChatHistory...)
		cp.Usage.ChannelHistory[id] = &convCp
	}
	return &cp
}

// CacheEntry represents a cached completion response
type CacheEntry struct {
	Question  string
	Answer    string
	Model     string
	CreatedAt time.Time
}
