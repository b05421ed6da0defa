package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(userText, aiText string, total int) ChatEntry {
	return NewChatEntry(userText, aiText, total, total/2, total-total/2)
}

func TestNewChatEntry_CombinesTexts(t *testing.T) {
	e := NewChatEntry("hello", "hi there", 5, 2, 3)
	assert.Equal(t, "hello\nhi there", e.CombinedText)
	assert.Equal(t, 5, e.TotalTokens)
	assert.Equal(t, 2, e.UserTokens)
	assert.Equal(t, 3, e.CompletionTokens)
	assert.WithinDuration(t, time.Now(), e.Timestamp, time.Second)
}

func TestConversationData_TokenAccounting(t *testing.T) {
	conv := NewConversationData(1)

	conv.AddEntry(entry("a", "b", 3), 100)
	conv.AddEntry(entry("c", "d", 4), 100)
	conv.AddEntry(entry("e", "f", 5), 100)

	sum := 0
	for _, e := range conv.ChatHistory {
		sum += e.TotalTokens
	}
	assert.Equal(t, sum, conv.TokensUsed)
	assert.Equal(t, 12, conv.TokensUsed)

	conv.RemoveOldest()
	sum = 0
	for _, e := range conv.ChatHistory {
		sum += e.TotalTokens
	}
	assert.Equal(t, sum, conv.TokensUsed)
	assert.Equal(t, 9, conv.TokensUsed)
}

func TestConversationData_EvictsOldestWhenOverBudget(t *testing.T) {
	conv := NewConversationData(1)

	evicted := conv.AddEntry(entry("first", "one", 6), 10)
	assert.False(t, evicted)
	assert.Len(t, conv.ChatHistory, 1)
	assert.Equal(t, 6, conv.TokensUsed)

	evicted = conv.AddEntry(entry("second", "two", 6), 10)
	assert.True(t, evicted)
	require.Len(t, conv.ChatHistory, 1)
	assert.Equal(t, "second", conv.ChatHistory[0].UserText)
	assert.Equal(t, 6, conv.TokensUsed)
}

func TestConversationData_SingleOversizedEntryIsRetained(t *testing.T) {
	conv := NewConversationData(1)

	evicted := conv.AddEntry(entry("huge", "answer", 50), 10)
	assert.False(t, evicted)
	require.Len(t, conv.ChatHistory, 1)
	assert.Equal(t, 50, conv.TokensUsed)

	// The next turn drains the oversized entry, one removal per add.
	evicted = conv.AddEntry(entry("small", "reply", 2), 10)
	assert.True(t, evicted)
	require.Len(t, conv.ChatHistory, 1)
	assert.Equal(t, "small", conv.ChatHistory[0].UserText)
	assert.Equal(t, 2, conv.TokensUsed)
}

func TestConversationData_AtMostOneEvictionPerAdd(t *testing.T) {
	conv := NewConversationData(1)

	conv.AddEntry(entry("a", "1", 4), 100)
	conv.AddEntry(entry("b", "2", 4), 100)
	conv.AddEntry(entry("c", "3", 4), 100)
	require.Len(t, conv.ChatHistory, 3)

	// 12 retained + 9 new = 21 against a budget of 10: still only one entry goes.
	evicted := conv.AddEntry(entry("d", "4", 9), 10)
	assert.True(t, evicted)
	assert.Len(t, conv.ChatHistory, 3)
	assert.Equal(t, 17, conv.TokensUsed)
}

func TestUserUsage_ResetIsolation(t *testing.T) {
	usage := NewUserUsage()

	usage.Conversation(100).AddEntry(entry("a", "1", 5), 100)
	usage.Conversation(200).AddEntry(entry("b", "2", 7), 100)
	usage.RecordTurn(5)
	usage.RecordTurn(7)

	usage.ResetConversation(100)

	assert.Empty(t, usage.Conversation(100).ChatHistory)
	assert.Zero(t, usage.Conversation(100).TokensUsed)
	assert.Len(t, usage.Conversation(200).ChatHistory, 1)
	assert.Equal(t, 7, usage.Conversation(200).TokensUsed)

	// Lifetime counters survive the reset.
	assert.Equal(t, 2, usage.ChatCount)
	assert.Equal(t, 12, usage.TotalTokens)
}

func TestUserUsage_LifetimeTokensNeverDecremented(t *testing.T) {
	usage := NewUserUsage()
	conv := usage.Conversation(1)

	usage.RecordTurn(6)
	conv.AddEntry(entry("first", "one", 6), 10)
	usage.RecordTurn(6)
	conv.AddEntry(entry("second", "two", 6), 10)

	// Eviction dropped the first entry from the retained window only.
	assert.Equal(t, 6, conv.TokensUsed)
	assert.Equal(t, 12, usage.TotalTokens)
}

func TestUserUsage_ConversationLazyCreate(t *testing.T) {
	usage := NewUserUsage()
	conv := usage.Conversation(42)
	require.NotNil(t, conv)
	assert.Equal(t, int64(42), conv.ConversationID)
	assert.Same(t, conv, usage.Conversation(42))
}

func TestUser_CloneIsDeep(t *testing.T) {
	persona := Personality{Name: "default", Prompt: "You are a helpful assistant."}
	model := ModelProfile{ID: "gpt-3.5-turbo", TokenLimit: 4096}
	u := NewUser(7, persona, model)
	u.Usage.Conversation(1).AddEntry(entry("a", "1", 3), 100)

	cp := u.Clone()
	cp.Usage.Conversation(1).AddEntry(entry("b", "2", 4), 100)
	cp.Settings.Personality.Name = "other"

	assert.Len(t, u.Usage.Conversation(1).ChatHistory, 1)
	assert.Equal(t, 3, u.Usage.Conversation(1).TokensUsed)
	assert.Equal(t, "default", u.Settings.Personality.Name)
}
