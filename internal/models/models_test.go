package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatsync/internal/crdt"
)

func TestIsLocalID(t *testing.T) {
	tests := []struct {
		id       string
		expected bool
	}{
		{id: "local-123", expected: true},
		{id: "local-", expected: false},
		{id: "2GvSx1Xq", expected: false},
		{id: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsLocalID(tt.id))
		})
	}
}

func TestOfflineAction_Ready(t *testing.T) {
	now := time.Now()

	assert.True(t, (&OfflineAction{}).Ready(now))
	assert.True(t, (&OfflineAction{NextAttemptAt: now}).Ready(now))
	assert.False(t, (&OfflineAction{NextAttemptAt: now.Add(time.Second)}).Ready(now))
}

func TestOfflineAction_Clone(t *testing.T) {
	original := &OfflineAction{ID: "a", Payload: json.RawMessage(`{"x":1}`)}
	clone := original.Clone()
	clone.Payload[2] = 'y'

	assert.Equal(t, `{"x":1}`, string(original.Payload))
}

func TestStreams(t *testing.T) {
	assert.Equal(t, "conv:c1", ConversationStream("c1"))
	assert.Equal(t, "doc:d1", DocumentStream("d1"))
}

func TestMessage_Clone(t *testing.T) {
	original := &Message{ID: "m", Reactions: []Reaction{{Emoji: "👍"}}}
	clone := original.Clone()
	clone.Reactions[0].Emoji = "🎉"

	assert.Equal(t, "👍", original.Reactions[0].Emoji)
}

func TestTaskFromDocument(t *testing.T) {
	editor := crdt.NewEditor(crdt.NewLamportClockWithNodeID("n1"))
	doc, _, err := editor.ApplyLocalChanges(crdt.NewDocument("task-1"),
		crdt.SetField(TaskFieldTitle, "Ship it"),
		crdt.SetField(TaskFieldStatus, "open"),
		crdt.AddElement(TaskFieldLabels, "release"),
	)
	require.NoError(t, err)

	task, err := TaskFromDocument(doc)
	require.NoError(t, err)

	assert.Equal(t, &Task{
		ID:     "task-1",
		Title:  "Ship it",
		Status: "open",
		Labels: []string{"release"},
	}, task)
}

func TestTaskFromDocument_WrongType(t *testing.T) {
	editor := crdt.NewEditor(crdt.NewLamportClockWithNodeID("n1"))
	doc, _, err := editor.ApplyLocalChange(crdt.NewDocument("task-1"), crdt.SetField(TaskFieldTitle, 42))
	require.NoError(t, err)

	_, err = TaskFromDocument(doc)
	assert.Error(t, err)
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	assert.False(t, (&Session{}).Expired(now))
	assert.True(t, (&Session{ExpiresAt: now.Add(-time.Minute)}).Expired(now))
	assert.False(t, (&Session{ExpiresAt: now.Add(time.Minute)}).Expired(now))
}
