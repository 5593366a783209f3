package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		wantErr  error
		wantData any
		name     string
		frame    string
	}{
		{
			name:     "typing",
			frame:    `{"type":"typing","topic":"conv-1","userId":"u1","data":{"typing":true},"timestamp":"2025-01-01T00:00:00Z"}`,
			wantData: &TypingData{Typing: true},
		},
		{
			name:     "join without data",
			frame:    `{"type":"join","topic":"conv-1"}`,
			wantData: &JoinData{},
		},
		{
			name:     "reaction",
			frame:    `{"type":"reaction","topic":"conv-1","data":{"action":"added","messageId":"m1","emoji":"👍"}}`,
			wantData: &ReactionData{Action: ActionAdded, MessageID: "m1", Emoji: "👍"},
		},
		{
			name:    "unknown type",
			frame:   `{"type":"poll","topic":"conv-1"}`,
			wantErr: ErrUnknownEventType,
		},
		{
			name:    "missing type",
			frame:   `{"topic":"conv-1"}`,
			wantErr: ErrMalformedEnvelope,
		},
		{
			name:    "not json",
			frame:   `hello`,
			wantErr: ErrMalformedEnvelope,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tt.frame))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			data, err := env.Payload()
			require.NoError(t, err)
			assert.Equal(t, tt.wantData, data)
		})
	}
}

func TestEnvelope_PayloadTypeMismatch(t *testing.T) {
	env := &Envelope{Type: TypeTyping, Data: []byte(`{"typing":"yes"}`)}

	_, err := env.Payload()
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestNewEnvelope_Encode(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	env, err := NewEnvelope(TypeMessage, "conv-1", "u1", MessageData{
		Action:  ActionCreated,
		Message: Message{ID: "m1", ConversationID: "conv-1", Body: "hi"},
	}, now)
	require.NoError(t, err)

	frame, err := env.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(frame)
	require.NoError(t, err)
	assert.Equal(t, now, decoded.Timestamp)
	assert.Equal(t, "u1", decoded.UserID)

	data, err := decoded.Payload()
	require.NoError(t, err)
	msg := data.(*MessageData)
	assert.Equal(t, "hi", msg.Message.Body)

	_, err = NewEnvelope(EventType("bogus"), "t", "u", nil, now)
	assert.ErrorIs(t, err, ErrUnknownEventType)
}
