package api

import (
	"github.com/iudanet/chatsync/internal/models"
	"github.com/iudanet/chatsync/pkg/api"
)

// ToModel преобразует сообщение сервера в локальную модель со статусом sent
func ToModel(m api.Message) *models.Message {
	msg := &models.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ClientID:       m.ClientID,
		Body:           m.Body,
		Deleted:        m.Deleted,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		Status:         models.MessageStatusSent,
	}
	for _, r := range m.Reactions {
		msg.Reactions = append(msg.Reactions, models.Reaction{
			MessageID: m.ID,
			UserID:    r.UserID,
			Emoji:     r.Emoji,
			CreatedAt: r.CreatedAt,
		})
	}
	return msg
}
