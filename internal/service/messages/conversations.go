package messages

import (
	"time"

	"github.com/vovakirdan/wiredm-server/internal/store"
)

// Conversation summarizes the latest exchange between a user and one counterpart.
type Conversation struct {
	CounterpartID   string
	LastMessageID   string
	LastMessageText string
	LastMessageAt   time.Time
	LastSenderID    string
	// UnreadCount counts messages from the counterpart the user has not read.
	UnreadCount int
}

// Aggregate folds msgs, which must be ordered newest first, into one
// conversation per counterpart. The first message seen for a counterpart is
// its latest, so output order follows conversation recency.
func Aggregate(userID string, msgs []*store.Message) []Conversation {
	conversations := make([]Conversation, 0)
	index := make(map[string]int)

	for _, m := range msgs {
		counterpart := m.Counterpart(userID)

		i, seen := index[counterpart]
		if !seen {
			i = len(conversations)
			index[counterpart] = i
			conversations = append(conversations, Conversation{
				CounterpartID:   counterpart,
				LastMessageID:   m.ID,
				LastMessageText: m.Text,
				LastMessageAt:   m.CreatedAt,
				LastSenderID:    m.SenderID,
			})
		}

		if m.ReceiverID == userID && m.SenderID == counterpart && !m.Read {
			conversations[i].UnreadCount++
		}
	}

	return conversations
}
