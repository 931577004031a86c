package notification

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository,SSEHub

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for notifications.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

// SSEHub manages live SSE connections and fan-out. Rooms scope conversation
// events; user broadcasts reach every live connection of that user.
type SSEHub interface {
	Register(client *SSEClient)
	Unregister(clientID string)
	GetClient(clientID string) *SSEClient
	GetClientCount() int

	JoinRoom(clientID, room string)
	LeaveRoom(clientID, room string)

	BroadcastToUser(userID string, message *SSEMessage)
	BroadcastToRoom(room string, message *SSEMessage)
	SendToClient(clientID string, message *SSEMessage) error

	Stop()
}
