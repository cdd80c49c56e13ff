package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"wordloop-backend/internal/models"
)

// UpdateChannel is the pub/sub channel the websocket hub subscribes to for a user.
func UpdateChannel(userID uuid.UUID) string {
	return "user_updates:" + userID.String()
}

// Notifier publishes per-user events over Redis pub/sub.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

func (n *Notifier) Publish(ctx context.Context, userID uuid.UUID, msgType string, payload any) error {
	msg, err := json.Marshal(models.WSMessage{Type: msgType, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", msgType, err)
	}
	if err := n.rdb.Publish(ctx, UpdateChannel(userID), msg).Err(); err != nil {
		slog.Warn("publish update failed", "user_id", userID, "type", msgType, "error", err)
		return err
	}
	return nil
}
