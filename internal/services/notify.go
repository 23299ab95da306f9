package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/merch-order-bot/internal/messenger"
	"github.com/tbourn/merch-order-bot/internal/observability"
)

// notifier wraps a Sender so that delivery failures are logged and counted
// but never undo a state change that has already been persisted.
type notifier struct {
	send messenger.Sender
}

func (n notifier) message(ctx context.Context, chatID int64, text string, kb messenger.Keyboard) int {
	id, err := n.send.SendMessage(ctx, chatID, text, kb)
	if err != nil {
		n.failed(err, chatID, "send message")
		return 0
	}
	return id
}

// photo sends a photo, or a plain message when there is no image to show.
func (n notifier) photo(ctx context.Context, chatID int64, p messenger.Photo, caption string, kb messenger.Keyboard) int {
	if p.FileID == "" && p.URL == "" {
		return n.message(ctx, chatID, caption, kb)
	}
	id, err := n.send.SendPhoto(ctx, chatID, p, caption, kb)
	if err != nil {
		n.failed(err, chatID, "send photo")
		return 0
	}
	return id
}

func (n notifier) markup(ctx context.Context, chatID int64, messageID int, kb messenger.Keyboard) {
	if messageID == 0 {
		return
	}
	if err := n.send.EditMessageMarkup(ctx, chatID, messageID, kb); err != nil {
		n.failed(err, chatID, "edit markup")
	}
}

func (n notifier) caption(ctx context.Context, chatID int64, messageID int, caption string) {
	if messageID == 0 {
		return
	}
	if err := n.send.EditCaption(ctx, chatID, messageID, caption); err != nil {
		n.failed(err, chatID, "edit caption")
	}
}

func (n notifier) failed(err error, chatID int64, op string) {
	observability.NotificationFailed()
	log.Warn().Err(err).Int64("chat_id", chatID).Str("op", op).Msg("notification failed")
}
