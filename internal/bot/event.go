// Package bot is the inbound side of the order workflow. It converts
// Telegram updates into Events, serializes them per chat, and routes them to
// the customer and admin handlers, which call into the services.
package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback is an inline-button press.
type Callback struct {
	ID        string
	Data      string
	MessageID int    // message carrying the pressed button
	Caption   string // its caption or text, kept for appending decisions
}

// Event is one inbound update reduced to the fields the handlers use.
type Event struct {
	UpdateID int
	ChatID   int64
	UserID   int64
	Username string

	Text     string
	PhotoID  string // largest size of an attached photo
	Callback *Callback
}

// Kind labels the event for metrics and logs.
func (e Event) Kind() string {
	switch {
	case e.Callback != nil:
		return "callback"
	case e.PhotoID != "":
		return "photo"
	default:
		return "message"
	}
}

// FromUpdate extracts an Event. Updates other than messages and callback
// queries report false.
func FromUpdate(u tgbotapi.Update) (Event, bool) {
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		if cq.Message == nil || cq.Message.Chat == nil {
			return Event{}, false
		}
		ev := Event{
			UpdateID: u.UpdateID,
			ChatID:   cq.Message.Chat.ID,
			Callback: &Callback{
				ID:        cq.ID,
				Data:      cq.Data,
				MessageID: cq.Message.MessageID,
				Caption:   cq.Message.Caption,
			},
		}
		if ev.Callback.Caption == "" {
			ev.Callback.Caption = cq.Message.Text
		}
		if cq.From != nil {
			ev.UserID = cq.From.ID
			ev.Username = cq.From.UserName
		}
		return ev, true

	case u.Message != nil:
		m := u.Message
		if m.Chat == nil {
			return Event{}, false
		}
		ev := Event{
			UpdateID: u.UpdateID,
			ChatID:   m.Chat.ID,
			Text:     m.Text,
		}
		if m.From != nil {
			ev.UserID = m.From.ID
			ev.Username = m.From.UserName
		}
		if n := len(m.Photo); n > 0 {
			ev.PhotoID = m.Photo[n-1].FileID
			ev.Text = m.Caption
		}
		return ev, true
	}
	return Event{}, false
}
