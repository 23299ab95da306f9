// Package messenger defines the outbound chat transport used by the order
// workflow and a Telegram implementation of it.
//
// Services depend on the Sender interface only. Message identifiers returned
// by Send* are kept on orders and discount rows so the same message can be
// edited later (controls re-rendered, decisions appended to captions).
package messenger

import "context"

// Button is one inline button. Exactly one of Data or URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Keyboard describes the markup attached to a message.
//
// Inline rows render under the message. Menu rows replace the user's reply
// keyboard. A zero Keyboard sends no markup; passed to EditMessageMarkup it
// removes all inline controls.
type Keyboard struct {
	Inline     [][]Button
	Menu       [][]string
	RemoveMenu bool
}

// IsZero reports whether the keyboard carries no markup at all.
func (k Keyboard) IsZero() bool {
	return len(k.Inline) == 0 && len(k.Menu) == 0 && !k.RemoveMenu
}

// Inline builds an inline keyboard from rows.
func Inline(rows ...[]Button) Keyboard { return Keyboard{Inline: rows} }

// Row groups buttons on one line.
func Row(b ...Button) []Button { return b }

// Data is a callback button.
func Data(text, data string) Button { return Button{Text: text, Data: data} }

// Link is a URL button.
func Link(text, url string) Button { return Button{Text: text, URL: url} }

// Menu builds a persistent reply keyboard.
func Menu(rows ...[]string) Keyboard { return Keyboard{Menu: rows} }

// Photo references an image either by a transport file id (a photo the user
// sent earlier) or by URL (catalog images).
type Photo struct {
	FileID string
	URL    string
}

// Sender is the outbound transport contract.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) (int, error)
	SendPhoto(ctx context.Context, chatID int64, photo Photo, caption string, kb Keyboard) (int, error)
	EditPhoto(ctx context.Context, chatID int64, messageID int, photo Photo, caption string, kb Keyboard) error
	EditMessageMarkup(ctx context.Context, chatID int64, messageID int, kb Keyboard) error
	EditCaption(ctx context.Context, chatID int64, messageID int, caption string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
