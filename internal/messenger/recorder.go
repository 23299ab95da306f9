package messenger

import (
	"context"
	"strings"
	"sync"
)

// Sent is one outbound call captured by Recorder.
type Sent struct {
	Kind      string // "message", "photo", "edit_photo", "markup", "caption", "callback"
	ChatID    int64
	MessageID int
	Text      string
	Photo     Photo
	Keyboard  Keyboard
}

// Recorder is an in-memory Sender that records every call. It assigns
// increasing message ids and can be told to fail.
type Recorder struct {
	mu     sync.Mutex
	nextID int
	calls  []Sent

	// Err, when set, is returned by every call.
	Err error
}

var _ Sender = (*Recorder)(nil)

func (r *Recorder) record(s Sent) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	if s.Kind == "message" || s.Kind == "photo" {
		r.nextID++
		s.MessageID = r.nextID
	}
	r.calls = append(r.calls, s)
	return s.MessageID, nil
}

func (r *Recorder) SendMessage(_ context.Context, chatID int64, text string, kb Keyboard) (int, error) {
	return r.record(Sent{Kind: "message", ChatID: chatID, Text: text, Keyboard: kb})
}

func (r *Recorder) SendPhoto(_ context.Context, chatID int64, photo Photo, caption string, kb Keyboard) (int, error) {
	return r.record(Sent{Kind: "photo", ChatID: chatID, Photo: photo, Text: caption, Keyboard: kb})
}

func (r *Recorder) EditPhoto(_ context.Context, chatID int64, messageID int, photo Photo, caption string, kb Keyboard) error {
	_, err := r.record(Sent{Kind: "edit_photo", ChatID: chatID, MessageID: messageID, Photo: photo, Text: caption, Keyboard: kb})
	return err
}

func (r *Recorder) EditMessageMarkup(_ context.Context, chatID int64, messageID int, kb Keyboard) error {
	_, err := r.record(Sent{Kind: "markup", ChatID: chatID, MessageID: messageID, Keyboard: kb})
	return err
}

func (r *Recorder) EditCaption(_ context.Context, chatID int64, messageID int, caption string) error {
	_, err := r.record(Sent{Kind: "caption", ChatID: chatID, MessageID: messageID, Text: caption})
	return err
}

func (r *Recorder) AnswerCallback(_ context.Context, callbackID, text string) error {
	_, err := r.record(Sent{Kind: "callback", Text: text})
	return err
}

// Calls returns a copy of everything recorded so far.
func (r *Recorder) Calls() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.calls...)
}

// To returns the sends (messages and photos) addressed to chatID.
func (r *Recorder) To(chatID int64) []Sent {
	var out []Sent
	for _, c := range r.Calls() {
		if c.ChatID == chatID && (c.Kind == "message" || c.Kind == "photo") {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many sends to chatID contain substr.
func (r *Recorder) Count(chatID int64, substr string) int {
	n := 0
	for _, c := range r.To(chatID) {
		if strings.Contains(c.Text, substr) {
			n++
		}
	}
	return n
}

// Last returns the most recent call of the given kind, if any.
func (r *Recorder) Last(kind string) (Sent, bool) {
	calls := r.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Kind == kind {
			return calls[i], true
		}
	}
	return Sent{}, false
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}
