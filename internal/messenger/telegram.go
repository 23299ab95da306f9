package messenger

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// API is the subset of *tgbotapi.BotAPI the Telegram sender uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Telegram implements Sender over the Telegram Bot API. Text and captions are
// sent with Markdown parse mode.
type Telegram struct {
	API       API
	ParseMode string
}

// NewTelegram wraps a bot API client.
func NewTelegram(api API) *Telegram {
	return &Telegram{API: api, ParseMode: tgbotapi.ModeMarkdown}
}

var _ Sender = (*Telegram)(nil)

func (t *Telegram) span(ctx context.Context, name string, chatID int64) (context.Context, trace.Span) {
	return otel.Tracer("messenger/Telegram").Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int64("chat.id", chatID)),
	)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// SendMessage sends text with optional markup and returns the message id.
func (t *Telegram) SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) (int, error) {
	ctx, span := t.span(ctx, "SendMessage", chatID)
	defer span.End()
	if err := ctx.Err(); err != nil {
		return 0, fail(span, err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = t.ParseMode
	if m := replyMarkup(kb); m != nil {
		msg.ReplyMarkup = m
	}
	sent, err := t.API.Send(msg)
	if err != nil {
		return 0, fail(span, fmt.Errorf("send message: %w", err))
	}
	return sent.MessageID, nil
}

// SendPhoto sends an image with a caption and returns the message id.
func (t *Telegram) SendPhoto(ctx context.Context, chatID int64, photo Photo, caption string, kb Keyboard) (int, error) {
	ctx, span := t.span(ctx, "SendPhoto", chatID)
	defer span.End()
	if err := ctx.Err(); err != nil {
		return 0, fail(span, err)
	}

	p := tgbotapi.NewPhoto(chatID, photoFile(photo))
	p.Caption = caption
	p.ParseMode = t.ParseMode
	if m := replyMarkup(kb); m != nil {
		p.ReplyMarkup = m
	}
	sent, err := t.API.Send(p)
	if err != nil {
		return 0, fail(span, fmt.Errorf("send photo: %w", err))
	}
	return sent.MessageID, nil
}

// EditPhoto swaps the image and caption of an existing photo message.
func (t *Telegram) EditPhoto(ctx context.Context, chatID int64, messageID int, photo Photo, caption string, kb Keyboard) error {
	ctx, span := t.span(ctx, "EditPhoto", chatID)
	defer span.End()
	if err := ctx.Err(); err != nil {
		return fail(span, err)
	}

	media := tgbotapi.NewInputMediaPhoto(photoFile(photo))
	media.Caption = caption
	media.ParseMode = t.ParseMode
	edit := tgbotapi.EditMessageMediaConfig{
		BaseEdit: tgbotapi.BaseEdit{ChatID: chatID, MessageID: messageID},
		Media:    media,
	}
	if len(kb.Inline) > 0 {
		m := inlineMarkup(kb.Inline)
		edit.ReplyMarkup = &m
	}
	if _, err := t.API.Request(edit); err != nil {
		return fail(span, fmt.Errorf("edit photo: %w", err))
	}
	return nil
}

// EditMessageMarkup replaces the inline controls of a message. A keyboard
// without inline rows removes them.
func (t *Telegram) EditMessageMarkup(ctx context.Context, chatID int64, messageID int, kb Keyboard) error {
	ctx, span := t.span(ctx, "EditMessageMarkup", chatID)
	defer span.End()
	if err := ctx.Err(); err != nil {
		return fail(span, err)
	}

	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, inlineMarkup(kb.Inline))
	if _, err := t.API.Request(edit); err != nil {
		return fail(span, fmt.Errorf("edit markup: %w", err))
	}
	return nil
}

// EditCaption replaces a photo caption. Inline controls are dropped.
func (t *Telegram) EditCaption(ctx context.Context, chatID int64, messageID int, caption string) error {
	ctx, span := t.span(ctx, "EditCaption", chatID)
	defer span.End()
	if err := ctx.Err(); err != nil {
		return fail(span, err)
	}

	edit := tgbotapi.NewEditMessageCaption(chatID, messageID, caption)
	edit.ParseMode = t.ParseMode
	if _, err := t.API.Request(edit); err != nil {
		return fail(span, fmt.Errorf("edit caption: %w", err))
	}
	return nil
}

// AnswerCallback acknowledges a button press, optionally with a toast.
func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.API.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func photoFile(p Photo) tgbotapi.RequestFileData {
	if p.FileID != "" {
		return tgbotapi.FileID(p.FileID)
	}
	return tgbotapi.FileURL(p.URL)
}

func inlineMarkup(rows [][]Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, r := range rows {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			if b.URL != "" {
				row = append(row, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		out = append(out, row)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: out}
}

// replyMarkup converts kb into the markup value for a new message, or nil.
func replyMarkup(kb Keyboard) any {
	switch {
	case len(kb.Inline) > 0:
		return inlineMarkup(kb.Inline)
	case len(kb.Menu) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(kb.Menu))
		for _, r := range kb.Menu {
			row := make([]tgbotapi.KeyboardButton, 0, len(r))
			for _, label := range r {
				row = append(row, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, row)
		}
		return tgbotapi.NewReplyKeyboard(rows...)
	case kb.RemoveMenu:
		return tgbotapi.NewRemoveKeyboard(true)
	}
	return nil
}
