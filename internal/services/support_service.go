// Package services – SupportService
//
// This file implements the support desk: customer questions are stored as
// SupportIssue rows and forwarded to the admin with a reply button; the
// admin's reply is relayed back by issue id.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/merch-order-bot/internal/domain"
	"github.com/tbourn/merch-order-bot/internal/messenger"
	"github.com/tbourn/merch-order-bot/internal/repo"
)

// SupportService stores and routes support issues.
type SupportService struct {
	DB          *gorm.DB
	Notify      messenger.Sender
	AdminChatID int64
}

// Submit records a customer's question and forwards it to the admin.
func (s *SupportService) Submit(ctx context.Context, userID int64, username, text string) (*domain.SupportIssue, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	is, err := repo.CreateSupportIssue(ctx, s.DB, userID, text)
	if err != nil {
		return nil, err
	}
	log.Info().Uint("issue_id", is.ID).Int64("user_id", userID).Msg("support issue created")

	n := notifier{send: s.Notify}
	n.message(ctx, s.AdminChatID, supportCaption(*is, username), supportReplyButton(is.ID))
	n.message(ctx, userID, txtSupportReceived, messenger.Keyboard{})
	return is, nil
}

// Reply relays the admin's answer to the issue's author. Blank text returns
// ErrEmptyReason so the admin is prompted again.
func (s *SupportService) Reply(ctx context.Context, issueID uint, text string) (*domain.SupportIssue, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyReason
	}
	is, err := repo.GetSupportIssue(ctx, s.DB, issueID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrIssueNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.Notify.SendMessage(ctx, is.UserID, txtSupportReply(text), supportFeedbackButtons()); err != nil {
		return nil, err
	}
	return is, nil
}
