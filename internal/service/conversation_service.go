package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xxxsen/gemchat/internal/model"
	appErr "github.com/xxxsen/gemchat/internal/pkg/errors"
	"github.com/xxxsen/gemchat/internal/repo"
)

type ConversationService struct {
	conversations *repo.ConversationRepo
	messages      *repo.MessageRepo
}

func NewConversationService(conversations *repo.ConversationRepo, messages *repo.MessageRepo) *ConversationService {
	return &ConversationService{conversations: conversations, messages: messages}
}

// GetOrCreate returns the conversation with the given id, creating it when
// absent. A provided id is kept so clients can pre-reference conversations;
// an empty id gets a fresh one.
func (s *ConversationService) GetOrCreate(ctx context.Context, id string) (*model.Conversation, error) {
	if id == "" {
		id = uuid.NewString()
	} else {
		conv, err := s.conversations.GetByID(ctx, id)
		if err == nil {
			return conv, nil
		}
		if !appErr.IsNotFound(err) {
			return nil, err
		}
	}
	conv := &model.Conversation{
		ID:    id,
		Ctime: time.Now().UnixMilli(),
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// List returns all conversations, newest first.
func (s *ConversationService) List(ctx context.Context) ([]model.Conversation, error) {
	return s.conversations.List(ctx)
}

// History returns the messages of a conversation in chronological order. An
// unknown id yields an empty list rather than an error.
func (s *ConversationService) History(ctx context.Context, id string) ([]model.Message, error) {
	return s.messages.ListByConversation(ctx, id)
}

// Delete removes a conversation together with its messages.
func (s *ConversationService) Delete(ctx context.Context, id string) error {
	if _, err := s.conversations.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.messages.DeleteByConversation(ctx, id); err != nil {
		return err
	}
	return s.conversations.Delete(ctx, id)
}

// Rename sets the conversation title. The title is trimmed; an empty result
// clears it.
func (s *ConversationService) Rename(ctx context.Context, id string, title string) (*model.Conversation, error) {
	cleaned := strings.TrimSpace(title)
	var value *string
	if cleaned != "" {
		value = &cleaned
	}
	if err := s.conversations.UpdateTitle(ctx, id, value); err != nil {
		return nil, err
	}
	return s.conversations.GetByID(ctx, id)
}
