package service

import (
	"bytes"
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	rendererhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/xxxsen/gemchat/internal/model"
	"github.com/xxxsen/gemchat/internal/repo"
)

type ExportService struct {
	conversations *repo.ConversationRepo
	messages      *repo.MessageRepo
	md            goldmark.Markdown
}

func NewExportService(conversations *repo.ConversationRepo, messages *repo.MessageRepo) *ExportService {
	return &ExportService{
		conversations: conversations,
		messages:      messages,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(rendererhtml.WithUnsafe()),
		),
	}
}

// Markdown renders a conversation as a transcript: title heading, then one
// role-labelled section per turn.
func (s *ExportService) Markdown(ctx context.Context, conversationID string) (string, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return "", err
	}
	messages, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("# " + exportTitle(conv) + "\n")
	for _, msg := range messages {
		b.WriteString("\n## " + roleLabel(msg.Role) + "\n\n")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// HTML renders the transcript markdown as HTML.
func (s *ExportService) HTML(ctx context.Context, conversationID string) (string, error) {
	markdown, err := s.Markdown(ctx, conversationID)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

func exportTitle(conv *model.Conversation) string {
	if conv.Title != nil {
		if title := strings.TrimSpace(*conv.Title); title != "" {
			return title
		}
	}
	return "Conversation " + conv.ID
}

func roleLabel(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case model.RoleAssistant:
		return "Assistant"
	case model.RoleUser:
		return "User"
	case model.RoleSystem:
		return "System"
	default:
		return "Unknown"
	}
}
