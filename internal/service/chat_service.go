package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/gemchat/internal/ai"
	"github.com/xxxsen/gemchat/internal/extract"
	"github.com/xxxsen/gemchat/internal/filetype"
	"github.com/xxxsen/gemchat/internal/fingerprint"
	"github.com/xxxsen/gemchat/internal/model"
	appErr "github.com/xxxsen/gemchat/internal/pkg/errors"
	"github.com/xxxsen/gemchat/internal/repo"
)

const (
	// Inline attachment text is capped before it joins the prompt.
	maxInlineChars    = 100000
	docxEmptyFallback = "(No extractable text found in DOCX file.)"
	// Backend file uploads stay referenceable for about two days; rows
	// older than this are never reused.
	uploadReuseWindow = 48 * time.Hour
)

// ChatService runs the generation flow: conversation bookkeeping, request
// fingerprinting, the response cache, attachment handling and the backend
// call, including the cached-offline fallback when the backend is down.
type ChatService struct {
	conversations *ConversationService
	messages      *repo.MessageRepo
	cache         *repo.CachedResponseRepo
	uploads       *repo.UploadedFileRepo
	generator     ai.Generator
	defaultModel  string
	ttlDays       int
	timeout       time.Duration
	extracted     *expirable.LRU[string, string]
	now           func() int64
}

func NewChatService(
	conversations *ConversationService,
	messages *repo.MessageRepo,
	cache *repo.CachedResponseRepo,
	uploads *repo.UploadedFileRepo,
	generator ai.Generator,
	defaultModel string,
	ttlDays int,
	timeoutSec int,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		cache:         cache,
		uploads:       uploads,
		generator:     generator,
		defaultModel:  defaultModel,
		ttlDays:       ttlDays,
		timeout:       time.Duration(timeoutSec) * time.Second,
		extracted:     expirable.NewLRU[string, string](10000, nil, 2*time.Hour),
		now:           func() int64 { return time.Now().UnixMilli() },
	}
}

// Generate produces a single response for the request.
func (s *ChatService) Generate(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	logger := logutil.GetLogger(ctx)
	if strings.TrimSpace(req.Input) == "" {
		return nil, fmt.Errorf("%w: input is required", appErr.ErrInvalid)
	}
	modelName := req.Model
	if modelName == "" {
		modelName = s.defaultModel
	}

	conv, err := s.conversations.GetOrCreate(ctx, req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("ensure conversation: %w", err)
	}
	logger = logger.With(zap.String("conversation_id", conv.ID))

	userTs := s.now()
	s.recordTurn(ctx, conv.ID, model.RoleUser, req.Input, userTs)

	hashes := fingerprint.HashFiles(req.FilePaths)
	key := fingerprint.RequestKey(modelName, req.Input, req.Instructions, hashes)

	if cached, err := s.cache.Get(ctx, key, s.now()); err == nil {
		logger.Info("cache hit", zap.String("request_key", key))
		msg := s.recordTurn(ctx, conv.ID, model.RoleAssistant, cached.ResponseText, s.assistantTime(userTs))
		return s.chatResponse(conv.ID, msg, model.StatusCached), nil
	} else if !appErr.IsNotFound(err) {
		logger.Debug("cache lookup failed", zap.Error(err))
	}

	genReq, err := s.buildRequest(ctx, conv.ID, modelName, req, hashes)
	if err != nil {
		return nil, err
	}

	genCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	text, genErr := s.generator.Generate(genCtx, genReq)
	if genErr != nil {
		logger.Error("generation failed", zap.Error(genErr))
		if cached, err := s.cache.Get(ctx, key, s.now()); err == nil {
			msg := s.recordTurn(ctx, conv.ID, model.RoleAssistant, cached.ResponseText, s.assistantTime(userTs))
			return s.chatResponse(conv.ID, msg, model.StatusCachedOffline), nil
		}
		return nil, genErr
	}

	msg := s.recordTurn(ctx, conv.ID, model.RoleAssistant, text, s.assistantTime(userTs))
	s.saveCache(ctx, key, modelName, req, hashes, text)
	return s.chatResponse(conv.ID, msg, model.StatusCompleted), nil
}

// GenerateStream produces a response as a sequence of chunks handed to emit.
// A cache hit emits one chunk. On a miss, chunks are forwarded as they
// arrive; the full text is persisted and cached only after a clean end. A
// mid-stream backend failure falls back to the cache, emitting the full
// cached text as one final chunk. When emit itself fails the stream stops
// and the partial text is discarded.
func (s *ChatService) GenerateStream(ctx context.Context, req *model.ChatRequest, emit func(string) error) error {
	logger := logutil.GetLogger(ctx)
	if strings.TrimSpace(req.Input) == "" {
		return fmt.Errorf("%w: input is required", appErr.ErrInvalid)
	}
	modelName := req.Model
	if modelName == "" {
		modelName = s.defaultModel
	}

	conv, err := s.conversations.GetOrCreate(ctx, req.ConversationID)
	if err != nil {
		return fmt.Errorf("ensure conversation: %w", err)
	}
	logger = logger.With(zap.String("conversation_id", conv.ID))

	userTs := s.now()
	s.recordTurn(ctx, conv.ID, model.RoleUser, req.Input, userTs)

	hashes := fingerprint.HashFiles(req.FilePaths)
	key := fingerprint.RequestKey(modelName, req.Input, req.Instructions, hashes)

	if cached, err := s.cache.Get(ctx, key, s.now()); err == nil {
		logger.Info("cache hit", zap.String("request_key", key))
		s.recordTurn(ctx, conv.ID, model.RoleAssistant, cached.ResponseText, s.assistantTime(userTs))
		return emit(cached.ResponseText)
	} else if !appErr.IsNotFound(err) {
		logger.Debug("cache lookup failed", zap.Error(err))
	}

	genReq, err := s.buildRequest(ctx, conv.ID, modelName, req, hashes)
	if err != nil {
		return err
	}

	stream, err := s.generator.GenerateStream(ctx, genReq)
	if err != nil {
		logger.Error("stream start failed", zap.Error(err))
		return s.streamFallback(ctx, key, emit, err)
	}

	var full strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			logger.Error("streaming failed", zap.Error(chunk.Err))
			return s.streamFallback(ctx, key, emit, chunk.Err)
		}
		full.WriteString(chunk.Text)
		if err := emit(chunk.Text); err != nil {
			logger.Warn("client went away, dropping stream", zap.Error(err))
			return err
		}
	}

	text := full.String()
	s.recordTurn(ctx, conv.ID, model.RoleAssistant, text, s.assistantTime(userTs))
	s.saveCache(ctx, key, modelName, req, hashes, text)
	return nil
}

// streamFallback serves the cached response after a backend failure, or
// propagates the original cause when there is none.
func (s *ChatService) streamFallback(ctx context.Context, key string, emit func(string) error, cause error) error {
	cached, err := s.cache.Get(ctx, key, s.now())
	if err != nil {
		return cause
	}
	logutil.GetLogger(ctx).Info("serving cached response after backend failure", zap.String("request_key", key))
	return emit(cached.ResponseText)
}

// buildRequest assembles the backend request: the stored history in wire
// roles, then attachments appended to the trailing user turn.
func (s *ChatService) buildRequest(ctx context.Context, conversationID, modelName string, req *model.ChatRequest, hashes []string) (*ai.Request, error) {
	history, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	turns := make([]ai.Turn, 0, len(history)+1)
	for _, msg := range history {
		turns = append(turns, ai.Turn{Role: wireRole(msg.Role), Parts: []ai.Part{{Text: msg.Content}}})
	}
	turns, err = s.attachFiles(ctx, turns, req.FilePaths, hashes)
	if err != nil {
		return nil, err
	}
	var instructions string
	if req.Instructions != nil {
		instructions = *req.Instructions
	}
	return &ai.Request{
		Model:           modelName,
		Instructions:    instructions,
		Turns:           turns,
		SearchGrounding: req.SearchGrounding == nil || *req.SearchGrounding,
	}, nil
}

// attachFiles resolves each attachment: inlineable types contribute their
// extracted text, everything else is uploaded (or reused) and referenced by
// URI. hashes is parallel to paths.
func (s *ChatService) attachFiles(ctx context.Context, turns []ai.Turn, paths []string, hashes []string) ([]ai.Turn, error) {
	for i, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", appErr.ErrFileUnreadable, path)
		}
		ft, err := filetype.Lookup(path)
		if err != nil {
			return nil, err
		}
		if ft.Inline {
			text, err := s.extractInline(ctx, path, hashes[i])
			if err != nil {
				return nil, err
			}
			turns = appendUserPart(turns, ai.Part{Text: text})
			continue
		}
		uploaded, err := s.uploadWithReuse(ctx, path, hashes[i], ft.Mime)
		if err != nil {
			return nil, err
		}
		turns = appendUserPart(turns, ai.Part{FileURI: uploaded.URI, MIMEType: uploaded.MimeType})
	}
	return turns, nil
}

// extractInline returns the prompt text for an inlineable attachment. The
// raw extraction is memoized by content hash.
func (s *ChatService) extractInline(ctx context.Context, path string, hash string) (string, error) {
	text, ok := s.extracted.Get(hash)
	if !ok {
		var err error
		text, err = extract.DOCX(path)
		if err != nil {
			logutil.GetLogger(ctx).Error("docx extraction failed", zap.String("file", filepath.Base(path)), zap.Error(err))
			return "", fmt.Errorf("%w: %s", appErr.ErrFileUnreadable, filepath.Base(path))
		}
		s.extracted.Add(hash, text)
	}
	if text == "" {
		text = docxEmptyFallback
	}
	if runes := []rune(text); len(runes) > maxInlineChars {
		text = string(runes[:maxInlineChars])
	}
	return fmt.Sprintf("Content from %s:\n%s", filepath.Base(path), text), nil
}

// uploadWithReuse uploads a file to the backend, reusing an unexpired prior
// upload of identical content when one is on record.
func (s *ChatService) uploadWithReuse(ctx context.Context, path, hash, mime string) (*ai.Uploaded, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("file", filepath.Base(path)))
	if existing, err := s.uploads.GetByHash(ctx, hash, s.now()); err == nil {
		logger.Debug("reusing uploaded file", zap.String("uri", existing.RemoteURI))
		return &ai.Uploaded{URI: existing.RemoteURI, MimeType: existing.MimeType}, nil
	} else if !appErr.IsNotFound(err) {
		logger.Warn("uploaded file lookup failed", zap.Error(err))
	}

	uploaded, err := s.generator.Upload(ctx, path, mime)
	if err != nil {
		return nil, err
	}
	now := s.now()
	record := &model.UploadedFile{
		ID:        "file_" + newID(),
		LocalPath: path,
		FileHash:  hash,
		RemoteURI: uploaded.URI,
		MimeType:  uploaded.MimeType,
		Ctime:     now,
		ExpiresAt: now + uploadReuseWindow.Milliseconds(),
	}
	if err := s.uploads.Create(ctx, record); err != nil {
		logger.Warn("failed to record uploaded file", zap.Error(err))
	}
	logger.Info("file uploaded", zap.String("uri", uploaded.URI))
	return uploaded, nil
}

// recordTurn persists one message best-effort and returns it either way.
func (s *ChatService) recordTurn(ctx context.Context, conversationID, role, content string, ts int64) *model.Message {
	msg := &model.Message{
		ID:             "msg_" + newID(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Ctime:          ts,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		logutil.GetLogger(ctx).Warn("failed to record turn", zap.String("role", role), zap.Error(err))
	}
	return msg
}

func (s *ChatService) saveCache(ctx context.Context, key, modelName string, req *model.ChatRequest, hashes []string, text string) {
	item := &model.CachedResponse{
		ID:           "cache_" + newID(),
		RequestKey:   key,
		Model:        modelName,
		InputText:    req.Input,
		Instructions: req.Instructions,
		FileHashes:   hashes,
		ResponseText: text,
	}
	if err := s.cache.Save(ctx, item, s.ttlDays, s.now()); err != nil {
		logutil.GetLogger(ctx).Warn("failed to store cached response", zap.Error(err))
	}
}

func (s *ChatService) chatResponse(conversationID string, msg *model.Message, status string) *model.ChatResponse {
	return &model.ChatResponse{
		ConversationID: conversationID,
		CreatedAt:      s.now(),
		Output:         msg,
		Status:         status,
	}
}

// assistantTime keeps the assistant turn strictly after the user turn even
// when both land in the same millisecond.
func (s *ChatService) assistantTime(userTs int64) int64 {
	ts := s.now()
	if ts <= userTs {
		ts = userTs + 1
	}
	return ts
}

func wireRole(role string) string {
	normalized := strings.ToLower(strings.TrimSpace(role))
	switch normalized {
	case model.RoleAssistant:
		return ai.RoleModel
	case ai.RoleUser, ai.RoleModel:
		return normalized
	default:
		return ai.RoleUser
	}
}

func appendUserPart(turns []ai.Turn, part ai.Part) []ai.Turn {
	if len(turns) > 0 && turns[len(turns)-1].Role == ai.RoleUser {
		last := &turns[len(turns)-1]
		last.Parts = append(last.Parts, part)
		return turns
	}
	return append(turns, ai.Turn{Role: ai.RoleUser, Parts: []ai.Part{part}})
}
