package handler_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/gemchat/internal/ai"
	"github.com/xxxsen/gemchat/internal/handler"
	"github.com/xxxsen/gemchat/internal/pkg/dbutil"
	"github.com/xxxsen/gemchat/internal/repo"
	"github.com/xxxsen/gemchat/internal/service"
	"github.com/xxxsen/gemchat/test/testutil"
)

type fakeGenerator struct {
	mu            sync.Mutex
	text          string
	err           error
	chunks        []string
	generateCalls int
	streamCalls   int
}

var _ ai.Generator = (*fakeGenerator)(nil)

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, req *ai.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeGenerator) GenerateStream(ctx context.Context, req *ai.Request) (<-chan ai.StreamChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan ai.StreamChunk, len(f.chunks))
	for _, chunk := range f.chunks {
		out <- ai.StreamChunk{Text: chunk}
	}
	close(out)
	return out, nil
}

func (f *fakeGenerator) Upload(ctx context.Context, path string, mime string) (*ai.Uploaded, error) {
	return &ai.Uploaded{URI: "files/fake", MimeType: mime}, nil
}

func (f *fakeGenerator) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generateCalls
}

func setupRouter(t *testing.T) (http.Handler, *fakeGenerator, func()) {
	return setupRouterWithWindow(t, 0)
}

func setupRouterWithWindow(t *testing.T, window time.Duration) (http.Handler, *fakeGenerator, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, cleanup := testutil.OpenTestDB(t)
	convRepo := repo.NewConversationRepo(db, dbutil.DriverSQLite)
	msgRepo := repo.NewMessageRepo(db, dbutil.DriverSQLite)
	cacheRepo := repo.NewCachedResponseRepo(db, dbutil.DriverSQLite)
	uploadRepo := repo.NewUploadedFileRepo(db, dbutil.DriverSQLite)

	gen := &fakeGenerator{text: "backend answer"}
	convService := service.NewConversationService(convRepo, msgRepo)
	chatService := service.NewChatService(convService, msgRepo, cacheRepo, uploadRepo, gen, "gemini-2.0-flash-exp", 30, 5)
	exportService := service.NewExportService(convRepo, msgRepo)

	engine := handler.NewRouter(handler.RouterDeps{
		Chat:           handler.NewChatHandler(chatService),
		Conversations:  handler.NewConversationHandler(convService, exportService),
		ChatRateWindow: window,
	})
	return engine, gen, cleanup
}
