package handler

import (
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/gemchat/internal/middleware"
	"github.com/xxxsen/gemchat/internal/pkg/response"
)

type RouterDeps struct {
	Chat          *ChatHandler
	Conversations *ConversationHandler
	// CORSOrigins is the allowed-origin list; empty allows any origin.
	CORSOrigins []string
	// ChatRateWindow throttles the generation endpoints per client and
	// path; zero disables the limiter.
	ChatRateWindow time.Duration
}

// NewRouter builds the engine with the full middleware chain. The stream
// endpoint bypasses gzip so each chunk reaches the client as soon as it is
// flushed.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(deps.CORSOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/chat/stream"})))

	router.GET("/", welcome)

	chat := router.Group("/chat")
	chat.Use(middleware.RateLimit(deps.ChatRateWindow))
	chat.POST("/generate", deps.Chat.Generate)
	chat.POST("/stream", deps.Chat.Stream)

	conv := router.Group("/conversation")
	conv.GET("/", deps.Conversations.List)
	conv.GET("/history/:conversation_id", deps.Conversations.History)
	conv.DELETE("/:conversation_id", deps.Conversations.Delete)
	conv.PATCH("/:conversation_id/title", deps.Conversations.Rename)
	conv.GET("/:conversation_id/export", deps.Conversations.Export)

	return router
}

func welcome(c *gin.Context) {
	response.Success(c, gin.H{"message": "Welcome to the Chatbot API powered by Google GenAI!"})
}
