package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/gemchat/internal/model"
	"github.com/xxxsen/gemchat/internal/pkg/errcode"
	appErr "github.com/xxxsen/gemchat/internal/pkg/errors"
	"github.com/xxxsen/gemchat/internal/pkg/response"
	"github.com/xxxsen/gemchat/internal/service"
)

type ConversationHandler struct {
	conversations *service.ConversationService
	export        *service.ExportService
}

func NewConversationHandler(conversations *service.ConversationService, export *service.ExportService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, export: export}
}

func (h *ConversationHandler) List(c *gin.Context) {
	items, err := h.conversations.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	if items == nil {
		items = []model.Conversation{}
	}
	response.Success(c, items)
}

// History returns the stored turns of a conversation. An unknown id yields
// an empty list, not a 404.
func (h *ConversationHandler) History(c *gin.Context) {
	msgs, err := h.conversations.History(c.Request.Context(), c.Param("conversation_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	response.Success(c, msgs)
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	id := c.Param("conversation_id")
	if err := h.conversations.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "deleted", "conversation_id": id})
}

type renameRequest struct {
	Title string `json:"title"`
}

func (h *ConversationHandler) Rename(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	conv, err := h.conversations.Rename(c.Request.Context(), c.Param("conversation_id"), req.Title)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, conv)
}

func (h *ConversationHandler) Export(c *gin.Context) {
	id := c.Param("conversation_id")
	format := strings.TrimSpace(c.Query("format"))
	if format == "" {
		format = "markdown"
	}
	var (
		content     string
		contentType string
		ext         string
		err         error
	)
	switch format {
	case "markdown":
		content, err = h.export.Markdown(c.Request.Context(), id)
		contentType = "text/markdown; charset=utf-8"
		ext = "md"
	case "html":
		content, err = h.export.HTML(c.Request.Context(), id)
		contentType = "text/html; charset=utf-8"
		ext = "html"
	default:
		handleError(c, fmt.Errorf("%w: unsupported export format: %s", appErr.ErrInvalid, format))
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}
	filename := fmt.Sprintf("conversation-%s.%s", id, ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, []byte(content))
}
