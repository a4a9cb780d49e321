package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/gemchat/internal/model"
	"github.com/xxxsen/gemchat/internal/pkg/errcode"
	"github.com/xxxsen/gemchat/internal/pkg/response"
	"github.com/xxxsen/gemchat/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) Generate(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	resp, err := h.chat.Generate(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, resp)
}

// Stream serves the response over SSE. Each fragment goes out as one
// `data:` packet; a terminal failure goes out the same way with an
// `Error: ` prefix, since the 200 header is already on the wire.
func (h *ChatHandler) Stream(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	err := h.chat.GenerateStream(c.Request.Context(), &req, func(chunk string) error {
		if _, err := fmt.Fprintf(c.Writer, "data:%s\n\n", chunk); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		fmt.Fprintf(c.Writer, "data:Error: %s\n\n", err.Error())
		c.Writer.Flush()
	}
}
