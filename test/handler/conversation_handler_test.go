package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/gemchat/internal/pkg/errcode"
)

func getPath(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestWelcome(t *testing.T) {
	router, _, cleanup := setupRouter(t)
	defer cleanup()

	resp := getPath(t, router, "/")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotEmpty(t, resp.Header().Get("X-Request-Id"))

	var result struct {
		Data struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.Equal(t, "Welcome to the Chatbot API powered by Google GenAI!", result.Data.Message)
}

func TestConversationLifecycle(t *testing.T) {
	router, _, cleanup := setupRouter(t)
	defer cleanup()

	// empty list, not null
	resp := getPath(t, router, "/conversation/")
	require.Equal(t, http.StatusOK, resp.Code)
	var emptyList struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &emptyList))
	require.NotNil(t, emptyList.Data)
	require.Len(t, emptyList.Data, 0)

	resp = postJSON(t, router, "/chat/generate", `{"input":"hello"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	var chat chatResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &chat))
	convID := chat.Data.ConversationID

	resp = getPath(t, router, "/conversation/")
	require.Equal(t, http.StatusOK, resp.Code)
	var list struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	require.Equal(t, convID, list.Data[0].ID)

	resp = getPath(t, router, "/conversation/history/"+convID)
	require.Equal(t, http.StatusOK, resp.Code)
	var history struct {
		Data []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &history))
	require.Len(t, history.Data, 2)
	require.Equal(t, "user", history.Data[0].Role)
	require.Equal(t, "hello", history.Data[0].Content)
	require.Equal(t, "assistant", history.Data[1].Role)
	require.Equal(t, "backend answer", history.Data[1].Content)

	req := httptest.NewRequest(http.MethodPatch, "/conversation/"+convID+"/title", bytes.NewReader([]byte(`{"title":"My Chat"}`)))
	req.Header.Set("Content-Type", "application/json")
	renameResp := httptest.NewRecorder()
	router.ServeHTTP(renameResp, req)
	require.Equal(t, http.StatusOK, renameResp.Code)
	var renamed struct {
		Data struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(renameResp.Body.Bytes(), &renamed))
	require.Equal(t, convID, renamed.Data.ID)
	require.Equal(t, "My Chat", renamed.Data.Title)

	resp = getPath(t, router, "/conversation/"+convID+"/export?format=markdown")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Header().Get("Content-Type"), "text/markdown")
	require.Contains(t, resp.Header().Get("Content-Disposition"), "conversation-"+convID+".md")
	require.Contains(t, resp.Body.String(), "# My Chat")
	require.Contains(t, resp.Body.String(), "## User")
	require.Contains(t, resp.Body.String(), "## Assistant")
	require.Contains(t, resp.Body.String(), "backend answer")

	resp = getPath(t, router, "/conversation/"+convID+"/export?format=html")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Header().Get("Content-Type"), "text/html")
	require.Contains(t, resp.Body.String(), `<h1 id="my-chat">My Chat</h1>`)
	require.Contains(t, resp.Body.String(), "<p>backend answer</p>")

	resp = getPath(t, router, "/conversation/"+convID+"/export?format=csv")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	var badFormat errorResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &badFormat))
	require.Equal(t, errcode.ErrInvalid, badFormat.Error.Code)

	req = httptest.NewRequest(http.MethodDelete, "/conversation/"+convID, nil)
	deleteResp := httptest.NewRecorder()
	router.ServeHTTP(deleteResp, req)
	require.Equal(t, http.StatusOK, deleteResp.Code)
	var deleted struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(deleteResp.Body.Bytes(), &deleted))
	require.Equal(t, "deleted", deleted.Data.Status)

	// history of a removed conversation is an empty list, not a 404
	resp = getPath(t, router, "/conversation/history/"+convID)
	require.Equal(t, http.StatusOK, resp.Code)
	var gone struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &gone))
	require.Len(t, gone.Data, 0)

	req = httptest.NewRequest(http.MethodDelete, "/conversation/"+convID, nil)
	deleteResp = httptest.NewRecorder()
	router.ServeHTTP(deleteResp, req)
	require.Equal(t, http.StatusNotFound, deleteResp.Code)
	var missing errorResult
	require.NoError(t, json.Unmarshal(deleteResp.Body.Bytes(), &missing))
	require.Equal(t, errcode.ErrNotFound, missing.Error.Code)
}

func TestConversationUnknownID(t *testing.T) {
	router, _, cleanup := setupRouter(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPatch, "/conversation/nope/title", bytes.NewReader([]byte(`{"title":"x"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusNotFound, resp.Code)
	var renamed errorResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &renamed))
	require.Equal(t, errcode.ErrNotFound, renamed.Error.Code)

	exportResp := getPath(t, router, "/conversation/nope/export?format=markdown")
	require.Equal(t, http.StatusNotFound, exportResp.Code)
	var export errorResult
	require.NoError(t, json.Unmarshal(exportResp.Body.Bytes(), &export))
	require.Equal(t, errcode.ErrNotFound, export.Error.Code)
}
