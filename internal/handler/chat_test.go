package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Chinu7077/Talk-to-Chinu/internal/model"
	"github.com/Chinu7077/Talk-to-Chinu/internal/service"
	"github.com/Chinu7077/Talk-to-Chinu/internal/storage"

	"github.com/gin-gonic/gin"
)

type stubProvider struct {
	reply string
	err   error
}

func (s *stubProvider) Generate(ctx context.Context, apiKey, userText string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *service.SessionService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	kv := storage.NewMemoryKV()
	sessions := service.NewSessionService(storage.NewMemoryStore())
	credits := service.NewCreditService(kv,
		service.CreditsKeyBase+"-test", service.LastResetKeyBase+"-test",
		50, 24*time.Hour, 0)
	chat := service.NewChatService(sessions, credits, &stubProvider{reply: "pong"}, kv, "test-key")

	chatHandler := NewChatHandler(chat, sessions)
	creditHandler := NewCreditHandler(credits)

	router := gin.New()
	router.POST("/api/chat/send", chatHandler.Send)
	router.POST("/api/chat/session", chatHandler.CreateSession)
	router.GET("/api/chat/session/list", chatHandler.GetSessionList)
	router.POST("/api/chat/session/current", chatHandler.SetCurrentSession)
	router.GET("/api/chat/session/:session_id", chatHandler.GetSession)
	router.DELETE("/api/chat/session/:session_id", chatHandler.DeleteSession)
	router.POST("/api/chat/session/:session_id/clear", chatHandler.ClearSession)
	router.GET("/api/chat/session/:session_id/export", chatHandler.ExportSession)
	router.GET("/api/chat/search", chatHandler.SearchSessions)
	router.GET("/api/credits", creditHandler.GetCredits)
	router.POST("/api/credits/reset", creditHandler.ResetCredits)

	return router, sessions
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSendEndpoint(t *testing.T) {
	router, sessions := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/chat/send", model.SendRequest{Message: "ping"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp model.SendResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.AIMessage.Text != "pong" {
		t.Errorf("AI text = %q, want pong", resp.AIMessage.Text)
	}
	if resp.Credits != 49 {
		t.Errorf("Credits = %d, want 49", resp.Credits)
	}

	session, err := sessions.GetSession(resp.SessionID)
	if err != nil || len(session.Messages) != 2 {
		t.Errorf("session state after send: %v, %+v", err, session)
	}
}

func TestSendEndpointValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/chat/send", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing message", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/chat/send",
		model.SendRequest{Message: "hi", SessionID: "missing"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unknown session", w.Code)
	}
}

func TestSessionLifecycleEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/chat/session", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d", w.Code)
	}
	var session model.Session
	json.Unmarshal(w.Body.Bytes(), &session)

	w = doJSON(t, router, http.MethodGet, "/api/chat/session/"+session.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/chat/session/list", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), session.ID) {
		t.Errorf("list status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodDelete, "/api/chat/session/"+session.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/chat/session/"+session.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
}

func TestClearSessionEndpoint(t *testing.T) {
	router, sessions := newTestRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/api/chat/send", model.SendRequest{Message: "hello"})
	var sent model.SendResponse
	json.Unmarshal(resp.Body.Bytes(), &sent)

	w := doJSON(t, router, http.MethodPost, "/api/chat/session/"+sent.SessionID+"/clear", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("clear status = %d", w.Code)
	}

	session, _ := sessions.GetSession(sent.SessionID)
	if len(session.Messages) != 0 {
		t.Errorf("session still has %d messages after clear", len(session.Messages))
	}
	if session.Title != model.DefaultTitle {
		t.Errorf("title = %q after clear, want default", session.Title)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/chat/send", model.SendRequest{Message: "tell me about gophers"})

	w := doJSON(t, router, http.MethodGet, "/api/chat/search?q=gophers", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "gophers") {
		t.Errorf("search status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/chat/search?q=zebras", nil)
	var out struct {
		Sessions []model.Session `json:"sessions"`
	}
	json.Unmarshal(w.Body.Bytes(), &out)
	if len(out.Sessions) != 0 {
		t.Errorf("search for zebras matched %d sessions, want 0", len(out.Sessions))
	}
}

func TestExportEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/api/chat/send", model.SendRequest{Message: "hi"})
	var sent model.SendResponse
	json.Unmarshal(resp.Body.Bytes(), &sent)

	w := doJSON(t, router, http.MethodGet, "/api/chat/session/"+sent.SessionID+"/export?format=markdown", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, ".md") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.Contains(w.Body.String(), "## You") {
		t.Errorf("markdown export body = %s", w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/chat/session/"+sent.SessionID+"/export?format=pdf", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad format status = %d, want 400", w.Code)
	}
}

func TestCreditEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/chat/send", model.SendRequest{Message: "hi"})

	w := doJSON(t, router, http.MethodGet, "/api/credits", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("credits status = %d", w.Code)
	}
	var credits model.CreditResponse
	json.Unmarshal(w.Body.Bytes(), &credits)
	if credits.Credits != 49 || credits.DailyLimit != 50 {
		t.Errorf("credits = %+v", credits)
	}
	if credits.OutOfCredits {
		t.Error("OutOfCredits = true with 49 remaining")
	}

	w = doJSON(t, router, http.MethodPost, "/api/credits/reset", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/credits", nil)
	json.Unmarshal(w.Body.Bytes(), &credits)
	if credits.Credits != 50 {
		t.Errorf("credits after reset = %d, want 50", credits.Credits)
	}
}

func TestSetCurrentSessionEndpoint(t *testing.T) {
	router, sessions := newTestRouter(t)
	session := sessions.CreateSession()
	sessions.CreateSession()

	w := doJSON(t, router, http.MethodPost, "/api/chat/session/current",
		model.SetCurrentSessionRequest{SessionID: session.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if sessions.CurrentSessionID() != session.ID {
		t.Errorf("current = %q, want %q", sessions.CurrentSessionID(), session.ID)
	}

	w = doJSON(t, router, http.MethodPost, "/api/chat/session/current",
		model.SetCurrentSessionRequest{SessionID: "missing"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
