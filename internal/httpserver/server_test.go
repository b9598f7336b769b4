package httpserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Chunshan-Theta/HeyGenInterface/internal/avatar"
	"github.com/Chunshan-Theta/HeyGenInterface/internal/config"
	"github.com/Chunshan-Theta/HeyGenInterface/internal/dialogue"
	"github.com/Chunshan-Theta/HeyGenInterface/internal/transcribe"

	openai "github.com/sashabaranov/go-openai"
)

func newTestHandlers(cfg config.Config) (*Handlers, *echo.Echo) {
	h := NewHandlers(cfg)
	e := New()
	h.Register(e)
	return h, e
}

func TestHealthz(t *testing.T) {
	_, e := newTestHandlers(config.Config{})
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRepeatPage(t *testing.T) {
	_, e := newTestHandlers(config.Config{})
	r := httptest.NewRequest(http.MethodGet, "/repeat", nil)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Repeat Avatar") {
		t.Fatalf("expected demo page markup")
	}
}

func TestAccessToken_MissingKey(t *testing.T) {
	_, e := newTestHandlers(config.Config{})
	r := httptest.NewRequest(http.MethodPost, "/api/get-access-token", nil)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "HEYGEN_API_KEY") {
		t.Fatalf("expected descriptive error, got %s", w.Body.String())
	}
}

func TestTranscribe_MissingKey(t *testing.T) {
	_, e := newTestHandlers(config.Config{})
	r := httptest.NewRequest(http.MethodPost, "/api/stt/transcribe", nil)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "OPENAI_API_KEY") {
		t.Fatalf("expected missing-key error, got %s", w.Body.String())
	}
}

func TestTranscribe_MissingAudio(t *testing.T) {
	_, e := newTestHandlers(config.Config{OpenAIKey: "test-key", STTModel: "gpt-4o-mini-transcribe"})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("language", "zh")
	_ = mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/api/stt/transcribe", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["error"] == "" {
		t.Fatalf("expected error field, got %s", w.Body.String())
	}
}

func TestTranscribe_OK(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":"hello"}`))
	}))
	defer provider.Close()

	h, e := newTestHandlers(config.Config{OpenAIKey: "test-key", STTModel: "gpt-4o-mini-transcribe"})
	ocfg := openai.DefaultConfig("test-key")
	ocfg.BaseURL = provider.URL + "/v1"
	h.stt = &transcribe.OpenAIService{Client: openai.NewClientWithConfig(ocfg), DefaultModel: "gpt-4o-mini-transcribe"}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("audio", "audio.webm")
	_, _ = fw.Write([]byte("fake-audio-bytes"))
	_ = mw.WriteField("language", "zh")
	_ = mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/api/stt/transcribe", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["text"] != "hello" {
		t.Fatalf("expected text field, got %s", w.Body.String())
	}
}

func TestVoissProxy_Passthrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"message":"welcome"}}`))
	}))
	defer upstream.Close()

	h, e := newTestHandlers(config.Config{})
	h.voiss = dialogue.NewClient(upstream.URL)

	r := httptest.NewRequest(http.MethodPost, "/api/voiss/initialize", strings.NewReader(`{"activity_id":"a"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected upstream status passthrough, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "welcome") {
		t.Fatalf("expected upstream body passthrough, got %s", w.Body.String())
	}
}

func TestVoissProxy_InvalidJSON(t *testing.T) {
	_, e := newTestHandlers(config.Config{})
	r := httptest.NewRequest(http.MethodPost, "/api/voiss/chat", strings.NewReader("not-json"))
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestVoissProxy_UpstreamUnreachable(t *testing.T) {
	h, e := newTestHandlers(config.Config{})
	h.voiss = dialogue.NewClient("http://127.0.0.1:0")

	r := httptest.NewRequest(http.MethodPost, "/api/voiss/chat", strings.NewReader(`{"message":"hi"}`))
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON fault body: %v", err)
	}
	if body["success"] != false || body["error"] == "" {
		t.Fatalf("expected fault envelope, got %s", w.Body.String())
	}
}

var handlerTestUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// fakeAvatarBackend mimics the streaming REST + event socket surface.
func fakeAvatarBackend() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/streaming.create_token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"token":"tok"}}`))
	})
	mux.HandleFunc("/v1/streaming.new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"session_id":"sess-1"}}`))
	})
	mux.HandleFunc("/v1/streaming.start", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/v1/streaming.stop", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/v1/ws/streaming.chat", func(w http.ResponseWriter, r *http.Request) {
		conn, err := handlerTestUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	return httptest.NewServer(mux)
}

func TestSessionStartAndStop(t *testing.T) {
	backend := fakeAvatarBackend()
	defer backend.Close()

	h, e := newTestHandlers(config.Config{})
	h.avatar = avatar.NewClient(backend.URL, "key")

	r := httptest.NewRequest(http.MethodPost, "/api/session/start?session_id=sess-test&avatar_id=June_HR_public", nil)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["session_id"] != "sess-test" || body["state"] != "connected" {
		t.Fatalf("unexpected start response: %s", w.Body.String())
	}

	r = httptest.NewRequest(http.MethodPost, "/api/session/stop?session_id=sess-test", nil)
	w = httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on stop, got %d", w.Code)
	}
}

func TestRecordStream_SocketCloseEndsCapture(t *testing.T) {
	backend := fakeAvatarBackend()
	defer backend.Close()

	h, e := newTestHandlers(config.Config{})
	h.avatar = avatar.NewClient(backend.URL, "key")

	srv := httptest.NewServer(e)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/session/start?session_id=sess-rec", "application/json", nil)
	if err != nil {
		t.Fatalf("session start failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on start, got %d", resp.StatusCode)
	}
	o, ok := h.sessions.Get("sess-rec")
	if !ok {
		t.Fatalf("expected orchestrator for started session")
	}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/session/record/stream?session_id=sess-rec"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("record stream dial failed: %v", err)
	}
	_ = conn.WriteMessage(websocket.BinaryMessage, []byte("chunk"))
	_ = conn.Close()

	// a dropped ingest socket must end the capture on its own
	waitFor(t, func() bool { return !o.Recorder().Recording() }, "capture still active after socket close")

	// and the recorder must accept a fresh capture afterwards
	conn2, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("second record stream dial failed: %v", err)
	}
	waitFor(t, func() bool { return o.Recorder().Recording() }, "recorder rejected a fresh capture")
	_ = conn2.Close()
	waitFor(t, func() bool { return !o.Recorder().Recording() }, "second capture did not end")

	resp, err = http.Post(srv.URL+"/api/session/stop?session_id=sess-rec", "application/json", nil)
	if err != nil {
		t.Fatalf("session stop failed: %v", err)
	}
	resp.Body.Close()
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("%s", msg)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSessionText_UnknownSession(t *testing.T) {
	_, e := newTestHandlers(config.Config{})
	r := httptest.NewRequest(http.MethodPost, "/api/session/text", strings.NewReader(`{"session_id":"ghost","text":"hi"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRecordStop_UnknownSession(t *testing.T) {
	_, e := newTestHandlers(config.Config{})
	r := httptest.NewRequest(http.MethodPost, "/api/session/record/stop?session_id=ghost", nil)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestSessionStop_MissingID(t *testing.T) {
	_, e := newTestHandlers(config.Config{})
	r := httptest.NewRequest(http.MethodPost, "/api/session/stop", nil)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
