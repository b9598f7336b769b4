package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Chunshan-Theta/HeyGenInterface/internal/avatar"
	"github.com/Chunshan-Theta/HeyGenInterface/internal/config"
	"github.com/Chunshan-Theta/HeyGenInterface/internal/dialogue"
	"github.com/Chunshan-Theta/HeyGenInterface/internal/params"
	"github.com/Chunshan-Theta/HeyGenInterface/internal/session"
	"github.com/Chunshan-Theta/HeyGenInterface/internal/transcribe"
	"github.com/Chunshan-Theta/HeyGenInterface/web"
)

// Handlers bundles the HTTP surface and its dependencies.
type Handlers struct {
	cfg      config.Config
	avatar   *avatar.Client
	voiss    *dialogue.Client
	stt      *transcribe.OpenAIService
	sessions *session.Registry
}

// NewHandlers builds the handler set from configuration.
func NewHandlers(cfg config.Config) *Handlers {
	h := &Handlers{
		cfg:      cfg,
		avatar:   avatar.NewClient(cfg.HeyGenBase, cfg.HeyGenKey),
		voiss:    dialogue.NewClient(cfg.VoissBaseURL),
		sessions: session.NewRegistry(),
	}
	if cfg.OpenAIKey != "" {
		h.stt = transcribe.NewOpenAIService(cfg.OpenAIKey, cfg.STTModel)
	}
	return h
}

// Register attaches all routes to the Echo instance.
func (h *Handlers) Register(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/repeat", h.page)
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "/repeat?"+c.QueryString())
	})

	e.POST("/api/get-access-token", h.accessToken)
	e.POST("/api/stt/transcribe", h.transcribeAudio)
	e.POST("/api/voiss/initialize", h.voissInitialize)
	e.POST("/api/voiss/chat", h.voissChat)

	e.POST("/api/session/start", h.sessionStart)
	e.POST("/api/session/stop", h.sessionStop)
	e.POST("/api/session/text", h.sessionText)
	e.POST("/api/session/record/stop", h.recordStop)
	e.GET("/api/session/record/stream", h.recordStream)
}

func (h *Handlers) page(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, web.Index)
}

func (h *Handlers) accessToken(c echo.Context) error {
	if h.cfg.HeyGenKey == "" {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Missing HEYGEN_API_KEY"})
	}
	token, err := h.avatar.CreateToken(c.Request().Context())
	if err != nil {
		log.Printf("[TOKEN][ERR] %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.String(http.StatusOK, token)
}

func (h *Handlers) transcribeAudio(c echo.Context) error {
	if h.stt == nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Missing OPENAI_API_KEY"})
	}

	fh, err := c.FormFile("audio")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing 'audio' file in form-data"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable audio payload"})
	}
	defer f.Close()

	language := c.FormValue("language")
	model := c.FormValue("model")

	text, err := h.stt.Transcribe(c.Request().Context(), f, fh.Filename, language, model)
	if err != nil {
		log.Printf("[STT][ERR] %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"text": text})
}

func (h *Handlers) voissInitialize(c echo.Context) error {
	return h.voissProxy(c, "INIT", h.voiss.Initialize)
}

func (h *Handlers) voissChat(c echo.Context) error {
	return h.voissProxy(c, "CHAT", h.voiss.Chat)
}

// voissProxy forwards the JSON body verbatim and passes the upstream status
// and body back unchanged. Transport failures become a 502 fault envelope.
func (h *Handlers) voissProxy(c echo.Context, tag string, call func(ctx context.Context, body []byte) (int, []byte, error)) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "unreadable body"})
	}
	if !json.Valid(body) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid JSON body"})
	}
	log.Printf("[VOISS][%s][IN] %s", tag, body)

	status, respBody, err := call(c.Request().Context(), body)
	if err != nil {
		log.Printf("[VOISS][%s][ERR] %v", tag, err)
		return c.JSON(http.StatusBadGateway, echo.Map{"success": false, "error": err.Error()})
	}
	if msg, ok := dialogue.ReplyMessage(respBody); ok {
		log.Printf("[VOISS][%s][OUT] status=%d message=%q", tag, status, msg)
	} else {
		log.Printf("[VOISS][%s][OUT] status=%d bytes=%d", tag, status, len(respBody))
	}
	return c.JSONBlob(status, respBody)
}

func (h *Handlers) orchestratorFor(p params.Params) *session.Orchestrator {
	return h.sessions.GetOrCreate(p.SessionID, func() *session.Orchestrator {
		var t session.Transcriber
		if h.stt != nil {
			t = h.stt
		}
		return session.New(p, session.ClientFactory{Client: h.avatar}, h.voiss, t)
	})
}

func (h *Handlers) sessionStart(c echo.Context) error {
	p := params.Resolve(c.QueryParams())
	o := h.orchestratorFor(p)

	voiceChat := truthy(c.QueryParam("voice_chat"))
	if err := o.StartSession(c.Request().Context(), voiceChat); err != nil {
		log.Printf("[SESSION][START][ERR] %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"session_id": p.SessionID,
		"state":      o.State(),
	})
}

func (h *Handlers) sessionStop(c echo.Context) error {
	id := c.QueryParam("session_id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing session_id"})
	}
	h.sessions.Remove(id)
	return c.JSON(http.StatusOK, echo.Map{"stopped": id})
}

type sessionTextRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

func (h *Handlers) sessionText(c echo.Context) error {
	var req sessionTextRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid JSON body"})
	}
	o, ok := h.sessions.Get(req.SessionID)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown session"})
	}
	o.SubmitUserText(c.Request().Context(), req.Text)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func (h *Handlers) recordStop(c echo.Context) error {
	o, ok := h.sessions.Get(c.QueryParam("session_id"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown session"})
	}
	o.Recorder().StopAndSubmit(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// flushTimeout bounds the transcribe-and-submit flush that runs after the
// ingest socket ends.
const flushTimeout = 30 * time.Second

var recordUpgrader = websocket.Upgrader{
	ReadBufferSize:  65536,
	WriteBufferSize: 65536,
	CheckOrigin: func(r *http.Request) bool {
		// demo surface; restrict in production
		return true
	},
}

// recordStream ingests microphone fragments over WebSocket into the session's
// recorder. The socket closing ends the capture and flushes the take, so a
// dropped connection never leaves the recorder stuck; an explicit record/stop
// after that is a no-op.
func (h *Handlers) recordStream(c echo.Context) error {
	o, ok := h.sessions.Get(c.QueryParam("session_id"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown session"})
	}

	conn, err := recordUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("record stream upgrade error: %v", err)
		return nil
	}
	defer func() { _ = conn.Close() }()

	src := session.NewChanSource()
	if !o.Recorder().Start(src) {
		log.Printf("record stream rejected: capture already active")
		return nil
	}
	defer func() {
		_ = src.Close()
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		o.Recorder().StopAndSubmit(ctx)
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		if mt == websocket.BinaryMessage {
			src.Push(data)
		}
	}
}

// truthy mirrors the recognized boolean query tokens.
func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
