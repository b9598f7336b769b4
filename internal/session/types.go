package session

import (
	"context"
	"io"

	"github.com/Chunshan-Theta/HeyGenInterface/internal/avatar"
	"github.com/Chunshan-Theta/HeyGenInterface/internal/dialogue"
)

// AvatarSession is the subset of the streaming session the orchestrator drives.
type AvatarSession interface {
	On(t avatar.EventType, h avatar.Handler)
	Start(ctx context.Context, req avatar.StartRequest) error
	StartVoiceChat(ctx context.Context) error
	Repeat(ctx context.Context, text string) error
	Stop(ctx context.Context) error
	State() avatar.State
}

// SessionFactory mints access tokens and constructs avatar sessions from them.
type SessionFactory interface {
	CreateToken(ctx context.Context) (string, error)
	NewSession(token string) AvatarSession
}

// Dialogue is the remote dialogue backend seen by the orchestrator.
type Dialogue interface {
	InitializeSession(ctx context.Context, req dialogue.InitializeRequest) ([]byte, error)
	ChatSession(ctx context.Context, req dialogue.ChatRequest) ([]byte, error)
}

// Transcriber converts one recorded audio payload to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename, language, model string) (string, error)
}

// CaptureSource delivers recorded audio fragments. Chunks is closed when the
// capture ends; Close releases the underlying device.
type CaptureSource interface {
	Chunks() <-chan []byte
	Close() error
}

// ClientFactory adapts an avatar.Client to the SessionFactory seam.
type ClientFactory struct {
	Client *avatar.Client
}

func (f ClientFactory) CreateToken(ctx context.Context) (string, error) {
	return f.Client.CreateToken(ctx)
}

func (f ClientFactory) NewSession(token string) AvatarSession {
	return f.Client.NewSession(token)
}
