package session

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Chunshan-Theta/HeyGenInterface/internal/avatar"
	"github.com/Chunshan-Theta/HeyGenInterface/internal/dialogue"
	"github.com/Chunshan-Theta/HeyGenInterface/internal/params"
)

// pipelineTimeout bounds each dialogue or repeat call made from an event handler.
const pipelineTimeout = 30 * time.Second

// initState is the dialogue-initialization lifecycle. Once initialized there
// is no reset path within the orchestrator's lifetime; a new page session gets
// a new orchestrator.
type initState int

const (
	initNone initState = iota
	initInProgress
	initDone
)

// Orchestrator sequences avatar-session startup, the dialogue-backend
// handshake, and the turn pipeline connecting transcription, dialogue, and
// avatar repeat.
type Orchestrator struct {
	params   params.Params
	factory  SessionFactory
	dialogue Dialogue

	mu        sync.Mutex
	session   AvatarSession
	init      initState
	utterance strings.Builder

	recorder *Recorder
}

// New constructs an Orchestrator for one page session.
func New(p params.Params, f SessionFactory, d Dialogue, t Transcriber) *Orchestrator {
	o := &Orchestrator{
		params:   p,
		factory:  f,
		dialogue: d,
	}
	o.recorder = NewRecorder(t, p.Language, o.SubmitUserText)
	return o
}

// Params returns the resolved page parameters.
func (o *Orchestrator) Params() params.Params { return o.params }

// Recorder returns the orchestrator's recording pipeline.
func (o *Orchestrator) Recorder() *Recorder { return o.recorder }

// State reports the avatar session lifecycle state.
func (o *Orchestrator) State() avatar.State {
	o.mu.Lock()
	sess := o.session
	o.mu.Unlock()
	if sess == nil {
		return avatar.StateInactive
	}
	return sess.State()
}

// StartSession fetches an access token, constructs an avatar session,
// registers event handlers, and starts it, optionally enabling voice chat.
// On failure everything stays as it was; the caller may simply retry.
func (o *Orchestrator) StartSession(ctx context.Context, voiceChat bool) error {
	o.mu.Lock()
	if o.session != nil && o.session.State() != avatar.StateInactive {
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()

	token, err := o.factory.CreateToken(ctx)
	if err != nil {
		return err
	}

	sess := o.factory.NewSession(token)
	sess.On(avatar.EventStreamReady, o.handleStreamReady)
	sess.On(avatar.EventStreamDisconnected, func(avatar.Event) {
		log.Printf("[%s] stream disconnected", o.params.SessionID)
	})
	sess.On(avatar.EventUserStart, func(avatar.Event) {
		log.Printf("[%s] user started talking", o.params.SessionID)
	})
	sess.On(avatar.EventUserStop, func(avatar.Event) {
		log.Printf("[%s] user stopped talking", o.params.SessionID)
	})
	sess.On(avatar.EventUserTalkingMessage, o.handleTalkingChunk)
	sess.On(avatar.EventUserEndMessage, o.handleEndOfUtterance)

	if err := sess.Start(ctx, o.params.StartRequest()); err != nil {
		return err
	}

	o.mu.Lock()
	o.session = sess
	o.mu.Unlock()

	if voiceChat {
		if err := sess.StartVoiceChat(ctx); err != nil {
			log.Printf("[%s] start voice chat failed: %v", o.params.SessionID, err)
		}
	}
	return nil
}

// Close tears the avatar session down, fire-and-forget.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	sess := o.session
	o.session = nil
	o.mu.Unlock()
	if sess == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sess.Stop(ctx); err != nil {
		log.Printf("[%s] stop session failed: %v", o.params.SessionID, err)
	}
}

// initializeDialogue performs the at-most-once remote dialogue handshake.
// After the first success subsequent calls return immediately with no value.
// The opening message, when present, is returned with ok=true.
func (o *Orchestrator) initializeDialogue(ctx context.Context) (string, bool, error) {
	o.mu.Lock()
	if o.init != initNone {
		o.mu.Unlock()
		return "", false, nil
	}
	o.init = initInProgress
	o.mu.Unlock()

	body, err := o.dialogue.InitializeSession(ctx, dialogue.InitializeRequest{
		ActivityID: o.params.ActivityID,
		SessionID:  o.params.SessionID,
		UserID:     o.params.UserID,
		UserName:   o.params.UserName,
	})
	if err != nil {
		o.mu.Lock()
		o.init = initNone
		o.mu.Unlock()
		return "", false, err
	}

	o.mu.Lock()
	o.init = initDone
	o.mu.Unlock()

	msg, ok := dialogue.OpeningMessage(body)
	return msg, ok, nil
}

// chatWithDialogue sends one user message and extracts the reply text.
func (o *Orchestrator) chatWithDialogue(ctx context.Context, message string) (string, bool, error) {
	body, err := o.dialogue.ChatSession(ctx, dialogue.ChatRequest{
		ActivityID: o.params.ActivityID,
		SessionID:  o.params.SessionID,
		UserID:     o.params.UserID,
		Message:    message,
	})
	if err != nil {
		return "", false, err
	}
	msg, ok := dialogue.ReplyMessage(body)
	return msg, ok, nil
}

// SubmitUserText runs the chat-then-repeat pipeline for externally supplied
// text. Empty input is a no-op; failures are logged and swallowed.
func (o *Orchestrator) SubmitUserText(ctx context.Context, text string) {
	final := strings.TrimSpace(text)
	if final == "" {
		return
	}
	reply, ok, err := o.chatWithDialogue(ctx, final)
	if err != nil {
		log.Printf("[%s] voiss pipeline error: %v", o.params.SessionID, err)
		return
	}
	if ok {
		o.repeat(ctx, reply)
	}
}

// repeat forwards text to the avatar's speech-repeat capability.
func (o *Orchestrator) repeat(ctx context.Context, text string) {
	o.mu.Lock()
	sess := o.session
	o.mu.Unlock()
	if sess == nil {
		log.Printf("[%s] no active avatar session to repeat into", o.params.SessionID)
		return
	}
	if err := sess.Repeat(ctx, text); err != nil {
		log.Printf("[%s] repeat failed: %v", o.params.SessionID, err)
	}
}

// handleStreamReady initializes the dialogue session and has the avatar speak
// the opening message, when one is present.
func (o *Orchestrator) handleStreamReady(avatar.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
	defer cancel()
	msg, ok, err := o.initializeDialogue(ctx)
	if err != nil {
		log.Printf("[%s] voiss init error: %v", o.params.SessionID, err)
		return
	}
	if ok && strings.TrimSpace(msg) != "" {
		o.repeat(ctx, msg)
	}
}

// handleTalkingChunk appends a streamed speech chunk to the current utterance.
// A malformed event carries an empty message and contributes nothing.
func (o *Orchestrator) handleTalkingChunk(ev avatar.Event) {
	if ev.Message == "" {
		return
	}
	o.mu.Lock()
	o.utterance.WriteString(ev.Message)
	o.mu.Unlock()
}

// handleEndOfUtterance flushes the accumulated utterance and, when non-empty,
// ensures dialogue initialization before running chat-then-repeat.
func (o *Orchestrator) handleEndOfUtterance(avatar.Event) {
	o.mu.Lock()
	final := strings.TrimSpace(o.utterance.String())
	o.utterance.Reset()
	o.mu.Unlock()
	if final == "" {
		return
	}
	log.Printf("[%s] user end message: %s", o.params.SessionID, final)

	ctx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
	defer cancel()
	if _, _, err := o.initializeDialogue(ctx); err != nil {
		log.Printf("[%s] voiss pipeline error: %v", o.params.SessionID, err)
		return
	}
	o.SubmitUserText(ctx, final)
}
