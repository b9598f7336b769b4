package session

import (
	"bytes"
	"context"
	"log"
	"sync"
	"time"
)

// flushGrace bounds how long a stop waits for the ingest side to finish
// delivering fragments before the source is forced closed.
const flushGrace = 2 * time.Second

// Recorder manages a single capture session: fragments accumulate while
// recording, and on stop they are flushed into one payload, transcribed, and
// fed into the submit function.
type Recorder struct {
	transcriber Transcriber
	language    string
	submit      func(ctx context.Context, text string)

	mu        sync.Mutex
	recording bool
	source    CaptureSource
	fragments [][]byte
	drained   chan struct{}
}

// NewRecorder wires a recorder to its transcriber and downstream submit path.
func NewRecorder(t Transcriber, language string, submit func(ctx context.Context, text string)) *Recorder {
	return &Recorder{
		transcriber: t,
		language:    language,
		submit:      submit,
	}
}

// Recording reports whether a capture session is active.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Start begins draining fragments from a capture source and reports whether
// the source was taken. When a capture is already active the new source is
// released and Start returns false.
func (r *Recorder) Start(src CaptureSource) bool {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		_ = src.Close()
		return false
	}
	r.recording = true
	r.source = src
	r.fragments = nil
	r.drained = make(chan struct{})
	drained := r.drained
	r.mu.Unlock()

	go func() {
		defer close(drained)
		for chunk := range src.Chunks() {
			if len(chunk) == 0 {
				continue
			}
			buf := make([]byte, len(chunk))
			copy(buf, chunk)
			r.mu.Lock()
			r.fragments = append(r.fragments, buf)
			r.mu.Unlock()
		}
	}()
	return true
}

// StopAndSubmit ends the capture session, combines the collected fragments
// into one audio payload, transcribes it, and submits the resulting text.
// The capture device is released whatever the transcription outcome. Stopping
// when not recording is a no-op.
func (r *Recorder) StopAndSubmit(ctx context.Context) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	src := r.source
	drained := r.drained
	r.recording = false
	r.source = nil
	r.drained = nil
	r.mu.Unlock()

	// The ingest side normally ends the stream itself by closing the source
	// once its socket shuts down. Wait for that before closing here, so
	// fragments still in flight land in the take instead of being dropped.
	select {
	case <-drained:
	case <-time.After(flushGrace):
	case <-ctx.Done():
	}
	if err := src.Close(); err != nil {
		log.Printf("capture close error: %v", err)
	}
	<-drained

	r.mu.Lock()
	blob := bytes.Join(r.fragments, nil)
	r.fragments = nil
	r.mu.Unlock()

	if len(blob) == 0 {
		log.Printf("recording stopped with no audio captured")
		return
	}
	if r.transcriber == nil {
		log.Printf("no transcriber configured; dropping %d bytes of audio", len(blob))
		return
	}

	text, err := r.transcriber.Transcribe(ctx, bytes.NewReader(blob), "audio.webm", r.language, "")
	if err != nil {
		log.Printf("[STT] submit error: %v", err)
		return
	}
	if text != "" {
		r.submit(ctx, text)
	}
}
