package transcribe

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIService transcribes recorded audio through the OpenAI audio API.
type OpenAIService struct {
	Client       *openai.Client
	DefaultModel string
}

// NewOpenAIService creates a transcription service with the given API key and
// default model (used when a request does not override it).
func NewOpenAIService(apiKey, defaultModel string) *OpenAIService {
	return &OpenAIService{
		Client:       openai.NewClient(apiKey),
		DefaultModel: defaultModel,
	}
}

// Transcribe sends one audio payload for recognition and returns the text.
// language and model are optional hints; empty model falls back to the
// configured default.
func (s *OpenAIService) Transcribe(ctx context.Context, audio io.Reader, filename, language, model string) (string, error) {
	if model == "" {
		model = s.DefaultModel
	}
	req := openai.AudioRequest{
		Model:    model,
		Language: language,
		Format:   openai.AudioResponseFormatJSON,
		Reader:   audio,
		FilePath: filename,
	}
	resp, err := s.Client.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	log.Printf("[STT] model=%s language=%s text=%q", model, language, text)
	return text, nil
}
