package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress  string
	OpenAIKey    string
	STTModel     string
	HeyGenKey    string
	HeyGenBase   string
	VoissBaseURL string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set - transcription will not work")
	}

	sttModel := os.Getenv("STT_MODEL")
	if sttModel == "" {
		sttModel = "gpt-4o-mini-transcribe"
	}

	heyGenKey := os.Getenv("HEYGEN_API_KEY")
	if heyGenKey == "" {
		log.Println("Warning: HEYGEN_API_KEY not set - avatar sessions will not work")
	}

	heyGenBase := os.Getenv("HEYGEN_BASE_URL")
	if heyGenBase == "" {
		heyGenBase = "https://api.heygen.com"
	}

	voissBase := os.Getenv("VOISS_BASE_URL")
	if voissBase == "" {
		voissBase = "https://voiss-fq.zeabur.app"
	}

	log.Printf("config: HTTP_ADDRESS=%s STT_MODEL=%s", addr, sttModel)
	return Config{
		HTTPAddress:  addr,
		OpenAIKey:    openAIKey,
		STTModel:     sttModel,
		HeyGenKey:    heyGenKey,
		HeyGenBase:   heyGenBase,
		VoissBaseURL: voissBase,
	}
}
