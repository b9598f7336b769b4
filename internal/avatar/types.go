package avatar

import "strings"

// Quality selects the video quality tier for a streaming session.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// VoiceEmotion selects the emotional coloring of the avatar voice.
type VoiceEmotion string

const (
	EmotionExcited     VoiceEmotion = "excited"
	EmotionSerious     VoiceEmotion = "serious"
	EmotionFriendly    VoiceEmotion = "friendly"
	EmotionSoothing    VoiceEmotion = "soothing"
	EmotionBroadcaster VoiceEmotion = "broadcaster"
)

var voiceEmotions = []VoiceEmotion{
	EmotionExcited, EmotionSerious, EmotionFriendly, EmotionSoothing, EmotionBroadcaster,
}

// ParseVoiceEmotion resolves a string to a known emotion, case-insensitive.
func ParseVoiceEmotion(s string) (VoiceEmotion, bool) {
	for _, e := range voiceEmotions {
		if strings.EqualFold(s, string(e)) {
			return e, true
		}
	}
	return "", false
}

// ElevenLabsModel identifies the upstream TTS model used for the avatar voice.
type ElevenLabsModel string

const (
	ModelElevenFlashV25       ElevenLabsModel = "eleven_flash_v2_5"
	ModelElevenTurboV25       ElevenLabsModel = "eleven_turbo_v2_5"
	ModelElevenMultilingualV2 ElevenLabsModel = "eleven_multilingual_v2"
	ModelElevenMonolingualV1  ElevenLabsModel = "eleven_monolingual_v1"
	ModelElevenMultilingualV1 ElevenLabsModel = "eleven_multilingual_v1"
	ModelElevenTurboV2        ElevenLabsModel = "eleven_turbo_v2"
	ModelElevenEnglishStsV2   ElevenLabsModel = "eleven_english_sts_v2"
)

var elevenLabsModels = []ElevenLabsModel{
	ModelElevenFlashV25, ModelElevenTurboV25, ModelElevenMultilingualV2,
	ModelElevenMonolingualV1, ModelElevenMultilingualV1, ModelElevenTurboV2,
	ModelElevenEnglishStsV2,
}

// ParseElevenLabsModel resolves a string to a known model. It matches the
// model identifier case-insensitively so both the enum-name and wire spellings
// are accepted.
func ParseElevenLabsModel(s string) (ElevenLabsModel, bool) {
	for _, m := range elevenLabsModels {
		if strings.EqualFold(s, string(m)) {
			return m, true
		}
	}
	return "", false
}

// STTProvider selects the speech-to-text vendor used inside the avatar backend.
type STTProvider string

const (
	STTProviderDeepgram STTProvider = "deepgram"
	STTProviderGladia   STTProvider = "gladia"
)

// ParseSTTProvider resolves a string to a known provider, case-insensitive.
func ParseSTTProvider(s string) (STTProvider, bool) {
	for _, p := range []STTProvider{STTProviderDeepgram, STTProviderGladia} {
		if strings.EqualFold(s, string(p)) {
			return p, true
		}
	}
	return "", false
}

// VoiceChatTransport selects how voice-chat audio reaches the backend.
type VoiceChatTransport string

const (
	TransportWebSocket VoiceChatTransport = "websocket"
	TransportLiveKit   VoiceChatTransport = "livekit"
)

// VoiceSettings carries the voice parameters for a session.
type VoiceSettings struct {
	Rate    float64         `json:"rate,omitempty"`
	Emotion VoiceEmotion    `json:"emotion,omitempty"`
	Model   ElevenLabsModel `json:"model,omitempty"`
	VoiceID string          `json:"voice_id,omitempty"`
}

// STTSettings carries the speech-to-text configuration for a session.
type STTSettings struct {
	Provider STTProvider `json:"provider,omitempty"`
}

// StartRequest is the full session configuration sent to the streaming backend.
type StartRequest struct {
	Quality            Quality            `json:"quality,omitempty"`
	AvatarName         string             `json:"avatar_name,omitempty"`
	KnowledgeID        string             `json:"knowledge_id,omitempty"`
	Voice              VoiceSettings      `json:"voice"`
	Language           string             `json:"language,omitempty"`
	VoiceChatTransport VoiceChatTransport `json:"voice_chat_transport,omitempty"`
	STTSettings        STTSettings        `json:"stt_settings"`
}
