package params

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Chunshan-Theta/HeyGenInterface/internal/avatar"
)

// Defaults applied when a query parameter is absent or malformed.
const (
	DefaultActivityID = "689466a637ae3065c9329e08"
	DefaultUserID     = "demo-user"
	DefaultUserName   = "Demo"
	DefaultLanguage   = "zh"
	DefaultAvatarName = "June_HR_public"
	DefaultVoiceRate  = 1.0
	DefaultVoiceID    = "aa73aedf00974150944a4bb19225f66e"
)

// Params is the resolved per-page configuration. Every field has a typed
// default; unrecognized or invalid query values fall back silently.
type Params struct {
	ActivityID string
	SessionID  string
	UserID     string
	UserName   string

	Language     string
	AvatarName   string
	VoiceRate    float64
	VoiceEmotion avatar.VoiceEmotion
	VoiceID      string
	VoiceModel   avatar.ElevenLabsModel
	STTProvider  avatar.STTProvider

	AutoStart bool
}

// NewSessionID generates a fresh default session identifier.
func NewSessionID() string {
	return fmt.Sprintf("session-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// Resolve parses recognized keys from query values, applying typed defaults.
func Resolve(q url.Values) Params {
	p := Params{
		ActivityID:   DefaultActivityID,
		SessionID:    NewSessionID(),
		UserID:       DefaultUserID,
		UserName:     DefaultUserName,
		Language:     DefaultLanguage,
		AvatarName:   DefaultAvatarName,
		VoiceRate:    DefaultVoiceRate,
		VoiceEmotion: avatar.EmotionSoothing,
		VoiceID:      DefaultVoiceID,
		VoiceModel:   avatar.ModelElevenFlashV25,
		STTProvider:  avatar.STTProviderDeepgram,
	}

	if v := q.Get("activity_id"); v != "" {
		p.ActivityID = v
	}
	if v := q.Get("session_id"); v != "" {
		p.SessionID = v
	}
	if v := q.Get("user_id"); v != "" {
		p.UserID = v
	}
	if v := q.Get("user_name"); v != "" {
		p.UserName = v
	}
	if v := q.Get("language"); v != "" {
		p.Language = v
	}
	if v := q.Get("avatar_id"); v != "" {
		p.AvatarName = v
	}
	if n, ok := toNum(q.Get("voice_rate")); ok {
		p.VoiceRate = n
	}
	if e, ok := avatar.ParseVoiceEmotion(q.Get("voice_emotion")); ok {
		p.VoiceEmotion = e
	}
	if m, ok := avatar.ParseElevenLabsModel(q.Get("voice_model")); ok {
		p.VoiceModel = m
	}
	if s, ok := avatar.ParseSTTProvider(q.Get("stt_provider")); ok {
		p.STTProvider = s
	}
	p.AutoStart = toBool(q.Get("autostart"))

	return p
}

// StartRequest builds the session configuration from the resolved parameters.
func (p Params) StartRequest() avatar.StartRequest {
	return avatar.StartRequest{
		Quality:    avatar.QualityLow,
		AvatarName: p.AvatarName,
		Language:   p.Language,
		Voice: avatar.VoiceSettings{
			Rate:    p.VoiceRate,
			Emotion: p.VoiceEmotion,
			Model:   p.VoiceModel,
			VoiceID: p.VoiceID,
		},
		VoiceChatTransport: avatar.TransportWebSocket,
		STTSettings:        avatar.STTSettings{Provider: p.STTProvider},
	}
}

// toBool treats only 1/true/yes/on (case-insensitive) as true.
func toBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// toNum parses a finite float; anything else reports no value.
func toNum(v string) (float64, bool) {
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}
