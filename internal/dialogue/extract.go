package dialogue

import "encoding/json"

type conversationLog struct {
	Content json.RawMessage `json:"content"`
}

type unitResult struct {
	ConversationLogs []conversationLog `json:"conversation_logs"`
}

type responseData struct {
	UnitResults []unitResult    `json:"unit_results"`
	Message     json.RawMessage `json:"message"`
}

type responseEnvelope struct {
	Data responseData `json:"data"`
}

// OpeningMessage extracts the opening message from an initialize response:
// the content of the last conversation log of the last unit result, falling
// back to the top-level data.message. Reports false when neither is present
// or the body does not parse.
func OpeningMessage(body []byte) (string, bool) {
	var env responseEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", false
	}
	if n := len(env.Data.UnitResults); n > 0 {
		logs := env.Data.UnitResults[n-1].ConversationLogs
		if m := len(logs); m > 0 {
			if s, ok := asString(logs[m-1].Content); ok {
				return s, true
			}
		}
	}
	return asString(env.Data.Message)
}

// ReplyMessage extracts the reply text of a chat response from its fixed
// data.message path. Reports false when absent or not a string.
func ReplyMessage(body []byte) (string, bool) {
	var env responseEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", false
	}
	return asString(env.Data.Message)
}

func asString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
