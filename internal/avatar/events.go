package avatar

import "encoding/json"

// EventType names a signal emitted by the streaming backend over the event
// socket during a live session.
type EventType string

const (
	// EventStreamReady is fired once media is flowing and the avatar can
	// accept repeat tasks.
	EventStreamReady EventType = "stream_ready"

	// EventStreamDisconnected is fired when the backend drops the stream.
	EventStreamDisconnected EventType = "stream_disconnected"

	// EventUserStart is fired when the backend detects the user started talking.
	EventUserStart EventType = "user_start"

	// EventUserStop is fired when the backend detects the user stopped talking.
	EventUserStop EventType = "user_stop"

	// EventUserTalkingMessage carries a partial transcript chunk of the
	// user's in-progress utterance.
	EventUserTalkingMessage EventType = "user_talking_message"

	// EventUserEndMessage marks the end of the user's utterance.
	EventUserEndMessage EventType = "user_end_message"

	// EventAvatarStartTalking and EventAvatarStopTalking bracket avatar speech.
	EventAvatarStartTalking EventType = "avatar_start_talking"
	EventAvatarStopTalking  EventType = "avatar_stop_talking"
)

// Event is one decoded signal from the event socket.
type Event struct {
	Type    EventType
	Message string
	TaskID  string
	Raw     json.RawMessage
}

// Handler consumes events dispatched by a session's event pump.
type Handler func(Event)

type wireEvent struct {
	Type   string `json:"type"`
	TaskID string `json:"task_id,omitempty"`
	Detail struct {
		Message string `json:"message"`
	} `json:"detail"`
	Message string `json:"message,omitempty"`
}

// parseEvent decodes a raw socket frame into an Event. Malformed payloads are
// tolerated: the result has an empty message rather than an error.
func parseEvent(data []byte) Event {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{Raw: data}
	}
	msg := w.Detail.Message
	if msg == "" {
		msg = w.Message
	}
	return Event{
		Type:    EventType(w.Type),
		Message: msg,
		TaskID:  w.TaskID,
		Raw:     data,
	}
}
