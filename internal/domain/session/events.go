package session

import "time"

// TurnEvent is published on eventbus.TopicTurnCompleted and
// eventbus.TopicTurnFailed after every send.
type TurnEvent struct {
	SessionID string    `json:"session_id"`
	Turn      int       `json:"turn"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Streamed  bool      `json:"streamed"`
	LatencyMS int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// EndedEvent is published on eventbus.TopicSessionEnded.
type EndedEvent struct {
	SessionID string    `json:"session_id"`
	Turns     int       `json:"turns"`
	At        time.Time `json:"at"`
}

func (s *Session) publish(topic string, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(topic, payload)
}

func (s *Session) turnEvent(n int, streamed bool, started time.Time, err error) TurnEvent {
	meta := s.provider.ModelInfo()
	evt := TurnEvent{
		SessionID: s.id,
		Turn:      n,
		Provider:  meta.Provider,
		Model:     meta.ID,
		Streamed:  streamed,
		LatencyMS: time.Since(started).Milliseconds(),
		At:        time.Now().UTC(),
	}
	if err != nil {
		evt.Error = err.Error()
	}
	return evt
}
