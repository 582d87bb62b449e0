package wakutest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"time"
)

// Message is a relay message as the control plane sends and receives it.
// The payload travels base64-encoded; equality is checked on the decoded
// bytes, never on the encoded form.
type Message struct {
	Payload      string `json:"payload"`
	ContentTopic string `json:"contentTopic"`
	Timestamp    int64  `json:"timestamp"`
}

// NewMessage builds a publishable message from raw content, stamping it
// with the current unix time.
func NewMessage(content []byte, topic string) Message {
	return Message{
		Payload:      base64.StdEncoding.EncodeToString(content),
		ContentTopic: topic,
		Timestamp:    time.Now().Unix(),
	}
}

// Content returns the decoded payload bytes.
func (m Message) Content() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode message payload: %w", err)
	}
	return data, nil
}

// ContentEquals reports whether the decoded payload matches want.
// An undecodable payload never matches.
func (m Message) ContentEquals(want []byte) bool {
	got, err := m.Content()
	if err != nil {
		return false
	}
	return bytes.Equal(got, want)
}
