package heartbeat

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Message is the alive signal a tool publishes on <prefix>.<name>.
type Message struct {
	Name        string    `json:"name"`
	GeneratedAt time.Time `json:"generated_at"`
	Host        string    `json:"host,omitempty"`
}

func (m Message) Marshal() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

func Unmarshal(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}
	return msg, msg.Validate()
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("name is required")
	}
	if strings.ContainsAny(m.Name, " .*>") {
		return errors.New("name must be a single subject token")
	}
	if m.GeneratedAt.IsZero() {
		return errors.New("generated_at is required")
	}
	return nil
}
