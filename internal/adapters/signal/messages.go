package signal

import (
	"encoding/json"
	"fmt"

	"github.com/meetclone/backend/internal/domain"
)

type messageType string

const (
	typeJoin       messageType = "join"
	typePeers      messageType = "peers"
	typePeerJoined messageType = "peer-joined"
	typeSignal     messageType = "signal"
	typeLeave      messageType = "leave"
	typePeerLeft   messageType = "peer-left"
	typePing       messageType = "ping"
	typePong       messageType = "pong"
	typeError      messageType = "error"
)

type envelope struct {
	Type messageType `json:"type"`
}

func parseEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, err
	}
	return env, nil
}

type joinMessage struct {
	Type   messageType `json:"type"`
	RoomID string      `json:"roomId"`
	UserID string      `json:"userId"`
}

func parseJoin(data []byte) (domain.RoomID, domain.UserID, error) {
	var m joinMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return "", "", err
	}
	room, err := domain.ParseRoomID(m.RoomID)
	if err != nil {
		return "", "", fmt.Errorf("join: %w", err)
	}
	user, err := domain.ParseUserID(m.UserID)
	if err != nil {
		return "", "", fmt.Errorf("join: %w", err)
	}
	return room, user, nil
}

// signalMessage carries an opaque payload between two peers. The
// server rewrites from and never inspects data.
type signalMessage struct {
	Type messageType     `json:"type"`
	To   domain.UserID   `json:"to,omitempty"`
	From domain.UserID   `json:"from,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

func parseSignal(data []byte) (signalMessage, error) {
	var m signalMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return signalMessage{}, err
	}
	if m.To == "" {
		return signalMessage{}, fmt.Errorf("signal: missing to")
	}
	if len(m.Data) == 0 {
		return signalMessage{}, fmt.Errorf("signal: missing data")
	}
	return m, nil
}

type peersMessage struct {
	Type  messageType     `json:"type"`
	Peers []domain.UserID `json:"peers"`
}

type presenceMessage struct {
	Type   messageType   `json:"type"`
	UserID domain.UserID `json:"userId"`
}

type errorMessage struct {
	Type  messageType `json:"type"`
	Error string      `json:"error"`
}
