package signal

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/meetclone/backend/internal/core"
	"github.com/meetclone/backend/internal/domain"
)

// session is the per-connection state machine: connected until a
// well-formed join, then joined(room, user) until leave or transport
// close. Messages arrive serially from one read pump, so dispatch
// itself needs no lock; the mutex guards state reads from cleanup.
type session struct {
	reg  *core.Registry
	conn core.PeerConn

	mu     sync.Mutex
	joined bool
	room   domain.RoomID
	user   domain.UserID

	cleanupOnce sync.Once
}

func newSession(reg *core.Registry, conn core.PeerConn) *session {
	return &session{reg: reg, conn: conn}
}

func (s *session) UserID() domain.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// handleMessage dispatches one inbound frame. It returns false when
// the session must end (leave, or a protocol error).
func (s *session) handleMessage(data []byte) bool {
	env, err := parseEnvelope(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("malformed message")
		s.sendError("malformed message")
		return false
	}

	switch env.Type {
	case typeJoin:
		return s.handleJoin(data)
	case typeSignal:
		return s.handleSignal(data)
	case typeLeave:
		s.cleanup()
		return false
	case typePing:
		s.sendJSON(envelope{Type: typePong})
		return true
	default:
		// Unknown or out-of-state types are answered with an error
		// and otherwise ignored; the connection stays up.
		log.Warn().Str("module", "signal").Str("type", string(env.Type)).Msg("unexpected message type")
		s.sendError("unexpected message type")
		return true
	}
}

func (s *session) handleJoin(data []byte) bool {
	room, user, err := parseJoin(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad join payload")
		s.sendError("bad join payload")
		return false
	}

	s.mu.Lock()
	if s.joined {
		s.mu.Unlock()
		s.sendError("already joined")
		return true
	}
	s.joined = true
	s.room = room
	s.user = user
	s.mu.Unlock()

	// A second connection claiming an existing id evicts the old one.
	// The displaced handle is closed after replacement, so its own
	// cleanup sees a stale registration and stays silent.
	prev, replaced := s.reg.Register(room, user, s.conn)
	if replaced {
		log.Warn().Str("module", "signal").Str("room", string(room)).Str("user", string(user)).Msg("duplicate join, evicting previous connection")
		prev.Close()
	}

	s.sendJSON(peersMessage{Type: typePeers, Peers: s.reg.Peers(room, user)})
	s.broadcast(presenceMessage{Type: typePeerJoined, UserID: user})

	log.Info().Str("module", "signal").Str("room", string(room)).Str("user", string(user)).Msg("joined")
	return true
}

func (s *session) handleSignal(data []byte) bool {
	s.mu.Lock()
	joined, room, user := s.joined, s.room, s.user
	s.mu.Unlock()
	if !joined {
		s.sendError("join required")
		return true
	}

	msg, err := parseSignal(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad signal payload")
		s.sendError("bad signal payload")
		return true
	}

	// Best-effort point-to-point relay: absent or dead targets drop
	// the message silently, nothing is reported to the sender.
	target, ok := s.reg.Lookup(room, msg.To)
	if !ok {
		log.Debug().Str("module", "signal").Str("room", string(room)).Str("to", string(msg.To)).Msg("signal target absent, dropped")
		return true
	}
	out, err := json.Marshal(signalMessage{Type: typeSignal, From: user, Data: msg.Data})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("signal marshal")
		return true
	}
	if err := target.TrySend(out); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("to", string(msg.To)).Msg("signal target dead, dropped")
	}
	return true
}

// cleanup leaves the room exactly once, no matter how the session
// ended. Safe to call when the registration was already replaced or
// removed by a race: Unregister reports whether this handle was still
// current, and only then do the others hear a departure.
func (s *session) cleanup() {
	s.cleanupOnce.Do(func() {
		s.mu.Lock()
		joined, room, user := s.joined, s.room, s.user
		s.mu.Unlock()
		if !joined {
			return
		}
		if s.reg.Unregister(room, user, s.conn) {
			s.broadcast(presenceMessage{Type: typePeerLeft, UserID: user})
			log.Info().Str("module", "signal").Str("room", string(room)).Str("user", string(user)).Msg("left")
		}
	})
}

func (s *session) broadcast(v any) {
	s.mu.Lock()
	room, user := s.room, s.user
	s.mu.Unlock()

	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("broadcast marshal")
		return
	}
	s.reg.Broadcast(room, user, b)
}

func (s *session) sendJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = s.conn.TrySend(b)
}

func (s *session) sendError(msg string) {
	s.sendJSON(errorMessage{Type: typeError, Error: msg})
}
