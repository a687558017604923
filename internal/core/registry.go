package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/meetclone/backend/internal/domain"
)

// Registry maps room ids to their currently joined participants.
// All mutation goes through one RWMutex; broadcast snapshots the
// member set under the read lock and performs sends outside it, so a
// slow peer never blocks registry mutations.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]map[domain.UserID]PeerConn
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[domain.RoomID]map[domain.UserID]PeerConn)}
}

// CreateRoom makes an empty room entry so it shows up in listings
// before the first join. Joining never requires it.
func (r *Registry) CreateRoom(room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[room]; !ok {
		r.rooms[room] = make(map[domain.UserID]PeerConn)
	}
}

// Register inserts conn as the handle for user in room, creating the
// room lazily. If the user was already registered, the displaced
// handle is returned so the caller can apply its eviction policy.
func (r *Registry) Register(room domain.RoomID, user domain.UserID, conn PeerConn) (prev PeerConn, replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[domain.UserID]PeerConn)
		r.rooms[room] = members
	}
	prev, replaced = members[user]
	members[user] = conn
	log.Info().Str("module", "core.registry").Str("room", string(room)).Str("user", string(user)).Bool("replaced", replaced).Msg("registered")
	return prev, replaced
}

// Unregister removes the mapping, but only while conn is still the
// registered handle. An evicted session calling Unregister after its
// replacement is a no-op, which keeps the cleanup path safe to invoke
// from both leave handling and read-loop exit. The room entry is
// dropped once its member set becomes empty.
func (r *Registry) Unregister(room domain.RoomID, user domain.UserID, conn PeerConn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[room]
	if !ok {
		return false
	}
	if members[user] != conn {
		return false
	}
	delete(members, user)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
	log.Info().Str("module", "core.registry").Str("room", string(room)).Str("user", string(user)).Msg("unregistered")
	return true
}

// Lookup returns the live handle for user in room.
func (r *Registry) Lookup(room domain.RoomID, user domain.UserID) (PeerConn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.rooms[room][user]
	return conn, ok
}

// Peers returns a snapshot of the other participant ids in room.
func (r *Registry) Peers(room domain.RoomID, excluding domain.UserID) []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[room]
	out := make([]domain.UserID, 0, len(members))
	for id := range members {
		if id == excluding {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Broadcast delivers payload to every current member of room except
// the excluded id. Per-target failures are skipped; the number of
// successful deliveries is returned.
func (r *Registry) Broadcast(room domain.RoomID, excluding domain.UserID, payload Frame) int {
	r.mu.RLock()
	members := r.rooms[room]
	targets := make([]PeerConn, 0, len(members))
	for id, conn := range members {
		if id == excluding {
			continue
		}
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	sent := 0
	for _, conn := range targets {
		if err := conn.TrySend(payload); err != nil {
			log.Debug().Err(err).Str("module", "core.registry").Str("room", string(room)).Msg("broadcast target skipped")
			continue
		}
		sent++
	}
	return sent
}

// Rooms lists every known room with its member count.
func (r *Registry) Rooms() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for id, members := range r.rooms {
		out = append(out, RoomInfo{ID: id, MemberCount: len(members)})
	}
	return out
}

// Participants returns the member ids of room, or ok=false if the
// room is unknown.
func (r *Registry) Participants(room domain.RoomID) ([]domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.rooms[room]
	if !ok {
		return nil, false
	}
	out := make([]domain.UserID, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out, true
}
