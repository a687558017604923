// Package core holds the room-membership registry shared by every
// signaling connection. It owns membership state only; transport
// resources stay owned by the adapter that accepted them.
package core

import "github.com/meetclone/backend/internal/domain"

// Frame is a raw outbound payload (already-encoded JSON).
type Frame []byte

// PeerConn is a live transport endpoint as the registry sees it.
// Owned by the adapter; the adapter must Close() it. TrySend must be
// non-blocking and must fail once the connection is closed, so sends
// to dead peers are skipped instead of stalling a broadcast.
type PeerConn interface {
	TrySend(Frame) error
	Close()
}

// RoomInfo is a read-only view for the rooms API (no transport fields).
type RoomInfo struct {
	ID          domain.RoomID `json:"roomId"`
	MemberCount int           `json:"memberCount"`
}
