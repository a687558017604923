package domain

import "errors"

const MaxRoomIDLen = 64

var (
	ErrRoomIDEmpty   = errors.New("room id empty")
	ErrRoomIDTooLong = errors.New("room id too long")
)

// RoomID names a set of participants whose signaling messages may be
// relayed to one another. Rooms exist implicitly from the first join.
type RoomID string

func ParseRoomID(s string) (RoomID, error) {
	if len(s) == 0 {
		return "", ErrRoomIDEmpty
	}
	if len(s) > MaxRoomIDLen {
		return "", ErrRoomIDTooLong
	}
	return RoomID(s), nil
}
