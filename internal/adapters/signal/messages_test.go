package signal

import (
	"encoding/json"
	"testing"

	"github.com/meetclone/backend/internal/domain"
)

func TestParseJoin_Valid(t *testing.T) {
	room, user, err := parseJoin([]byte(`{"type":"join","roomId":"r1","userId":"alice"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if room != "r1" || user != "alice" {
		t.Fatalf("got room=%q user=%q", room, user)
	}
}

func TestParseJoin_MissingFields(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"no room", `{"type":"join","userId":"alice"}`},
		{"no user", `{"type":"join","roomId":"r1"}`},
		{"empty user", `{"type":"join","roomId":"r1","userId":""}`},
		{"not json", `join r1 alice`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := parseJoin([]byte(tc.raw)); err == nil {
				t.Fatalf("expected error for %q", tc.raw)
			}
		})
	}
}

func TestParseSignal_KeepsDataOpaque(t *testing.T) {
	raw := []byte(`{"type":"signal","to":"bob","data":{"sdp":"v=0","nested":[1,2,3]}}`)
	msg, err := parseSignal(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.To != "bob" {
		t.Fatalf("to = %q", msg.To)
	}
	if string(msg.Data) != `{"sdp":"v=0","nested":[1,2,3]}` {
		t.Fatalf("data not preserved verbatim: %s", msg.Data)
	}
}

func TestParseSignal_RequiresToAndData(t *testing.T) {
	if _, err := parseSignal([]byte(`{"type":"signal","data":"x"}`)); err == nil {
		t.Fatal("expected error for missing to")
	}
	if _, err := parseSignal([]byte(`{"type":"signal","to":"bob"}`)); err == nil {
		t.Fatal("expected error for missing data")
	}
}

func TestPeersMessage_MarshalsEmptyAsArray(t *testing.T) {
	b, err := json.Marshal(peersMessage{Type: typePeers, Peers: []domain.UserID{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"type":"peers","peers":[]}` {
		t.Fatalf("got %s, want empty array not null", b)
	}
}
