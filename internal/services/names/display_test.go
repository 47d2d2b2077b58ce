package names_test

import (
	"testing"

	"ringchat/internal/domain"
	"ringchat/internal/services/names"
)

const addr = domain.Address("0x1234567890abcdef1234567890abcdef12345678")

func TestDisplay_Priority(t *testing.T) {
	full := func() (*domain.RoomEntry, *domain.Peer) {
		return &domain.RoomEntry{Address: addr, Name: "room-reg", ExternalName: "room.eth"},
			&domain.Peer{Address: addr, Name: "peer-reg", ExternalName: "peer.eth", ShortName: "short"}
	}
	tests := []struct {
		name  string
		strip func(*domain.RoomEntry, *domain.Peer)
		want  string
	}{
		{"room registered", func(*domain.RoomEntry, *domain.Peer) {}, "room-reg"},
		{"room external", func(r *domain.RoomEntry, _ *domain.Peer) { r.Name = "" }, "room.eth"},
		{"peer registered", func(r *domain.RoomEntry, _ *domain.Peer) { *r = domain.RoomEntry{} }, "peer-reg"},
		{"peer external", func(r *domain.RoomEntry, p *domain.Peer) { *r = domain.RoomEntry{}; p.Name = "" }, "peer.eth"},
		{"peer short", func(r *domain.RoomEntry, p *domain.Peer) { *r = domain.RoomEntry{}; p.Name, p.ExternalName = "", "" }, "short"},
		{"fallback", func(r *domain.RoomEntry, p *domain.Peer) { *r = domain.RoomEntry{}; *p = domain.Peer{} }, "0x1234...5678"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room, peer := full()
			tt.strip(room, peer)
			if got := names.Display(addr, room, peer); got != tt.want {
				t.Fatalf("Display = %q, want %q", got, tt.want)
			}
		})
	}
	if got := names.Display(addr, nil, nil); got != "0x1234...5678" {
		t.Fatalf("Display with no sources = %q", got)
	}
}

func TestFormatAddress(t *testing.T) {
	tests := map[domain.Address]string{
		addr:                 "0x1234...5678",
		"1234567890ABCDEF00": "0x1234...ef00",
		"0xa":                "0xa",
		"0x12345678":         "0x12345678",
	}
	for in, want := range tests {
		if got := names.FormatAddress(in); got != want {
			t.Fatalf("FormatAddress(%q) = %q, want %q", in, got, want)
		}
	}
}
