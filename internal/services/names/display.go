package names

import (
	"strings"

	"ringchat/internal/domain"
)

const shortHex = 4

// Display returns the best name for addr. room and peer may be nil.
//
// Priority: room registered name, room external name, peer registered name,
// peer external name, peer short name, FormatAddress(addr).
func Display(addr domain.Address, room *domain.RoomEntry, peer *domain.Peer) string {
	if room != nil {
		if room.Name != "" {
			return room.Name
		}
		if room.ExternalName != "" {
			return room.ExternalName
		}
	}
	if peer != nil {
		if peer.Name != "" {
			return peer.Name
		}
		if peer.ExternalName != "" {
			return peer.ExternalName
		}
		if peer.ShortName != "" {
			return peer.ShortName
		}
	}
	return FormatAddress(addr)
}

// FormatAddress truncates addr to 0x + first 4 + ... + last 4 hex characters.
// Addresses too short to truncate are returned whole.
func FormatAddress(addr domain.Address) string {
	s := string(domain.NormalizeAddress(string(addr)))
	hex := strings.TrimPrefix(s, "0x")
	if len(hex) <= 2*shortHex {
		return s
	}
	return "0x" + hex[:shortHex] + "..." + hex[len(hex)-shortHex:]
}
