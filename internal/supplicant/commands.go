package supplicant

import "fmt"

// Command builders render the control-interface command lines the
// daemon sends over the supplicant's UNIX control socket. Building these
// as plain strings (rather than a structured request type) matches
// wpa_supplicant's own line-oriented control protocol
// (original_source/src/wifi/wifid-supplicant.c).

// Find starts P2P peer discovery for the given number of seconds (0 means
// the supplicant's default duration).
func Find(seconds int) string {
	if seconds <= 0 {
		return "P2P_FIND"
	}
	return fmt.Sprintf("P2P_FIND %d", seconds)
}

// StopFind cancels an in-progress P2P_FIND.
func StopFind() string { return "P2P_STOP_FIND" }

// ConnectPBC builds a P2P_CONNECT command using Push-Button Configuration,
// the only WPS method spec.md's seed scenarios exercise.
func ConnectPBC(peer string, joinExistingGroup bool) string {
	cmd := fmt.Sprintf("P2P_CONNECT %s pbc", peer)
	if joinExistingGroup {
		cmd += " join"
	}
	return cmd
}

// ConnectPIN builds a P2P_CONNECT command using a displayed or entered
// WPS PIN. original_source's wifid-supplicant.c implements all three WPS
// methods even though spec.md's seed scenarios only exercise PBC and does
// not declare the others a non-goal (SPEC_FULL.md §4.2).
func ConnectPIN(peer, pin string, display bool) string {
	mode := "keypad"
	if display {
		mode = "display"
	}
	return fmt.Sprintf("P2P_CONNECT %s %s %s", peer, pin, mode)
}

// Cancel aborts an in-progress P2P_CONNECT / GO negotiation.
func Cancel() string { return "P2P_CANCEL" }

// GroupRemove tears down an active P2P group on the given interface.
func GroupRemove(iface string) string { return fmt.Sprintf("P2P_GROUP_REMOVE %s", iface) }

// SetDeviceName re-issues the device name without a supplicant restart.
func SetDeviceName(name string) string { return fmt.Sprintf("SET device_name %s", name) }

// SetWFDSubelement re-issues a WFD sub-element (hex-encoded TLV, as
// produced by internal/subelement) without a supplicant restart.
func SetWFDSubelement(id int, hexValue string) string {
	return fmt.Sprintf("WFD_SUBELEM_SET %d %s", id, hexValue)
}

// ServiceDiscoveryRequest builds a P2P_SERV_DISC_REQ command. This is a
// command builder only, not a new state-machine path: original_source's
// wifid-supplicant.c implements service discovery but spec.md's event
// table does not name it, so it enriches §4.2 without touching any
// invariant in spec.md §8 (SPEC_FULL.md §7).
func ServiceDiscoveryRequest(peer string, queryHex string) string {
	if peer == "" {
		peer = "00:00:00:00:00:00" // wildcard address: broadcast to all peers
	}
	return fmt.Sprintf("P2P_SERV_DISC_REQ %s %s", peer, queryHex)
}
