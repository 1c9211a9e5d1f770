package types

// ------------------------
// EEPROM service state (retained on eeprom/state)
// ------------------------

type EEPROMState struct {
	Level  string `json:"level"`  // "ready", "stopped"
	Status string `json:"status"` // short code
	Size   int    `json:"size"`   // bytes, 0 if geometry unknown
	TS     int64  `json:"ts_ns"`
}

// ------------------------
// Requests (eeprom/control/...)
// ------------------------

// EEPROMRead reads Len bytes. Current continues from the chip's address
// pointer instead of Addr. Lengths above one transfer need a known geometry.
type EEPROMRead struct {
	Addr    uint16 `json:"addr"`
	Len     int    `json:"len"`
	Current bool   `json:"current,omitempty"`
}

// EEPROMWrite stores Data at Addr. Without Paged it is a single transfer (a
// byte write for one byte, otherwise a page write); with Paged it is split
// on page boundaries and waits out each write cycle.
type EEPROMWrite struct {
	Addr  uint16 `json:"addr"`
	Data  []byte `json:"data"`
	Paged bool   `json:"paged,omitempty"`
}

// EEPROMReply answers both requests. Error is an errcode string.
type EEPROMReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Data  []byte `json:"data,omitempty"`
	N     int    `json:"n"`
}
