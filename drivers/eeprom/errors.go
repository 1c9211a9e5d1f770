package eeprom

import "errors"

// Errors returned by the driver. A failed bus transaction is ErrNACK when the
// peripheral reported it, ErrTimeout when no completion arrived in time, or
// the peripheral's own error when it refused to start the transfer.
var (
	ErrNotConfigured     = errors.New("eeprom: not configured")
	ErrAlreadyConfigured = errors.New("eeprom: already configured")
	ErrInvalidAddress    = errors.New("eeprom: invalid device address")
	ErrInvalidLength     = errors.New("eeprom: invalid transfer length")
	ErrOutOfRange        = errors.New("eeprom: offset out of range")
	ErrTimeout           = errors.New("eeprom: timeout")
	ErrNACK              = errors.New("eeprom: transfer not acknowledged")
)
