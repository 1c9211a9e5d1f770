package errcode

import (
	"errors"
	"io"

	"eeprom-go/drivers/eeprom"
	"eeprom-go/drivers/twi"
)

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Busy           Code = "busy"
	Timeout        Code = "timeout"
	NACK           Code = "nack"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	OutOfRange     Code = "out_of_range"
	NotConfigured  Code = "not_configured"
	BusClosed      Code = "bus_closed"
	UnknownCommand Code = "unknown_command"
	Unsupported    Code = "unsupported"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is matches e against its own Code, so errors.Is(err, Timeout) works on a
// wrapped error too.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Wrap attaches op and a code derived from err. nil stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: MapDriverErr(err), Op: op, Msg: err.Error(), Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}

// MapDriverErr maps EEPROM driver and peripheral errors to a Code.
func MapDriverErr(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, eeprom.ErrTimeout):
		return Timeout
	case errors.Is(err, eeprom.ErrNACK):
		return NACK
	case errors.Is(err, eeprom.ErrInvalidLength),
		errors.Is(err, eeprom.ErrInvalidAddress),
		errors.Is(err, twi.ErrInvalidConfig):
		return InvalidParams
	case errors.Is(err, eeprom.ErrOutOfRange), errors.Is(err, io.EOF):
		return OutOfRange
	case errors.Is(err, eeprom.ErrNotConfigured),
		errors.Is(err, twi.ErrNotEnabled):
		return NotConfigured
	case errors.Is(err, twi.ErrBusy):
		return Busy
	case errors.Is(err, twi.ErrClosed):
		return BusClosed
	}
	return Of(err)
}
