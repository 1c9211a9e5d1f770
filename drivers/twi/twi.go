// Package twi describes the asynchronous two-wire (I²C) master peripheral the
// EEPROM driver is built on, and adapts blocking tinygo buses to it.
//
// A Peripheral starts transfers and reports their completion later through
// the Handler registered at Init. The handler may run on another goroutine (or
// in interrupt context on hardware) and must not block.
package twi

import "errors"

// Supported bus frequencies.
const (
	Freq100K uint32 = 100_000
	Freq250K uint32 = 250_000
	Freq400K uint32 = 400_000
)

// PriorityHigh is the interrupt priority of the reference board's bus.
// Lower is more urgent.
const PriorityHigh uint8 = 2

var (
	ErrInvalidConfig = errors.New("twi: invalid config")
	ErrNotEnabled    = errors.New("twi: not enabled")
	ErrBusy          = errors.New("twi: busy")
	ErrClosed        = errors.New("twi: closed")
	ErrInitialised   = errors.New("twi: already initialised")
)

// Config selects pins and operating parameters for a peripheral instance.
type Config struct {
	SCL          int
	SDA          int
	Frequency    uint32
	IRQPriority  uint8
	ClearBusInit bool // clock out a stuck slave during Init
}

// DefaultConfig returns the wiring used by the reference board.
func DefaultConfig() Config {
	return Config{
		SCL:         22,
		SDA:         23,
		Frequency:   Freq400K,
		IRQPriority: PriorityHigh,
	}
}

// Validate rejects wiring and frequencies the peripheral cannot use.
func (c Config) Validate() error {
	if c.SCL < 0 || c.SDA < 0 || c.SCL == c.SDA {
		return ErrInvalidConfig
	}
	switch c.Frequency {
	case Freq100K, Freq250K, Freq400K:
	default:
		return ErrInvalidConfig
	}
	return nil
}

// EventType discriminates completion events.
type EventType uint8

const (
	EventDone        EventType = iota // transfer finished
	EventAddressNACK                  // slave did not ACK its address
	EventDataNACK                     // slave did not ACK a data byte
)

func (t EventType) String() string {
	switch t {
	case EventDone:
		return "done"
	case EventAddressNACK:
		return "address_nack"
	case EventDataNACK:
		return "data_nack"
	default:
		return "unknown"
	}
}

// Event is delivered to the Handler when a transfer ends.
type Event struct {
	Type EventType
	Addr uint16
	Err  error // optional cause for NACK events
}

// Handler receives completion events. It must not block or call back into
// the Peripheral.
type Handler func(Event)

// Peripheral is an asynchronous two-wire master.
//
// Transmit and Receive return nil once the transfer has been started; its
// outcome arrives later as exactly one Event. A non-nil return means nothing
// was started and no Event will follow. buf belongs to the peripheral until
// that Event has been delivered.
type Peripheral interface {
	Init(cfg Config, h Handler) error
	Enable()
	// Transmit writes buf to addr. With noStop set, no stop condition is
	// generated so the next transfer starts with a repeated start.
	Transmit(addr uint16, buf []byte, noStop bool) error
	Receive(addr uint16, buf []byte) error
}
