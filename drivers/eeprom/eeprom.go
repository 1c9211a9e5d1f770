// Package eeprom provides a driver for 24Cxx-style serial EEPROMs on an
// asynchronous two-wire peripheral (see package twi).
//
// Every operation issues its bus transfers one at a time and blocks until the
// peripheral reports completion:
//
//	d := eeprom.New(bus)
//	d.MustConfigure()
//	err := d.ByteWrite(0x0010, 0xAB)
//	v, err := d.ByteReadRandom(0x0010)
//
// Random reads first send the memory address without a stop condition, then
// read with a repeated start. PageReadCurrent skips the address phase and
// continues from the chip's internal address pointer.
//
// A transfer that times out may still be running on the bus. Until its late
// completion arrives the device refuses new operations with twi.ErrBusy.
//
// A nil error is success. Nothing is retried; callers that want retries (or
// that must wait out the chip's write cycle) loop themselves, or use Memory.
package eeprom

import (
	"sync"
	"time"

	"eeprom-go/drivers/twi"
)

// Address is the default 7-bit device address (A2..A0 strapped low).
const Address = 0x50

// MaxTransfer is the largest data length accepted by a single page operation.
const MaxTransfer = 255

// AddressOrder selects which memory-address byte goes on the wire first.
type AddressOrder uint8

const (
	LowFirst  AddressOrder = iota // low byte, then high byte
	HighFirst                     // high byte, then low byte (24C32 and larger)
)

// Config controls the device. All fields are optional.
type Config struct {
	// Address defaults to 0x50 if zero.
	Address uint16
	// AddressOrder defaults to LowFirst.
	AddressOrder AddressOrder
	// Timeout bounds the wait for each transfer's completion. Default 50 ms.
	Timeout time.Duration
	// Bus is passed to the peripheral's Init. Zero means twi.DefaultConfig().
	Bus twi.Config
}

// Device is an EEPROM on a two-wire peripheral.
type Device struct {
	bus twi.Peripheral
	cfg Config

	// mu serialises callers; done assumes one outstanding transfer.
	mu         sync.Mutex
	done       completion
	configured bool
	// stale is set when a transfer timed out. The peripheral may still own
	// frame until its late completion has been drained.
	stale bool

	// Every buffer handed to the peripheral lives here, never in caller
	// memory: [0:2] memory address, [2:] data out or in.
	frame [MaxTransfer + 2]byte
}

// New creates a Device on bus. It does not touch the peripheral; call
// Configure before any transfer.
func New(bus twi.Peripheral) *Device {
	return &Device{
		bus:  bus,
		done: newCompletion(),
	}
}

// Configure initialises and enables the peripheral with the completion
// handler registered. It must succeed exactly once before any transfer.
func (d *Device) Configure(cfgs ...Config) error {
	var c Config
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.Address == 0 {
		c.Address = Address
	}
	if c.Address > 0x7F {
		return ErrInvalidAddress
	}
	if c.Timeout <= 0 {
		c.Timeout = 50 * time.Millisecond
	}
	if c.Bus == (twi.Config{}) {
		c.Bus = twi.DefaultConfig()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.configured {
		return ErrAlreadyConfigured
	}
	if err := d.bus.Init(c.Bus, d.handle); err != nil {
		return err
	}
	d.bus.Enable()
	d.cfg = c
	d.configured = true
	return nil
}

// MustConfigure is Configure for firmware start-up: a peripheral that cannot
// be brought up leaves nothing to recover, so it panics.
func (d *Device) MustConfigure(cfgs ...Config) {
	if err := d.Configure(cfgs...); err != nil {
		panic("eeprom: configure: " + err.Error())
	}
}

// Config returns the effective configuration.
func (d *Device) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// handle is the peripheral's completion handler. It may run in interrupt
// context and never blocks.
func (d *Device) handle(ev twi.Event) {
	switch ev.Type {
	case twi.EventDone:
		d.done.signal(nil)
	case twi.EventAddressNACK, twi.EventDataNACK:
		d.done.signal(ErrNACK)
	default:
		// not a completion
	}
}

// ByteWrite stores v at addr: [addr, addr, v] followed by a stop condition.
func (d *Device) ByteWrite(addr uint16, v byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(); err != nil {
		return err
	}
	d.putAddr(addr)
	d.frame[2] = v
	return d.transmit(d.frame[:3], false)
}

// PageWrite stores data starting at addr in one transfer of len(data)+2
// bytes. The chip wraps writes that cross its page boundary; keeping data
// inside one page is the caller's job (Memory does it).
func (d *Device) PageWrite(addr uint16, data []byte) error {
	if len(data) == 0 || len(data) > MaxTransfer {
		return ErrInvalidLength
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(); err != nil {
		return err
	}
	d.putAddr(addr)
	n := copy(d.frame[2:], data)
	return d.transmit(d.frame[:n+2], false)
}

// ByteReadRandom reads the byte at addr.
func (d *Device) ByteReadRandom(addr uint16) (byte, error) {
	var b [1]byte
	if err := d.PageReadRandom(addr, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// PageReadRandom fills out from addr onwards. If the address phase fails the
// read is not attempted. out is only written on success.
func (d *Device) PageReadRandom(addr uint16, out []byte) error {
	if len(out) == 0 || len(out) > MaxTransfer {
		return ErrInvalidLength
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(); err != nil {
		return err
	}
	d.putAddr(addr)
	if err := d.transmit(d.frame[:2], true); err != nil {
		return err
	}
	return d.receive(out)
}

// PageReadCurrent fills out starting at the chip's internal address pointer,
// i.e. just past the last byte accessed.
func (d *Device) PageReadCurrent(out []byte) error {
	if len(out) == 0 || len(out) > MaxTransfer {
		return ErrInvalidLength
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(); err != nil {
		return err
	}
	return d.receive(out)
}

// caller holds lock
func (d *Device) putAddr(addr uint16) {
	lo, hi := byte(addr), byte(addr>>8)
	if d.cfg.AddressOrder == HighFirst {
		d.frame[0], d.frame[1] = hi, lo
		return
	}
	d.frame[0], d.frame[1] = lo, hi
}

// begin checks the device can start a transfer. After a timeout it first
// waits up to one more Timeout for the late completion; while that is still
// missing the device reports twi.ErrBusy and leaves frame alone.
//
// caller holds lock
func (d *Device) begin() error {
	if !d.configured {
		return ErrNotConfigured
	}
	if d.stale {
		if d.done.wait(d.cfg.Timeout) == ErrTimeout {
			return twi.ErrBusy
		}
		d.stale = false
	}
	return nil
}

// caller holds lock
func (d *Device) transmit(buf []byte, noStop bool) error {
	d.done.reset()
	if err := d.bus.Transmit(d.cfg.Address, buf, noStop); err != nil {
		// Not started: no completion will follow.
		return err
	}
	return d.await()
}

// receive reads len(out) bytes into frame[2:] and copies them to out only
// once the transfer has completed.
//
// caller holds lock
func (d *Device) receive(out []byte) error {
	buf := d.frame[2 : 2+len(out)]
	d.done.reset()
	if err := d.bus.Receive(d.cfg.Address, buf); err != nil {
		return err
	}
	if err := d.await(); err != nil {
		return err
	}
	copy(out, buf)
	return nil
}

// caller holds lock
func (d *Device) await() error {
	err := d.done.wait(d.cfg.Timeout)
	if err == ErrTimeout {
		d.stale = true
	}
	return err
}
