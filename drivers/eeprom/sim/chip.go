// Package sim simulates a 24Cxx EEPROM and an interrupt-driven two-wire
// peripheral in front of it, for host-side tests and tools.
package sim

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"

	"eeprom-go/x/mathx"
)

var (
	ErrNoDevice = errors.New("sim: no device at address")
	ErrProtocol = errors.New("sim: malformed transfer")
	ErrRefused  = errors.New("sim: transfer refused")
)

// ChipConfig describes the simulated part.
type ChipConfig struct {
	Address   uint16
	Size      int  // power of two
	PageSize  int  // power of two
	HighFirst bool // memory address arrives high byte first
}

var (
	Conf24C02  = ChipConfig{Address: 0x50, Size: 256, PageSize: 8}
	Conf24C256 = ChipConfig{Address: 0x50, Size: 32768, PageSize: 64, HighFirst: true}
)

// Chip is a 24Cxx memory array with its internal address pointer.
//
// A write transfer starts with two memory-address bytes which load the
// pointer; data bytes that follow are stored and wrap within the current
// page. Reads start at the pointer and wrap at the end of the array.
type Chip struct {
	mu  sync.Mutex
	cfg ChipConfig
	mem []byte
	ptr int
}

var _ drivers.I2C = (*Chip)(nil)

// NewChip returns an erased (all 0xFF) chip.
func NewChip(cfg ChipConfig) *Chip {
	c := &Chip{cfg: cfg, mem: make([]byte, cfg.Size)}
	for i := range c.mem {
		c.mem[i] = 0xFF
	}
	return c
}

func (c *Chip) Config() ChipConfig { return c.cfg }

// Tx performs a write, a read, or a write followed by a repeated-start read.
func (c *Chip) Tx(addr uint16, w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if addr != c.cfg.Address {
		return ErrNoDevice
	}
	switch {
	case len(w) == 1:
		return ErrProtocol
	case len(w) > 2 && len(r) > 0:
		return ErrProtocol
	case len(w) >= 2:
		c.ptr = c.decode(w[0], w[1])
		c.store(w[2:])
	}
	for i := range r {
		r[i] = c.mem[c.ptr]
		c.ptr = (c.ptr + 1) & (c.cfg.Size - 1)
	}
	return nil
}

// caller holds lock
func (c *Chip) decode(b0, b1 byte) int {
	hi, lo := b1, b0
	if c.cfg.HighFirst {
		hi, lo = b0, b1
	}
	return (int(hi)<<8 | int(lo)) & (c.cfg.Size - 1)
}

// caller holds lock
func (c *Chip) store(data []byte) {
	if len(data) == 0 {
		return
	}
	page := c.cfg.PageSize
	base := int(mathx.PageBase(uint(c.ptr), uint(page)))
	off := c.ptr - base
	for _, b := range data {
		c.mem[base+off] = b
		off = (off + 1) & (page - 1)
	}
	c.ptr = base + off
}

// Pointer returns the internal address pointer.
func (c *Chip) Pointer() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ptr
}

// Peek returns the stored byte at addr without moving the pointer.
func (c *Chip) Peek(addr int) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mem[addr&(c.cfg.Size-1)]
}

// Bytes returns a copy of the array.
func (c *Chip) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.mem...)
}

// Load copies data into the array from address 0 and returns the count.
func (c *Chip) Load(data []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copy(c.mem, data)
}
