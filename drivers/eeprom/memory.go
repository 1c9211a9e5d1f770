package eeprom

import (
	"io"
	"time"

	"eeprom-go/x/mathx"
)

// MemoryConfig describes the chip geometry behind a Device.
type MemoryConfig struct {
	Size       int           // bytes, at most 64 KiB
	PageSize   int           // write page, power of two
	WriteDelay time.Duration // internal write cycle after each page write
}

// Common parts.
//
// The Device always sends a two-byte memory address. The 24C01..24C16 take a
// single word-address byte and would store the second one as data, so
// Conf24C02 and Conf24C16 only describe their geometry (for the simulator,
// or for two-byte-address parts of the same size). Conf24C256 is a real
// two-byte-address part; pair it with HighFirst.
var (
	Conf24C02  = MemoryConfig{Size: 256, PageSize: 8, WriteDelay: 5 * time.Millisecond}
	Conf24C16  = MemoryConfig{Size: 2048, PageSize: 16, WriteDelay: 5 * time.Millisecond}
	Conf24C256 = MemoryConfig{Size: 32768, PageSize: 64, WriteDelay: 5 * time.Millisecond}
)

// Memory presents a Device as a flat byte array. Writes are split on page
// boundaries and each page write is followed by WriteDelay.
type Memory struct {
	d   *Device
	cfg MemoryConfig
}

var (
	_ io.ReaderAt = (*Memory)(nil)
	_ io.WriterAt = (*Memory)(nil)
)

// NewMemory checks cfg and binds it to a configured Device.
func NewMemory(d *Device, cfg MemoryConfig) (*Memory, error) {
	if cfg.Size <= 0 || cfg.Size > 1<<16 {
		return nil, ErrOutOfRange
	}
	if cfg.PageSize <= 0 || cfg.PageSize > cfg.Size || !mathx.IsPow2(uint(cfg.PageSize)) {
		return nil, ErrInvalidLength
	}
	return &Memory{d: d, cfg: cfg}, nil
}

func (m *Memory) Size() int { return m.cfg.Size }

// ReadAt reads len(p) bytes at off. Reads that run past the end of the array
// return the bytes available and io.EOF.
func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(m.cfg.Size) {
		return 0, ErrOutOfRange
	}
	n := mathx.Min(len(p), m.cfg.Size-int(off))
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	done := 0
	for done < n {
		chunk := mathx.Min(n-done, MaxTransfer)
		if err := m.d.PageReadRandom(uint16(int(off)+done), p[done:done+chunk]); err != nil {
			return done, err
		}
		done += chunk
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt writes p at off, one page at a time. Writes that run past the end
// of the array store what fits and return io.EOF.
func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(m.cfg.Size) {
		return 0, ErrOutOfRange
	}
	n := mathx.Min(len(p), m.cfg.Size-int(off))
	done := 0
	for done < n {
		pos := uint(int(off) + done)
		chunk := mathx.Min(n-done, int(mathx.PageRemaining(pos, uint(m.cfg.PageSize))))
		chunk = mathx.Min(chunk, MaxTransfer)
		if err := m.d.PageWrite(uint16(pos), p[done:done+chunk]); err != nil {
			return done, err
		}
		done += chunk
		if m.cfg.WriteDelay > 0 {
			time.Sleep(m.cfg.WriteDelay)
		}
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
