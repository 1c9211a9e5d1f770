package sim

import (
	"bytes"
	"errors"
	"testing"
)

func TestChipWriteWrapsWithinPage(t *testing.T) {
	c := NewChip(Conf24C02)
	// Start at offset 6 of page 0x08..0x0F and write 4 bytes.
	if err := c.Tx(0x50, []byte{0x0E, 0x00, 1, 2, 3, 4}, nil); err != nil {
		t.Fatalf("Tx: %v", err)
	}
	want := map[int]byte{0x0E: 1, 0x0F: 2, 0x08: 3, 0x09: 4}
	for a, v := range want {
		if got := c.Peek(a); got != v {
			t.Fatalf("mem[%#02x] = %#02x, want %#02x", a, got, v)
		}
	}
	if got := c.Peek(0x10); got != 0xFF {
		t.Fatalf("write leaked into next page: %#02x", got)
	}
	if p := c.Pointer(); p != 0x0A {
		t.Fatalf("pointer = %#x, want 0x0A", p)
	}
}

func TestChipReadAdvancesAndWraps(t *testing.T) {
	c := NewChip(Conf24C02)
	img := make([]byte, 256)
	for i := range img {
		img[i] = byte(i)
	}
	c.Load(img)

	r := make([]byte, 3)
	if err := c.Tx(0x50, []byte{0xFE, 0x00}, r); err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if !bytes.Equal(r, []byte{0xFE, 0xFF, 0x00}) {
		t.Fatalf("got % x", r)
	}
	if err := c.Tx(0x50, nil, r[:1]); err != nil || r[0] != 0x01 {
		t.Fatalf("current read: %#02x %v", r[0], err)
	}
}

func TestChipAddressOrder(t *testing.T) {
	c := NewChip(Conf24C256)
	if err := c.Tx(0x50, []byte{0x12, 0x34, 0xAA}, nil); err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if c.Peek(0x1234) != 0xAA {
		t.Fatal("high-first address decoded incorrectly")
	}
}

func TestChipRejects(t *testing.T) {
	c := NewChip(Conf24C02)
	if err := c.Tx(0x51, []byte{0, 0}, nil); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("wrong address: %v", err)
	}
	if err := c.Tx(0x50, []byte{0}, nil); !errors.Is(err, ErrProtocol) {
		t.Fatalf("one-byte write: %v", err)
	}
	if err := c.Tx(0x50, []byte{0, 0, 1}, make([]byte, 1)); !errors.Is(err, ErrProtocol) {
		t.Fatalf("data write with read: %v", err)
	}
}
