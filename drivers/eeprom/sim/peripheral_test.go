package sim

import (
	"errors"
	"testing"
	"time"

	"eeprom-go/drivers/twi"
)

func newEnabled(t *testing.T) (*Peripheral, chan twi.Event) {
	t.Helper()
	events := make(chan twi.Event, 4)
	p := NewPeripheral(NewChip(Conf24C02), time.Millisecond)
	if err := p.Init(twi.DefaultConfig(), func(ev twi.Event) { events <- ev }); err != nil {
		t.Fatalf("Init: %v", err)
	}
	p.Enable()
	return p, events
}

func waitEvent(t *testing.T, events <-chan twi.Event) twi.Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for completion event")
	}
	return twi.Event{}
}

func TestPeripheralCompletesAsynchronously(t *testing.T) {
	p, events := newEnabled(t)
	if err := p.Transmit(0x50, []byte{0x10, 0x00, 0x42}, false); err != nil {
		t.Fatalf("Transmit: %v", err)
	}
	if err := p.Transmit(0x50, []byte{0x10, 0x00}, true); !errors.Is(err, twi.ErrBusy) {
		t.Fatalf("second transfer while busy: %v", err)
	}
	if ev := waitEvent(t, events); ev.Type != twi.EventDone {
		t.Fatalf("event %v", ev.Type)
	}
	if p.Chip().Peek(0x10) != 0x42 {
		t.Fatal("write not applied")
	}
}

func TestPeripheralNeedsEnable(t *testing.T) {
	p := NewPeripheral(NewChip(Conf24C02), 0)
	if err := p.Receive(0x50, make([]byte, 1)); !errors.Is(err, twi.ErrNotEnabled) {
		t.Fatalf("got %v", err)
	}
	if err := p.Init(twi.Config{SCL: 1, SDA: 1, Frequency: twi.Freq400K}, func(twi.Event) {}); !errors.Is(err, twi.ErrInvalidConfig) {
		t.Fatalf("bad config accepted: %v", err)
	}
}

func TestPeripheralNACKs(t *testing.T) {
	p, events := newEnabled(t)
	if err := p.Transmit(0x51, []byte{0, 0}, true); err != nil {
		t.Fatalf("Transmit: %v", err)
	}
	ev := waitEvent(t, events)
	if ev.Type != twi.EventAddressNACK || !errors.Is(ev.Err, ErrNoDevice) {
		t.Fatalf("absent device: %+v", ev)
	}

	p.SetFaults(Faults{NACKReceive: true})
	if err := p.Receive(0x50, make([]byte, 1)); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if ev := waitEvent(t, events); ev.Type != twi.EventAddressNACK {
		t.Fatalf("injected NACK: %+v", ev)
	}
}

func TestPeripheralSilenceHoldsCompletion(t *testing.T) {
	p, events := newEnabled(t)
	p.SetFaults(Faults{Silence: true})
	if err := p.Transmit(0x50, []byte{0x08, 0x00, 0x11}, false); err != nil {
		t.Fatalf("Transmit: %v", err)
	}
	select {
	case ev := <-events:
		t.Fatalf("completion leaked while silent: %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
	if err := p.Receive(0x50, make([]byte, 1)); !errors.Is(err, twi.ErrBusy) {
		t.Fatalf("held transfer must keep the bus busy: %v", err)
	}

	p.SetFaults(Faults{})
	if ev := waitEvent(t, events); ev.Type != twi.EventDone {
		t.Fatalf("released event %+v", ev)
	}
	if err := p.Receive(0x50, make([]byte, 1)); err != nil {
		t.Fatalf("Receive after release: %v", err)
	}
	waitEvent(t, events)
}

func TestPeripheralDataNACK(t *testing.T) {
	p, events := newEnabled(t)
	p.SetFaults(Faults{NACKData: true})
	if err := p.Transmit(0x50, []byte{0x00, 0x00, 0x55}, false); err != nil {
		t.Fatalf("Transmit: %v", err)
	}
	if ev := waitEvent(t, events); ev.Type != twi.EventDataNACK {
		t.Fatalf("event %+v", ev)
	}
	if p.Chip().Peek(0) != 0xFF {
		t.Fatal("rejected data was stored")
	}
}
