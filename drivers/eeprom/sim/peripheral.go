package sim

import (
	"sync"
	"time"

	"eeprom-go/drivers/twi"
)

// TransferKind tells transmits and receives apart in the log.
type TransferKind uint8

const (
	KindTransmit TransferKind = iota
	KindReceive
)

// Transfer is one started (or refused) transfer as seen by the peripheral.
type Transfer struct {
	Kind   TransferKind
	Addr   uint16
	Data   []byte // transmitted bytes; nil for receives
	Len    int    // declared length
	NoStop bool
}

// Faults injects failures. The zero value is a healthy bus.
type Faults struct {
	Init            error // returned by Init
	RefuseTransmit  bool  // Transmit returns ErrRefused, no event
	RefuseReceive   bool  // Receive returns ErrRefused, no event
	NACKTransmit    bool  // Transmit starts, then reports EventAddressNACK
	NACKReceive     bool  // Receive starts, then reports EventAddressNACK
	NACKData        bool  // Transmit starts, then reports EventDataNACK (write protected)
	Silence         bool  // completions are held back until Silence is cleared
	RefuseTransmitN int   // refuse only the Nth transmit (1-based); 0 = off
}

// Peripheral is a twi.Peripheral in front of a Chip. Completion events are
// delivered from their own goroutine after Latency, the way an interrupt
// would preempt the caller.
type Peripheral struct {
	chip    *Chip
	latency time.Duration

	mu      sync.Mutex
	h       twi.Handler
	cfg     twi.Config
	enabled bool
	busy    bool
	faults  Faults
	ntx     int
	log     []Transfer
	stalled []twi.Event
}

var _ twi.Peripheral = (*Peripheral)(nil)

// NewPeripheral attaches a peripheral to chip.
func NewPeripheral(chip *Chip, latency time.Duration) *Peripheral {
	return &Peripheral{chip: chip, latency: latency}
}

func (p *Peripheral) Chip() *Chip { return p.chip }

// SetFaults replaces the active fault set. Clearing Silence delivers the
// completions it held back.
func (p *Peripheral) SetFaults(f Faults) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.faults = f
	if f.Silence || len(p.stalled) == 0 {
		return
	}
	p.busy = false
	for _, ev := range p.stalled {
		p.h(ev)
	}
	p.stalled = nil
}

func (p *Peripheral) Init(cfg twi.Config, h twi.Handler) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.faults.Init != nil {
		return p.faults.Init
	}
	if p.h != nil {
		return twi.ErrInitialised
	}
	p.h = h
	p.cfg = cfg
	return nil
}

func (p *Peripheral) Enable() {
	p.mu.Lock()
	p.enabled = p.h != nil
	p.mu.Unlock()
}

// BusConfig returns the config passed to Init.
func (p *Peripheral) BusConfig() twi.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

func (p *Peripheral) Transmit(addr uint16, buf []byte, noStop bool) error {
	p.mu.Lock()
	if err := p.claim(); err != nil {
		p.mu.Unlock()
		return err
	}
	p.ntx++
	p.log = append(p.log, Transfer{
		Kind:   KindTransmit,
		Addr:   addr,
		Data:   append([]byte(nil), buf...),
		Len:    len(buf),
		NoStop: noStop,
	})
	f := p.faults
	if f.RefuseTransmit || f.RefuseTransmitN == p.ntx {
		p.busy = false
		p.mu.Unlock()
		return ErrRefused
	}
	p.mu.Unlock()

	ev := twi.Event{Type: twi.EventDone, Addr: addr}
	switch {
	case f.NACKTransmit:
		ev.Type = twi.EventAddressNACK
	case f.NACKData:
		ev.Type = twi.EventDataNACK
	default:
		if err := p.chip.Tx(addr, buf, nil); err != nil {
			ev = twi.Event{Type: twi.EventAddressNACK, Addr: addr, Err: err}
		}
	}
	p.complete(ev)
	return nil
}

func (p *Peripheral) Receive(addr uint16, buf []byte) error {
	p.mu.Lock()
	if err := p.claim(); err != nil {
		p.mu.Unlock()
		return err
	}
	p.log = append(p.log, Transfer{Kind: KindReceive, Addr: addr, Len: len(buf)})
	f := p.faults
	if f.RefuseReceive {
		p.busy = false
		p.mu.Unlock()
		return ErrRefused
	}
	p.mu.Unlock()

	ev := twi.Event{Type: twi.EventDone, Addr: addr}
	if f.NACKReceive {
		ev.Type = twi.EventAddressNACK
	} else if err := p.chip.Tx(addr, nil, buf); err != nil {
		ev = twi.Event{Type: twi.EventAddressNACK, Addr: addr, Err: err}
	}
	p.complete(ev)
	return nil
}

// caller holds lock
func (p *Peripheral) claim() error {
	if !p.enabled {
		return twi.ErrNotEnabled
	}
	if p.busy {
		return twi.ErrBusy
	}
	p.busy = true
	return nil
}

func (p *Peripheral) complete(ev twi.Event) {
	go func() {
		if p.latency > 0 {
			time.Sleep(p.latency)
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.faults.Silence {
			p.stalled = append(p.stalled, ev)
			return
		}
		p.busy = false
		p.h(ev)
	}()
}

// Log returns a copy of the transfers seen so far.
func (p *Peripheral) Log() []Transfer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Transfer(nil), p.log...)
}

// ResetLog clears the transfer log.
func (p *Peripheral) ResetLog() {
	p.mu.Lock()
	p.log = nil
	p.mu.Unlock()
}
