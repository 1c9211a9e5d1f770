package twi

import (
	"sync"

	"tinygo.org/x/drivers"
)

// held is a write started without a stop condition. It is replayed in front
// of the next transfer.
type held struct {
	addr uint16
	w    []byte
}

// job posted to the bus worker
type job struct {
	addr uint16
	w, r []byte
	pre  *held // write to replay first (nil if none)
	hold bool  // acknowledge a noStop transmit without touching the bus
}

// I2C turns a blocking drivers.I2C into an asynchronous Peripheral.
//
// One worker goroutine owns the bus. A noStop transmit is acknowledged at
// once and merged with the following Receive into a single Tx(addr, w, r),
// which produces the repeated start on the wire.
type I2C struct {
	bus drivers.I2C

	mu      sync.Mutex
	h       Handler
	enabled bool
	busy    bool
	closed  bool
	pending *held

	jobs chan job
	quit chan struct{}
}

// Ensure compile-time conformance.
var _ Peripheral = (*I2C)(nil)

// NewI2C wraps bus. The bus must already be configured.
func NewI2C(bus drivers.I2C) *I2C {
	return &I2C{bus: bus}
}

// Init validates cfg, registers h and starts the bus worker.
func (p *I2C) Init(cfg Config, h Handler) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if h == nil {
		return ErrInvalidConfig
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.jobs != nil {
		return ErrInitialised
	}
	p.h = h
	p.jobs = make(chan job, 1)
	p.quit = make(chan struct{})
	go p.loop(p.jobs, p.quit)
	return nil
}

func (p *I2C) Enable() {
	p.mu.Lock()
	p.enabled = true
	p.mu.Unlock()
}

// Close stops the worker. Transfers started afterwards fail with ErrClosed.
func (p *I2C) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.quit == nil {
		p.closed = true
		return
	}
	p.closed = true
	close(p.quit)
}

// caller holds lock
func (p *I2C) claim() error {
	switch {
	case p.closed:
		return ErrClosed
	case !p.enabled || p.jobs == nil:
		return ErrNotEnabled
	case p.busy:
		return ErrBusy
	}
	p.busy = true
	return nil
}

func (p *I2C) Transmit(addr uint16, buf []byte, noStop bool) error {
	p.mu.Lock()
	if err := p.claim(); err != nil {
		p.mu.Unlock()
		return err
	}
	pre := p.pending
	p.pending = nil
	j := job{addr: addr, w: buf, pre: pre}
	if noStop {
		// A held write that is never followed by a read still reaches the bus.
		w := append([]byte(nil), buf...)
		if pre != nil {
			j = job{addr: pre.addr, w: pre.w}
		} else {
			j = job{addr: addr, hold: true}
		}
		p.pending = &held{addr: addr, w: w}
	}
	p.mu.Unlock()
	p.jobs <- j
	return nil
}

func (p *I2C) Receive(addr uint16, buf []byte) error {
	p.mu.Lock()
	if err := p.claim(); err != nil {
		p.mu.Unlock()
		return err
	}
	pre := p.pending
	p.pending = nil
	p.mu.Unlock()
	p.jobs <- job{addr: addr, r: buf, pre: pre}
	return nil
}

func (p *I2C) loop(jobs <-chan job, quit <-chan struct{}) {
	for {
		select {
		case j := <-jobs:
			ev := p.run(j)
			// Deliver under the lock so no new transfer can be claimed
			// before the handler has seen this one end.
			p.mu.Lock()
			p.busy = false
			p.h(ev)
			p.mu.Unlock()
		case <-quit:
			return
		}
	}
}

func (p *I2C) run(j job) Event {
	if j.hold {
		return Event{Type: EventDone, Addr: j.addr}
	}
	w := j.w
	if j.pre != nil {
		if j.pre.addr == j.addr && len(j.w) == 0 {
			// write + repeated-start read
			w = j.pre.w
		} else if err := p.bus.Tx(j.pre.addr, j.pre.w, nil); err != nil {
			return Event{Type: EventAddressNACK, Addr: j.pre.addr, Err: err}
		}
	}
	if err := p.bus.Tx(j.addr, w, j.r); err != nil {
		return Event{Type: EventAddressNACK, Addr: j.addr, Err: err}
	}
	return Event{Type: EventDone, Addr: j.addr}
}
