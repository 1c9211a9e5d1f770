package eeprom

import "time"

// completion carries the outcome of the single outstanding transfer from the
// peripheral's handler to the blocked caller. reset must precede every
// transfer; signal never blocks so it is safe from interrupt context.
type completion struct {
	ch chan error
}

func newCompletion() completion {
	return completion{ch: make(chan error, 1)}
}

// reset discards an outcome nobody is waiting for.
func (c completion) reset() {
	select {
	case <-c.ch:
	default:
	}
}

func (c completion) signal(err error) {
	select {
	case c.ch <- err:
	default:
		// already signalled; the first outcome wins
	}
}

func (c completion) wait(timeout time.Duration) error {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case err := <-c.ch:
		return err
	case <-t.C:
		return ErrTimeout
	}
}
