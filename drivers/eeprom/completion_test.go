package eeprom

import (
	"errors"
	"testing"
	"time"
)

func TestCompletionDeliversOutcome(t *testing.T) {
	c := newCompletion()
	c.reset()
	go c.signal(ErrNACK)
	if err := c.wait(time.Second); !errors.Is(err, ErrNACK) {
		t.Fatalf("got %v, want ErrNACK", err)
	}
}

func TestCompletionResetDropsStaleSignal(t *testing.T) {
	c := newCompletion()
	c.signal(nil) // late completion of a transfer that already timed out
	c.reset()
	if err := c.wait(5 * time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("got %v, want ErrTimeout", err)
	}
}

// Two callers sharing one completion without the device lock: B's reset lands
// between A's completion and A's wait, so A never observes its transfer end.
func TestCompletionUnserialisedCallersLoseCompletion(t *testing.T) {
	c := newCompletion()

	c.reset()                           // A: reset before its transfer
	c.signal(nil)                       // A's transfer completes (interrupt)
	c.reset()                           // B: reset before its own transfer
	err := c.wait(5 * time.Millisecond) // A waits
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("A: got %v, want ErrTimeout from the lost completion", err)
	}
}
