package machine

import (
	"errors"
	"fmt"
	"time"

	"github.com/desertwitch/flatkern/internal/keyboard"
)

// ErrKeyboardFull is returned when typed keys overflow the port buffer.
var ErrKeyboardFull = errors.New("keyboard buffer full")

// KeyboardPort simulates the keyboard controller's data port. Typed keys
// are queued as make and break codes; an idle port reads as zero after a
// short wait.
type KeyboardPort struct {
	queue chan uint8
	wait  time.Duration
}

// NewKeyboardPort returns a pointer to a new [KeyboardPort] buffering up
// to size scancodes.
func NewKeyboardPort(size int, wait time.Duration) *KeyboardPort {
	return &KeyboardPort{
		queue: make(chan uint8, size),
		wait:  wait,
	}
}

// Type queues the key presses and releases producing s.
func (k *KeyboardPort) Type(s string) error {
	for i := range len(s) {
		sc, ok := keyboard.Scancode(s[i])
		if !ok {
			return fmt.Errorf("(keyboard) %q: %w", s[i], ErrUnknownKey)
		}

		for _, code := range []uint8{sc, sc | keyboard.BreakBit} {
			select {
			case k.queue <- code:
			default:
				return fmt.Errorf("(keyboard) %q: %w", s[i], ErrKeyboardFull)
			}
		}
	}

	return nil
}

// Inb reads the data port.
func (k *KeyboardPort) Inb(port uint16) uint8 {
	if port != keyboard.RegData {
		return 0
	}

	if k.wait <= 0 {
		select {
		case sc := <-k.queue:
			return sc
		default:
			return 0
		}
	}

	timer := time.NewTimer(k.wait)
	defer timer.Stop()

	select {
	case sc := <-k.queue:
		return sc
	case <-timer.C:
		return 0
	}
}
