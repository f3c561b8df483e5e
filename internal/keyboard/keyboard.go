// Package keyboard implements the polled PS/2 keyboard driver behind the
// getchar system call.
package keyboard

import (
	"context"
	"log/slog"
)

const (
	// RegData is the keyboard controller data port.
	RegData uint16 = 0x60

	// BreakBit is set in the scancodes of key releases.
	BreakBit uint8 = 0x80
)

// scancodes is the US layout of scancode set 1, make codes only.
var scancodes = [128]byte{
	0, 27, '1', '2', '3', '4', '5', '6', '7', '8', '9', '0', '-', '=', '\b',
	'\t', 'q', 'w', 'e', 'r', 't', 'y', 'u', 'i', 'o', 'p', '[', ']', '\n',
	0, 'a', 's', 'd', 'f', 'g', 'h', 'j', 'k', 'l', ';', '\'', '`',
	0, '\\', 'z', 'x', 'c', 'v', 'b', 'n', 'm', ',', '.', '/',
	0, '*', 0, ' ',
}

// Translate returns the character of a make code.
func Translate(scancode uint8) (byte, bool) {
	if scancode&BreakBit != 0 {
		return 0, false
	}

	c := scancodes[scancode]

	return c, c != 0
}

// Scancode returns the make code producing c.
func Scancode(c byte) (uint8, bool) {
	if c == 0 {
		return 0, false
	}

	for sc, v := range scancodes {
		if v == c {
			return uint8(sc), true //nolint:gosec
		}
	}

	return 0, false
}

type portProvider interface {
	Inb(port uint16) uint8
}

// Handler is the principal implementation of the keyboard driver.
type Handler struct {
	PortOps portProvider
}

// NewHandler returns a pointer to a new [Handler].
func NewHandler(portOps portProvider) *Handler {
	return &Handler{
		PortOps: portOps,
	}
}

// GetChar polls the data port until a key with a printable translation is
// pressed, then waits for a release so a held key is returned once.
func (h *Handler) GetChar(ctx context.Context) (byte, error) {
	var c byte

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		if v, ok := Translate(h.PortOps.Inb(RegData)); ok {
			c = v

			break
		}
	}

	for h.PortOps.Inb(RegData)&BreakBit == 0 {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}

	slog.Debug("Key pressed", "char", string(rune(c)))

	return c, nil
}
