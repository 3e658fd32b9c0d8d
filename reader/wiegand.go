package reader

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"
)

const (
	stx = 0x02
	etx = 0x03
)

// Wiegand implements TagReader for Wiegand-to-serial RFID bridges that send
// the card as ASCII hex between STX and ETX.
type Wiegand struct {
	port serial.Port
}

// NewWiegand creates a new Wiegand reader on the specified serial port.
func NewWiegand(device string, baud int) (*Wiegand, error) {
	if baud == 0 {
		baud = 9600
	}

	mode := &serial.Mode{
		BaudRate: baud,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}

	_ = p.SetReadTimeout(50 * time.Millisecond)

	w := &Wiegand{port: p}
	w.flush()
	return w, nil
}

// Read implements TagReader.Read for Wiegand readers.
func (w *Wiegand) Read(ctx context.Context) (Card, error) {
	for {
		select {
		case <-ctx.Done():
			return Card{}, ctx.Err()
		default:
		}
		if w.port == nil {
			return Card{}, ErrClosed
		}

		tag, err := w.readFrame()
		if err != nil {
			return Card{}, err
		}
		if tag != 0 {
			return Card{ID: tag}, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// readFrame attempts to read a single card frame. A zero tag with a nil
// error means nothing usable arrived.
func (w *Wiegand) readFrame() (uint64, error) {
	first := make([]byte, 1)
	n, err := w.port.Read(first)
	if err != nil {
		return 0, fmt.Errorf("read STX: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	if first[0] != stx {
		w.flush()
		return 0, nil
	}

	var body strings.Builder
	buf := make([]byte, 1)

	for {
		n, err := w.port.Read(buf)
		if err != nil {
			return 0, fmt.Errorf("read body: %w", err)
		}
		if n == 0 {
			w.flush()
			return 0, nil
		}
		if buf[0] == etx {
			break
		}
		body.WriteByte(buf[0])
	}

	tag, err := parseWiegandID(body.String())
	if err != nil {
		// A garbled frame is line noise, not a reader failure.
		return 0, nil
	}
	return tag, nil
}

// parseWiegandID decodes the hex body of a frame. The card number is the
// low 24 bits of the 10 digit, zero padded id.
func parseWiegandID(id string) (uint64, error) {
	if id == "" {
		return 0, errors.New("empty frame")
	}
	if len(id) > 10 {
		return 0, fmt.Errorf("frame too long: %q", id)
	}
	id = strings.Repeat("0", 10-len(id)) + id

	for i := 0; i < len(id); i++ {
		if _, err := hexCharToNibble(id[i]); err != nil {
			return 0, fmt.Errorf("invalid hex at pos %d: %w", i, err)
		}
	}

	cardHex := id[4:10]
	cardInt, err := strconv.ParseUint(cardHex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("parse card hex %q: %w", cardHex, err)
	}
	return cardInt, nil
}

// Close implements TagReader.Close.
func (w *Wiegand) Close() error {
	if w.port == nil {
		return nil
	}
	err := w.port.Close()
	w.port = nil
	return err
}

func (w *Wiegand) flush() {
	if w.port == nil {
		return
	}
	_ = w.port.SetReadTimeout(10 * time.Millisecond)
	defer func() {
		_ = w.port.SetReadTimeout(50 * time.Millisecond)
	}()

	tmp := make([]byte, 64)
	for {
		n, err := w.port.Read(tmp)
		if err != nil || n == 0 {
			return
		}
	}
}

func hexCharToNibble(c byte) (int, error) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), nil
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, nil
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, nil
	default:
		return 0, fmt.Errorf("not a hex char: %q", c)
	}
}
