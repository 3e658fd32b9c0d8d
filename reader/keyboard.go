package reader

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/kenshaw/evdev"
)

// Keyboard implements TagReader for USB keyboard-style RFID readers
// that type the card number followed by Enter.
type Keyboard struct {
	device    *evdev.Evdev
	events    <-chan *evdev.EventEnvelope
	stop      context.CancelFunc
	numDigits int  // expected number of digits (0 = any)
	isHex     bool // true for hex input, false for decimal
	format    string
}

// NewKeyboard creates a new keyboard reader on the specified input device.
// Format is "10h" (10 hex digits), "10d" (10 decimal), "8h", "8d" and so on.
// An empty format means "10h".
func NewKeyboard(device string, format string) (*Keyboard, error) {
	numDigits, isHex, format := parseKeyboardFormat(format)

	dev, err := evdev.OpenFile(device)
	if err != nil {
		return nil, fmt.Errorf("open evdev %s: %w", device, err)
	}

	log.Printf("Opened keyboard device: %s", dev.Name())
	log.Printf("Vendor: 0x%04x, Product: 0x%04x", dev.ID().Vendor, dev.ID().Product)

	base := "hex"
	if !isHex {
		base = "decimal"
	}
	log.Printf("Keyboard reader format: %s (%d %s digits)", format, numDigits, base)

	pollCtx, stop := context.WithCancel(context.Background())
	return &Keyboard{
		device:    dev,
		events:    dev.Poll(pollCtx),
		stop:      stop,
		numDigits: numDigits,
		isHex:     isHex,
		format:    format,
	}, nil
}

func parseKeyboardFormat(format string) (numDigits int, isHex bool, normalized string) {
	if format == "" {
		format = "10h"
	}
	format = strings.ToLower(format)

	switch {
	case strings.HasSuffix(format, "h"):
		numDigits, _ = strconv.Atoi(strings.TrimSuffix(format, "h"))
		return numDigits, true, format
	case strings.HasSuffix(format, "d"):
		numDigits, _ = strconv.Atoi(strings.TrimSuffix(format, "d"))
		return numDigits, false, format
	default:
		numDigits, _ = strconv.Atoi(format)
		return numDigits, true, format
	}
}

// parseBadge turns a typed line into a card number.
func (k *Keyboard) parseBadge(line string) (uint64, error) {
	if k.numDigits > 0 && len(line) != k.numDigits {
		return 0, fmt.Errorf("expected %d digits, got %d (%q)", k.numDigits, len(line), line)
	}

	base := 10
	if k.isHex {
		base = 16
	}
	number, err := strconv.ParseUint(line, base, 64)
	if err != nil {
		return 0, fmt.Errorf("bad badge line %q (base %d): %w", line, base, err)
	}
	return number & 0xffffffff, nil
}

// Read implements TagReader.Read for keyboard readers.
func (k *Keyboard) Read(ctx context.Context) (Card, error) {
	var strbuf string

	for {
		select {
		case <-ctx.Done():
			return Card{}, ctx.Err()
		case event := <-k.events:
			if event == nil {
				return Card{}, ErrClosed
			}

			switch event.Type.(type) {
			case evdev.KeyType:
				if event.Value != 1 {
					continue
				}

				if event.Type == evdev.KeyEnter {
					if strbuf == "" {
						continue
					}
					number, err := k.parseBadge(strbuf)
					strbuf = ""
					if err != nil {
						log.Printf("Bad badge: %v", err)
						continue
					}
					return Card{ID: number}, nil
				}

				strbuf += evdev.KeyType(event.Code).String()
			}
		}
	}
}

// Close implements TagReader.Close.
func (k *Keyboard) Close() error {
	if k.device == nil {
		return nil
	}
	k.stop()
	err := k.device.Close()
	k.device = nil
	return err
}
