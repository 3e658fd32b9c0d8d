package reader

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned by Read after the reader has been closed.
var ErrClosed = errors.New("reader closed")

// Card is the result of a single card read.
type Card struct {
	// ID identifies the physical card.
	ID uint64
	// Text is the payload written on the card. Readers that only report
	// an ID leave it empty.
	Text string
}

// TagReader is the interface for all tag/card reader implementations.
type TagReader interface {
	// Read blocks until a card is presented or ctx is cancelled.
	Read(ctx context.Context) (Card, error)

	// Close releases the hardware held by the reader. It is safe to call
	// more than once.
	Close() error
}

// Config holds common configuration for reader implementations.
type Config struct {
	Type   string `yaml:"type"`   // "mfrc522", "serial", "wiegand", "keyboard", "fifo"
	Device string `yaml:"device"` // e.g. "/dev/serial0", "/dev/input/event0", "/run/sonosctl/cards"
	Baud   int    `yaml:"baud"`   // baud rate for wiegand readers
	Format string `yaml:"format"` // keyboard digit format, e.g. "10h", "10d"

	// MFRC522 wiring
	SPIPort  string `yaml:"spi_port"`  // "" selects the first SPI port
	ResetPin string `yaml:"reset_pin"` // e.g. "GPIO25"
	IRQPin   string `yaml:"irq_pin"`   // e.g. "GPIO24"
}

// New creates a TagReader based on the provided configuration.
func New(cfg Config) (TagReader, error) {
	switch cfg.Type {
	case "mfrc522", "":
		return NewMFRC522(cfg.SPIPort, cfg.ResetPin, cfg.IRQPin)
	case "serial":
		return NewSerial(cfg.Device)
	case "wiegand":
		return NewWiegand(cfg.Device, cfg.Baud)
	case "keyboard", "10h-kbd":
		return NewKeyboard(cfg.Device, cfg.Format)
	case "fifo":
		return NewFifo(cfg.Device)
	default:
		return nil, fmt.Errorf("unknown reader type %q", cfg.Type)
	}
}
