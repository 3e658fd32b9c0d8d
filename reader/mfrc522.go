package reader

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/mfrc522"
	"periph.io/x/devices/v3/mfrc522/commands"
	"periph.io/x/host/v3"
)

// Card text lives in sector 2, blocks 0-2 (absolute blocks 8, 9 and 10),
// the layout written by the usual SimpleMFRC522 tooling.
const (
	textSector      = 2
	textBlocks      = 3
	mfrcPollTimeout = 500 * time.Millisecond
	defaultResetPin = "GPIO25"
	defaultIRQPin   = "GPIO24"
)

// MFRC522 implements TagReader for an MFRC522 module on the SPI bus.
type MFRC522 struct {
	port spi.PortCloser
	dev  *mfrc522.Dev
	key  mfrc522.Key
}

// NewMFRC522 initializes the host drivers and opens the reader. Empty
// arguments select the first SPI port and the standard reset/IRQ pins.
func NewMFRC522(spiPort, resetPin, irqPin string) (*MFRC522, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}
	if resetPin == "" {
		resetPin = defaultResetPin
	}
	if irqPin == "" {
		irqPin = defaultIRQPin
	}

	rst := gpioreg.ByName(resetPin)
	if rst == nil {
		return nil, fmt.Errorf("unknown reset pin %q", resetPin)
	}
	irq := gpioreg.ByName(irqPin)
	if irq == nil {
		return nil, fmt.Errorf("unknown irq pin %q", irqPin)
	}

	port, err := spireg.Open(spiPort)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", spiPort, err)
	}

	dev, err := mfrc522.NewSPI(port, rst, irq)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("init mfrc522: %w", err)
	}
	log.Printf("MFRC522 reader ready on SPI %q", spiPort)

	return &MFRC522{port: port, dev: dev, key: mfrc522.DefaultKey}, nil
}

// Read implements TagReader.Read. It polls until a card with readable
// text is on the antenna.
func (r *MFRC522) Read(ctx context.Context) (Card, error) {
	for {
		select {
		case <-ctx.Done():
			return Card{}, ctx.Err()
		default:
		}
		if r.dev == nil {
			return Card{}, ErrClosed
		}

		// An error here is the poll timing out with no card present.
		uid, err := r.dev.ReadUID(mfrcPollTimeout)
		if err != nil || len(uid) == 0 {
			continue
		}

		text, err := r.readText()
		if err != nil {
			log.Printf("Card %x: %v", uid, err)
			continue
		}
		return Card{ID: uidToNumber(uid), Text: text}, nil
	}
}

func (r *MFRC522) readText() (string, error) {
	blocks := make([][]byte, 0, textBlocks)
	for b := 0; b < textBlocks; b++ {
		data, err := r.dev.ReadCard(mfrcPollTimeout, commands.PICC_AUTHENT1A, textSector, b, r.key)
		if err != nil {
			return "", fmt.Errorf("read sector %d block %d: %w", textSector, b, err)
		}
		blocks = append(blocks, data)
	}
	return decodeCardText(blocks), nil
}

// uidToNumber folds the UID bytes, most significant first, into a card id.
func uidToNumber(uid []byte) uint64 {
	var n uint64
	for i, b := range uid {
		if i == 8 {
			break
		}
		n = n<<8 | uint64(b)
	}
	return n
}

// decodeCardText joins the data blocks and drops NUL padding.
func decodeCardText(blocks [][]byte) string {
	text := bytes.Join(blocks, nil)
	if i := bytes.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}
	return string(text)
}

// Close halts the card and releases the SPI port.
func (r *MFRC522) Close() error {
	if r.dev == nil {
		return nil
	}
	if err := r.dev.Halt(); err != nil {
		log.Printf("MFRC522 halt: %v", err)
	}
	r.dev = nil
	return r.port.Close()
}
