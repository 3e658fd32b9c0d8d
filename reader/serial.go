package reader

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/tarm/serial"
)

const serialFrameLen = 9

var (
	serialPreamble   = []byte{0x02, 0x09}
	serialTerminator = byte(0x03)
)

// Serial implements TagReader for serial RFID readers using a fixed frame.
// Protocol: [0x02][0x09][data x5][checksum][0x03]
type Serial struct {
	port   *serial.Port
	device string
}

// NewSerial creates a new serial RFID reader.
func NewSerial(device string) (*Serial, error) {
	c := &serial.Config{
		Name:        device,
		Baud:        115200,
		ReadTimeout: time.Second,
	}
	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}

	return &Serial{port: port, device: device}, nil
}

// Read implements TagReader.Read for serial readers.
func (s *Serial) Read(ctx context.Context) (Card, error) {
	buff := make([]byte, serialFrameLen)
	for {
		select {
		case <-ctx.Done():
			return Card{}, ctx.Err()
		default:
		}
		if s.port == nil {
			return Card{}, ErrClosed
		}

		n, err := s.port.Read(buff)
		if err == nil && n == serialFrameLen {
			if tag, ok := decodeSerialFrame(buff); ok {
				return Card{ID: tag}, nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// decodeSerialFrame validates framing and checksum and extracts the tag number.
func decodeSerialFrame(buff []byte) (uint64, bool) {
	if len(buff) != serialFrameLen {
		return 0, false
	}
	if !bytes.Equal(buff[0:2], serialPreamble) {
		return 0, false
	}
	if buff[8] != serialTerminator {
		return 0, false
	}

	data := buff[1:7]
	xor := data[0]
	for i := 1; i < len(data); i++ {
		xor ^= data[i]
	}
	if xor != buff[7] {
		return 0, false
	}

	tagno := (uint64(data[2]) << 24) | (uint64(data[3]) << 16) | (uint64(data[4]) << 8) | uint64(data[5])
	if tagno == 0 {
		return 0, false
	}
	return tagno, true
}

// Close implements TagReader.Close.
func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}
