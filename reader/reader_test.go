package reader

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func serialFrame(tag uint32) []byte {
	buf := []byte{0x02, 0x09, 0x00, byte(tag >> 24), byte(tag >> 16), byte(tag >> 8), byte(tag), 0x00, 0x03}
	xor := buf[1]
	for _, b := range buf[2:7] {
		xor ^= b
	}
	buf[7] = xor
	return buf
}

func TestDecodeSerialFrame(t *testing.T) {
	good := serialFrame(0x00ab12cd)

	badChecksum := serialFrame(0x00ab12cd)
	badChecksum[7] ^= 0xff

	badPreamble := serialFrame(0x00ab12cd)
	badPreamble[0] = 0x05

	badTerminator := serialFrame(0x00ab12cd)
	badTerminator[8] = 0x00

	tests := []struct {
		name   string
		frame  []byte
		wantID uint64
		wantOK bool
	}{
		{name: "valid frame", frame: good, wantID: 0x00ab12cd, wantOK: true},
		{name: "checksum mismatch", frame: badChecksum},
		{name: "bad preamble", frame: badPreamble},
		{name: "bad terminator", frame: badTerminator},
		{name: "short frame", frame: good[:5]},
		{name: "zero tag", frame: serialFrame(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := decodeSerialFrame(tt.frame)
			if ok != tt.wantOK || id != tt.wantID {
				t.Errorf("got (%d, %v), want (%d, %v)", id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestParseWiegandID(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    uint64
		wantErr bool
	}{
		{name: "full length", body: "0012ABCDEF", want: 0xABCDEF},
		{name: "short body is zero padded", body: "1F2E3D", want: 0x1F2E3D},
		{name: "lower case hex", body: "00000a0b0c", want: 0x0a0b0c},
		{name: "empty", body: "", wantErr: true},
		{name: "not hex", body: "00ZZ112233", wantErr: true},
		{name: "too long", body: "00112233445566", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWiegandID(tt.body)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestKeyboardFormat(t *testing.T) {
	tests := []struct {
		format     string
		wantDigits int
		wantHex    bool
	}{
		{format: "", wantDigits: 10, wantHex: true},
		{format: "10H", wantDigits: 10, wantHex: true},
		{format: "8d", wantDigits: 8, wantHex: false},
		{format: "6", wantDigits: 6, wantHex: true},
	}

	for _, tt := range tests {
		digits, isHex, _ := parseKeyboardFormat(tt.format)
		if digits != tt.wantDigits || isHex != tt.wantHex {
			t.Errorf("format %q: got (%d, %v), want (%d, %v)", tt.format, digits, isHex, tt.wantDigits, tt.wantHex)
		}
	}
}

func TestKeyboardParseBadge(t *testing.T) {
	hex := &Keyboard{numDigits: 10, isHex: true}
	if got, err := hex.parseBadge("00FFAABBCC"); err != nil || got != 0xFFAABBCC {
		t.Errorf("hex badge: got (%#x, %v)", got, err)
	}
	if _, err := hex.parseBadge("FFAABBCC"); err == nil {
		t.Error("expected digit count error")
	}

	dec := &Keyboard{isHex: false}
	if got, err := dec.parseBadge("0001234567"); err != nil || got != 1234567 {
		t.Errorf("decimal badge: got (%d, %v)", got, err)
	}
	if _, err := dec.parseBadge("12AB"); err == nil {
		t.Error("expected parse error for hex digits in decimal mode")
	}
}

func TestUIDToNumber(t *testing.T) {
	if got := uidToNumber([]byte{0x01, 0x02, 0x03, 0x04}); got != 0x01020304 {
		t.Errorf("4 byte uid: got %#x", got)
	}
	if got := uidToNumber([]byte{0x88, 0x04, 0x51, 0x2a, 0xf7}); got != 0x8804512af7 {
		t.Errorf("5 byte uid: got %#x", got)
	}
	if got := uidToNumber(nil); got != 0 {
		t.Errorf("empty uid: got %#x", got)
	}
}

func TestDecodeCardText(t *testing.T) {
	block := func(s string) []byte {
		b := make([]byte, 16)
		copy(b, s)
		return b
	}

	got := decodeCardText([][]byte{block("SQ:77"), block(""), block("")})
	if got != "SQ:77" {
		t.Errorf("got %q, want %q", got, "SQ:77")
	}

	spaced := decodeCardText([][]byte{[]byte("STOP            "), []byte("                "), []byte("                ")})
	if len(spaced) != 48 {
		t.Errorf("space padding should be kept for the caller to trim, got %d bytes", len(spaced))
	}
}

func TestParseCardLine(t *testing.T) {
	tests := []struct {
		line    string
		want    Card
		wantErr bool
	}{
		{line: "card 42 STOP", want: Card{ID: 42, Text: "STOP"}},
		{line: "rfid 42 SQ:7", want: Card{ID: 42, Text: "SQ:7"}},
		{line: "tag 0xff", wantErr: true},
		{line: "tag ff Kids Mix", want: Card{ID: 0xff, Text: "Kids Mix"}},
		{line: "card 7", want: Card{ID: 7}},
		{line: "card 7  padded ", want: Card{ID: 7, Text: " padded "}},
		{line: "card", wantErr: true},
		{line: "rotary 1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseCardLine(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFifoReadsCards(t *testing.T) {
	pr, pw := io.Pipe()
	f := newFifo("test", pr)
	defer f.Close()

	go func() {
		io.WriteString(pw, "# bench cards\n\ngarbage\ncard 1 STOP\ncard 2 SQ:3\n")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, want := range []Card{{ID: 1, Text: "STOP"}, {ID: 2, Text: "SQ:3"}} {
		got, err := f.Read(ctx)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if got != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	}
}

func TestFifoReadHonorsContext(t *testing.T) {
	pr, _ := io.Pipe()
	f := newFifo("test", pr)
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Read(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestFifoClose(t *testing.T) {
	pr, _ := io.Pipe()
	f := newFifo("test", pr)

	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := f.Read(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("got %v, want ErrClosed", err)
	}
}

type countingPipe struct {
	io.Reader
	closes atomic.Int32
}

func (c *countingPipe) Close() error {
	c.closes.Add(1)
	return nil
}

func TestFifoCloseRightAfterStart(t *testing.T) {
	for i := 0; i < 200; i++ {
		pr, pw := io.Pipe()
		src := &countingPipe{Reader: pr}
		f := newFifo("test", src)

		if err := f.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		pw.Close()
		f.Close()

		if n := src.closes.Load(); n != 1 {
			t.Fatalf("source closed %d times, want 1", n)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := f.Read(ctx)
		cancel()
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("got %v, want ErrClosed", err)
		}
	}
}

func TestNewFifoCreatesPipe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards")

	f, err := NewFifo(path)
	if err != nil {
		t.Fatalf("NewFifo: %v", err)
	}
	defer f.Close()

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Mode()&os.ModeNamedPipe == 0 {
		t.Fatalf("%s is not a named pipe", path)
	}

	w, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer w.Close()
	if _, err := w.WriteString("card 99 STOP\n"); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := f.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != (Card{ID: 99, Text: "STOP"}) {
		t.Errorf("got %+v", got)
	}
}

func TestNewFifoRejectsRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFifo(path); err == nil {
		t.Fatal("expected error for regular file")
	}
}

func TestNewUnknownType(t *testing.T) {
	if _, err := New(Config{Type: "telepathy"}); err == nil {
		t.Fatal("expected error for unknown reader type")
	}
}
