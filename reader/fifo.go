package reader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
)

// Fifo implements TagReader on a named pipe, for benches without reader
// hardware. Each line presents one card:
//
//	card <id> [text...]    - card with id (decimal, or hex) and payload
//	rfid <id> [text...]    - alias for card
//	tag <id> [text...]     - alias for card
//	# comment
type Fifo struct {
	path      string
	src       io.ReadCloser
	lines     chan string
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewFifo creates the named pipe at path if needed and starts reading it.
func NewFifo(path string) (*Fifo, error) {
	if path == "" {
		return nil, errors.New("fifo reader needs a device path")
	}

	fi, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := syscall.Mkfifo(path, 0660); err != nil {
			return nil, fmt.Errorf("create named pipe %s: %w", path, err)
		}
	case err != nil:
		return nil, fmt.Errorf("stat %s: %w", path, err)
	case fi.Mode()&os.ModeNamedPipe == 0:
		return nil, fmt.Errorf("%s is not a named pipe", path)
	}

	// Opening read-write keeps the pipe from reporting EOF between writers.
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open named pipe %s: %w", path, err)
	}

	f := newFifo(path, file)
	log.Printf("Card pipe listening on %s", path)
	return f, nil
}

func newFifo(path string, src io.ReadCloser) *Fifo {
	f := &Fifo{
		path:  path,
		src:   src,
		lines: make(chan string),
		done:  make(chan struct{}),
	}
	go f.scan(src)
	return f
}

func (f *Fifo) scan(src io.Reader) {
	defer close(f.lines)
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		select {
		case f.lines <- scanner.Text():
		case <-f.done:
			return
		}
	}
}

// Read implements TagReader.Read.
func (f *Fifo) Read(ctx context.Context) (Card, error) {
	for {
		select {
		case <-ctx.Done():
			return Card{}, ctx.Err()
		case line, ok := <-f.lines:
			if !ok {
				return Card{}, ErrClosed
			}
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			card, err := parseCardLine(line)
			if err != nil {
				log.Printf("Card pipe parse error: %v", err)
				continue
			}
			return card, nil
		}
	}
}

// parseCardLine parses a single pipe command into a Card. The payload is
// everything after the id, kept verbatim.
func parseCardLine(line string) (Card, error) {
	cmd, rest, _ := strings.Cut(line, " ")
	switch strings.ToLower(cmd) {
	case "card", "rfid", "tag":
	default:
		return Card{}, fmt.Errorf("unknown command: %s", cmd)
	}

	rest = strings.TrimLeft(rest, " \t")
	idStr, text, _ := strings.Cut(rest, " ")
	if idStr == "" {
		return Card{}, fmt.Errorf("%s requires a card id", cmd)
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		id, err = strconv.ParseUint(idStr, 16, 64)
		if err != nil {
			return Card{}, fmt.Errorf("invalid card id: %s", idStr)
		}
	}
	return Card{ID: id, Text: text}, nil
}

// Close implements TagReader.Close. The pipe itself is left in place.
func (f *Fifo) Close() error {
	f.closeOnce.Do(func() {
		close(f.done)
		f.closeErr = f.src.Close()
	})
	return f.closeErr
}
