package indicator

import (
	"fmt"
	"io"
	"os"
)

// Neopixel command strings for the external neopixel tool.
const (
	neoIdle     = "@3 !150000 400000"
	neoPlaying  = "@1 !50000 8000"
	neoStopped  = "@3 !150000 101000"
	neoUnknown  = "@2 !10000 ff"
	neoShutdown = "@0 010101"
)

// Neopixel implements Indicator using an external neopixel tool via named pipe.
type Neopixel struct {
	pipe io.WriteCloser
}

// NewNeopixel creates a new Neopixel indicator.
func NewNeopixel(pipePath string) (*Neopixel, error) {
	f, err := os.OpenFile(pipePath, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open neopixel pipe %s: %w", pipePath, err)
	}
	return &Neopixel{pipe: f}, nil
}

// Idle implements Indicator.Idle.
func (n *Neopixel) Idle() {
	n.write(neoIdle)
}

// Playing implements Indicator.Playing.
func (n *Neopixel) Playing(title string) {
	n.write(neoPlaying)
}

// Stopped implements Indicator.Stopped.
func (n *Neopixel) Stopped() {
	n.write(neoStopped)
}

// Unknown implements Indicator.Unknown.
func (n *Neopixel) Unknown(text string) {
	n.write(neoUnknown)
}

// Shutdown implements Indicator.Shutdown.
func (n *Neopixel) Shutdown() {
	n.write(neoShutdown)
}

// Release implements Indicator.Release.
func (n *Neopixel) Release() error {
	if n.pipe == nil {
		return nil
	}
	err := n.pipe.Close()
	n.pipe = nil
	return err
}

func (n *Neopixel) write(s string) {
	if n.pipe != nil {
		io.WriteString(n.pipe, s+"\n")
	}
}
