//go:build linux

package rotary

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Rotary handles a rotary encoder with an optional push button.
type Rotary struct {
	dtLine  *gpiocdev.Line
	clkLine *gpiocdev.Line
	btnLine *gpiocdev.Line
	lastDT  atomic.Int32
	pos     atomic.Int64
	onTurn  func(delta int)
	onPress func()
}

// New creates a new rotary encoder handler.
// Returns nil if config has no pins specified.
func New(cfg Config, handlers Handlers) (*Rotary, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}

	debounceRotary := 250 * time.Microsecond
	debounceButton := 2 * time.Millisecond

	r := &Rotary{
		onTurn:  handlers.OnTurn,
		onPress: handlers.OnPress,
	}

	var err error

	r.dtLine, err = gpiocdev.RequestLine(cfg.Chip, cfg.DTPin,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(debounceRotary),
		gpiocdev.WithEventHandler(r.handleEvent))
	if err != nil {
		return nil, err
	}

	r.clkLine, err = gpiocdev.RequestLine(cfg.Chip, cfg.CLKPin,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(debounceRotary),
		gpiocdev.WithEventHandler(r.handleEvent))
	if err != nil {
		r.dtLine.Close()
		return nil, err
	}

	if cfg.ButtonPin > 0 {
		r.btnLine, err = gpiocdev.RequestLine(cfg.Chip, cfg.ButtonPin,
			gpiocdev.WithPullUp,
			gpiocdev.WithFallingEdge,
			gpiocdev.WithDebounce(debounceButton),
			gpiocdev.WithEventHandler(r.handleButton))
		if err != nil {
			r.dtLine.Close()
			r.clkLine.Close()
			return nil, err
		}
	}

	log.Printf("Rotary encoder on %s (clk %d, dt %d)", cfg.Chip, cfg.CLKPin, cfg.DTPin)
	return r, nil
}

func (r *Rotary) handleEvent(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventRisingEdge && evt.Type != gpiocdev.LineEventFallingEdge {
		return
	}

	if evt.Offset == r.dtLine.Offset() {
		var level int32
		if evt.Type == gpiocdev.LineEventRisingEdge {
			level = 1
		}
		r.lastDT.Store(level)
		return
	}

	// Decode direction on CLK rising edge
	if evt.Offset == r.clkLine.Offset() && evt.Type == gpiocdev.LineEventRisingEdge {
		delta := direction(int(r.lastDT.Load()))
		r.pos.Add(int64(delta))
		if r.onTurn != nil {
			r.onTurn(delta)
		}
	}
}

func (r *Rotary) handleButton(evt gpiocdev.LineEvent) {
	if r.onPress != nil {
		r.onPress()
	}
}

// Position returns the current encoder position.
func (r *Rotary) Position() int64 {
	return r.pos.Load()
}

// Release releases GPIO resources.
func (r *Rotary) Release() error {
	if r.dtLine != nil {
		r.dtLine.Close()
	}
	if r.clkLine != nil {
		r.clkLine.Close()
	}
	if r.btnLine != nil {
		r.btnLine.Close()
	}
	return nil
}
