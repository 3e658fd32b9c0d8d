package indicator

import (
	"fmt"

	"github.com/hjkoskel/govattu"
)

// GPIO implements Indicator using discrete GPIO LED pins.
type GPIO struct {
	hw        govattu.Vattu
	greenPin  *uint8
	yellowPin *uint8
	redPin    *uint8
}

// NewGPIO creates a new GPIO-based indicator.
func NewGPIO(greenPin, yellowPin, redPin *uint8) (*GPIO, error) {
	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	g := &GPIO{
		hw:        hw,
		greenPin:  greenPin,
		yellowPin: yellowPin,
		redPin:    redPin,
	}

	for _, pin := range g.pins() {
		hw.PinMode(*pin, govattu.ALToutput)
		hw.PinClear(*pin)
	}

	return g, nil
}

func (g *GPIO) pins() []*uint8 {
	var pins []*uint8
	for _, p := range []*uint8{g.greenPin, g.yellowPin, g.redPin} {
		if p != nil {
			pins = append(pins, p)
		}
	}
	return pins
}

// Idle implements Indicator.Idle.
func (g *GPIO) Idle() {
	g.only(g.yellowPin)
}

// Playing implements Indicator.Playing.
func (g *GPIO) Playing(title string) {
	g.only(g.greenPin)
}

// Stopped implements Indicator.Stopped.
func (g *GPIO) Stopped() {
	g.only(g.yellowPin)
}

// Unknown implements Indicator.Unknown.
func (g *GPIO) Unknown(text string) {
	g.only(g.redPin)
}

// Shutdown implements Indicator.Shutdown.
func (g *GPIO) Shutdown() {
	g.allOff()
}

// Release implements Indicator.Release.
func (g *GPIO) Release() error {
	g.allOff()
	return g.hw.Close()
}

func (g *GPIO) only(pin *uint8) {
	g.allOff()
	if pin != nil {
		g.hw.PinSet(*pin)
	}
}

func (g *GPIO) allOff() {
	for _, pin := range g.pins() {
		g.hw.PinClear(*pin)
	}
}
