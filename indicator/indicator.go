package indicator

// Indicator is the interface for status indicator implementations (LEDs,
// neopixels, framebuffer display).
type Indicator interface {
	// Idle shows that the controller is ready and nothing is playing.
	Idle()

	// Playing shows that the playlist titled title started playback.
	Playing(title string)

	// Stopped shows that a STOP card stopped playback.
	Stopped()

	// Unknown shows that the card text names no playlist.
	Unknown(text string)

	// Shutdown shows that the controller is exiting.
	Shutdown()

	// Release releases any hardware resources.
	Release() error
}

// Config holds configuration for indicator implementations.
type Config struct {
	// GPIO LED pins (nil = not configured)
	GreenPin  *uint8 `yaml:"green_pin"`  // playing
	YellowPin *uint8 `yaml:"yellow_pin"` // idle / stopped
	RedPin    *uint8 `yaml:"red_pin"`    // unknown card

	// Neopixel pipe path (empty = not configured)
	NeopixelPipe string `yaml:"neopixel_pipe"`

	// Framebuffer "now playing" display (needs -tags=screen)
	Display     bool   `yaml:"display"`
	Framebuffer string `yaml:"framebuffer"`
}

// New creates an Indicator based on the provided configuration.
// Returns a Multi indicator if more than one kind is configured. Anything
// but Noop comes wrapped in Locked.
func New(cfg Config) (Indicator, error) {
	var indicators []Indicator

	if cfg.GreenPin != nil || cfg.YellowPin != nil || cfg.RedPin != nil {
		gpio, err := NewGPIO(cfg.GreenPin, cfg.YellowPin, cfg.RedPin)
		if err != nil {
			return nil, err
		}
		indicators = append(indicators, gpio)
	}

	if cfg.NeopixelPipe != "" {
		neo, err := NewNeopixel(cfg.NeopixelPipe)
		if err != nil {
			for _, ind := range indicators {
				ind.Release()
			}
			return nil, err
		}
		indicators = append(indicators, neo)
	}

	if cfg.Display {
		disp, err := NewDisplay(cfg.Framebuffer)
		if err != nil {
			for _, ind := range indicators {
				ind.Release()
			}
			return nil, err
		}
		indicators = append(indicators, disp)
	}

	if len(indicators) == 0 {
		return &Noop{}, nil
	}
	if len(indicators) == 1 {
		return Locked(indicators[0]), nil
	}
	return Locked(&Multi{indicators: indicators}), nil
}
