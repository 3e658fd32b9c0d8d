package rotary

// DefaultVolumeStep is the volume change per detent when none is configured.
const DefaultVolumeStep = 2

// Config holds configuration for a rotary encoder.
type Config struct {
	Chip       string `yaml:"chip"`
	CLKPin     int    `yaml:"clk_pin"`
	DTPin      int    `yaml:"dt_pin"`
	ButtonPin  int    `yaml:"button_pin"`
	VolumeStep int    `yaml:"volume_step"`
}

// Handlers holds callback functions for rotary events.
type Handlers struct {
	OnTurn  func(delta int) // +1 (CW) or -1 (CCW)
	OnPress func()
}

// Enabled reports whether any encoder pins are configured.
func (c Config) Enabled() bool {
	return c.CLKPin != 0 || c.DTPin != 0
}

// Step returns the volume adjustment for one detent in direction delta.
func (c Config) Step(delta int) int {
	step := c.VolumeStep
	if step <= 0 {
		step = DefaultVolumeStep
	}
	return step * delta
}

// direction decodes the DT level sampled on a CLK rising edge.
func direction(dt int) int {
	if dt == 0 {
		return 1
	}
	return -1
}
