package indicator

// Multi combines multiple Indicator implementations.
type Multi struct {
	indicators []Indicator
}

// NewMulti returns an Indicator fanning out to all of indicators.
func NewMulti(indicators ...Indicator) *Multi {
	return &Multi{indicators: indicators}
}

// Idle implements Indicator.Idle.
func (m *Multi) Idle() {
	for _, ind := range m.indicators {
		ind.Idle()
	}
}

// Playing implements Indicator.Playing.
func (m *Multi) Playing(title string) {
	for _, ind := range m.indicators {
		ind.Playing(title)
	}
}

// Stopped implements Indicator.Stopped.
func (m *Multi) Stopped() {
	for _, ind := range m.indicators {
		ind.Stopped()
	}
}

// Unknown implements Indicator.Unknown.
func (m *Multi) Unknown(text string) {
	for _, ind := range m.indicators {
		ind.Unknown(text)
	}
}

// Shutdown implements Indicator.Shutdown.
func (m *Multi) Shutdown() {
	for _, ind := range m.indicators {
		ind.Shutdown()
	}
}

// Release implements Indicator.Release.
func (m *Multi) Release() error {
	var lastErr error
	for _, ind := range m.indicators {
		if err := ind.Release(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
