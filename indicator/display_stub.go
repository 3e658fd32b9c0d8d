//go:build !screen

package indicator

// Display is a stub when screen support is not compiled in.
type Display struct{}

// NewDisplay returns an error when screen support is not compiled in.
func NewDisplay(device string) (*Display, error) {
	return nil, ErrScreenNotCompiled
}

func (d *Display) Idle()                {}
func (d *Display) Playing(title string) {}
func (d *Display) Stopped()             {}
func (d *Display) Unknown(text string)  {}
func (d *Display) Shutdown()            {}
func (d *Display) Release() error       { return nil }
