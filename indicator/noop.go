package indicator

// Noop implements Indicator but does nothing.
// Used when no indicators are configured.
type Noop struct{}

func (n *Noop) Idle()          {}
func (n *Noop) Playing(string) {}
func (n *Noop) Stopped()       {}
func (n *Noop) Unknown(string) {}
func (n *Noop) Shutdown()      {}
func (n *Noop) Release() error { return nil }
