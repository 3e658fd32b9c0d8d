package indicator

import "sync"

// Locked serializes calls to ind. Implementations drive shared hardware
// state and are not safe for concurrent use; the card loop and the rotary
// event handler both update the indicator.
func Locked(ind Indicator) Indicator {
	if l, ok := ind.(*locked); ok {
		return l
	}
	return &locked{ind: ind}
}

type locked struct {
	mu  sync.Mutex
	ind Indicator
}

func (l *locked) Idle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ind.Idle()
}

func (l *locked) Playing(title string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ind.Playing(title)
}

func (l *locked) Stopped() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ind.Stopped()
}

func (l *locked) Unknown(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ind.Unknown(text)
}

func (l *locked) Shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ind.Shutdown()
}

func (l *locked) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ind.Release()
}
