package indicator

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type bufPipe struct {
	bytes.Buffer
	closed bool
}

func (b *bufPipe) Close() error {
	b.closed = true
	return nil
}

func TestNeopixelWritesCommands(t *testing.T) {
	pipe := &bufPipe{}
	n := &Neopixel{pipe: pipe}

	n.Idle()
	n.Playing("Kids Mix")
	n.Stopped()
	n.Unknown("SQ:9")
	n.Shutdown()

	want := strings.Join([]string{neoIdle, neoPlaying, neoStopped, neoUnknown, neoShutdown}, "\n") + "\n"
	if pipe.String() != want {
		t.Errorf("got %q, want %q", pipe.String(), want)
	}

	if err := n.Release(); err != nil || !pipe.closed {
		t.Fatalf("Release: %v (closed=%v)", err, pipe.closed)
	}
	n.Playing("Bedtime")
	if err := n.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

type recorder struct {
	calls []string
	err   error
}

func (r *recorder) Idle()     { r.calls = append(r.calls, "idle") }
func (r *recorder) Stopped()  { r.calls = append(r.calls, "stopped") }
func (r *recorder) Shutdown() { r.calls = append(r.calls, "shutdown") }

func (r *recorder) Playing(title string) {
	r.calls = append(r.calls, "playing:"+title)
}

func (r *recorder) Unknown(text string) {
	r.calls = append(r.calls, "unknown:"+text)
}

func (r *recorder) Release() error {
	r.calls = append(r.calls, "release")
	return r.err
}

func TestMultiFansOut(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("pipe gone")}
	m := NewMulti(a, b)

	m.Idle()
	m.Playing("Bedtime")
	m.Stopped()
	m.Unknown("SQ:9")
	m.Shutdown()
	if err := m.Release(); err == nil {
		t.Error("Release error from member was dropped")
	}

	want := "idle playing:Bedtime stopped unknown:SQ:9 shutdown release"
	for i, r := range []*recorder{a, b} {
		if got := strings.Join(r.calls, " "); got != want {
			t.Errorf("indicator %d: got %q, want %q", i, got, want)
		}
	}
}

func TestNewWithoutConfigIsNoop(t *testing.T) {
	ind, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := ind.(*Noop); !ok {
		t.Fatalf("got %T, want *Noop", ind)
	}
	ind.Playing("Bedtime")
	if err := ind.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestFitText(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{in: "Kids Mix", max: 24, want: "Kids Mix"},
		{in: "Abcdefgh", max: 8, want: "Abcdefgh"},
		{in: "Abcdefghi", max: 8, want: "Abcdefg…"},
		{in: "Über Größe", max: 5, want: "Über…"},
		{in: "abc", max: 1, want: "a"},
	}

	for _, tt := range tests {
		if got := fitText(tt.in, tt.max); got != tt.want {
			t.Errorf("fitText(%q, %d): got %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestRGB565(t *testing.T) {
	tests := []struct {
		r, g, b uint32
		want    uint16
	}{
		{0, 0, 0, 0x0000},
		{0xffff, 0xffff, 0xffff, 0xffff},
		{0xffff, 0, 0, 0xf800},
		{0, 0xffff, 0, 0x07e0},
		{0, 0, 0xffff, 0x001f},
	}

	for _, tt := range tests {
		if got := rgb565(tt.r, tt.g, tt.b); got != tt.want {
			t.Errorf("rgb565(%#x, %#x, %#x): got %#04x, want %#04x", tt.r, tt.g, tt.b, got, tt.want)
		}
	}
}

// overlapDetector fails if two calls are ever in flight at once.
type overlapDetector struct {
	active  atomic.Int32
	overlap atomic.Bool
	calls   atomic.Int32
}

func (o *overlapDetector) enter() {
	if o.active.Add(1) > 1 {
		o.overlap.Store(true)
	}
	o.calls.Add(1)
	time.Sleep(50 * time.Microsecond)
	o.active.Add(-1)
}

func (o *overlapDetector) Idle()          { o.enter() }
func (o *overlapDetector) Playing(string) { o.enter() }
func (o *overlapDetector) Stopped()       { o.enter() }
func (o *overlapDetector) Unknown(string) { o.enter() }
func (o *overlapDetector) Shutdown()      { o.enter() }
func (o *overlapDetector) Release() error { o.enter(); return nil }

func TestLockedSerializesCalls(t *testing.T) {
	det := &overlapDetector{}
	ind := Locked(det)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if g%2 == 0 {
					ind.Playing("Kids Mix")
					ind.Unknown("SQ:9")
				} else {
					ind.Stopped()
					ind.Idle()
				}
			}
		}(g)
	}
	wg.Wait()

	if det.overlap.Load() {
		t.Fatal("indicator calls overlapped")
	}
	if n := det.calls.Load(); n != 400 {
		t.Errorf("got %d calls, want 400", n)
	}
	if Locked(ind) != ind {
		t.Error("Locked should not wrap twice")
	}
}
