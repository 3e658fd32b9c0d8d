package rotary

import "testing"

func TestStep(t *testing.T) {
	tests := []struct {
		cfg   Config
		delta int
		want  int
	}{
		{cfg: Config{}, delta: 1, want: DefaultVolumeStep},
		{cfg: Config{}, delta: -1, want: -DefaultVolumeStep},
		{cfg: Config{VolumeStep: 5}, delta: -1, want: -5},
		{cfg: Config{VolumeStep: -3}, delta: 1, want: DefaultVolumeStep},
	}

	for _, tt := range tests {
		if got := tt.cfg.Step(tt.delta); got != tt.want {
			t.Errorf("Step(%d) with %+v: got %d, want %d", tt.delta, tt.cfg, got, tt.want)
		}
	}
}

func TestDirection(t *testing.T) {
	if direction(0) != 1 || direction(1) != -1 {
		t.Errorf("got cw=%d ccw=%d", direction(0), direction(1))
	}
}

func TestNewDisabled(t *testing.T) {
	r, err := New(Config{}, Handlers{})
	if err != nil || r != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", r, err)
	}
}
