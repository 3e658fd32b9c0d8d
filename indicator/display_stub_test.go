//go:build !screen

package indicator

import (
	"errors"
	"testing"
)

func TestNewWithDisplayNeedsScreenBuild(t *testing.T) {
	if _, err := New(Config{Display: true}); !errors.Is(err, ErrScreenNotCompiled) {
		t.Fatalf("got %v, want ErrScreenNotCompiled", err)
	}
}
