package sonos_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"sonosctl/sonos"
)

func TestFinderByName(t *testing.T) {
	kitchen := startPlayer(t, &fakePlayer{zone: "Kitchen"})
	playroom := startPlayer(t, &fakePlayer{zone: "Playroom"})
	gone, _ := url.Parse("http://127.0.0.1:1/xml/device_description.xml")

	f := sonos.Finder{
		Search: func(ctx context.Context) ([]*url.URL, error) {
			return []*url.URL{gone, kitchen, playroom}, nil
		},
	}

	s, err := f.ByName(context.Background(), "Playroom")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	if s.Name() != "Playroom" {
		t.Errorf("Name: got %q, want Playroom", s.Name())
	}
	if s.String() != "Playroom ("+playroom.Hostname()+")" {
		t.Errorf("String: got %q", s.String())
	}
}

func TestFinderByNameNotFound(t *testing.T) {
	kitchen := startPlayer(t, &fakePlayer{zone: "Kitchen"})

	f := sonos.Finder{
		Search: func(ctx context.Context) ([]*url.URL, error) {
			return []*url.URL{kitchen}, nil
		},
	}

	_, err := f.ByName(context.Background(), "Playroom")
	if !errors.Is(err, sonos.ErrSpeakerNotFound) {
		t.Fatalf("error: got %v, want ErrSpeakerNotFound", err)
	}
}

func TestFinderSearchError(t *testing.T) {
	boom := errors.New("no multicast route")
	f := sonos.Finder{
		Search: func(ctx context.Context) ([]*url.URL, error) {
			return nil, boom
		},
	}

	_, err := f.ByName(context.Background(), "Playroom")
	if !errors.Is(err, boom) {
		t.Fatalf("error: got %v, want %v", err, boom)
	}
	if errors.Is(err, sonos.ErrSpeakerNotFound) {
		t.Error("search failure reported as not found")
	}
}
