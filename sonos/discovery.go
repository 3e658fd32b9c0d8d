package sonos

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/huin/goupnp"
)

// SearchFunc returns the device description locations of candidate players.
type SearchFunc func(ctx context.Context) ([]*url.URL, error)

// Finder resolves speakers on the local network.
type Finder struct {
	// Search defaults to an SSDP search for Sonos zone players.
	Search SearchFunc
}

// ByName discovers the player whose zone name is name, using SSDP.
func ByName(ctx context.Context, name string) (*Speaker, error) {
	return Finder{}.ByName(ctx, name)
}

// ByName returns the first player whose zone name equals name.
func (f Finder) ByName(ctx context.Context, name string) (*Speaker, error) {
	speakers, err := f.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range speakers {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrSpeakerNotFound, name)
}

// All returns every reachable player. Players that do not answer the zone
// name query are skipped.
func (f Finder) All(ctx context.Context) ([]*Speaker, error) {
	search := f.Search
	if search == nil {
		search = SearchZonePlayers
	}

	locations, err := search(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover speakers: %w", err)
	}

	var speakers []*Speaker
	for _, loc := range locations {
		s, err := NewSpeaker(ctx, loc)
		if err != nil {
			log.Printf("Skipping player at %s: %v", loc.Host, err)
			continue
		}
		speakers = append(speakers, s)
	}
	return speakers, nil
}

// SearchZonePlayers runs an SSDP search for Sonos zone players and returns
// one description location per host.
func SearchZonePlayers(ctx context.Context) ([]*url.URL, error) {
	devices, err := goupnp.DiscoverDevicesCtx(ctx, ZonePlayerType)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var locations []*url.URL
	for _, d := range devices {
		if d.Location == nil {
			continue
		}
		if seen[d.Location.Host] {
			continue
		}
		seen[d.Location.Host] = true
		locations = append(locations, d.Location)
	}
	return locations, nil
}
