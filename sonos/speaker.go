package sonos

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/huin/goupnp/soap"
)

// UPnP service types exposed by a Sonos zone player.
const (
	ZonePlayerType       = "urn:schemas-upnp-org:device:ZonePlayer:1"
	avTransportType      = "urn:schemas-upnp-org:service:AVTransport:1"
	contentDirectoryType = "urn:schemas-upnp-org:service:ContentDirectory:1"
	renderingControlType = "urn:schemas-upnp-org:service:RenderingControl:1"
	devicePropertiesType = "urn:schemas-upnp-org:service:DeviceProperties:1"
)

// Control endpoints are fixed on every Sonos player, relative to port 1400.
const (
	avTransportPath      = "/MediaRenderer/AVTransport/Control"
	contentDirectoryPath = "/MediaServer/ContentDirectory/Control"
	renderingControlPath = "/MediaRenderer/RenderingControl/Control"
	devicePropertiesPath = "/DeviceProperties/Control"
)

var (
	// ErrSpeakerNotFound is returned when discovery finds no player with the requested name.
	ErrSpeakerNotFound = errors.New("speaker not found")

	// ErrPlaylistNotFound is returned when no stored playlist matches a lookup.
	ErrPlaylistNotFound = errors.New("playlist not found")
)

// Speaker is a single Sonos zone player.
type Speaker struct {
	name    string
	address string

	avTransport      *soap.SOAPClient
	contentDirectory *soap.SOAPClient
	renderingControl *soap.SOAPClient
	deviceProperties *soap.SOAPClient
}

// NewSpeaker connects to the player whose device description lives at
// location and reads its zone name.
func NewSpeaker(ctx context.Context, location *url.URL) (*Speaker, error) {
	s := newSpeaker(location)

	var resp struct {
		CurrentZoneName string
		CurrentIcon     string
	}
	if err := s.deviceProperties.PerformActionCtx(ctx, devicePropertiesType, "GetZoneAttributes", nil, &resp); err != nil {
		return nil, fmt.Errorf("get zone attributes from %s: %w", s.address, err)
	}
	s.name = resp.CurrentZoneName
	return s, nil
}

func newSpeaker(location *url.URL) *Speaker {
	base := url.URL{Scheme: location.Scheme, Host: location.Host}
	endpoint := func(path string) *soap.SOAPClient {
		u := base
		u.Path = path
		return soap.NewSOAPClient(u)
	}

	return &Speaker{
		address:          location.Hostname(),
		avTransport:      endpoint(avTransportPath),
		contentDirectory: endpoint(contentDirectoryPath),
		renderingControl: endpoint(renderingControlPath),
		deviceProperties: endpoint(devicePropertiesPath),
	}
}

// Name returns the zone (room) name of the player.
func (s *Speaker) Name() string {
	return s.name
}

// Address returns the network address of the player.
func (s *Speaker) Address() string {
	return s.address
}

// String implements fmt.Stringer.
func (s *Speaker) String() string {
	return fmt.Sprintf("%s (%s)", s.name, s.address)
}

type instanceArgs struct {
	InstanceID string
}

// Stop stops playback.
func (s *Speaker) Stop(ctx context.Context) error {
	if err := s.avTransport.PerformActionCtx(ctx, avTransportType, "Stop", &instanceArgs{InstanceID: "0"}, nil); err != nil {
		return fmt.Errorf("stop %s: %w", s.name, err)
	}
	return nil
}

// Play starts playback of the current queue.
func (s *Speaker) Play(ctx context.Context) error {
	req := &struct {
		InstanceID string
		Speed      string
	}{InstanceID: "0", Speed: "1"}

	if err := s.avTransport.PerformActionCtx(ctx, avTransportType, "Play", req, nil); err != nil {
		return fmt.Errorf("play %s: %w", s.name, err)
	}
	return nil
}

// ClearQueue removes every track from the player's queue.
func (s *Speaker) ClearQueue(ctx context.Context) error {
	if err := s.avTransport.PerformActionCtx(ctx, avTransportType, "RemoveAllTracksFromQueue", &instanceArgs{InstanceID: "0"}, nil); err != nil {
		return fmt.Errorf("clear queue of %s: %w", s.name, err)
	}
	return nil
}

// AddToQueue appends the playlist to the end of the queue and returns the
// queue position of its first track.
func (s *Speaker) AddToQueue(ctx context.Context, pl Playlist) (int, error) {
	if pl.URI == "" {
		return 0, fmt.Errorf("add %s to queue: playlist has no resource", pl.ItemID)
	}

	req := &struct {
		InstanceID                      string
		EnqueuedURI                     string
		EnqueuedURIMetaData             string
		DesiredFirstTrackNumberEnqueued string
		EnqueueAsNext                   string
	}{
		InstanceID:                      "0",
		EnqueuedURI:                     pl.URI,
		EnqueuedURIMetaData:             pl.DIDL(),
		DesiredFirstTrackNumberEnqueued: "0",
		EnqueueAsNext:                   "0",
	}
	var resp struct {
		FirstTrackNumberEnqueued string
		NumTracksAdded           string
		NewQueueLength           string
	}
	if err := s.avTransport.PerformActionCtx(ctx, avTransportType, "AddURIToQueue", req, &resp); err != nil {
		return 0, fmt.Errorf("add %s to queue of %s: %w", pl.ItemID, s.name, err)
	}

	first, err := strconv.Atoi(resp.FirstTrackNumberEnqueued)
	if err != nil {
		return 0, fmt.Errorf("add %s to queue of %s: bad track number %q", pl.ItemID, s.name, resp.FirstTrackNumberEnqueued)
	}
	return first, nil
}

// SetRelativeVolume changes the master volume by adjustment and returns
// the resulting volume.
func (s *Speaker) SetRelativeVolume(ctx context.Context, adjustment int) (int, error) {
	req := &struct {
		InstanceID string
		Channel    string
		Adjustment string
	}{InstanceID: "0", Channel: "Master", Adjustment: strconv.Itoa(adjustment)}
	var resp struct {
		NewVolume string
	}
	if err := s.renderingControl.PerformActionCtx(ctx, renderingControlType, "SetRelativeVolume", req, &resp); err != nil {
		return 0, fmt.Errorf("set volume of %s: %w", s.name, err)
	}

	vol, err := strconv.Atoi(resp.NewVolume)
	if err != nil {
		return 0, fmt.Errorf("set volume of %s: bad volume %q", s.name, resp.NewVolume)
	}
	return vol, nil
}
