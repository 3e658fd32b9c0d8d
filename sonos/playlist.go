package sonos

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
)

// Attr names a playlist attribute that PlaylistByAttr can match on.
type Attr string

const (
	AttrTitle  Attr = "title"
	AttrItemID Attr = "item_id"
)

const (
	playlistContainerID = "SQ:"
	browsePageSize      = 100
	playlistClass       = "object.container.playlistContainer"
	rinconNamespace     = "urn:schemas-rinconnetworks-com:metadata-1-0/"
)

// Playlist is a Sonos playlist stored on the household.
type Playlist struct {
	ItemID       string
	ParentID     string
	Title        string
	Class        string
	URI          string
	ProtocolInfo string
}

// Attr returns the value of the named attribute.
func (p Playlist) Attr(a Attr) (string, bool) {
	switch a {
	case AttrTitle:
		return p.Title, true
	case AttrItemID:
		return p.ItemID, true
	default:
		return "", false
	}
}

// DIDL renders the playlist as the DIDL-Lite document Sonos expects as
// queue metadata.
func (p Playlist) DIDL() string {
	class := p.Class
	if class == "" {
		class = playlistClass
	}
	parent := p.ParentID
	if parent == "" {
		parent = playlistContainerID
	}

	var b bytes.Buffer
	b.WriteString(`<DIDL-Lite xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:upnp="urn:schemas-upnp-org:metadata-1-0/upnp/" xmlns:r="urn:schemas-rinconnetworks-com:metadata-1-0/" xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/">`)
	b.WriteString(`<container id="`)
	escape(&b, p.ItemID)
	b.WriteString(`" parentID="`)
	escape(&b, parent)
	b.WriteString(`" restricted="true"><dc:title>`)
	escape(&b, p.Title)
	b.WriteString(`</dc:title><upnp:class>`)
	escape(&b, class)
	b.WriteString(`</upnp:class><desc id="cdudn" nameSpace="` + rinconNamespace + `">RINCON_AssociatedZPUDN</desc></container></DIDL-Lite>`)
	return b.String()
}

func escape(b *bytes.Buffer, s string) {
	_ = xml.EscapeText(b, []byte(s))
}

type didlLite struct {
	XMLName    xml.Name        `xml:"DIDL-Lite"`
	Containers []didlContainer `xml:"container"`
}

type didlContainer struct {
	ID       string    `xml:"id,attr"`
	ParentID string    `xml:"parentID,attr"`
	Title    string    `xml:"title"`
	Class    string    `xml:"class"`
	Res      []didlRes `xml:"res"`
}

type didlRes struct {
	ProtocolInfo string `xml:"protocolInfo,attr"`
	URI          string `xml:",chardata"`
}

func parseDIDL(doc string) ([]Playlist, error) {
	if doc == "" {
		return nil, nil
	}

	var d didlLite
	if err := xml.Unmarshal([]byte(doc), &d); err != nil {
		return nil, fmt.Errorf("decode DIDL-Lite: %w", err)
	}

	playlists := make([]Playlist, 0, len(d.Containers))
	for _, c := range d.Containers {
		pl := Playlist{
			ItemID:   c.ID,
			ParentID: c.ParentID,
			Title:    c.Title,
			Class:    c.Class,
		}
		if len(c.Res) > 0 {
			pl.URI = c.Res[0].URI
			pl.ProtocolInfo = c.Res[0].ProtocolInfo
		}
		playlists = append(playlists, pl)
	}
	return playlists, nil
}

// Playlists returns every playlist stored on the household.
func (s *Speaker) Playlists(ctx context.Context) ([]Playlist, error) {
	var all []Playlist
	start := 0

	for {
		req := &struct {
			ObjectID       string
			BrowseFlag     string
			Filter         string
			StartingIndex  string
			RequestedCount string
			SortCriteria   string
		}{
			ObjectID:       playlistContainerID,
			BrowseFlag:     "BrowseDirectChildren",
			Filter:         "dc:title,res,upnp:class",
			StartingIndex:  strconv.Itoa(start),
			RequestedCount: strconv.Itoa(browsePageSize),
		}
		var resp struct {
			Result         string
			NumberReturned string
			TotalMatches   string
			UpdateID       string
		}
		if err := s.contentDirectory.PerformActionCtx(ctx, contentDirectoryType, "Browse", req, &resp); err != nil {
			return nil, fmt.Errorf("browse playlists on %s: %w", s.name, err)
		}

		page, err := parseDIDL(resp.Result)
		if err != nil {
			return nil, fmt.Errorf("browse playlists on %s: %w", s.name, err)
		}
		all = append(all, page...)

		returned, _ := strconv.Atoi(resp.NumberReturned)
		total, _ := strconv.Atoi(resp.TotalMatches)
		start += returned
		if returned == 0 || start >= total {
			return all, nil
		}
	}
}

// PlaylistByAttr returns the first stored playlist whose attribute equals
// value exactly.
func (s *Speaker) PlaylistByAttr(ctx context.Context, attr Attr, value string) (Playlist, error) {
	if _, ok := (Playlist{}).Attr(attr); !ok {
		return Playlist{}, fmt.Errorf("unknown playlist attribute %q", attr)
	}

	playlists, err := s.Playlists(ctx)
	if err != nil {
		return Playlist{}, err
	}
	for _, pl := range playlists {
		if v, _ := pl.Attr(attr); v == value {
			return pl, nil
		}
	}
	return Playlist{}, fmt.Errorf("%w: %s %q", ErrPlaylistNotFound, attr, value)
}
