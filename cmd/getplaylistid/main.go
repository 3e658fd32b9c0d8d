// Command getplaylistid prints the item-id of a stored Sonos playlist, the
// value that gets written onto a card.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"sonosctl/sonos"
)

const defaultSpeaker = "Playroom"

// speakerFinder resolves a speaker by its room name.
type speakerFinder interface {
	ByName(ctx context.Context, name string) (*sonos.Speaker, error)
}

func main() {
	var playlist, speaker string
	flag.StringVar(&playlist, "p", "", "Name of the Sonos playlist to search for")
	flag.StringVar(&playlist, "playlist", "", "Name of the Sonos playlist to search for")
	flag.StringVar(&speaker, "s", defaultSpeaker, "Speaker to be used as output device")
	flag.StringVar(&speaker, "speaker", defaultSpeaker, "Speaker to be used as output device")
	list := flag.Bool("list", false, "List every stored playlist instead of looking one up")
	timeout := flag.Duration("timeout", 10*time.Second, "Speaker discovery timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, os.Stdout, sonos.Finder{}, speaker, playlist, *list); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, w io.Writer, finder speakerFinder, speaker, title string, list bool) error {
	spk, err := finder.ByName(ctx, speaker)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Found speaker: %s (%s)\n", spk.Name(), spk.Address())

	if list {
		playlists, err := spk.Playlists(ctx)
		if err != nil {
			return fmt.Errorf("list playlists: %w", err)
		}
		for _, pl := range playlists {
			fmt.Fprintf(w, "%s\t%s\n", pl.ItemID, pl.Title)
		}
		return nil
	}

	log.Printf("Getting ID for Sonos playlist %s", title)
	pl, err := spk.PlaylistByAttr(ctx, sonos.AttrTitle, title)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Sonos playlist %s has ID %s\n", title, pl.ItemID)
	return nil
}
