// Package controller turns card reads into speaker commands.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"sonosctl/reader"
	"sonosctl/sonos"
)

// StopToken is the card text that stops playback.
const StopToken = "STOP"

// DefaultSamePause is how long the loop idles while the same card stays on
// the reader.
const DefaultSamePause = 2 * time.Second

// UnknownCardPolicy decides what happens when a card names a playlist the
// speaker does not have.
type UnknownCardPolicy string

const (
	// ExitOnUnknown stops the controller with the lookup error.
	ExitOnUnknown UnknownCardPolicy = "exit"
	// IgnoreUnknown logs a warning and keeps polling.
	IgnoreUnknown UnknownCardPolicy = "ignore"
)

// ParsePolicy validates a policy name. Empty means ExitOnUnknown.
func ParsePolicy(name string) (UnknownCardPolicy, error) {
	switch p := UnknownCardPolicy(strings.ToLower(strings.TrimSpace(name))); p {
	case "", ExitOnUnknown:
		return ExitOnUnknown, nil
	case IgnoreUnknown:
		return IgnoreUnknown, nil
	default:
		return "", fmt.Errorf("unknown card policy %q (want %q or %q)", name, ExitOnUnknown, IgnoreUnknown)
	}
}

// Speaker is the playback surface the loop drives. *sonos.Speaker
// implements it.
type Speaker interface {
	Name() string
	Stop(ctx context.Context) error
	ClearQueue(ctx context.Context) error
	AddToQueue(ctx context.Context, pl sonos.Playlist) (int, error)
	Play(ctx context.Context) error
	PlaylistByAttr(ctx context.Context, attr sonos.Attr, value string) (sonos.Playlist, error)
}

var _ Speaker = (*sonos.Speaker)(nil)

// Reader produces card reads. reader.TagReader implements it.
type Reader interface {
	Read(ctx context.Context) (reader.Card, error)
}

// Options tune the loop.
type Options struct {
	SamePause     time.Duration
	OnUnknownCard UnknownCardPolicy
}

// Handlers holds optional callbacks fired after each action.
type Handlers struct {
	OnCard    func(card reader.Card)
	OnStop    func()
	OnPlay    func(pl sonos.Playlist)
	OnUnknown func(card reader.Card, err error)
}

// Controller bridges card presentation to speaker playback.
type Controller struct {
	speaker  Speaker
	reader   Reader
	log      logrus.FieldLogger
	opts     Options
	handlers Handlers
}

// New creates a Controller.
func New(spk Speaker, rd Reader, log logrus.FieldLogger, opts Options, handlers Handlers) *Controller {
	if opts.SamePause <= 0 {
		opts.SamePause = DefaultSamePause
	}
	if opts.OnUnknownCard == "" {
		opts.OnUnknownCard = ExitOnUnknown
	}
	return &Controller{
		speaker:  spk,
		reader:   rd,
		log:      log,
		opts:     opts,
		handlers: handlers,
	}
}

// state is the debounce memory threaded through the loop.
type state struct {
	lastID uint64
	seen   bool
}

func (s state) sameCard(id uint64) bool {
	return s.seen && s.lastID == id
}

// Run polls the reader until ctx is cancelled, which returns nil. Reader
// failures, speaker failures and (under ExitOnUnknown) unknown playlists
// end the loop with an error.
func (c *Controller) Run(ctx context.Context) error {
	var st state
	for {
		if ctx.Err() != nil {
			return nil
		}

		card, err := c.reader.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read card: %w", err)
		}

		st, err = c.step(ctx, st, card)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (c *Controller) step(ctx context.Context, st state, card reader.Card) (state, error) {
	c.log.Debugf("Found card with id: %d", card.ID)
	text := strings.TrimSpace(card.Text)
	c.log.Debugf("Card text: %s", text)

	if st.sameCard(card.ID) {
		c.log.Debugf("Still same card with id: %d", card.ID)
		return st, sleepWithContext(ctx, c.opts.SamePause)
	}
	st = state{lastID: card.ID, seen: true}

	if c.handlers.OnCard != nil {
		c.handlers.OnCard(reader.Card{ID: card.ID, Text: text})
	}

	if text == StopToken {
		return st, c.stop(ctx)
	}
	return st, c.play(ctx, card.ID, text)
}

func (c *Controller) stop(ctx context.Context) error {
	c.log.Info("Found STOP")
	if err := c.speaker.Stop(ctx); err != nil {
		return err
	}
	if c.handlers.OnStop != nil {
		c.handlers.OnStop()
	}
	return nil
}

func (c *Controller) play(ctx context.Context, id uint64, itemID string) error {
	c.log.Infof("Getting playlist with item_id: %s", itemID)
	pl, err := c.speaker.PlaylistByAttr(ctx, sonos.AttrItemID, itemID)
	if err != nil {
		if !errors.Is(err, sonos.ErrPlaylistNotFound) {
			return err
		}
		if c.handlers.OnUnknown != nil {
			c.handlers.OnUnknown(reader.Card{ID: id, Text: itemID}, err)
		}
		if c.opts.OnUnknownCard == IgnoreUnknown {
			c.log.WithError(err).Warnf("Ignoring card %d", id)
			return nil
		}
		return fmt.Errorf("card %d: %w", id, err)
	}
	c.log.Infof("Found corresponding playlist: %s", pl.Title)

	c.log.Infof("Clearing queue for %s", c.speaker.Name())
	if err := c.speaker.ClearQueue(ctx); err != nil {
		return err
	}

	c.log.Info("Adding playlist to queue")
	if _, err := c.speaker.AddToQueue(ctx, pl); err != nil {
		return err
	}

	c.log.Info("Starting playlist")
	if err := c.speaker.Play(ctx); err != nil {
		return err
	}

	if c.handlers.OnPlay != nil {
		c.handlers.OnPlay(pl)
	}
	return nil
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
