package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"sonosctl/cards"
	"sonosctl/controller"
	"sonosctl/indicator"
	"sonosctl/logging"
	"sonosctl/mqtt"
	"sonosctl/reader"
	"sonosctl/rotary"
	"sonosctl/sonos"
)

var myBuild string

// discoveryTimeout bounds the SSDP search for the configured speaker.
const discoveryTimeout = 10 * time.Second

// speakerFinder resolves a speaker by its room name.
type speakerFinder interface {
	ByName(ctx context.Context, name string) (*sonos.Speaker, error)
}

// App holds the application state and dependencies.
type App struct {
	cfg        *Config
	log        logrus.FieldLogger
	openReader func(reader.Config) (reader.TagReader, error)
	finder     speakerFinder

	mqtt      *mqtt.Client
	reader    reader.TagReader
	catalog   *cards.Catalog
	indicator indicator.Indicator
	rotary    *rotary.Rotary
	speaker   *sonos.Speaker
}

func main() {
	cfg, err := loadConfig(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("Config: %v", err)
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)

	logger, closer, err := logging.Open(cfg.LogFile, level)
	if err != nil {
		log.Fatalf("Init logging: %v", err)
	}

	// Driver and MQTT diagnostics go through stdlib log; keep them in the
	// log file instead of the terminal.
	stdlog := logger.WriterLevel(logrus.InfoLevel)
	log.SetOutput(stdlog)
	log.SetFlags(0)

	code := run(cfg, logger)

	stdlog.Close()
	closer.Close()
	os.Exit(code)
}

func run(cfg *Config, logger *logrus.Logger) int {
	logger.Infof("sonosctl build %s starting", myBuild)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newApp(cfg, logger).run(ctx)
}

func newApp(cfg *Config, log logrus.FieldLogger) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		openReader: reader.New,
		finder:     sonos.Finder{},
	}
}

// run starts the collaborators and the card loop, and returns the process
// exit code. The reader is released on every path.
func (app *App) run(ctx context.Context) int {
	defer app.release()

	if err := app.init(ctx); err != nil {
		app.log.Errorf("%v", err)
		return 1
	}

	policy, _ := controller.ParsePolicy(app.cfg.OnUnknownCard)
	ctl := controller.New(app.speaker, app.reader, app.log,
		controller.Options{SamePause: app.cfg.SamePause(), OnUnknownCard: policy},
		app.handlers())

	app.indicator.Idle()
	if err := ctl.Run(ctx); err != nil {
		app.log.Errorf("Controller stopped: %v", err)
		return 1
	}
	app.log.Info("Shutting down")
	return 0
}

// init opens hardware and finds the speaker. Anything opened before a
// failure is released by release.
func (app *App) init(ctx context.Context) error {
	var err error

	app.reader, err = app.openReader(app.cfg.Reader)
	if err != nil {
		return fmt.Errorf("init reader: %w", err)
	}

	if app.cfg.CardFile != "" {
		app.catalog, err = cards.Load(app.cfg.CardFile)
		if err != nil {
			return fmt.Errorf("load cards: %w", err)
		}
		app.reader = cards.Wrap(app.reader, app.catalog)
		go app.reloadOnHangup(ctx)
	}

	app.indicator, err = indicator.New(app.cfg.Indicator)
	if err != nil {
		return fmt.Errorf("init indicator: %w", err)
	}

	app.log.Info("Successfully initialized Sonos controller")

	findCtx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()
	app.speaker, err = app.finder.ByName(findCtx, app.cfg.Speaker)
	if err != nil {
		return fmt.Errorf("find speaker %q: %w", app.cfg.Speaker, err)
	}
	app.log.Infof("Active speaker set to: %s", app.speaker)

	app.mqtt, err = mqtt.New(app.cfg.MQTT, app.cfg.ClientID, mqtt.Handlers{
		OnConnect:    func() { app.log.Debug("Status publisher connected") },
		OnDisconnect: func() { app.log.Warn("Status publisher disconnected") },
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	// The broker is optional; never hold up the card loop waiting for it.
	go func() {
		if err := app.mqtt.Connect(); err != nil {
			log.Printf("MQTT connect: %v", err)
		}
	}()

	app.rotary, err = rotary.New(app.cfg.Rotary, rotary.Handlers{
		OnTurn:  func(delta int) { app.adjustVolume(ctx, delta) },
		OnPress: func() { app.stopFromButton(ctx) },
	})
	if err != nil {
		return fmt.Errorf("init rotary: %w", err)
	}

	return nil
}

// handlers routes controller events to the indicator and status publisher.
func (app *App) handlers() controller.Handlers {
	return controller.Handlers{
		OnCard: func(card reader.Card) {
			app.mqtt.PublishCard(card.ID, card.Text)
		},
		OnStop: func() {
			app.indicator.Stopped()
			app.mqtt.PublishStop()
		},
		OnPlay: func(pl sonos.Playlist) {
			app.indicator.Playing(pl.Title)
			app.mqtt.PublishPlay(pl.ItemID, pl.Title)
		},
		OnUnknown: func(card reader.Card, err error) {
			app.indicator.Unknown(card.Text)
			app.mqtt.PublishUnknown(card.ID, card.Text, err)
		},
	}
}

func (app *App) adjustVolume(ctx context.Context, delta int) {
	vol, err := app.speaker.SetRelativeVolume(ctx, app.cfg.Rotary.Step(delta))
	if err != nil {
		app.log.Warnf("Volume change failed: %v", err)
		return
	}
	app.log.Debugf("Volume now %d", vol)
}

func (app *App) stopFromButton(ctx context.Context) {
	app.log.Info("Stop button pressed")
	if err := app.speaker.Stop(ctx); err != nil {
		app.log.Warnf("Stop failed: %v", err)
		return
	}
	app.indicator.Stopped()
	app.mqtt.PublishStop()
}

func (app *App) reloadOnHangup(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := app.catalog.Reload(); err != nil {
				app.log.Errorf("Reload cards: %v", err)
				continue
			}
			app.log.Infof("Reloaded %d cards", app.catalog.Len())
		}
	}
}

func (app *App) release() {
	if app.rotary != nil {
		app.rotary.Release()
	}
	if app.mqtt != nil {
		app.mqtt.Disconnect()
	}
	if app.indicator != nil {
		app.indicator.Shutdown()
		app.indicator.Release()
	}
	if app.reader != nil {
		if err := app.reader.Close(); err != nil && !errors.Is(err, reader.ErrClosed) {
			app.log.Warnf("Close reader: %v", err)
		}
	}
}
