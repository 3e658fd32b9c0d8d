package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"sonosctl/controller"
	"sonosctl/indicator"
	"sonosctl/logging"
	"sonosctl/mqtt"
	"sonosctl/reader"
	"sonosctl/rotary"
)

// Compiled defaults.
const (
	defaultConfigFile = "/etc/sonosctl/sonosctl.yml"
	defaultLogFile    = "/var/log/sonosctl/controller.log"
	defaultLogLevel   = "DEBUG"
	defaultSpeaker    = "Playroom"
)

// Config is the main configuration structure for sonosctl.
type Config struct {
	// Logging
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`

	// Speaker room name
	Speaker string `yaml:"speaker"`

	// Loop behaviour
	SameCardPauseSecs float64 `yaml:"same_card_pause_secs"`
	OnUnknownCard     string  `yaml:"on_unknown_card"`

	// Optional catalog mapping card ids to payload text
	CardFile string `yaml:"card_file"`

	// MQTT client id, used in status topics
	ClientID string `yaml:"client_id"`

	Reader    reader.Config    `yaml:"reader"`
	MQTT      mqtt.Config      `yaml:"mqtt"`
	Indicator indicator.Config `yaml:"indicator"`
	Rotary    rotary.Config    `yaml:"rotary"`
}

func defaultConfig() Config {
	return Config{
		LogFile:           defaultLogFile,
		LogLevel:          defaultLogLevel,
		Speaker:           defaultSpeaker,
		SameCardPauseSecs: controller.DefaultSamePause.Seconds(),
		OnUnknownCard:     string(controller.ExitOnUnknown),
		Reader:            reader.Config{Type: "mfrc522"},
	}
}

// SamePause returns the same-card pause as a duration.
func (c *Config) SamePause() time.Duration {
	return time.Duration(c.SameCardPauseSecs * float64(time.Second))
}

// loadConfig resolves configuration: compiled defaults, then the YAML file,
// then any flags given explicitly on the command line.
func loadConfig(args []string, stderr io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("sonosctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var cfgFile, logFile, logLevel, speaker string
	fs.StringVar(&cfgFile, "cfg", defaultConfigFile, "Config file")
	fs.StringVar(&logFile, "f", defaultLogFile, "Log file path")
	fs.StringVar(&logFile, "logfile", defaultLogFile, "Log file path")
	fs.StringVar(&logLevel, "l", defaultLogLevel, "Log level (DEBUG, INFO, WARNING, ERROR, CRITICAL)")
	fs.StringVar(&logLevel, "loglevel", defaultLogLevel, "Log level (DEBUG, INFO, WARNING, ERROR, CRITICAL)")
	fs.StringVar(&speaker, "s", defaultSpeaker, "Sonos speaker room name")
	fs.StringVar(&speaker, "speaker", defaultSpeaker, "Sonos speaker room name")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := defaultConfig()
	if err := readConfigFile(cfgFile, &cfg); err != nil {
		// The default location is optional, an explicit -cfg is not.
		if !(errors.Is(err, os.ErrNotExist) && !set["cfg"]) {
			return nil, err
		}
	}

	if set["f"] || set["logfile"] {
		cfg.LogFile = logFile
	}
	if set["l"] || set["loglevel"] {
		cfg.LogLevel = logLevel
	}
	if set["s"] || set["speaker"] {
		cfg.Speaker = speaker
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Speaker == "" {
		return errors.New("speaker name is empty")
	}
	if c.LogFile == "" {
		return errors.New("log_file is empty")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.SameCardPauseSecs < 0 {
		return fmt.Errorf("same_card_pause_secs must not be negative, got %v", c.SameCardPauseSecs)
	}
	if _, err := controller.ParsePolicy(c.OnUnknownCard); err != nil {
		return err
	}
	if c.MQTT.Host != "" && c.ClientID == "" {
		return errors.New("client_id missing in config file (required for mqtt)")
	}
	return nil
}
