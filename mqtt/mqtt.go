package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// TopicPrefix is the root of every status topic.
const TopicPrefix = "sonosctl/status/node"

// Status topic suffixes.
const (
	TopicCard     = "card"
	TopicPlayback = "playback"
	TopicUnknown  = "unknown"
)

// Client publishes controller status to an MQTT broker.
type Client struct {
	client       paho.Client
	clientID     string
	enabled      bool
	onConnect    func()
	onDisconnect func()
}

// Config holds MQTT connection settings.
type Config struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
}

// Handlers holds callback functions for MQTT events.
type Handlers struct {
	OnConnect    func()
	OnDisconnect func()
}

// CardEvent is published on every new card.
type CardEvent struct {
	ID   uint64 `json:"id"`
	Text string `json:"text"`
}

// PlaybackEvent is published after a stop or play command succeeded.
type PlaybackEvent struct {
	Action string `json:"action"`
	ItemID string `json:"item_id,omitempty"`
	Title  string `json:"title,omitempty"`
}

// UnknownEvent is published when a card names no stored playlist.
type UnknownEvent struct {
	ID    uint64 `json:"id"`
	Text  string `json:"text"`
	Error string `json:"error"`
}

// New creates a new MQTT client. Returns a disabled no-op client if host is empty.
func New(cfg Config, clientID string, handlers Handlers) (*Client, error) {
	c := &Client{
		clientID:     clientID,
		onConnect:    handlers.OnConnect,
		onDisconnect: handlers.OnDisconnect,
	}

	if cfg.Host == "" {
		log.Println("MQTT disabled (no host configured)")
		return c, nil
	}
	if clientID == "" {
		return nil, fmt.Errorf("mqtt: client_id is required when a host is configured")
	}

	c.enabled = true

	broker, tlsConfig, err := brokerURL(cfg)
	if err != nil {
		return nil, err
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetKeepAlive(60 * time.Second).
		SetConnectionLostHandler(c.handleConnectionLost).
		SetOnConnectHandler(c.handleConnect)

	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}

	c.client = paho.NewClient(opts)

	paho.ERROR = log.New(log.Writer(), "[MQTT ERROR] ", 0)
	paho.CRITICAL = log.New(log.Writer(), "[MQTT CRIT] ", 0)
	paho.WARN = log.New(log.Writer(), "[MQTT WARN] ", 0)

	return c, nil
}

func brokerURL(cfg Config) (string, *tls.Config, error) {
	if cfg.CACert != "" || cfg.ClientCert != "" {
		if cfg.Port == 0 {
			cfg.Port = 8883
		}
		tlsConfig, err := buildTLSConfig(cfg)
		if err != nil {
			return "", nil, fmt.Errorf("build TLS config: %w", err)
		}
		return fmt.Sprintf("ssl://%s:%d", cfg.Host, cfg.Port), tlsConfig, nil
	}

	if cfg.Port == 0 {
		cfg.Port = 1883
	}
	log.Println("MQTT using non-TLS connection")
	return fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port), nil, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{}

	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates in %s", cfg.CACert)
		}
		tlsConfig.RootCAs = caPool
	}

	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// Connect connects to the MQTT broker. If disabled, calls onConnect immediately.
func (c *Client) Connect() error {
	if !c.enabled {
		if c.onConnect != nil {
			c.onConnect()
		}
		return nil
	}

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect: %w", token.Error())
	}
	log.Println("MQTT connected")
	return nil
}

// Disconnect disconnects from the MQTT broker. No-op if disabled.
func (c *Client) Disconnect() {
	if !c.enabled || c.client == nil {
		return
	}
	c.client.Disconnect(250)
}

// IsEnabled returns whether MQTT is enabled.
func (c *Client) IsEnabled() bool {
	return c.enabled
}

// Topic returns the full status topic for suffix.
func (c *Client) Topic(suffix string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefix, c.clientID, suffix)
}

// PublishCard reports a newly presented card.
func (c *Client) PublishCard(id uint64, text string) {
	c.publishJSON(TopicCard, CardEvent{ID: id, Text: text})
}

// PublishStop reports that playback was stopped.
func (c *Client) PublishStop() {
	c.publishJSON(TopicPlayback, PlaybackEvent{Action: "stop"})
}

// PublishPlay reports that a playlist started.
func (c *Client) PublishPlay(itemID, title string) {
	c.publishJSON(TopicPlayback, PlaybackEvent{Action: "play", ItemID: itemID, Title: title})
}

// PublishUnknown reports a card whose payload matched no playlist.
func (c *Client) PublishUnknown(id uint64, text string, err error) {
	ev := UnknownEvent{ID: id, Text: text}
	if err != nil {
		ev.Error = err.Error()
	}
	c.publishJSON(TopicUnknown, ev)
}

func (c *Client) publishJSON(suffix string, v any) {
	if !c.enabled {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("MQTT encode %s: %v", suffix, err)
		return
	}
	c.client.Publish(c.Topic(suffix), 0, false, payload)
}

func (c *Client) handleConnect(client paho.Client) {
	log.Println("MQTT connection established")
	if c.onConnect != nil {
		c.onConnect()
	}
}

func (c *Client) handleConnectionLost(client paho.Client, err error) {
	log.Printf("MQTT connection lost: %v", err)
	if c.onDisconnect != nil {
		c.onDisconnect()
	}
}
