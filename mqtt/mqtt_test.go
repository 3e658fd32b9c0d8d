package mqtt

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDisabledClient(t *testing.T) {
	connected := false
	c, err := New(Config{}, "", Handlers{OnConnect: func() { connected = true }})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.IsEnabled() {
		t.Fatal("client without host should be disabled")
	}
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !connected {
		t.Error("OnConnect not called for disabled client")
	}

	// Publishing and disconnecting without a broker must be harmless.
	c.PublishCard(1, "STOP")
	c.PublishStop()
	c.PublishPlay("SQ:3", "Bedtime")
	c.PublishUnknown(2, "SQ:9", errors.New("not found"))
	c.Disconnect()
}

func TestNewRequiresClientID(t *testing.T) {
	if _, err := New(Config{Host: "broker.local"}, "", Handlers{}); err == nil {
		t.Fatal("expected error without client id")
	}
}

func TestTopic(t *testing.T) {
	c := &Client{clientID: "playroom-pi"}
	if got := c.Topic(TopicPlayback); got != "sonosctl/status/node/playroom-pi/playback" {
		t.Errorf("got %q", got)
	}
}

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "default port", cfg: Config{Host: "broker.local"}, want: "tcp://broker.local:1883"},
		{name: "explicit port", cfg: Config{Host: "broker.local", Port: 1884}, want: "tcp://broker.local:1884"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, tlsConfig, err := brokerURL(tt.cfg)
			if err != nil {
				t.Fatalf("brokerURL: %v", err)
			}
			if got != tt.want || tlsConfig != nil {
				t.Errorf("got (%q, %v), want (%q, nil)", got, tlsConfig, tt.want)
			}
		})
	}
}

func TestBrokerURLBadCA(t *testing.T) {
	ca := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(ca, []byte("not a certificate"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := brokerURL(Config{Host: "broker.local", CACert: ca}); err == nil {
		t.Fatal("expected error for CA file without certificates")
	}
	if _, _, err := brokerURL(Config{Host: "broker.local", CACert: ca + ".missing"}); err == nil {
		t.Fatal("expected error for missing CA file")
	}
}

func TestEventPayloads(t *testing.T) {
	tests := []struct {
		name string
		ev   any
		want string
	}{
		{name: "card", ev: CardEvent{ID: 42, Text: "SQ:3"}, want: `{"id":42,"text":"SQ:3"}`},
		{name: "stop", ev: PlaybackEvent{Action: "stop"}, want: `{"action":"stop"}`},
		{name: "play", ev: PlaybackEvent{Action: "play", ItemID: "SQ:3", Title: "Bedtime"}, want: `{"action":"play","item_id":"SQ:3","title":"Bedtime"}`},
		{name: "unknown", ev: UnknownEvent{ID: 7, Text: "junk", Error: "no playlist"}, want: `{"id":7,"text":"junk","error":"no playlist"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.ev)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if strings.TrimSpace(string(got)) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}
