package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/storagesim/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker      string      `json:"broker"`
	ClientID    string      `json:"client_id"`
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	TopicPrefix string      `json:"topic_prefix"`
	UseTLS      bool        `json:"use_tls"`
	ClientCert  string      `json:"client_cert"`
	ClientKey   string      `json:"client_key"`
	CABundle    string      `json:"ca_bundle"`
	QoS         byte        `json:"qos"`
	LWTTopic    string      `json:"lwt_topic"`
	LWTPayload  string      `json:"lwt_payload"`
	LWTQoS      byte        `json:"lwt_qos"`
	LWTRetain   bool        `json:"lwt_retain"`
	MaxRetries  int         `json:"max_retries"`
	BackoffMS   int         `json:"backoff_ms"`
	TLSConfig   *tls.Config `json:"-"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Broker == "" {
		c.Broker = "tcp://localhost:1883"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "simulation"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	return nil
}

// Bus publishes and subscribes raw payloads on the simulation message bus.
// Implementations must redeliver subscriptions across reconnects.
type Bus interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler func(topic string, payload []byte)) error
	Close()
}

// PahoClient implements Bus using Eclipse Paho.
type PahoClient struct {
	cli paho.Client
	qos byte

	mu         sync.Mutex
	subs       map[string]paho.MessageHandler
	log        logger.Logger
	maxRetries int
	backoff    time.Duration
}

// NewPahoClient connects to the MQTT broker. Subscriptions made through
// Subscribe are replayed on every reconnect.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		qos:        cfg.QoS,
		subs:       make(map[string]paho.MessageHandler),
		log:        log,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		pc.mu.Lock()
		defer pc.mu.Unlock()
		for topic, handler := range pc.subs {
			if token := c.Subscribe(topic, pc.qos, handler); token.Wait() && token.Error() != nil {
				log.Errorf("resubscribe %s: %v", topic, token.Error())
			}
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}

	c := paho.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	opts.SetConnectTimeout(5 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg := cfg.TLSConfig
		if tlsCfg == nil {
			var err error
			tlsCfg, err = newTLSConfig(cfg)
			if err != nil {
				return nil, err
			}
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

func newTLSConfig(cfg Config) (*tls.Config, error) {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.CABundle != "" {
		pem, err := os.ReadFile(cfg.CABundle)
		if err != nil {
			return nil, fmt.Errorf("read ca bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates parsed from %s", cfg.CABundle)
		}
		tlsCfg.RootCAs = pool
	}
	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}

// Publish sends the payload, retrying with a linear backoff when configured.
func (pc *PahoClient) Publish(topic string, payload []byte) error {
	var err error
	for attempt := 0; ; attempt++ {
		token := pc.cli.Publish(topic, pc.qos, false, payload)
		token.Wait()
		err = token.Error()
		if err == nil || attempt >= pc.maxRetries {
			return err
		}
		pc.log.Warnf("publish %s failed (attempt %d): %v", topic, attempt+1, err)
		time.Sleep(pc.backoff * time.Duration(attempt+1))
	}
}

// Subscribe registers the handler for the topic and remembers it for
// redelivery after reconnects.
func (pc *PahoClient) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	cb := func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	}
	pc.mu.Lock()
	pc.subs[topic] = cb
	pc.mu.Unlock()
	token := pc.cli.Subscribe(topic, pc.qos, cb)
	token.Wait()
	return token.Error()
}

// Close disconnects from the broker.
func (pc *PahoClient) Close() {
	if pc.cli.IsConnected() {
		pc.cli.Disconnect(250)
	}
}
