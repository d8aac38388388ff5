// Package mqtt implements a base that publishes velocity commands as geometry_msgs/Twist messages to
// an MQTT topic, the way a ROS cmd_vel bridge consumes them.
package mqtt

import (
	"context"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/depthview/depthview/components/base"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/resource"
	rutils "github.com/depthview/depthview/utils"
)

// Model is the registered model name.
const Model = resource.Model("mqtt")

// Defaults for unset attributes.
const (
	DefaultTopic          = "robot/cmd_vel"
	DefaultConnectTimeout = 5 * time.Second
	DefaultPublishTimeout = 2 * time.Second
	disconnectQuiesceMs   = 250
)

var errNotConnected = errors.New("mqtt not connected")

// newClient is replaced in tests.
var newClient = mqtt.NewClient

func init() {
	base.Register(Model, resource.Registration[base.Base, *Config]{Constructor: NewBase})
}

// Config is the mqtt base's attributes.
type Config struct {
	Broker   string `json:"broker"`
	Topic    string `json:"topic,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	QoS      int    `json:"qos,omitempty"`
	Retained bool   `json:"retained,omitempty"`
	Encoding string `json:"encoding,omitempty"`

	ConnectTimeout string `json:"connect_timeout,omitempty"`
	PublishTimeout string `json:"publish_timeout,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.Broker == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "broker")
	}
	if cfg.QoS < 0 || cfg.QoS > 2 {
		return utils.NewConfigValidationError(path, errors.Errorf("qos must be 0, 1 or 2, got %d", cfg.QoS))
	}
	switch Encoding(cfg.Encoding) {
	case "", EncodingJSON, EncodingMsgpack:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown encoding %q", cfg.Encoding))
	}
	if _, err := parseTimeout(cfg.ConnectTimeout, DefaultConnectTimeout); err != nil {
		return utils.NewConfigValidationError(path, errors.Wrap(err, "connect_timeout"))
	}
	if _, err := parseTimeout(cfg.PublishTimeout, DefaultPublishTimeout); err != nil {
		return utils.NewConfigValidationError(path, errors.Wrap(err, "publish_timeout"))
	}
	return nil
}

func parseTimeout(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("must be positive")
	}
	return d, nil
}

// brokerURL adds the tcp scheme to a bare host:port.
func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Stats counts what the base has published.
type Stats struct {
	Connected bool
	Published uint64
	Errors    uint64
}

// Base publishes each velocity command to a topic.
type Base struct {
	name           string
	logger         logging.Logger
	client         mqtt.Client
	broker         string
	topic          string
	qos            byte
	retained       bool
	encoding       Encoding
	publishTimeout time.Duration

	mu        sync.Mutex
	connected bool
	published uint64
	errors    uint64
}

// NewBase connects to the configured broker.
func NewBase(ctx context.Context, conf resource.Config, logger logging.Logger) (base.Base, error) {
	native, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return nil, err
	}
	connectTimeout, err := parseTimeout(native.ConnectTimeout, DefaultConnectTimeout)
	if err != nil {
		return nil, err
	}
	publishTimeout, err := parseTimeout(native.PublishTimeout, DefaultPublishTimeout)
	if err != nil {
		return nil, err
	}

	b := &Base{
		name:           conf.Name,
		logger:         logger,
		broker:         brokerURL(native.Broker),
		topic:          native.Topic,
		qos:            byte(native.QoS),
		retained:       native.Retained,
		encoding:       Encoding(native.Encoding),
		publishTimeout: publishTimeout,
	}
	if b.topic == "" {
		b.topic = DefaultTopic
	}
	if b.encoding == "" {
		b.encoding = EncodingJSON
	}
	clientID := native.ClientID
	if clientID == "" {
		clientID = "depthview-" + uuid.NewString()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.broker)
	opts.SetClientID(clientID)
	opts.SetUsername(native.Username)
	opts.SetPassword(native.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		b.setConnected(true)
		b.logger.Infow("mqtt connection established", "broker", b.broker, "client_id", clientID)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		b.setConnected(false)
		b.logger.Warnw("mqtt connection lost, will auto-reconnect", "broker", b.broker, "error", err)
	})
	b.client = newClient(opts)

	if err := b.connect(ctx, connectTimeout); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Base) connect(ctx context.Context, timeout time.Duration) error {
	b.logger.Infow("connecting to mqtt broker", "broker", b.broker, "topic", b.topic)
	stopSlowLogger := rutils.SlowLogger(ctx, nil, "waiting for mqtt broker", "broker", b.broker, b.logger)
	defer stopSlowLogger()

	token := b.client.Connect()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		b.client.Disconnect(0)
		return ctx.Err()
	case <-timer.C:
		b.client.Disconnect(0)
		return errors.Errorf("mqtt connection to %s timed out after %s", b.broker, timeout)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "mqtt connection to %s failed", b.broker)
	}
	b.setConnected(true)
	return nil
}

func (b *Base) setConnected(connected bool) {
	b.mu.Lock()
	b.connected = connected
	b.mu.Unlock()
}

// SetVelocity publishes the velocities as a Twist.
func (b *Base) SetVelocity(ctx context.Context, linear, angular r3.Vector, extra map[string]interface{}) error {
	return b.publish(ctx, NewTwist(linear, angular))
}

// Stop publishes a zero Twist.
func (b *Base) Stop(ctx context.Context, extra map[string]interface{}) error {
	return b.publish(ctx, Twist{})
}

func (b *Base) publish(ctx context.Context, twist Twist) error {
	payload, err := twist.Marshal(b.encoding)
	if err != nil {
		b.countError()
		return err
	}

	b.mu.Lock()
	connected := b.connected
	b.mu.Unlock()
	if !connected {
		b.countError()
		return errNotConnected
	}

	token := b.client.Publish(b.topic, b.qos, b.retained, payload)
	timer := time.NewTimer(b.publishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		b.countError()
		return ctx.Err()
	case <-timer.C:
		b.countError()
		return errors.Errorf("publish to %s timed out after %s", b.topic, b.publishTimeout)
	}
	if err := token.Error(); err != nil {
		b.countError()
		return errors.Wrapf(err, "publish to %s failed", b.topic)
	}

	b.mu.Lock()
	b.published++
	b.mu.Unlock()
	b.logger.Debugw("twist published", "topic", b.topic, "qos", b.qos, "size", len(payload))
	return nil
}

func (b *Base) countError() {
	b.mu.Lock()
	b.errors++
	b.mu.Unlock()
}

// Topic returns the topic commands are published to.
func (b *Base) Topic() string {
	return b.topic
}

// Stats returns the publish counters.
func (b *Base) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{Connected: b.connected, Published: b.published, Errors: b.errors}
}

// Close disconnects from the broker.
func (b *Base) Close(ctx context.Context) error {
	if b.client.IsConnected() {
		b.client.Disconnect(disconnectQuiesceMs)
		b.logger.Infow("mqtt disconnected", "broker", b.broker)
	}
	b.setConnected(false)
	return nil
}
