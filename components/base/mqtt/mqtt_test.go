package mqtt

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/depthview/depthview/components/base"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/resource"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newToken(err error, complete bool) *fakeToken {
	tok := &fakeToken{done: make(chan struct{}), err: err}
	if complete {
		close(tok.done)
	}
	return tok
}

func (tok *fakeToken) Wait() bool {
	<-tok.done
	return true
}

func (tok *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-tok.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (tok *fakeToken) Done() <-chan struct{} { return tok.done }

func (tok *fakeToken) Error() error { return tok.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	opts *mqtt.ClientOptions

	mu           sync.Mutex
	connectErr   error
	hangPublish  bool
	publishErr   error
	connected    bool
	disconnected int
	messages     []published
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *fakeClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = c.connectErr == nil
	return newToken(c.connectErr, true)
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnected++
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hangPublish {
		return newToken(nil, false)
	}
	if c.publishErr != nil {
		return newToken(c.publishErr, true)
	}
	c.messages = append(c.messages, published{topic, qos, retained, payload.([]byte)})
	return newToken(nil, true)
}

func (c *fakeClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token {
	return newToken(nil, true)
}

func (c *fakeClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return newToken(nil, true)
}

func (c *fakeClient) Unsubscribe(...string) mqtt.Token { return newToken(nil, true) }

func (c *fakeClient) AddRoute(string, mqtt.MessageHandler) {}

func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

func (c *fakeClient) sent() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.messages...)
}

func withFakeClient(t *testing.T, client *fakeClient) {
	t.Helper()
	old := newClient
	newClient = func(opts *mqtt.ClientOptions) mqtt.Client {
		client.opts = opts
		return client
	}
	t.Cleanup(func() { newClient = old })
}

func build(t *testing.T, attrs resource.AttributeMap) (base.Base, error) {
	t.Helper()
	return base.FromConfig(context.Background(), resource.Config{Name: "rover", Model: Model, Attributes: attrs}, logging.NewTestLogger(t))
}

func TestPublishesTwist(t *testing.T) {
	client := &fakeClient{}
	withFakeClient(t, client)
	ctx := context.Background()

	b, err := build(t, resource.AttributeMap{"broker": "localhost:1883", "qos": 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, client.opts.Servers[0].String(), test.ShouldEqual, "tcp://localhost:1883")
	test.That(t, strings.HasPrefix(client.opts.ClientID, "depthview-"), test.ShouldBeTrue)
	test.That(t, client.opts.AutoReconnect, test.ShouldBeTrue)

	test.That(t, b.SetVelocity(ctx, r3.Vector{X: 1}, r3.Vector{Z: -0.3}, nil), test.ShouldBeNil)
	test.That(t, b.Stop(ctx, nil), test.ShouldBeNil)

	sent := client.sent()
	test.That(t, len(sent), test.ShouldEqual, 2)
	test.That(t, sent[0].topic, test.ShouldEqual, DefaultTopic)
	test.That(t, sent[0].qos, test.ShouldEqual, byte(1))
	test.That(t, string(sent[0].payload), test.ShouldEqual,
		`{"linear":{"x":1,"y":0,"z":0},"angular":{"x":0,"y":0,"z":-0.3}}`)

	stopped, err := UnmarshalTwist(sent[1].payload, EncodingJSON)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stopped, test.ShouldResemble, Twist{})

	mb := b.(*Base)
	test.That(t, mb.Stats(), test.ShouldResemble, Stats{Connected: true, Published: 2})
	test.That(t, b.Close(ctx), test.ShouldBeNil)
	test.That(t, client.disconnected, test.ShouldEqual, 1)
	test.That(t, b.SetVelocity(ctx, r3.Vector{}, r3.Vector{}, nil), test.ShouldBeError, errNotConnected)
	test.That(t, mb.Stats().Errors, test.ShouldEqual, uint64(1))
}

func TestMsgpackEncoding(t *testing.T) {
	client := &fakeClient{}
	withFakeClient(t, client)

	b, err := build(t, resource.AttributeMap{
		"broker":    "tcp://broker:1883",
		"topic":     "bots/7/cmd_vel",
		"encoding":  "msgpack",
		"client_id": "rover-7",
		"retained":  true,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, client.opts.ClientID, test.ShouldEqual, "rover-7")
	test.That(t, b.SetVelocity(context.Background(), r3.Vector{X: 1}, r3.Vector{Z: 0.3}, nil), test.ShouldBeNil)

	sent := client.sent()
	test.That(t, sent[0].topic, test.ShouldEqual, "bots/7/cmd_vel")
	test.That(t, sent[0].retained, test.ShouldBeTrue)
	twist, err := UnmarshalTwist(sent[0].payload, EncodingMsgpack)
	test.That(t, err, test.ShouldBeNil)
	linear, angular := twist.Vectors()
	test.That(t, linear, test.ShouldResemble, r3.Vector{X: 1})
	test.That(t, angular, test.ShouldResemble, r3.Vector{Z: 0.3})
}

func TestPublishFailures(t *testing.T) {
	client := &fakeClient{}
	withFakeClient(t, client)
	ctx := context.Background()

	b, err := build(t, resource.AttributeMap{"broker": "localhost", "publish_timeout": "20ms"})
	test.That(t, err, test.ShouldBeNil)

	client.mu.Lock()
	client.publishErr = errors.New("broker said no")
	client.mu.Unlock()
	err = b.SetVelocity(ctx, r3.Vector{X: 1}, r3.Vector{}, nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "broker said no")

	client.mu.Lock()
	client.publishErr = nil
	client.hangPublish = true
	client.mu.Unlock()
	err = b.SetVelocity(ctx, r3.Vector{X: 1}, r3.Vector{}, nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "timed out")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	test.That(t, b.SetVelocity(cancelled, r3.Vector{}, r3.Vector{}, nil), test.ShouldBeError, context.Canceled)
	test.That(t, b.(*Base).Stats().Errors, test.ShouldEqual, uint64(3))
}

func TestConnectFailure(t *testing.T) {
	withFakeClient(t, &fakeClient{connectErr: errors.New("refused")})
	_, err := build(t, resource.AttributeMap{"broker": "localhost"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "refused")
}

func TestConfigValidate(t *testing.T) {
	test.That(t, (&Config{}).Validate("base"), test.ShouldNotBeNil)
	test.That(t, (&Config{Broker: "b", QoS: 3}).Validate("base"), test.ShouldNotBeNil)
	test.That(t, (&Config{Broker: "b", Encoding: "xml"}).Validate("base"), test.ShouldNotBeNil)
	test.That(t, (&Config{Broker: "b", PublishTimeout: "0s"}).Validate("base"), test.ShouldNotBeNil)
	test.That(t, (&Config{Broker: "b", ConnectTimeout: "soon"}).Validate("base"), test.ShouldNotBeNil)
	test.That(t, (&Config{Broker: "b", QoS: 2, Encoding: "msgpack"}).Validate("base"), test.ShouldBeNil)
}

func TestUnknownEncoding(t *testing.T) {
	_, err := Twist{}.Marshal("xml")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = UnmarshalTwist([]byte("{"), EncodingJSON)
	test.That(t, err, test.ShouldNotBeNil)
}
