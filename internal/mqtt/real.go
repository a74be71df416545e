package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Options configures a RealPublisher.
type Options struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	Encoding    Encoding
	// BufferSize is how many publishes are kept while disconnected.
	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker. Publishes made while the
// connection is down are held in an outbox and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	opts   Options

	mu  sync.Mutex
	box *outbox
}

// NewRealPublisher creates a publisher for the given broker. It does not
// wait for the connection: paho keeps retrying in the background.
func NewRealPublisher(o Options) *RealPublisher {
	p := newPublisher(o)
	o = p.opts

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})
	if will := willPayload(); will != nil {
		opts.SetBinaryWill(SystemTopic(o.TopicPrefix), will, 1, true)
	}

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func newPublisher(o Options) *RealPublisher {
	if o.TopicPrefix == "" {
		o.TopicPrefix = DefaultTopicPrefix
	}
	if o.Encoding == "" {
		o.Encoding = EncodingJSON
	}
	return &RealPublisher{
		opts: o,
		box:  newOutbox(o.BufferSize),
	}
}

// willPayload is the retained SHUTDOWN the broker sends when the connection
// drops. It carries no timestamp since the broker may send it long after the
// client built it.
func willPayload() []byte {
	will, err := FormatSystemPayload(SystemEvent{Event: "SHUTDOWN", Reason: "LWT"})
	if err != nil {
		log.Printf("mqtt: format will: %v", err)
		return nil
	}
	return will
}

// onConnect replays the outbox. paho reports the connection open before it
// calls this, so a send that finds the connection closed has already pushed
// under mu by the time the backlog is taken.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	backlog := p.box.take()
	p.mu.Unlock()

	log.Printf("mqtt: connected to %s, replaying %d buffered messages", p.opts.Broker, len(backlog))
	for _, m := range backlog {
		token := c.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
			log.Printf("mqtt: replay to %s failed: %v", m.topic, token.Error())
		}
	}
}

// IsConnected reports whether the client currently has a live connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns how many publishes wait for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.box.len()
}

func (p *RealPublisher) send(m pending) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.box.push(m)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Publish sends a button transition to the broker.
func (p *RealPublisher) Publish(msg Message) error {
	payload, err := FormatPayload(msg, p.opts.Encoding)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// Payload IDs let consumers drop QoS 1 redeliveries.
	return p.send(pending{topic: EventsTopic(p.opts.TopicPrefix), payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event to the broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(pending{topic: SystemTopic(p.opts.TopicPrefix), payload: payload, qos: 1, retained: event.Retained})
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
