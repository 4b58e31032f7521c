// Package publish mirrors samples to an MQTT broker. Publishing happens on a
// worker goroutine fed by a bounded queue, so sensor ticks never block on
// the network; samples are dropped when the queue is full.
package publish

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/luki/iotsim/internal/config"
	"github.com/luki/iotsim/internal/errors"
	"github.com/luki/iotsim/internal/history"
	"github.com/luki/iotsim/internal/sensor"
)

// Client is the part of mqtt.Client the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Message is the JSON payload of one published sample.
type Message struct {
	SensorID  string  `json:"sensorId"`
	Device    string  `json:"device"`
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit,omitempty"`
}

const defaultConnectTimeout = 5 * time.Second

type job struct {
	topic string
	msg   Message
}

// Publisher forwards samples to MQTT.
type Publisher struct {
	client Client
	prefix string
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan job
	wg     sync.WaitGroup

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// Connect dials the configured broker and returns a running publisher.
func Connect(cfg config.MQTTConfig, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("connected to MQTT broker", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("lost connection to MQTT broker", "broker", cfg.Broker, "err", err)
	})

	timeout := cfg.ConnectTimeout.Duration
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, errors.New(errors.ErrPublish,
			fmt.Sprintf("Timed out connecting to MQTT broker %s", cfg.Broker),
			"Check that the broker is running, or drop --mqtt")
	}
	if err := token.Error(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrPublish,
			fmt.Sprintf("Failed to connect to MQTT broker %s", cfg.Broker),
			"Check the broker URL, e.g. tcp://localhost:1883")
	}
	return New(client, cfg.TopicPrefix, cfg.QueueSize, logger), nil
}

// New starts a publisher over an already connected client.
func New(client Client, prefix string, queueSize int, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if queueSize < 1 {
		queueSize = 1
	}
	p := &Publisher{
		client: client,
		prefix: prefix,
		logger: logger,
		queue:  make(chan job, queueSize),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Topic returns the topic samples of spec are published to.
func (p *Publisher) Topic(spec sensor.Spec) string {
	return fmt.Sprintf("%s/%s/%s", p.prefix, spec.ID, spec.Device)
}

// Observe queues a sample for publishing. It has the sensor.Observer
// signature and never blocks.
func (p *Publisher) Observe(spec sensor.Spec, s history.Sample) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}

	j := job{
		topic: p.Topic(spec),
		msg: Message{
			SensorID:  spec.ID,
			Device:    spec.Device,
			Timestamp: s.Timestamp,
			Value:     s.Value,
			Unit:      spec.Unit,
		},
	}
	select {
	case p.queue <- j:
	default:
		p.dropped.Add(1)
	}
}

// Stats returns how many samples were published, dropped on a full queue,
// and rejected by the broker.
func (p *Publisher) Stats() (published, dropped, failed uint64) {
	return p.published.Load(), p.dropped.Load(), p.failed.Load()
}

// Close drains the queue and disconnects. It is safe to call more than once.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.client.Disconnect(250)
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for j := range p.queue {
		payload, err := json.Marshal(j.msg)
		if err != nil {
			p.failed.Add(1)
			p.logger.Error("failed to marshal sample", "topic", j.topic, "err", err)
			continue
		}

		token := p.client.Publish(j.topic, 0, false, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			p.failed.Add(1)
			p.logger.Warn("failed to publish sample", "topic", j.topic, "err", err)
			continue
		}
		p.published.Add(1)
		p.logger.Debug("published sample", "topic", j.topic, "value", j.msg.Value)
	}
}
