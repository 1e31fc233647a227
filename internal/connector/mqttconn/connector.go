package mqttconn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector"
)

// disconnectQuiesce is how long paho may spend flushing in-flight
// messages on disconnect.
const disconnectQuiesce = 250 // milliseconds

// broker is the narrow slice of paho's client used by the connector.
type broker interface {
	Connect() pahomqtt.Token
	Disconnect(quiesce uint)
	Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token
	Unsubscribe(topics ...string) pahomqtt.Token
	IsConnected() bool
}

// Connector subscribes to topics on an external MQTT broker and emits
// one data point per received message. It is push-driven: there is no
// poll loop, and success counters advance as messages arrive.
type Connector struct {
	*connector.Base

	opts connector.MQTTOptions
	qos  byte
	subs *connector.SubscriptionSet

	client broker
}

// New constructs an external-MQTT connector. Construction is pure; the
// broker session opens on Connect and paho handles reconnects from
// there.
func New(cfg *connector.Config, logger connector.Logger) (connector.Connector, error) {
	var opts connector.MQTTOptions
	if err := cfg.DecodeParams(&opts); err != nil {
		return nil, err
	}
	if opts.Host == "" {
		return nil, fmt.Errorf("%w: mqtt requires params.host", connector.ErrInvalidConfig)
	}
	if opts.QoS < 0 || opts.QoS > 2 {
		return nil, fmt.Errorf("%w: qos %d out of range", connector.ErrInvalidConfig, opts.QoS)
	}
	for _, m := range cfg.Mappings {
		if m.Topic == "" {
			return nil, fmt.Errorf("%w: mapping %q has no topic", connector.ErrInvalidConfig, m.ID)
		}
	}

	c := &Connector{
		Base: connector.NewBase(cfg, logger),
		opts: opts,
		qos:  byte(opts.QoS),
		subs: connector.NewSubscriptionSet(),
	}
	c.client = pahomqtt.NewClient(c.clientOptions(cfg))
	return c, nil
}

// clientOptions translates the parameter block into a paho session:
// auto-reconnect with status transitions surfaced through the base.
func (c *Connector) clientOptions(cfg *connector.Config) *pahomqtt.ClientOptions {
	scheme := "tcp"
	if c.opts.TLS {
		scheme = "ssl"
	}
	port := c.opts.Port
	if port == 0 {
		port = 1883
	}
	clientID := c.opts.ClientID
	if clientID == "" {
		clientID = "sensormine-" + cfg.ID
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, c.opts.Host, port)).
		SetClientID(clientID).
		SetConnectTimeout(cfg.ConnectTimeout()).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(cfg.ReconnectInterval()).
		SetOrderMatters(false)

	if c.opts.Username != "" {
		opts.SetUsername(c.opts.Username)
		opts.SetPassword(c.opts.Password)
	}

	opts.SetOnConnectHandler(func(pahomqtt.Client) {
		c.SetStatus(connector.StatusConnected)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.SetStatusMessage(connector.StatusReconnecting, err.Error())
		c.RecordFailure(err.Error())
	})

	return opts
}

// Connect opens the broker session.
func (c *Connector) Connect(ctx context.Context) error {
	c.SetStatus(connector.StatusConnecting)

	token := c.client.Connect()
	if !token.WaitTimeout(c.Config().ConnectTimeout()) {
		c.SetError("broker connect timeout")
		return fmt.Errorf("%w: broker connect timeout", connector.ErrConnectionFailed)
	}
	if err := token.Error(); err != nil {
		c.SetError(err.Error())
		return fmt.Errorf("%w: %w", connector.ErrConnectionFailed, err)
	}

	c.SetStatus(connector.StatusConnected)
	return nil
}

// Disconnect closes the broker session.
func (c *Connector) Disconnect(ctx context.Context) error {
	c.client.Disconnect(disconnectQuiesce)
	c.SetStatus(connector.StatusDisconnected)
	return nil
}

// Start subscribes every mapping's topic. Data then arrives through the
// broker's push path until Stop.
func (c *Connector) Start(ctx context.Context) error {
	if !c.Connected() {
		return connector.ErrNotConnected
	}

	for _, m := range c.Config().Mappings {
		mapping := m
		token := c.client.Subscribe(mapping.Topic, c.qos, func(_ pahomqtt.Client, msg pahomqtt.Message) {
			c.handleMessage(mapping, msg.Payload())
		})
		if !token.WaitTimeout(c.Config().ConnectTimeout()) || token.Error() != nil {
			err := token.Error()
			if err == nil {
				err = errors.New("subscribe timeout")
			}
			c.RecordFailure(err.Error())
			return fmt.Errorf("%w: subscribe %q: %w", connector.ErrConnectionFailed, mapping.Topic, err)
		}

		c.subs.Add(connector.Subscription{
			ID:    uuid.NewString(),
			TagID: mapping.ID,
			Topic: mapping.Topic,
		})
	}

	c.logInfo("subscriptions established", "count", c.subs.Len())
	return nil
}

// Stop unsubscribes every active topic. Idempotent.
func (c *Connector) Stop() error {
	removed := c.subs.Clear()
	if len(removed) == 0 {
		return nil
	}

	topics := make([]string, 0, len(removed))
	for _, sub := range removed {
		topics = append(topics, sub.Topic)
	}

	if c.client.IsConnected() {
		token := c.client.Unsubscribe(topics...)
		token.WaitTimeout(time.Second)
	}
	return nil
}

// Close stops subscriptions, closes the session, and closes the event
// channel.
func (c *Connector) Close() error {
	_ = c.Stop()
	err := c.Disconnect(context.Background())
	c.CloseEvents()
	return err
}

// Subscriptions returns the active subscription records.
func (c *Connector) Subscriptions() []connector.Subscription {
	return c.subs.List()
}

// handleMessage decodes one broker message against its mapping and
// emits the point. Undecodable payloads emit a Bad-quality point so the
// failure is visible downstream.
func (c *Connector) handleMessage(m connector.PointMapping, payload []byte) {
	value, err := decodePayload(m, payload)
	if err != nil {
		c.RecordFailure(err.Error())
		c.Emit([]connector.DataPoint{c.NewBadPoint(m, err)})
		return
	}

	c.RecordSuccess(0)
	c.Emit([]connector.DataPoint{c.NewGoodPoint(m, value, time.Now().UTC())})
}

// decodePayload interprets a message payload per the mapping's data
// type. Payloads are either raw scalars or JSON objects carrying the
// reading under a "value" key; numeric values pass through the mapping's
// scale factor and offset.
func decodePayload(m connector.PointMapping, payload []byte) (any, error) {
	text := strings.TrimSpace(string(payload))

	if strings.HasPrefix(text, "{") {
		var doc map[string]any
		if err := json.Unmarshal([]byte(text), &doc); err != nil {
			return nil, fmt.Errorf("%w: malformed JSON payload: %w", connector.ErrReadFailed, err)
		}
		inner, ok := doc["value"]
		if !ok {
			return nil, fmt.Errorf("%w: JSON payload has no value field", connector.ErrReadFailed)
		}
		switch v := inner.(type) {
		case string:
			text = v
		case bool:
			text = strconv.FormatBool(v)
		case float64:
			text = strconv.FormatFloat(v, 'g', -1, 64)
		default:
			return nil, fmt.Errorf("%w: JSON value field is %T", connector.ErrReadFailed, inner)
		}
	}

	switch m.DataType {
	case connector.TypeString:
		return text, nil

	case connector.TypeBoolean:
		switch strings.ToLower(text) {
		case "true", "1", "on":
			return true, nil
		case "false", "0", "off":
			return false, nil
		}
		return nil, fmt.Errorf("%w: %q is not a boolean payload", connector.ErrReadFailed, text)

	default:
		raw, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not numeric: %w", connector.ErrReadFailed, text, err)
		}
		return m.Transform(raw), nil
	}
}

func (c *Connector) logInfo(msg string, args ...any) {
	if log := c.Logger(); log != nil {
		args = append(args, "connector_id", c.ID())
		log.Info(msg, args...)
	}
}
