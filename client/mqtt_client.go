package client

import (
	"github.com/256dpi/gomqtt/packet"
	"github.com/baetyl/baetyl-go/v2/errors"
	"github.com/baetyl/baetyl-go/v2/log"
	"github.com/baetyl/baetyl-go/v2/mqtt"

	"github.com/baetyl/baetyl-endpoint/v2/config"
)

type MqttClient struct {
	cli    *mqtt.Client
	logger *log.Logger
}

func NewMqttClient(cfg *mqtt.ClientConfig) (Client, error) {
	ops, err := cfg.ToClientOptions()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &MqttClient{
		cli:    mqtt.NewClient(ops),
		logger: log.With(log.Any("client", "mqtt"), log.Any("address", cfg.Address)),
	}, nil
}

func (m *MqttClient) SendOrDrop(msg *config.TargetMsg) error {
	out := mqtt.NewPublish()
	out.Message = packet.Message{
		Topic:   msg.TargetInfo.Topic,
		Payload: msg.Data,
		QOS:     packet.QOS(msg.TargetInfo.QOS),
	}
	return m.cli.SendOrDrop(out)
}

func (m *MqttClient) Start() error {
	return m.cli.Start(mqtt.NewObserverWrapper(func(*packet.Publish) error {
		return nil
	}, func(*packet.Puback) error {
		return nil
	}, func(err error) {
		m.logger.Error("error occurs in mqtt client", log.Error(err))
	}))
}

// Close closes client
func (m *MqttClient) Close() error {
	if m.cli != nil {
		return m.cli.Close()
	}
	return nil
}
