package announce

import (
	"fmt"

	"github.com/baetyl/baetyl-go/v2/errors"
	"github.com/baetyl/baetyl-go/v2/mqtt"

	"github.com/baetyl/baetyl-endpoint/v2/client"
	"github.com/baetyl/baetyl-endpoint/v2/config"
)

// ClientFactory creates the transport of a configured client
type ClientFactory func(info config.ClientInfo) (client.Client, error)

// NewClient creates a client according to its kind
func NewClient(info config.ClientInfo) (s client.Client, err error) {
	switch info.Kind {
	case config.KindMqtt:
		cfg := new(mqtt.ClientConfig)
		if err = info.Parse(cfg); err != nil {
			return nil, errors.Trace(err)
		}
		if cfg.ClientID == "" {
			cfg.ClientID = generateClientID(info.Name)
		}
		cfg.CleanSession = true
		s, err = client.NewMqttClient(cfg)
	case config.KindHTTP:
		cfg := new(client.HTTPClientCfg)
		if err = info.Parse(cfg); err != nil {
			return nil, errors.Trace(err)
		}
		s, err = client.NewHTTPClient(cfg)
	case config.KindKafka:
		cfg := new(client.KafkaClientCfg)
		if err = info.Parse(cfg); err != nil {
			return nil, errors.Trace(err)
		}
		s, err = client.NewKafkaClient(cfg)
	case config.KindRabbit:
		cfg := new(client.RabbitClientCfg)
		if err = info.Parse(cfg); err != nil {
			return nil, errors.Trace(err)
		}
		s, err = client.NewRabbitClient(cfg)
	case config.KindS3:
		cfg := new(client.S3ClientCfg)
		if err = info.Parse(cfg); err != nil {
			return nil, errors.Trace(err)
		}
		s, err = client.NewS3Client(cfg)
	default:
		err = errors.Errorf("client kind (%s) is not supported", info.Kind)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	return s, nil
}

func generateClientID(name string) string {
	return fmt.Sprintf("%s-%s", "baetyl-endpoint", name)
}
