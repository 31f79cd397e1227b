package client

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/baetyl/baetyl-go/v2/errors"
	"github.com/baetyl/baetyl-go/v2/log"
	"github.com/baetyl/baetyl-go/v2/utils"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/baetyl/baetyl-endpoint/v2/config"
)

type KafkaClientCfg struct {
	Address           []string      `yaml:"address" json:"address" validate:"nonzero"`
	SASLType          string        `yaml:"saslType" json:"saslType" default:""`
	Username          string        `yaml:"username" json:"username"`
	Password          string        `yaml:"password" json:"password"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout" default:"20s"`
	utils.Certificate `yaml:",inline" json:",inline"`
}

type KafkaClient struct {
	writer *kafka.Writer
	tasks  chan *config.TargetMsg
	ctx    context.Context
	cancel context.CancelFunc
	logger *log.Logger
}

func NewKafkaClient(cfg *KafkaClientCfg) (Client, error) {
	dialer, err := newKafkaDialer(cfg)
	if err != nil {
		return nil, errors.Trace(err)
	}
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  cfg.Address,
		Dialer:   dialer,
		Balancer: &kafka.Hash{},
	})
	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaClient{
		writer: w,
		tasks:  make(chan *config.TargetMsg, config.TaskLength),
		ctx:    ctx,
		cancel: cancel,
		logger: log.With(log.Any("client", "kafka")),
	}, nil
}

func newKafkaDialer(cfg *KafkaClientCfg) (*kafka.Dialer, error) {
	var tlsCfg *tls.Config
	var err error
	if cfg.CA != "" && cfg.Cert != "" && cfg.Key != "" {
		tlsCfg, err = utils.NewTLSConfigClient(utils.Certificate{
			CA:                 cfg.CA,
			Cert:               cfg.Cert,
			Key:                cfg.Key,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		})
		if err != nil {
			return nil, err
		}
	}
	dialer := &kafka.Dialer{
		Timeout:   cfg.Timeout,
		DualStack: true,
		TLS:       tlsCfg,
	}
	switch cfg.SASLType {
	case "":
	case "plain":
		dialer.SASLMechanism = plain.Mechanism{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	case "scram256":
		dialer.SASLMechanism, err = scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
	case "scram512":
		dialer.SASLMechanism, err = scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
	default:
		err = errors.Errorf("sasl type (%s) is not supported", cfg.SASLType)
	}
	if err != nil {
		return nil, err
	}
	return dialer, nil
}

func (k *KafkaClient) SendOrDrop(msg *config.TargetMsg) error {
	select {
	case <-k.ctx.Done():
		return errors.New("ctx done")
	case k.tasks <- msg:
		return nil
	}
}

func (k *KafkaClient) Start() error {
	go func() {
		for {
			select {
			case <-k.ctx.Done():
				return
			case task := <-k.tasks:
				k.KafkaSend(task)
			}
		}
	}()
	return nil
}

// KafkaSend writes the manifest keyed by profile so that every profile keeps its order
func (k *KafkaClient) KafkaSend(task *config.TargetMsg) {
	err := k.writer.WriteMessages(k.ctx, kafka.Message{
		Topic: task.TargetInfo.Topic,
		Key:   []byte(task.Profile),
		Value: task.Data,
	})
	if err != nil {
		k.logger.Error("failed to write kafka msg", log.Any("topic", task.TargetInfo.Topic), log.Error(err))
	}
}

// Close closes client
func (k *KafkaClient) Close() error {
	k.cancel()
	return k.writer.Close()
}
