package client

import (
	"context"
	"fmt"

	"github.com/baetyl/baetyl-go/v2/errors"
	"github.com/baetyl/baetyl-go/v2/log"
	"github.com/wagslane/go-rabbitmq"

	"github.com/baetyl/baetyl-endpoint/v2/config"
)

type RabbitClientCfg struct {
	Address  string `yaml:"address" json:"address" validate:"nonzero"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

type RabbitClient struct {
	conn   *rabbitmq.Conn
	pub    *rabbitmq.Publisher
	tasks  chan *config.TargetMsg
	ctx    context.Context
	cancel context.CancelFunc
	logger *log.Logger
}

func NewRabbitClient(cfg *RabbitClientCfg) (Client, error) {
	conn, err := rabbitmq.NewConn(rabbitURL(cfg), rabbitmq.WithConnectionOptionsLogging)
	if err != nil {
		return nil, errors.Trace(err)
	}
	pub, err := rabbitmq.NewPublisher(
		conn,
		rabbitmq.WithPublisherOptionsLogging,
	)
	if err != nil {
		conn.Close()
		return nil, errors.Trace(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RabbitClient{
		conn:   conn,
		pub:    pub,
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(chan *config.TargetMsg, config.TaskLength),
		logger: log.With(log.Any("client", "rabbit-mq"), log.Any("address", cfg.Address)),
	}, nil
}

func rabbitURL(cfg *RabbitClientCfg) string {
	if cfg.Username != "" && cfg.Password != "" {
		return fmt.Sprintf("amqp://%s:%s@%s", cfg.Username, cfg.Password, cfg.Address)
	}
	return fmt.Sprintf("amqp://%s", cfg.Address)
}

func (r *RabbitClient) SendOrDrop(msg *config.TargetMsg) error {
	select {
	case <-r.ctx.Done():
		return errors.New("rabbit mq has exited")
	case r.tasks <- msg:
		return nil
	}
}

func (r *RabbitClient) Start() error {
	go func() {
		for {
			select {
			case <-r.ctx.Done():
				return
			case task := <-r.tasks:
				r.RabbitSend(task)
			}
		}
	}()
	return nil
}

func (r *RabbitClient) RabbitSend(task *config.TargetMsg) {
	err := r.pub.Publish(
		task.Data,
		[]string{task.TargetInfo.RoutingKey},
		rabbitmq.WithPublishOptionsContentType("application/json"),
		rabbitmq.WithPublishOptionsExchange(task.TargetInfo.Exchange),
	)
	if err != nil {
		r.logger.Error("failed to publish manifest", log.Any("profile", task.Profile), log.Error(err))
	}
}

// Close closes client
func (r *RabbitClient) Close() error {
	r.cancel()
	r.pub.Close()
	return r.conn.Close()
}
