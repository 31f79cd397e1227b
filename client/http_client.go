package client

import (
	"bytes"
	"context"
	"fmt"
	http2 "net/http"
	"strings"

	"github.com/baetyl/baetyl-go/v2/errors"
	"github.com/baetyl/baetyl-go/v2/http"
	"github.com/baetyl/baetyl-go/v2/log"
	"github.com/baetyl/baetyl-go/v2/utils"

	"github.com/baetyl/baetyl-endpoint/v2/config"
)

type HTTPClientCfg struct {
	Address           string `yaml:"address" json:"address" validate:"nonzero"`
	utils.Certificate `yaml:",inline" json:",inline"`
}

type HTTPClient struct {
	cli     *http.Client
	address string
	tasks   chan *config.TargetMsg
	cancel  context.CancelFunc
	ctx     context.Context
	logger  *log.Logger
}

func NewHTTPClient(cfg *HTTPClientCfg) (Client, error) {
	options := http.NewClientOptions()
	options.Address = cfg.Address
	if strings.HasPrefix(cfg.Address, "https") && (cfg.CA != "" || cfg.InsecureSkipVerify) {
		tlsCfg, err := utils.NewTLSConfigClient(cfg.Certificate)
		if err != nil {
			return nil, errors.Trace(err)
		}
		options.TLSConfig = tlsCfg
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &HTTPClient{
		cli:     http.NewClient(options),
		address: strings.TrimSuffix(cfg.Address, "/"),
		cancel:  cancel,
		ctx:     ctx,
		tasks:   make(chan *config.TargetMsg, config.TaskLength),
		logger:  log.With(log.Any("client", "http"), log.Any("address", cfg.Address)),
	}, nil
}

func (h *HTTPClient) SendOrDrop(msg *config.TargetMsg) error {
	select {
	case <-h.ctx.Done():
		return errors.New("ctx done")
	case h.tasks <- msg:
		return nil
	}
}

func (h *HTTPClient) Start() error {
	go func() {
		for {
			select {
			case <-h.ctx.Done():
				return
			case task := <-h.tasks:
				if err := h.HTTPSend(task); err != nil {
					h.logger.Error("failed to send manifest", log.Any("profile", task.Profile), log.Error(err))
				}
			}
		}
	}()
	return nil
}

func (h *HTTPClient) HTTPSend(task *config.TargetMsg) error {
	header := map[string]string{"Content-Type": "application/json"}
	res, err := h.cli.SendUrl(strings.ToUpper(task.TargetInfo.Method), fmt.Sprintf("%s%s", h.address, task.TargetInfo.Path), bytes.NewReader(task.Data), header)
	if err != nil {
		return errors.Trace(err)
	}
	defer res.Body.Close()
	if res.StatusCode < http2.StatusOK || res.StatusCode > http2.StatusAlreadyReported {
		return errors.Errorf("[%d] %s", res.StatusCode, res.Status)
	}
	h.logger.Debug("HTTP send manifest", log.Any("path", task.TargetInfo.Path), log.Any("profile", task.Profile))
	return nil
}

// Close closes client
func (h *HTTPClient) Close() error {
	h.cancel()
	return nil
}
