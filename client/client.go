package client

import (
	"io"

	"github.com/baetyl/baetyl-endpoint/v2/config"
)

// Client publishes endpoint manifests to a transport
type Client interface {
	SendOrDrop(msg *config.TargetMsg) error
	Start() error
	io.Closer
}
