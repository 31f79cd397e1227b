package config

import (
	"encoding/json"
	"time"

	"github.com/baetyl/baetyl-go/v2/utils"
)

type Kind string

// All kinds
const (
	KindMqtt   Kind = "mqtt"
	KindHTTP   Kind = "http"
	KindRabbit Kind = "rabbit-mq"
	KindKafka  Kind = "kafka"
	KindS3     Kind = "s3"
)

// NetworkMode the network the canisters are deployed to
type NetworkMode string

// All network modes
const (
	NetworkProduction NetworkMode = "production"
	NetworkLocal      NetworkMode = "local"
)

const TaskLength = 1024

type TargetMsg struct {
	TargetInfo ClientRef
	Profile    string
	Data       []byte
}

// Config config of endpoint service
type Config struct {
	Resolver         ResolverConfig `yaml:"resolver" json:"resolver"`
	Server           ServerConfig   `yaml:"server" json:"server"`
	Canisters        []CanisterInfo `yaml:"canisters" json:"canisters" validate:"dive"`
	IdentityCanister string         `yaml:"identityCanister" json:"identityCanister"`
	Profiles         []ProfileInfo  `yaml:"profiles" json:"profiles" validate:"dive"`
	Clients          []ClientInfo   `yaml:"clients" json:"clients" validate:"dive"`
	Announce         AnnounceInfo   `yaml:"announce" json:"announce"`
}

// ResolverConfig config of endpoint resolver
type ResolverConfig struct {
	NetworkMode  NetworkMode `yaml:"networkMode" json:"networkMode" validate:"nonzero"`
	LocalAddress string      `yaml:"localAddress" json:"localAddress"`
	ReplicaPort  int         `yaml:"replicaPort" json:"replicaPort" default:"4943"`
	ServicePort  int         `yaml:"servicePort" json:"servicePort" default:"14943"`
	IdentityPort int         `yaml:"identityPort" json:"identityPort" default:"24943"`
}

// ServerConfig config of resolution http server
type ServerConfig struct {
	Port              int32 `yaml:"port" json:"port" default:"8080"`
	utils.Certificate `yaml:",inline" json:",inline"`
}

// CanisterInfo canister info
type CanisterInfo struct {
	Name string `yaml:"name" json:"name" validate:"nonzero"`
	ID   string `yaml:"id" json:"id" validate:"nonzero"`
}

// ProfileInfo a client environment to announce endpoints for
type ProfileInfo struct {
	Name      string `yaml:"name" json:"name" validate:"nonzero"`
	Origin    string `yaml:"origin" json:"origin"`
	UserAgent string `yaml:"userAgent" json:"userAgent"`
}

// ClientInfo client info
type ClientInfo struct {
	Name  string                 `yaml:"name" json:"name" validate:"nonzero"`
	Kind  Kind                   `yaml:"kind" json:"kind" validate:"nonzero"`
	Value map[string]interface{} `yaml:",inline" json:",inline"`
}

// Parse parse to get real config
func (v *ClientInfo) Parse(in any) error {
	data, err := json.Marshal(v.Value)
	if err != nil {
		return err
	}
	return utils.UnmarshalJSON(data, in)
}

// AnnounceInfo announce info
type AnnounceInfo struct {
	Interval time.Duration `yaml:"interval" json:"interval" default:"0s"`
	Targets  []ClientRef   `yaml:"targets" json:"targets" validate:"dive"`
}

type RabbitMQRef struct {
	Exchange   string `yaml:"exchange" json:"exchange" default:""`
	RoutingKey string `yaml:"routingKey" json:"routingKey" default:""`
}

type HTTPRef struct {
	Path   string `yaml:"path" json:"path" default:""`
	Method string `yaml:"method" json:"method" default:"POST"`
}

type MQTTRef struct {
	QOS   int    `yaml:"qos" json:"qos" default:"0" validate:"min=0,max=1"`
	Topic string `yaml:"topic" json:"topic" default:""`
}

// ClientRef ref to client
type ClientRef struct {
	Client      string `yaml:"client" json:"client" validate:"nonzero"`
	MQTTRef     `yaml:",inline" json:",inline"`
	HTTPRef     `yaml:",inline" json:",inline"`
	RabbitMQRef `yaml:",inline" json:",inline"`
}
