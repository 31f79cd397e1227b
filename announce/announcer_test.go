package announce

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/baetyl/baetyl-go/v2/errors"
	"github.com/baetyl/baetyl-go/v2/utils"
	"github.com/stretchr/testify/assert"

	"github.com/baetyl/baetyl-endpoint/v2/client"
	"github.com/baetyl/baetyl-endpoint/v2/config"
	"github.com/baetyl/baetyl-endpoint/v2/resolver"
)

const announceConf = `
resolver:
  networkMode: local
  localAddress: 192.168.0.210
canisters:
  - name: frontend
    id: ryjl3-tyaaa-aaaaa-aaaba-cai
identityCanister: rdmx6-jaaaa-aaaaa-aaadq-cai
profiles:
  - name: localhost-chrome
    origin: http://localhost:3000
    userAgent: Chrome
  - name: lan-device
    origin: https://192.168.0.210:3000
    userAgent: Safari
clients:
  - name: broker
    kind: mqtt
    address: tcp://127.0.0.1:1883
  - name: web
    kind: http
    address: http://127.0.0.1:8000
  - name: unused
    kind: kafka
    address:
      - 127.0.0.1:9092
announce:
  targets:
    - client: broker
      topic: endpoints/${profile}
    - client: web
      path: /manifests/${profile}.json
      method: PUT
`

type mockClient struct {
	name    string
	msgs    []*config.TargetMsg
	err     error
	started bool
	closed  bool
	mu      sync.Mutex
}

func (m *mockClient) SendOrDrop(msg *config.TargetMsg) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *mockClient) Start() error {
	m.started = true
	return nil
}

func (m *mockClient) Close() error {
	m.closed = true
	return nil
}

func (m *mockClient) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgs)
}

type mockFactory struct {
	clients map[string]*mockClient
}

func (f *mockFactory) create(info config.ClientInfo) (client.Client, error) {
	cli := &mockClient{name: info.Name}
	f.clients[info.Name] = cli
	return cli, nil
}

func loadConfig(t *testing.T, data string) config.Config {
	var cfg config.Config
	err := utils.UnmarshalYAML([]byte(data), &cfg)
	assert.NoError(t, err)
	return cfg
}

func TestAnnouncer(t *testing.T) {
	cfg := loadConfig(t, announceConf)
	factory := &mockFactory{clients: map[string]*mockClient{}}

	a, err := newAnnouncer(cfg, resolver.NewResolver(cfg.Resolver, nil), factory.create)
	assert.NoError(t, err)
	assert.Len(t, factory.clients, 2)
	assert.NotContains(t, factory.clients, "unused")

	err = a.Start()
	assert.NoError(t, err)
	broker := factory.clients["broker"]
	web := factory.clients["web"]
	assert.True(t, broker.started)
	assert.True(t, web.started)

	assert.Len(t, broker.msgs, 2)
	assert.Equal(t, "endpoints/localhost-chrome", broker.msgs[0].TargetInfo.Topic)
	assert.Equal(t, "endpoints/lan-device", broker.msgs[1].TargetInfo.Topic)
	assert.Len(t, web.msgs, 2)
	assert.Equal(t, "/manifests/localhost-chrome.json", web.msgs[0].TargetInfo.Path)
	assert.Equal(t, "PUT", web.msgs[0].TargetInfo.Method)

	var m resolver.Manifest
	assert.NoError(t, json.Unmarshal(broker.msgs[0].Data, &m))
	assert.Equal(t, "localhost-chrome", m.Profile)
	assert.True(t, m.SubdomainRouting)
	assert.Equal(t, "http://rdmx6-jaaaa-aaaaa-aaadq-cai.localhost:4943", m.IdentityProvider)
	assert.Equal(t, "http://ryjl3-tyaaa-aaaaa-aaaba-cai.localhost:4943", m.Canisters[0].Frontend)
	assert.Equal(t, "http://localhost:4943/?canisterId=ryjl3-tyaaa-aaaaa-aaaba-cai", m.Canisters[0].Service)

	assert.NoError(t, json.Unmarshal(web.msgs[1].Data, &m))
	assert.Equal(t, "lan-device", m.Profile)
	assert.False(t, m.SubdomainRouting)
	assert.Equal(t, "https://192.168.0.210:24943/?canisterId=rdmx6-jaaaa-aaaaa-aaadq-cai", m.IdentityProvider)
	assert.Equal(t, "https://192.168.0.210:14943/?canisterId=ryjl3-tyaaa-aaaaa-aaaba-cai", m.Canisters[0].Frontend)
	assert.Equal(t, "https://192.168.0.210:14943/?canisterId=ryjl3-tyaaa-aaaaa-aaaba-cai", m.Canisters[0].Service)

	// failures of one target do not stop the others
	broker.err = errors.New("broker gone")
	err = a.Announce()
	assert.EqualError(t, err, "broker gone")
	assert.Len(t, web.msgs, 4)

	a.Close()
	assert.True(t, broker.closed)
	assert.True(t, web.closed)
}

func TestAnnouncerInterval(t *testing.T) {
	cfg := loadConfig(t, announceConf)
	cfg.Profiles = nil
	cfg.Announce.Interval = 50 * time.Millisecond
	factory := &mockFactory{clients: map[string]*mockClient{}}

	a, err := newAnnouncer(cfg, resolver.NewResolver(cfg.Resolver, nil), factory.create)
	assert.NoError(t, err)
	assert.NoError(t, a.Start())

	broker := factory.clients["broker"]
	assert.Eventually(t, func() bool {
		return broker.count() >= 3
	}, 2*time.Second, 10*time.Millisecond)
	a.Close()

	broker.mu.Lock()
	msg := broker.msgs[0]
	broker.mu.Unlock()
	assert.Equal(t, DefaultProfile, msg.Profile)
	assert.Equal(t, "endpoints/default", msg.TargetInfo.Topic)

	var m resolver.Manifest
	assert.NoError(t, json.Unmarshal(msg.Data, &m))
	assert.False(t, m.SubdomainRouting)
	assert.Empty(t, m.Origin)
}

func TestAnnouncerConfigError(t *testing.T) {
	cfg := loadConfig(t, announceConf)
	factory := &mockFactory{clients: map[string]*mockClient{}}

	cfg.Announce.Targets = append(cfg.Announce.Targets, config.ClientRef{Client: "missing"})
	_, err := newAnnouncer(cfg, resolver.NewResolver(cfg.Resolver, nil), factory.create)
	assert.EqualError(t, err, "client (missing) not found in target")
	assert.True(t, factory.clients["broker"].closed)
	assert.True(t, factory.clients["web"].closed)

	cfg = loadConfig(t, announceConf)
	cfg.Clients = append(cfg.Clients, config.ClientInfo{Name: "web", Kind: config.KindHTTP})
	_, err = newAnnouncer(cfg, resolver.NewResolver(cfg.Resolver, nil), factory.create)
	assert.EqualError(t, err, "duplicate client (web)")
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(config.ClientInfo{Name: "x", Kind: "zeromq"})
	assert.EqualError(t, err, "client kind (zeromq) is not supported")

	cli, err := NewClient(config.ClientInfo{
		Name:  "web",
		Kind:  config.KindHTTP,
		Value: map[string]interface{}{"address": "http://127.0.0.1:8000"},
	})
	assert.NoError(t, err)
	assert.IsType(t, &client.HTTPClient{}, cli)
	assert.NoError(t, cli.Close())

	cli, err = NewClient(config.ClientInfo{
		Name:  "store",
		Kind:  config.KindS3,
		Value: map[string]interface{}{"address": "http://127.0.0.1:9000", "bucket": "endpoints"},
	})
	assert.NoError(t, err)
	assert.IsType(t, &client.S3Client{}, cli)

	assert.Equal(t, "baetyl-endpoint-broker", generateClientID("broker"))
}
