package announce

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/baetyl/baetyl-go/v2/errors"
	"github.com/baetyl/baetyl-go/v2/log"
	"github.com/baetyl/baetyl-go/v2/utils"

	"github.com/baetyl/baetyl-endpoint/v2/client"
	"github.com/baetyl/baetyl-endpoint/v2/config"
	"github.com/baetyl/baetyl-endpoint/v2/resolver"
)

const (
	// DefaultProfile is announced when no profile is configured
	DefaultProfile = "default"
	// ProfilePlaceholder is replaced by the profile name in topics, paths and routing keys
	ProfilePlaceholder = "${profile}"
)

// Announcer publishes the endpoint manifest of every profile to every target
type Announcer struct {
	cfg      config.Config
	resolver resolver.Resolver
	clients  map[string]client.Client // key: client name
	tomb     utils.Tomb
	ticking  bool
	logger   *log.Logger
}

func NewAnnouncer(cfg config.Config, r resolver.Resolver) (*Announcer, error) {
	return newAnnouncer(cfg, r, NewClient)
}

func newAnnouncer(cfg config.Config, r resolver.Resolver, factory ClientFactory) (*Announcer, error) {
	infos := make(map[string]config.ClientInfo) // key: client name
	for _, v := range cfg.Clients {
		if _, ok := infos[v.Name]; ok {
			return nil, errors.Errorf("duplicate client (%s)", v.Name)
		}
		infos[v.Name] = v
	}
	a := &Announcer{
		cfg:      cfg,
		resolver: r,
		clients:  make(map[string]client.Client),
		logger:   log.With(log.Any("main", "announcer")),
	}
	for _, target := range cfg.Announce.Targets {
		info, ok := infos[target.Client]
		if !ok {
			a.Close()
			return nil, errors.Trace(errors.Errorf("client (%s) not found in target", target.Client))
		}
		if _, ok = a.clients[info.Name]; ok {
			continue
		}
		cli, err := factory(info)
		if err != nil {
			a.Close()
			return nil, errors.Trace(err)
		}
		a.clients[info.Name] = cli
	}
	return a, nil
}

// Start starts all clients and announces, periodically if an interval is configured
func (a *Announcer) Start() error {
	for name, cli := range a.clients {
		if err := cli.Start(); err != nil {
			return errors.Trace(errors.Errorf("failed to start client (%s): %s", name, err.Error()))
		}
	}
	if err := a.Announce(); err != nil {
		a.logger.Error("failed to announce endpoints", log.Error(err))
	}
	if a.cfg.Announce.Interval <= 0 {
		return nil
	}
	a.ticking = true
	return a.tomb.Go(func() error {
		ticker := time.NewTicker(a.cfg.Announce.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-a.tomb.Dying():
				return nil
			case <-ticker.C:
				if err := a.Announce(); err != nil {
					a.logger.Error("failed to announce endpoints", log.Error(err))
				}
			}
		}
	})
}

// Announce sends the manifest of every profile to every target once,
// the first failure is returned after all targets are tried
func (a *Announcer) Announce() error {
	var first error
	for _, profile := range a.Profiles() {
		data, err := json.Marshal(a.Manifest(profile))
		if err != nil {
			return errors.Trace(err)
		}
		for _, target := range a.cfg.Announce.Targets {
			msg := &config.TargetMsg{
				TargetInfo: expandTarget(target, profile.Name),
				Profile:    profile.Name,
				Data:       data,
			}
			err = a.clients[target.Client].SendOrDrop(msg)
			if err != nil {
				a.logger.Error("failed to send manifest", log.Any("client", target.Client), log.Any("profile", profile.Name), log.Error(err))
				if first == nil {
					first = errors.Trace(err)
				}
				continue
			}
			a.logger.Debug("send manifest", log.Any("client", target.Client), log.Any("profile", profile.Name))
		}
	}
	return first
}

// Profiles returns the configured profiles or the default one
func (a *Announcer) Profiles() []config.ProfileInfo {
	if len(a.cfg.Profiles) == 0 {
		return []config.ProfileInfo{{Name: DefaultProfile}}
	}
	return a.cfg.Profiles
}

// Manifest resolves the manifest as seen from the profile
func (a *Announcer) Manifest(profile config.ProfileInfo) *resolver.Manifest {
	var env resolver.Environment
	if profile.Origin != "" || profile.UserAgent != "" {
		env = resolver.NewEnvironment(profile.Origin, profile.UserAgent)
	}
	m := resolver.NewManifest(a.resolver.WithEnvironment(env), a.cfg.Canisters, a.cfg.IdentityCanister)
	m.Profile = profile.Name
	return m
}

func (a *Announcer) Close() {
	if a.ticking {
		a.tomb.Kill(nil)
		if err := a.tomb.Wait(); err != nil {
			a.logger.Error("failed to wait on tomb", log.Error(err))
		}
	}
	for name, cli := range a.clients {
		if err := cli.Close(); err != nil {
			a.logger.Error("failed to close client", log.Any("client", name), log.Error(err))
		}
	}
}

func expandTarget(target config.ClientRef, profile string) config.ClientRef {
	target.Topic = strings.Replace(target.Topic, ProfilePlaceholder, profile, -1)
	target.Path = strings.Replace(target.Path, ProfilePlaceholder, profile, -1)
	target.RoutingKey = strings.Replace(target.RoutingKey, ProfilePlaceholder, profile, -1)
	return target
}
