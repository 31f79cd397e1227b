package resolver

import (
	"fmt"
	"strings"

	"github.com/baetyl/baetyl-endpoint/v2/config"
)

const (
	BackendDomain    = "ic0.app"
	FrontendDomain   = "icp0.io"
	IdentityProvider = "https://identity.ic0.app"

	localhost = "localhost"
	// only chrome resolves *.localhost to the loopback address by itself
	subdomainBrowser = "chrome"
)

type Resolver interface {
	// ResolveServiceEndpoint resolves the replica address used to call a canister
	ResolveServiceEndpoint(canisterID string) string
	// ResolveUserFacingEndpoint resolves the address a browser navigates to for a canister
	ResolveUserFacingEndpoint(canisterID string) string
	// ResolveIdentityProviderEndpoint resolves the address of the identity provider
	ResolveIdentityProviderEndpoint(canisterID string) string
	// ResolveSubdomainEndpoint resolves the *.localhost address of a canister
	ResolveSubdomainEndpoint(canisterID string) string
	// SupportsAddressSubdomainRouting reports whether the environment can reach *.localhost
	SupportsAddressSubdomainRouting() bool
	// WithEnvironment returns a resolver with the same config bound to env
	WithEnvironment(env Environment) Resolver
	// Environment returns the bound environment, nil if there is none
	Environment() Environment
	// NetworkMode returns the configured network mode
	NetworkMode() config.NetworkMode
}

type resolver struct {
	cfg config.ResolverConfig
	env Environment
}

// NewResolver creates a resolver, env may be nil when there is no caller context
func NewResolver(cfg config.ResolverConfig, env Environment) Resolver {
	return &resolver{cfg: cfg, env: env}
}

func (r *resolver) WithEnvironment(env Environment) Resolver {
	return &resolver{cfg: r.cfg, env: env}
}

func (r *resolver) Environment() Environment {
	return r.env
}

func (r *resolver) NetworkMode() config.NetworkMode {
	return r.cfg.NetworkMode
}

func (r *resolver) ResolveServiceEndpoint(canisterID string) string {
	if !r.isLocal() {
		return fmt.Sprintf("https://%s.%s", canisterID, BackendDomain)
	}
	if r.onLocalhost() {
		return fmt.Sprintf("http://%s:%d/?canisterId=%s", localhost, r.cfg.ReplicaPort, canisterID)
	}
	return r.lanEndpoint(r.cfg.ServicePort, canisterID)
}

func (r *resolver) ResolveUserFacingEndpoint(canisterID string) string {
	if !r.isLocal() {
		return fmt.Sprintf("https://%s.%s", canisterID, FrontendDomain)
	}
	if r.SupportsAddressSubdomainRouting() {
		return r.ResolveSubdomainEndpoint(canisterID)
	}
	return r.lanEndpoint(r.cfg.ServicePort, canisterID)
}

func (r *resolver) ResolveIdentityProviderEndpoint(canisterID string) string {
	if !r.isLocal() {
		return IdentityProvider
	}
	if r.SupportsAddressSubdomainRouting() {
		return r.ResolveSubdomainEndpoint(canisterID)
	}
	return r.lanEndpoint(r.cfg.IdentityPort, canisterID)
}

func (r *resolver) ResolveSubdomainEndpoint(canisterID string) string {
	return fmt.Sprintf("http://%s.%s:%d", canisterID, localhost, r.cfg.ReplicaPort)
}

func (r *resolver) SupportsAddressSubdomainRouting() bool {
	return r.onLocalhost() && strings.Contains(strings.ToLower(userAgent(r.env)), subdomainBrowser)
}

func (r *resolver) isLocal() bool {
	return r.cfg.NetworkMode == config.NetworkLocal
}

func (r *resolver) onLocalhost() bool {
	return strings.Contains(origin(r.env), localhost)
}

// the alternate ports are served by a tls proxy in front of the replica
func (r *resolver) lanEndpoint(port int, canisterID string) string {
	return fmt.Sprintf("https://%s:%d/?canisterId=%s", r.cfg.LocalAddress, port, canisterID)
}
