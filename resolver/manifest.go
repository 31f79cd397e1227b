package resolver

import (
	"github.com/baetyl/baetyl-endpoint/v2/config"
)

// CanisterEndpoints endpoints of a single canister
type CanisterEndpoints struct {
	Name       string `json:"name,omitempty"`
	CanisterID string `json:"canisterId"`
	Service    string `json:"service"`
	Frontend   string `json:"frontend"`
}

// Manifest all endpoints as seen from one environment
type Manifest struct {
	Profile          string              `json:"profile,omitempty"`
	NetworkMode      config.NetworkMode  `json:"networkMode"`
	Origin           string              `json:"origin,omitempty"`
	UserAgent        string              `json:"userAgent,omitempty"`
	SubdomainRouting bool                `json:"subdomainRouting"`
	IdentityProvider string              `json:"identityProvider,omitempty"`
	Canisters        []CanisterEndpoints `json:"canisters"`
}

// NewManifest resolves the endpoints of all canisters with r. The identity
// provider is left empty in local mode when no identity canister is deployed.
func NewManifest(r Resolver, canisters []config.CanisterInfo, identityCanister string) *Manifest {
	m := &Manifest{
		NetworkMode:      r.NetworkMode(),
		SubdomainRouting: r.SupportsAddressSubdomainRouting(),
		Canisters:        make([]CanisterEndpoints, 0, len(canisters)),
	}
	if env := r.Environment(); env != nil {
		m.Origin = env.Origin()
		m.UserAgent = env.UserAgent()
	}
	if r.NetworkMode() != config.NetworkLocal || identityCanister != "" {
		m.IdentityProvider = r.ResolveIdentityProviderEndpoint(identityCanister)
	}
	for _, c := range canisters {
		m.Canisters = append(m.Canisters, NewCanisterEndpoints(r, c.Name, c.ID))
	}
	return m
}

// NewCanisterEndpoints resolves the endpoints of one canister
func NewCanisterEndpoints(r Resolver, name, canisterID string) CanisterEndpoints {
	return CanisterEndpoints{
		Name:       name,
		CanisterID: canisterID,
		Service:    r.ResolveServiceEndpoint(canisterID),
		Frontend:   r.ResolveUserFacingEndpoint(canisterID),
	}
}
