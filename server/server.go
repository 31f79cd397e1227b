package server

import (
	"fmt"
	"time"

	"github.com/baetyl/baetyl-go/v2/http"
	"github.com/baetyl/baetyl-go/v2/log"
	routing "github.com/qiangxue/fasthttp-routing"
	"github.com/valyala/fasthttp"

	"github.com/baetyl/baetyl-endpoint/v2/config"
	"github.com/baetyl/baetyl-endpoint/v2/resolver"
)

// URLResponse a single resolved address
type URLResponse struct {
	URL string `json:"url"`
}

// CapabilityResponse what the caller environment supports
type CapabilityResponse struct {
	NetworkMode      config.NetworkMode `json:"networkMode"`
	SubdomainRouting bool               `json:"subdomainRouting"`
}

// EndpointsResponse all endpoints of a canister
type EndpointsResponse struct {
	resolver.CanisterEndpoints `json:",inline"`
	SubdomainRouting           bool `json:"subdomainRouting"`
}

// HTTPServer answers endpoint queries, the caller environment is taken from
// the Origin (or Referer) and User-Agent headers of each request
type HTTPServer struct {
	cfg              config.ServerConfig
	server           *http.Server
	resolver         resolver.Resolver
	canisters        map[string]string // key: canister name, value: canister id
	canisterList     []config.CanisterInfo
	identityCanister string
	logger           *log.Logger
}

func NewHTTPServer(cfg config.Config, r resolver.Resolver) *HTTPServer {
	svc := &HTTPServer{
		cfg:              cfg.Server,
		resolver:         r,
		canisters:        map[string]string{},
		canisterList:     cfg.Canisters,
		identityCanister: cfg.IdentityCanister,
		logger:           log.With(log.Any("main", "server")),
	}
	for _, c := range cfg.Canisters {
		svc.canisters[c.Name] = c.ID
	}
	svc.server = http.NewServer(http.ServerConfig{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}, svc.Handler())
	return svc
}

// Handler returns the request router
func (h *HTTPServer) Handler() fasthttp.RequestHandler {
	router := routing.New()
	v1 := router.Group("/v1")
	v1.Get("/capabilities", Wrapper(h.GetCapabilities))
	v1.Get("/manifest", Wrapper(h.GetManifest))
	v1.Get("/identity", Wrapper(h.GetIdentityProvider))
	v1.Get("/identity/<canister>", Wrapper(h.GetIdentityProvider))
	v1.Get("/endpoints/<canister>", Wrapper(h.GetEndpoints))
	v1.Get("/endpoints/<canister>/service", Wrapper(h.GetServiceEndpoint))
	v1.Get("/endpoints/<canister>/frontend", Wrapper(h.GetUserFacingEndpoint))
	v1.Get("/endpoints/<canister>/subdomain", Wrapper(h.GetSubdomainEndpoint))
	return router.HandleRequest
}

func (h *HTTPServer) GetCapabilities(ctx *routing.Context) (interface{}, error) {
	r := h.scoped(ctx)
	return &CapabilityResponse{
		NetworkMode:      r.NetworkMode(),
		SubdomainRouting: r.SupportsAddressSubdomainRouting(),
	}, nil
}

func (h *HTTPServer) GetManifest(ctx *routing.Context) (interface{}, error) {
	return resolver.NewManifest(h.scoped(ctx), h.canisterList, h.identityCanister), nil
}

func (h *HTTPServer) GetIdentityProvider(ctx *routing.Context) (interface{}, error) {
	r := h.scoped(ctx)
	id := h.identityCanister
	if ctx.Param("canister") != "" {
		id = h.canisterID(ctx.Param("canister"))
	}
	if id == "" && r.NetworkMode() == config.NetworkLocal {
		return nil, badRequest("identity canister is not configured")
	}
	return &URLResponse{URL: r.ResolveIdentityProviderEndpoint(id)}, nil
}

func (h *HTTPServer) GetEndpoints(ctx *routing.Context) (interface{}, error) {
	name, id, err := h.canister(ctx)
	if err != nil {
		return nil, err
	}
	r := h.scoped(ctx)
	return &EndpointsResponse{
		CanisterEndpoints: resolver.NewCanisterEndpoints(r, name, id),
		SubdomainRouting:  r.SupportsAddressSubdomainRouting(),
	}, nil
}

func (h *HTTPServer) GetServiceEndpoint(ctx *routing.Context) (interface{}, error) {
	_, id, err := h.canister(ctx)
	if err != nil {
		return nil, err
	}
	return &URLResponse{URL: h.scoped(ctx).ResolveServiceEndpoint(id)}, nil
}

func (h *HTTPServer) GetUserFacingEndpoint(ctx *routing.Context) (interface{}, error) {
	_, id, err := h.canister(ctx)
	if err != nil {
		return nil, err
	}
	return &URLResponse{URL: h.scoped(ctx).ResolveUserFacingEndpoint(id)}, nil
}

func (h *HTTPServer) GetSubdomainEndpoint(ctx *routing.Context) (interface{}, error) {
	_, id, err := h.canister(ctx)
	if err != nil {
		return nil, err
	}
	return &URLResponse{URL: h.scoped(ctx).ResolveSubdomainEndpoint(id)}, nil
}

// canister accepts a configured canister name or a raw canister id
func (h *HTTPServer) canister(ctx *routing.Context) (string, string, error) {
	param := ctx.Param("canister")
	if param == "" {
		return "", "", badRequest("canister is empty")
	}
	if id, ok := h.canisters[param]; ok {
		return param, id, nil
	}
	return "", param, nil
}

func (h *HTTPServer) canisterID(param string) string {
	if id, ok := h.canisters[param]; ok {
		return id
	}
	return param
}

func (h *HTTPServer) scoped(ctx *routing.Context) resolver.Resolver {
	return h.resolver.WithEnvironment(requestEnvironment(&ctx.Request.Header))
}

func requestEnvironment(header *fasthttp.RequestHeader) resolver.Environment {
	origin := string(header.Peek("Origin"))
	if origin == "" || origin == "null" {
		origin = refererOrigin(string(header.Referer()))
	}
	agent := string(header.UserAgent())
	if origin == "" && agent == "" {
		return nil
	}
	return resolver.NewEnvironment(origin, agent)
}

func refererOrigin(referer string) string {
	if referer == "" {
		return ""
	}
	uri := fasthttp.AcquireURI()
	defer fasthttp.ReleaseURI(uri)
	if err := uri.Parse(nil, []byte(referer)); err != nil || len(uri.Host()) == 0 {
		return ""
	}
	return fmt.Sprintf("%s://%s", uri.Scheme(), uri.Host())
}

func (h *HTTPServer) Start() {
	go func() {
		address := fmt.Sprintf(":%d", h.cfg.Port)
		h.logger.Info("server is running", log.Any("address", address))
		if h.cfg.Cert != "" && h.cfg.Key != "" {
			if err := h.server.ListenAndServeTLS(address, h.cfg.Cert, h.cfg.Key); err != nil {
				h.logger.Error("https server shutdown", log.Error(err))
			}
		} else {
			if err := h.server.ListenAndServe(address); err != nil {
				h.logger.Error("http server shutdown", log.Error(err))
			}
		}
	}()
}

func (h *HTTPServer) Close() {
	if h.server != nil {
		err := h.server.Shutdown()
		if err != nil {
			h.logger.Error("failed to shut down http server", log.Error(err))
		}
	}
}
