package main

import (
	"github.com/baetyl/baetyl-go/v2/context"
	"github.com/baetyl/baetyl-go/v2/log"

	"github.com/baetyl/baetyl-endpoint/v2/announce"
	"github.com/baetyl/baetyl-endpoint/v2/config"
	"github.com/baetyl/baetyl-endpoint/v2/resolver"
	"github.com/baetyl/baetyl-endpoint/v2/server"
)

func main() {
	context.Run(func(ctx context.Context) error {
		var cfg config.Config
		err := ctx.LoadCustomConfig(&cfg)
		if err != nil {
			return err
		}

		// the service itself runs outside any browser
		r := resolver.NewResolver(cfg.Resolver, nil)
		log.L().Info("endpoint resolver is ready", log.Any("networkMode", cfg.Resolver.NetworkMode), log.Any("canisters", len(cfg.Canisters)))

		svc := server.NewHTTPServer(cfg, r)
		svc.Start()
		defer svc.Close()

		announcer, err := announce.NewAnnouncer(cfg, r)
		if err != nil {
			return err
		}
		defer announcer.Close()
		if err = announcer.Start(); err != nil {
			return err
		}

		ctx.Wait()
		return nil
	})
}
