package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/apps/api/di/dig"
	echoapi "github.com/YKZSolutions/MMDC-Student-Portal-sub002/apps/api/echo"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/assets"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		logger core.Logger,
		closeDB dig_container.DBCloser,
		migrate dig_container.Migrator,
		reg *prometheus.Registry,
		server *echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

		core.ParseEmailTemplates(assets.FS, conf, logger)
		user.LoadCommonPasswords(assets.FS, logger)

		defer closeDB()
		if err := migrate("up"); err != nil {
			logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
		}
		defer logger.Info("Application stopped")

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.
		// /metrics - Prometheus metrics of the API.

		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)
		http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

		debugServer := &http.Server{Addr: conf.Server.DebugHost, Handler: http.DefaultServeMux}

		var g errgroup.Group
		g.Go(func() error {
			if err := debugServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
			return nil
		})

		// =========================================================================
		// Start API Service

		g.Go(func() error {
			server.Start()
			return nil
		})
		logger.Info("API listening on " + conf.Server.Host)

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			logger.Error(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		}

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err := server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
		if err := debugServer.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop debug server: %v", err), err)
		}
		if err := g.Wait(); err != nil {
			logger.Error(fmt.Sprintf("waiting for servers: %v", err), err)
		}
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "running api"))
	}
}
