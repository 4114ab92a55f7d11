package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"synapse-service/internal/config"
	"synapse-service/internal/factory"
	"synapse-service/internal/handler"
	"synapse-service/internal/util"
)

func main() {
	// Initialize factory (which loads config and initializes all clients)
	f, err := factory.NewFactory()
	if err != nil {
		util.Fatal("Failed to initialize factory", util.ErrorField(err))
	}
	defer f.Close()

	cfg := f.Config()
	router := setupRouter(f)

	// Determine server address based on TLS config
	serverAddr := cfg.GetServerAddress()
	if cfg.Server.EnableTLS {
		serverAddr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.TLSPort)
	}

	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if !cfg.Server.EnableTLS {
		util.Warn("Starting HTTP server - TLS is disabled",
			util.String("environment", cfg.Environment),
			util.String("address", serverAddr),
		)
		startServer(f, server, nil)
		return
	}

	tlsManager := f.TLSManager()
	server.TLSConfig = tlsManager.TLSConfig()

	// HTTP listener answers ACME challenges when autocert runs, otherwise redirects
	var redirect http.Handler = http.HandlerFunc(redirectToHTTPS(cfg))
	if m := tlsManager.AutocertManager(); m != nil {
		redirect = m.HTTPHandler(redirect)
	}
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           redirect,
		ReadHeaderTimeout: 5 * time.Second,
	}

	util.Info("Starting HTTPS server",
		util.String("environment", cfg.Environment),
		util.Int("port", cfg.Server.TLSPort),
		util.Bool("auto_cert", cfg.Server.AutoCert),
	)
	startServer(f, server, httpServer)
}

// setupRouter creates the HTTP router with all handlers using Chi
func setupRouter(f *factory.Factory) http.Handler {
	cfg := f.Config()
	logger := util.Get()
	services := f.ServiceFactory()

	renderer := handler.NewRenderer(cfg.Rest.DefaultAccept, cfg.Rest.DisplayExceptions, logger)

	return handler.NewRouter(handler.RouterDeps{
		Synapse:    handler.NewSynapseHandler(services.AuthService(), renderer, cfg.Session, logger),
		BackOffice: handler.NewBackOfficeHandler(services.BackOfficeService(), renderer, logger),
		Users:      f.UserClient(),
		Health:     f.HealthCheck,
		Renderer:   renderer,
		Config:     cfg,
		Logger:     logger,
	})
}

func redirectToHTTPS(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host := cfg.Server.Domain
		if host == "" {
			host = r.Host
		}
		target := fmt.Sprintf("https://%s:%d%s", host, cfg.Server.TLSPort, r.URL.RequestURI())
		if cfg.Server.TLSPort == 443 {
			target = "https://" + host + r.URL.RequestURI()
		}
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	}
}

func startServer(f *factory.Factory, server, httpServer *http.Server) {
	tlsEnabled := server.TLSConfig != nil

	go func() {
		var err error
		if tlsEnabled {
			// Certificates come from the TLS manager's GetCertificate
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.Fatal("Server failed to start", util.ErrorField(err))
		}
	}()

	if httpServer != nil {
		go func() {
			util.Info("Starting HTTP redirect server", util.String("address", httpServer.Addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				util.Error("HTTP redirect server failed", util.ErrorField(err))
			}
		}()
	}

	util.Info("Server started successfully",
		util.Bool("tls_enabled", tlsEnabled),
		util.String("address", server.Addr),
	)

	waitForShutdown(f, server, httpServer)
}

func waitForShutdown(f *factory.Factory, servers ...*http.Server) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-signalChan
	util.Info("Received shutdown signal", util.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, srv := range servers {
		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil {
				util.Error("Failed to shutdown server gracefully", util.ErrorField(err))
			} else {
				util.Info("Server shutdown completed")
			}
		}
	}
	f.Close()
}
