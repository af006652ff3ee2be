// Package serve implements the request routing and dispatch engine: the
// dispatcher, static resolver and responder, proxy forwarder, and the HTTP
// server that hosts them.
package serve

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/sync/errgroup"

	"github.com/statichost/statichost/internal/config"
	"github.com/statichost/statichost/internal/mount"
	"github.com/statichost/statichost/internal/serve/middleware"
)

const shutdownTimeout = 15 * time.Second

// Server hosts the dispatcher behind one HTTP listener, optionally with an
// HTTPS listener using ACME certificates.
type Server struct {
	cfg        *config.Config
	handler    http.Handler
	table      *mount.Table
	tlsManager *autocert.Manager
	logger     *slog.Logger
}

// New builds the mount table, dispatcher and middleware chain from the
// configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	points, err := cfg.MountPoints()
	if err != nil {
		return nil, err
	}
	table, err := mount.Build(points)
	if err != nil {
		return nil, err
	}

	fwd := NewForwarder(cfg.Proxy, logger)
	var handler http.Handler = NewDispatcher(table, fwd, logger)

	if cfg.CORS.Enabled {
		handler = middleware.NewCORS(cfg.CORS.AllowOrigins, cfg.CORS.AllowMethods, cfg.CORS.AllowHeaders).Wrap(handler)
	}
	if cfg.RateLimit.Enabled {
		handler = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Wrap(handler)
	}
	handler = middleware.NewAccessLog(logger).Wrap(handler)

	s := &Server{
		cfg:     cfg,
		handler: handler,
		table:   table,
		logger:  logger,
	}
	if cfg.TLS.Enabled {
		s.tlsManager = &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Email:      cfg.TLS.ACMEEmail,
			HostPolicy: autocert.HostWhitelist(cfg.TLS.Domains...),
			Cache:      autocert.DirCache(cfg.TLS.CacheDir),
		}
	}
	return s, nil
}

// Table exposes the built mount table, mainly for startup logging and the
// config check command.
func (s *Server) Table() *mount.Table { return s.table }

// Run starts the listeners and blocks until ctx is cancelled or a listener
// fails. On cancellation both servers are drained gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpAddr := fmt.Sprintf("%s:%d", s.cfg.Listen.Host, s.cfg.Listen.Port)

	httpSrv := &http.Server{
		Addr:        httpAddr,
		Handler:     s.handler,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	var httpsSrv *http.Server
	if s.cfg.TLS.Enabled {
		httpsSrv = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", s.cfg.Listen.Host, s.cfg.TLS.Port),
			Handler: s.handler,
			TLSConfig: &tls.Config{
				GetCertificate: s.tlsManager.GetCertificate,
				NextProtos:     []string{"h2", "http/1.1"},
				MinVersion:     tls.VersionTLS12,
			},
			ReadTimeout: 30 * time.Second,
			IdleTimeout: 120 * time.Second,
		}
		if s.cfg.TLS.AutoRedirect {
			httpSrv.Handler = s.redirectHandler()
			httpSrv.WriteTimeout = 10 * time.Second
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("http server listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if httpsSrv != nil {
		g.Go(func() error {
			s.logger.Info("https server listening", "addr", httpsSrv.Addr)
			if err := httpsSrv.ListenAndServeTLS("", ""); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpSrv.Shutdown(shutdownCtx)
		if httpsSrv != nil {
			if herr := httpsSrv.Shutdown(shutdownCtx); err == nil {
				err = herr
			}
		}
		return err
	})

	return g.Wait()
}

// redirectHandler sends plain-HTTP requests to the HTTPS listener, letting
// ACME HTTP-01 challenges through first.
func (s *Server) redirectHandler() http.Handler {
	redirect := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := "https://" + r.Host + r.RequestURI
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})
	return s.tlsManager.HTTPHandler(redirect)
}
