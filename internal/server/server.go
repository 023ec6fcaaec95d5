// Package server assembles the hapd daemon: the HAP listener, the admin API,
// and the services hanging off the event bus.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/hapd/internal/accessory"
	"github.com/jmylchreest/hapd/internal/config"
	"github.com/jmylchreest/hapd/internal/discovery"
	"github.com/jmylchreest/hapd/internal/dispatch"
	"github.com/jmylchreest/hapd/internal/events"
	"github.com/jmylchreest/hapd/internal/http/api"
	"github.com/jmylchreest/hapd/internal/http/mw"
	"github.com/jmylchreest/hapd/internal/http/routes"
	"github.com/jmylchreest/hapd/internal/metrics"
	"github.com/jmylchreest/hapd/internal/mqttbridge"
	"github.com/jmylchreest/hapd/internal/pairing"
	"github.com/jmylchreest/hapd/internal/session"
	"github.com/jmylchreest/hapd/internal/storage"
	"github.com/jmylchreest/hapd/internal/subscription"
	"github.com/jmylchreest/hapd/internal/ws"
)

// Server manages the hapd daemon.
type Server struct {
	logger  *slog.Logger
	cfg     *config.Config
	build   api.VersionInfo
	shared  *dispatch.Shared
	metrics *metrics.Metrics
	hub     *ws.Hub

	advertiser *discovery.Advertiser
	bridge     *mqttbridge.Bridge
	subs       []*events.Subscription

	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup

	hapListener   net.Listener
	hapServer     *http.Server
	adminListener net.Listener
	adminServer   *http.Server
	started       time.Time
}

// New opens storage, loads the accessory identity and builds the accessory
// database. Nothing listens until Start.
func New(ctx context.Context, logger *slog.Logger, cfg *config.Config, build api.VersionInfo) (*Server, error) {
	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	identity, err := pairing.LoadOrCreateIdentity(ctx, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	em := events.NewEmitter(logger)
	db := accessory.NewDatabase(em, logger)
	if err := db.Add(accessory.NewBridge(accessory.Info{
		Name:         cfg.Server.Name,
		Manufacturer: cfg.Server.Manufacturer,
		Model:        cfg.Server.Model,
		SerialNumber: cfg.Server.SerialNumber,
		Firmware:     cfg.Server.Firmware,
	})); err != nil {
		_ = store.Close()
		return nil, err
	}
	if path := cfg.Accessories.Path; path != "" {
		defs, err := accessory.LoadFile(path)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		for _, a := range defs {
			if err := db.Add(a); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("adding accessory %d: %w", a.AID, err)
			}
		}
		logger.Info("Loaded accessories", "path", path, "count", len(defs))
	}
	db.OnIdentify(func(_ context.Context, aid uint64) error {
		logger.Info("Identify requested", "aid", aid)
		return nil
	})

	sessions := session.NewRegistry(logger)
	shared := &dispatch.Shared{
		Config:        cfg,
		Storage:       store,
		Accessories:   db,
		Subscriptions: subscription.NewTable(),
		Events:        em,
		Pairings:      pairing.NewRegistry(store),
		Identity:      identity,
		Setup:         pairing.NewSetupCoordinator(),
		Sessions:      sessions,
		Logger:        logger,
	}

	m := metrics.New()
	m.ObserveSessions(sessions.Count)
	m.ObserveListeners(em.Len)
	m.ObservePairings(func() int {
		n, err := shared.Pairings.Count(context.Background())
		if err != nil {
			return 0
		}
		return n
	})

	rootCtx, rootCancel := context.WithCancel(context.Background())
	s := &Server{
		logger:     logger,
		cfg:        cfg,
		build:      build,
		shared:     shared,
		metrics:    m,
		hub:        ws.NewHub(logger, em, shared.Subscriptions),
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
	}
	s.subs = append(s.subs, m.Listen(em), em.AddListener(s.onUnpaired))
	return s, nil
}

// Shared returns the handles the HAP endpoints run with.
func (s *Server) Shared() *dispatch.Shared { return s.shared }

// onUnpaired drops a removed controller's subscriptions and connections.
// The connection that asked for the removal is closed after its response.
func (s *Server) onUnpaired(ctx context.Context, e events.Event) {
	ev, ok := e.(events.ControllerUnpaired)
	if !ok {
		return
	}
	s.shared.Subscriptions.RemoveController(ev.ID)

	origin, _ := events.OriginFrom(ctx)
	for _, sess := range s.shared.Sessions.ControllerSessions(ev.ID) {
		if sess.ID == origin.Session {
			sess.MarkForClose()
			continue
		}
		sess.Close()
	}
}

// Start begins listening on the HAP and admin addresses.
func (s *Server) Start() error {
	s.logger.Info("Starting hapd server", "version", s.build.Version)
	s.started = time.Now()

	if err := s.startHAP(); err != nil {
		return err
	}
	if s.cfg.API.ListenAddress != "" {
		if err := s.startAdmin(); err != nil {
			return err
		}
	}
	if s.cfg.Discovery.Enabled {
		s.startDiscovery()
	}
	if s.cfg.MQTT.Broker != "" {
		s.startMQTT()
	}
	return nil
}

func (s *Server) serve(name string, srv *http.Server, ln net.Listener) {
	s.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in HTTP server goroutine", "server", name, "recover", r)
			}
		}()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", "server", name, "error", err)
		}
		s.logger.Info("HTTP server stopped", "server", name)
	})
}

func (s *Server) startHAP() error {
	ln, err := net.Listen("tcp", s.cfg.Server.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.ListenAddress, err)
	}
	s.hapListener = ln
	s.logger.Info("Starting HAP server", "address", ln.Addr().String())

	s.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in WebSocket hub", "recover", r)
			}
		}()
		s.hub.Run(s.rootCtx)
	})

	router := chi.NewRouter()
	router.Use(mw.RequestLogging(s.logger))
	router.Use(s.metrics.Middleware("hap"))
	router.Use(mw.RateLimitByIP(mw.ControllerRateLimitConfig()))
	routes.RegisterHAP(router, s.shared, ws.Handler(s.hub, s.logger))

	sessions := s.shared.Sessions
	s.hapServer = &http.Server{
		Handler:           router,
		ConnContext:       sessions.ConnContext,
		ConnState:         sessions.ConnState,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.serve("hap", s.hapServer, ln)
	return nil
}

func (s *Server) startAdmin() error {
	ln, err := net.Listen("tcp", s.cfg.API.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.API.ListenAddress, err)
	}
	s.adminListener = ln
	s.logger.Info("Starting HTTP API server", "address", ln.Addr().String())

	token := s.cfg.API.Token
	if token == "" {
		s.logger.Warn("Admin API token not set; protected routes are open")
	}

	// Rate limiting runs at Chi level (before auth) to protect against brute-force.
	router := chi.NewRouter()
	router.Use(mw.RequestLogging(s.logger))
	router.Use(s.metrics.Middleware("admin"))
	router.Use(mw.RateLimitByIP(mw.DefaultRateLimitConfig()))

	humaAPI := humachi.New(router, routes.NewHumaConfig(s.build.Version, ""))
	humaAPI.UseMiddleware(mw.HumaTokenAuth(humaAPI, s.logger, token))

	routes.Register(humaAPI, &routes.Handlers{
		HealthCheck: api.HealthCheck,
		System:      &api.SystemHandler{Shared: s.shared, Build: s.build, Started: s.started},
		Accessory:   &api.AccessoryHandler{Accessories: s.shared.Accessories},
		Pairing:     &api.PairingHandler{Pairings: s.shared.Pairings, Events: s.shared.Events, Logger: s.logger},
		Logging:     &api.LoggingHandler{Logger: s.logger},
	})
	router.With(mw.TokenAuth(s.logger, token)).Handle("/metrics", s.metrics.Handler())

	s.adminServer = &http.Server{
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.serve("admin", s.adminServer, ln)
	return nil
}

func (s *Server) startDiscovery() {
	paired, err := s.shared.Pairings.IsPaired(s.rootCtx)
	if err != nil {
		s.logger.Error("Failed to read pairing state", "error", err)
	}
	port := s.hapListener.Addr().(*net.TCPAddr).Port

	adv := discovery.NewAdvertiser(s.logger, s.cfg.Discovery.Interface)
	err = adv.Start(discovery.Info{
		Name:         s.cfg.Server.Name,
		Model:        s.cfg.Server.Model,
		DeviceID:     s.shared.Identity.PairingID,
		SetupID:      s.cfg.Server.SetupID,
		ConfigNumber: s.cfg.Server.ConfigNumber,
		Category:     s.cfg.Server.Category,
		Port:         port,
		Paired:       paired,
	})
	if err != nil {
		// controllers can still connect by address
		s.logger.Error("Failed to start mDNS advertisement", "error", err)
		return
	}
	s.advertiser = adv
	s.subs = append(s.subs, adv.Listen(s.shared.Events, s.shared.Pairings.IsPaired))
}

func (s *Server) startMQTT() {
	client, err := mqttbridge.Dial(s.cfg.MQTT, s.logger)
	if err != nil {
		s.logger.Error("Failed to connect to MQTT broker; event bridge disabled", "broker", s.cfg.MQTT.Broker, "error", err)
		return
	}
	s.bridge = mqttbridge.New(client, s.cfg.MQTT.TopicPrefix, s.logger)
	s.subs = append(s.subs, s.bridge.Listen(s.shared.Events))
}

// HAPAddr returns the address the HAP listener is bound to.
func (s *Server) HAPAddr() string {
	if s.hapListener == nil {
		return ""
	}
	return s.hapListener.Addr().String()
}

// AdminAddr returns the address the admin API is bound to.
func (s *Server) AdminAddr() string {
	if s.adminListener == nil {
		return ""
	}
	return s.adminListener.Addr().String()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down hapd server")
	s.rootCancel()

	if s.advertiser != nil {
		s.advertiser.Stop()
	}

	var errs []error
	if s.adminServer != nil {
		s.logger.Info("Shutting down HTTP API server")
		if err := s.adminServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("admin server: %w", err))
		}
	}
	if s.hapServer != nil {
		s.logger.Info("Shutting down HAP server")
		if err := s.hapServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("hap server: %w", err))
		}
	}
	// idle keep-alive and hijacked connections are not closed by Shutdown
	s.shared.Sessions.CloseAll()

	for _, sub := range s.subs {
		sub.Close()
	}
	if s.bridge != nil {
		s.bridge.Close()
	}

	s.logger.Info("Waiting for services to stop...")
	s.wg.Wait()

	if err := s.shared.Storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	s.logger.Info("hapd server shut down gracefully")
	return errors.Join(errs...)
}
