package main

import (
	"context"   // Context for startup and shutdown
	"errors"    // Error inspection
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Signal notification
	"syscall"   // SIGTERM
	"time"      // Shutdown timeout

	"lucky_lottery/internal/accounts" // User directory
	"lucky_lottery/internal/admin"    // Payment mediation
	"lucky_lottery/internal/api"      // Custom package for API handlers
	"lucky_lottery/internal/cache"    // Redis cache
	"lucky_lottery/internal/config"   // Custom package for configuration
	"lucky_lottery/internal/db"       // Persistence
	"lucky_lottery/internal/draw"     // Daily draw
	"lucky_lottery/internal/guard"    // Write coordination
	"lucky_lottery/internal/ledger"   // Balances and transactions
	"lucky_lottery/internal/tickets"  // Selections and tickets

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup persistence; the memory driver keeps everything in process
	var (
		persister db.Persister = db.Nop{}
		snapshot               = &db.Snapshot{}
	)
	if cfg.DBDriver != "memory" {
		conn, err := db.Open(cfg)
		if err != nil {
			logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
		}
		store := db.NewGormStore(conn)
		if snapshot, err = store.Load(ctx); err != nil {
			logrus.Fatalf("failed to load state: %v", err)
		}
		persister = store
	} else {
		logrus.Warn("DB_DRIVER=memory, state is lost on restart")
	}

	// Wire the services and replay stored state
	g := guard.New()
	l := ledger.New(g, persister)
	users := accounts.New(persister, l)
	ts := tickets.New(g, l, persister, tickets.WithPrice(cfg.TicketPrice), tickets.WithDrawHour(cfg.DrawHour))
	engine := draw.NewEngine(g, l, ts, persister, users)

	users.Restore(snapshot.Users)
	l.Restore(snapshot.Users, snapshot.Transactions)
	ts.Restore(snapshot.Tickets)
	engine.Restore(snapshot.Draws, snapshot.Winners)
	logrus.WithFields(logrus.Fields{
		"users":        len(snapshot.Users),
		"transactions": len(snapshot.Transactions),
		"tickets":      len(snapshot.Tickets),
		"draws":        len(snapshot.Draws),
	}).Info("State restored")

	if cfg.AdminPassword != "" {
		if _, err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logrus.Fatalf("failed to seed admin: %v", err)
		}
	} else {
		logrus.Warn("ADMIN_PASSWORD not set, no admin account seeded")
	}

	// Setup Redis client; caching is optional
	rc := cache.New(nil)
	if cfg.RedisAddr != "" {
		var err error
		if rc, err = cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		defer rc.Close()
	}

	if cfg.AutoDraw {
		go draw.NewScheduler(engine, cfg.DrawHour).Start(ctx)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	api.Register(r, api.Services{
		Users:      users,
		Ledger:     l,
		Tickets:    ts,
		Draws:      engine,
		Admin:      admin.New(l, rc),
		Cache:      rc,
		JWTSecret:  cfg.JWTSecret,
		PayeeUPIID: cfg.PayeeUPIID,
		PayeeName:  cfg.PayeeName,
	})

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logrus.Info("Server running on " + cfg.AppPort) // Log server start
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Fatalf("server failed: %v", err)
	}
}
