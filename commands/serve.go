package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lamp/api"
	"lamp/config"
	"lamp/device"
	"lamp/recording"
)

const shutdownGrace = 5 * time.Second

func newRouter(cfg *config.Config, server *api.Server) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	if cfg.Server.EnableCORS {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"*"},
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	server.SetupRoutes(r)
	return r
}

// Serve runs the lamp until SIGINT, SIGTERM or ctx is done, then stops every
// actuator, leaving the LEDs dark and the motors released.
func (c *Controller) Serve(ctx context.Context) error {
	cfg := c.cfg
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := api.NewEventHub(0)
	l, err := buildLamp(cfg, device.WithPlaybackListener(hub.Publish))
	if err != nil {
		return err
	}

	logger.With(
		zap.String("lamp", cfg.LampID),
		zap.String("bridge", cfg.BridgeURL),
		zap.String("motors", cfg.Motors.Driver),
		zap.String("lights", cfg.Lights.Driver),
		zap.Float64("fps", cfg.Animation.FrameRate),
	).Info("Starting lamp")

	if err := l.manager.StartAll(); err != nil {
		_ = l.manager.StopAll(cfg.Animation.StopTimeout())
		return fmt.Errorf("failed to start actuators: %w", err)
	}
	defer func() {
		if err := l.manager.StopAll(cfg.Animation.StopTimeout()); err != nil {
			logger.With(zap.Error(err)).Warn("Actuators stopped with errors")
		}
	}()

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.WatchRecordings {
		watcher, err := recording.NewWatcher(cfg.RecordingsDir, l.loader)
		if err != nil {
			logger.With(zap.Error(err)).Warn("Recording watcher disabled")
		} else {
			defer watcher.Close()
			g.Go(func() error {
				if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		}
	}

	l.greet()

	srv := &http.Server{
		Handler: newRouter(cfg, api.NewServer(l.manager, hub, cfg.Animation.StopTimeout())),
	}
	g.Go(func() error {
		logger.With(zap.String("addr", ln.Addr().String())).Info("HTTP API listening")
		return runHTTP(ctx, srv, ln)
	})

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.With(zap.Stringer("signal", sig)).Info("Shutting down")
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	return g.Wait()
}

// runHTTP serves on ln until ctx is done, then shuts the server down.
// Request contexts derive from ctx so event streams end with it instead of
// holding the shutdown for the whole grace period.
func runHTTP(ctx context.Context, srv *http.Server, ln net.Listener) error {
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	<-served
	return nil
}
