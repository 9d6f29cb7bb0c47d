package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	server "tableslate/server"
	"tableslate/server/internal/auth"
	servernet "tableslate/server/internal/net"
	"tableslate/server/internal/telemetry"
	"tableslate/server/logging"
	loggingSinks "tableslate/server/logging/sinks"
)

type Config struct {
	Addr      string
	ClientDir string
	// Secret signs session tokens. Empty disables authentication.
	Secret string
	// TableName is advertised over mDNS.
	TableName string
	MDNS      bool
	Logger    telemetry.Logger
}

func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	logConfig := logging.DefaultConfig()
	namedSinks := []logging.NamedSink{
		{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console)},
	}
	if path := os.Getenv("TABLESLATE_LOG_JSON"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			telemetryLogger.Printf("json log disabled: %v", err)
		} else {
			defer f.Close()
			namedSinks = append(namedSinks, logging.NamedSink{
				Name: "json",
				Sink: loggingSinks.NewJSON(f, logConfig.JSON.FlushInterval),
			})
		}
	}

	router, err := logging.NewRouter(nil, logConfig, namedSinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	hubCfg := server.DefaultConfig()
	if raw := os.Getenv("KEYFRAME_INTERVAL"); raw != "" {
		if value, err := strconv.ParseUint(raw, 10, 64); err == nil {
			hubCfg.KeyframeInterval = value
		} else {
			telemetryLogger.Printf("invalid KEYFRAME_INTERVAL=%q: %v", raw, err)
		}
	}

	hub := server.NewHub(hubCfg, router)
	counters := &telemetry.Counters{}
	hub.AttachTelemetry(counters)

	var authority *auth.Authority
	if cfg.Secret != "" {
		authority = auth.New([]byte(cfg.Secret), 0)
	}

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir: cfg.ClientDir,
		Logger:    fallbackLogger,
		Authority: authority,
	})

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: handler}

	if cfg.MDNS {
		if port, err := listenPort(addr); err != nil {
			telemetryLogger.Printf("mDNS disabled: %v", err)
		} else if mdnsSrv, err := servernet.Advertise(port, cfg.TableName); err != nil {
			telemetryLogger.Printf("mDNS disabled: %v", err)
		} else {
			defer mdnsSrv.Shutdown()
		}
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(hubCfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				hub.PruneStale(ctx, now)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	telemetryLogger.Printf("server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func listenPort(addr string) (int, error) {
	_, rawPort, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("parse addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return 0, fmt.Errorf("parse port %q: %w", rawPort, err)
	}
	return port, nil
}
