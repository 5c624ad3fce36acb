package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/soundvault/daapd/config"
	"github.com/soundvault/daapd/internal/catalog"
	"github.com/soundvault/daapd/internal/dispatch"
	"github.com/soundvault/daapd/internal/mdns"
	"github.com/soundvault/daapd/internal/revision"
	"github.com/soundvault/daapd/internal/scanner"
	"github.com/soundvault/daapd/internal/stream"
	"github.com/soundvault/daapd/internal/transcode"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()

	slog.Info("starting daapd",
		"port", cfg.Port,
		"music_dir", cfg.MusicDir,
		"library_name", cfg.LibraryName,
	)

	if err := os.MkdirAll(filepath.Dir(cfg.CatalogPath), 0o755); err != nil {
		slog.Error("failed to create catalog directory", "error", err)
		os.Exit(1)
	}

	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		slog.Error("failed to open catalog", "error", err)
		os.Exit(1)
	}
	defer cat.Close()

	rev := revision.New()
	cat.OnWrite(func() { rev.Bump() })

	if result, err := scanner.Scan(cat, cfg.MusicDir, true); err != nil {
		slog.Warn("startup scan failed", "error", err)
	} else {
		slog.Info("startup scan complete", "scanned", result.Scanned, "added", result.Added, "failed", len(result.Failed))
	}

	launcher := transcode.NewLauncher(cfg.SampleRate, cfg.Channels, cfg.FFmpegPath)
	pipeline := stream.New(launcher)

	// Server context lifting: one *dispatch.Server holds the catalog,
	// revision bus, queue, and (once it starts) the mDNS responder, and gets
	// passed explicitly to NewRouter rather than living behind package
	// globals.
	srv := dispatch.NewServer(cat, rev, pipeline, cfg.LibraryName)
	router := dispatch.NewRouter(srv)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	responder, responderErr := startResponder(cfg)
	if responderErr != nil {
		slog.Warn("mDNS responder unavailable, continuing without discovery", "error", responderErr)
	} else {
		srv.SetResponder(responder)
		go func() {
			if err := responder.Start(ctx); err != nil {
				slog.Warn("mDNS responder stopped", "error", err)
			}
		}()
		defer responder.Close()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		slog.Info("shutdown signal received")
		cancel()
	}()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		slog.Error("server error", "error", err)
		os.Exit(1)
	case <-ctx.Done():
	}

	slog.Info("shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// startResponder builds the mDNS responder and advertises the two services
// DAAP clients look for: _http._tcp.local (the plain web presence every DAAP
// server also carries) and _daap._tcp.local (the actual library service).
func startResponder(cfg *config.Config) (*mdns.Responder, error) {
	var iface *net.Interface
	if cfg.MDNSInterface != "" {
		found, err := net.InterfaceByName(cfg.MDNSInterface)
		if err != nil {
			return nil, err
		}
		iface = found
	}

	responder, err := mdns.New(iface)
	if err != nil {
		return nil, err
	}

	ip := resolveAdvertiseIP(cfg, iface)
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "daapd"
	}
	port, err := strconv.ParseUint(cfg.Port, 10, 16)
	if err != nil {
		port = 3689
	}

	fqdnHost := hostname + ".local"
	txt := []string{"txtvers=1", "Machine Name=" + cfg.LibraryName, "Password=0"}

	responder.AddService(cfg.LibraryName, "_daap._tcp.local", fqdnHost, ip, uint16(port), txt)
	responder.AddService(cfg.LibraryName, "_http._tcp.local", fqdnHost, ip, uint16(port), nil)

	return responder, nil
}

func resolveAdvertiseIP(cfg *config.Config, iface *net.Interface) net.IP {
	if cfg.AdvertiseHost != "" {
		if ip := net.ParseIP(cfg.AdvertiseHost); ip != nil {
			return ip
		}
	}
	if iface != nil {
		if addrs, err := iface.Addrs(); err == nil {
			for _, a := range addrs {
				if ipNet, ok := a.(*net.IPNet); ok && ipNet.IP.To4() != nil {
					return ipNet.IP.To4()
				}
			}
		}
	}
	return net.IPv4(127, 0, 0, 1)
}
