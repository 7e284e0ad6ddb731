package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"duffel/internal/banner"
	"duffel/internal/config"
	"duffel/internal/httpserver"
	"duffel/internal/logging"
	"duffel/internal/metrics"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "passwd" {
		passwdCmd(os.Args[2:])
		return
	}

	var (
		addr    = flag.String("addr", config.DefaultAddr, "listen address")
		root    = flag.String("root", "", "managed upload directory (required if -config is not set)")
		cfgPath = flag.String("config", "", "path to config json (optional)")
		noQR    = flag.Bool("no-qr", false, "suppress the startup QR banner")
	)
	flag.Parse()

	var cfg config.Config
	if *cfgPath != "" {
		b, err := os.ReadFile(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read config: %v\n", err)
			os.Exit(1)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "parse config: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg.Root = *root
		cfg.Addr = *addr
	}
	cfg.ApplyDefaults()

	if strings.TrimSpace(cfg.Root) == "" {
		fmt.Fprintln(os.Stderr, "missing -root (or provide -config)")
		os.Exit(1)
	}
	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "abs root: %v\n", err)
		os.Exit(1)
	}
	cfg.Root = absRoot

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		fmt.Fprintf(os.Stderr, "logging init: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logging.Sync() }()

	// The reserved folder doubles as the state dir (links store, upload
	// spool, thumbnail cache).
	stateDir := filepath.Join(cfg.Root, cfg.Reserved)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		logging.Fatal("mkdir state", zap.Error(err))
	}

	srv, err := httpserver.New(httpserver.Options{
		Config:   cfg,
		StateDir: stateDir,
	})
	if err != nil {
		logging.Fatal("server init", zap.Error(err))
	}

	url := lanURL(cfg.Addr)
	if !*noQR {
		fmt.Println("\nScan this QR code on your phone:")
		fmt.Println()
		_ = banner.PrintQR(os.Stdout, url)
	}
	fmt.Printf("\nURL: %s\n\n", url)

	logging.Info("duffel listening",
		zap.String("addr", cfg.Addr),
		zap.String("root", cfg.Root),
		zap.String("url", url))
	logging.Info("webdav endpoint ready", zap.String("path", "/dav/"))

	handler := withHeaders(logging.Middleware(metrics.Middleware(srv.Handler())))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logging.Fatal("listen", zap.Error(err))
	}
}

// lanURL builds the address to advertise: the configured port on the
// machine's LAN IP.
func lanURL(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		port = "8000"
	}
	return fmt.Sprintf("http://%s:%s", banner.LocalIP(), port)
}

func passwdCmd(args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	var (
		password = fs.String("p", "", "password (required)")
		cost     = fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	)
	_ = fs.Parse(args)
	if *password == "" {
		fmt.Fprintln(os.Stderr, "usage: duffel passwd -p <password>")
		os.Exit(2)
	}
	if *cost < bcrypt.MinCost || *cost > bcrypt.MaxCost {
		fmt.Fprintf(os.Stderr, "invalid cost %d (min=%d max=%d)\n", *cost, bcrypt.MinCost, bcrypt.MaxCost)
		os.Exit(2)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(*password), *cost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bcrypt: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(h))
}

func withHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Basic hardening / UX.
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")

		if strings.HasPrefix(r.URL.Path, "/assets/") {
			w.Header().Set("Cache-Control", "public, max-age=3600")
		} else if r.URL.Path != "/thumb" {
			w.Header().Set("Cache-Control", "no-store")
		}

		next.ServeHTTP(w, r)
	})
}
