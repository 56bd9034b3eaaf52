// Command klondike starts the Klondike solitaire server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing the REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, the settings file, the optional Redis stats store,
// logging, and optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/klondike/api"
	"github.com/wricardo/klondike/game/config"
	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
	"github.com/wricardo/klondike/game/session"
	"github.com/wricardo/klondike/game/stats"
	"github.com/wricardo/klondike/transport/mcp"
	"github.com/wricardo/klondike/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Klondike Solitaire Server"
)

var log = logrus.WithField("component", "main")

// serverConfig is everything the commands read from flags and environment
type serverConfig struct {
	Host              string
	Port              int
	SettingsPath      string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	AutoCompleteDelay time.Duration
	SessionTTL        time.Duration
	CleanupInterval   time.Duration
	Ngrok             bool
	NgrokAuthToken    string
	NgrokDomain       string
	ExternalAPI       string
}

func (c serverConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Warn("error loading .env file")
		}
	} else {
		log.Debug("loaded environment variables from .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.WithError(err).Fatal("exiting")
	}
}

// newApp builds the command tree. Flags are declared on the root and
// inherited by every subcommand.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "klondike",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("KLONDIKE_PORT", "PORT")},
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("KLONDIKE_HOST")},
			&cli.StringFlag{Name: "settings", Value: config.DefaultFilename, Usage: "player settings file (key=value)", Sources: cli.EnvVars("KLONDIKE_SETTINGS")},
			&cli.StringFlag{Name: "redis-addr", Usage: "keep cross-game stats in Redis at this address instead of the settings file", Sources: cli.EnvVars("REDIS_ADDR")},
			&cli.StringFlag{Name: "redis-password", Usage: "Redis password", Sources: cli.EnvVars("REDIS_PASSWORD")},
			&cli.IntFlag{Name: "redis-db", Usage: "Redis database number", Sources: cli.EnvVars("REDIS_DB")},
			&cli.DurationFlag{Name: "auto-complete-delay", Value: service.DefaultAutoCompleteDelay, Usage: "pause between auto-complete moves", Sources: cli.EnvVars("KLONDIKE_AUTO_COMPLETE_DELAY")},
			&cli.DurationFlag{Name: "session-ttl", Value: 24 * time.Hour, Usage: "remove sessions idle for longer than this"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging", Sources: cli.EnvVars("KLONDIKE_DEBUG")},
			&cli.BoolFlag{Name: "log-json", Usage: "log as JSON", Sources: cli.EnvVars("KLONDIKE_LOG_JSON")},
			&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
			&cli.StringFlag{Name: "external-api", Value: "http://localhost:8080", Usage: "API the stdio MCP server reuses when it is reachable"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd.Bool("debug"), cmd.Bool("log-json"))
			return ctx, nil
		},
		Action: runHTTPServer,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  runHTTPServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runStdioMCP,
			},
		},
	}
}

func setupLogging(debug, jsonOutput bool) {
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
	if jsonOutput {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func configFromCommand(cmd *cli.Command) serverConfig {
	return serverConfig{
		Host:              cmd.String("host"),
		Port:              int(cmd.Int("port")),
		SettingsPath:      cmd.String("settings"),
		RedisAddr:         cmd.String("redis-addr"),
		RedisPassword:     cmd.String("redis-password"),
		RedisDB:           int(cmd.Int("redis-db")),
		AutoCompleteDelay: cmd.Duration("auto-complete-delay"),
		SessionTTL:        cmd.Duration("session-ttl"),
		CleanupInterval:   time.Hour,
		Ngrok:             cmd.Bool("ngrok"),
		NgrokAuthToken:    cmd.String("ngrok-auth"),
		NgrokDomain:       cmd.String("ngrok-domain"),
		ExternalAPI:       cmd.String("external-api"),
	}
}

// services holds the wired application layers
type services struct {
	game     service.GameService
	sessions *session.Manager
	settings *config.Manager
	redis    *stats.RedisStore
}

// Close releases external connections
func (s *services) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.WithError(err).Warn("closing redis")
		}
	}
}

// initializeServices wires the settings file, stats store, session manager
// and game service.
func initializeServices(ctx context.Context, cfg serverConfig) (*services, error) {
	settings, err := config.NewManager(cfg.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if _, err := os.Stat(settings.Path()); errors.Is(err, os.ErrNotExist) {
		if err := settings.Save(); err != nil {
			log.WithError(err).Warn("could not create settings file")
		}
	}

	svcs := &services{
		settings: settings,
		sessions: session.NewManagerWithOptions(engine.DefaultOptions()),
	}

	var store service.StatsStore = settings
	if cfg.RedisAddr != "" {
		rs, err := stats.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		svcs.redis = rs
		store = rs
		log.WithField("addr", cfg.RedisAddr).Info("keeping stats in redis")
	} else {
		log.WithField("path", settings.Path()).Info("keeping stats in settings file")
	}

	svcs.game = service.NewGameServiceWithOptions(svcs.sessions, store, service.Options{
		AutoCompleteDelay: cfg.AutoCompleteDelay,
	})
	return svcs, nil
}

// newHandler combines the REST API with the /mcp proxy endpoint
func newHandler(svcs *services, hub *websocket.Hub, baseURL string) http.Handler {
	apiServer := api.NewServer(svcs.game, hub).WithSettings(svcs.settings)
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cmd *cli.Command) error {
	cfg := configFromCommand(cmd)
	log.WithField("version", Version).Infof("starting %s", AppName)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcs, err := initializeServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svcs.Close()

	addr := cfg.addr()
	hub := websocket.NewHub()
	handler := newHandler(svcs, hub, "http://"+addr)

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// auto-complete requests stream up to 52 paced moves
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		sessionCleanupRoutine(gctx, svcs.sessions, cfg.CleanupInterval, cfg.SessionTTL)
		return nil
	})

	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"rest":      fmt.Sprintf("http://%s/api", addr),
			"websocket": fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp":       fmt.Sprintf("http://%s/mcp", addr),
		}).Infof("HTTP server listening on %s", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if cfg.Ngrok {
		g.Go(func() error {
			runNgrok(gctx, cfg, handler)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	log.Info("server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is done. Tunnel
// failures are logged and never stop the local server.
func runNgrok(ctx context.Context, cfg serverConfig, handler http.Handler) {
	if cfg.NgrokAuthToken == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	log.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		log.WithField("domain", cfg.NgrokDomain).Info("using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuthToken))
	if err != nil {
		log.WithError(err).Error("failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.WithError(err).Warn("failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	log.WithFields(logrus.Fields{
		"rest":      ngrokURL + "/api",
		"websocket": ngrokURL + "/ws?session=<session_id>",
		"mcp":       ngrokURL + "/mcp",
	}).Infof("ngrok tunnel established: %s", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.WithError(err).Error("ngrok server error")
	}
	log.Info("ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within ttl.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.WithField("removed", removed).Info("cleaned up expired sessions")
			}
		}
	}
}

// externalAPIAvailable reports whether a healthy API answers at baseURL
func externalAPIAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCP runs an MCP stdio server. It reuses the external API when one
// is reachable; otherwise it starts an internal HTTP API bound to a random
// loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	cfg := configFromCommand(cmd)

	baseURL := cfg.ExternalAPI
	log.WithField("url", baseURL).Info("checking for external API server")

	if externalAPIAvailable(ctx, baseURL) {
		log.WithField("url", baseURL).Info("external API server found, using it for MCP")
	} else {
		log.Info("no external API server found, starting internal HTTP server")

		svcs, err := initializeServices(ctx, cfg)
		if err != nil {
			return err
		}
		defer svcs.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())

		hubCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		hub := websocket.NewHub()
		go hub.Run(hubCtx)

		httpServer := &http.Server{Handler: api.NewServer(svcs.game, hub).WithSettings(svcs.settings)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		log.WithField("url", baseURL).Info("internal HTTP server started for MCP stdio")
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
