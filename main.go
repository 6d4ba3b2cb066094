package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"github.com/Centric-Mind-Ventures/excalidraw-room/hub"
	"github.com/Centric-Mind-Ventures/excalidraw-room/metrics"
	"github.com/Centric-Mind-Ventures/excalidraw-room/protocol"
	ws "github.com/Centric-Mind-Ventures/excalidraw-room/websocket"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}
	cfg := loadConfig()
	setupLogger(cfg)

	relay := hub.New()
	handler := protocol.NewHandler(relay)

	mux := http.NewServeMux()
	mux.HandleFunc("/", rootHandler(cfg.PublicDir))
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/stats", statsHandler(relay))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/socket", socketHandler(cfg, handler))

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger(cfg config) {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	var h slog.Handler
	if cfg.Env == "prod" {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(h))
}

func socketHandler(cfg config, handler *protocol.Handler) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if cfg.CORSOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == cfg.CORSOrigin
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("upgrade error", "error", err)
			return
		}
		ws.NewConn(uuid.New().String(), conn, handler).Start()
	}
}

// rootHandler answers the liveness text at the exact root path and serves
// static assets from the public directory everywhere else.
func rootHandler(publicDir string) http.HandlerFunc {
	files := http.FileServer(http.Dir(publicDir))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Write([]byte("Excalidraw collaboration server is up :)"))
			return
		}
		files.ServeHTTP(w, r)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func statsHandler(relay *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, clients := relay.Stats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"rooms": rooms, "clients": clients})
	}
}
