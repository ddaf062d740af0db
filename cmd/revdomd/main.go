// Command revdomd is the reference server wiring the revdom core to a
// real transport: it loads templates from disk, evaluates them against
// per-session state, and pushes mount/patch/html_update/error envelopes to
// browsers over WebSocket, following the same net/http + gorilla/websocket
// shape as the teacher's examples/counter server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/livefir/revdom"
	"github.com/livefir/revdom/internal/sqlitestore"
)

// fileLoader implements revdom.TemplateLoader by reading files relative to
// a root directory.
type fileLoader struct{ root string }

func (f fileLoader) Load(path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(f.root, path))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	cfg := revdom.DefaultConfig()
	if *configPath != "" {
		loaded, err := revdom.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("revdomd: %v", err)
		}
		cfg = loaded
	}

	loader := fileLoader{root: cfg.Templates.Dir}
	cache := revdom.NewTemplateCache(loader)
	eval := revdom.NewEvaluator(loader, cfg.Static.BaseURL)

	store, closeStore := openSessionStore(cfg)
	defer closeStore()

	registry := revdom.NewConnectionRegistry()
	transport := revdom.WSTransport{}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWS(w, r, cfg, cache, eval, store, registry, transport)
	})
	mux.Handle(cfg.Static.BaseURL, http.StripPrefix(cfg.Static.BaseURL, http.FileServer(http.Dir("static"))))
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		serveStatus(w, registry, cfg)
	})

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}
	go func() {
		log.Printf("revdomd: listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("revdomd: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("revdomd: shutdown error: %v", err)
	}
}

func openSessionStore(cfg *revdom.Config) (revdom.SessionStore, func()) {
	if cfg.Session.Backend != "sqlite" {
		return revdom.NewMemorySessionStore(), func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := sqlitestore.Open(ctx, cfg.Session.SQLitePath)
	if err != nil {
		log.Fatalf("revdomd: opening sqlite session store: %v", err)
	}
	return store, func() { _ = store.Close() }
}

// statusReport is the JSON shape cmd/revdomctl polls for its dashboard.
type statusReport struct {
	Connections int    `json:"connections"`
	Backend     string `json:"backend"`
}

func serveStatus(w http.ResponseWriter, registry *revdom.ConnectionRegistry, cfg *revdom.Config) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(statusReport{
		Connections: registry.Count(),
		Backend:     cfg.Session.Backend,
	})
}

func serveWS(
	w http.ResponseWriter, r *http.Request,
	cfg *revdom.Config,
	cache *revdom.TemplateCache,
	eval *revdom.Evaluator,
	store revdom.SessionStore,
	registry *revdom.ConnectionRegistry,
	transport revdom.Transport,
) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("revdomd: upgrade failed: %v", err)
		return
	}

	sessionID := uuid.NewString()
	groupID := r.URL.Query().Get("group")
	if groupID == "" {
		// No explicit multi-tab group: default to a group of one so this
		// connection's updates never fan out to unrelated sessions that
		// also omitted ?group=.
		groupID = sessionID
	}
	wsConn := &revdom.Connection{Conn: conn, SessionID: sessionID, GroupID: groupID}
	registry.Register(wsConn)
	defer registry.Unregister(wsConn)
	defer conn.Close()

	controller := revdom.NewController(sessionID, cache, eval, revdom.WithLogger(revdom.DefaultLogger()))

	templatePath := r.URL.Query().Get("template")
	if templatePath == "" {
		templatePath = "index.html"
	}

	initial, err := store.GetState(sessionID)
	if err != nil {
		log.Printf("revdomd: loading initial state for %s: %v", sessionID, err)
		return
	}
	mount, err := controller.Mount(templatePath, initial)
	if err != nil {
		_ = transport.Send(wsConn, revdom.ErrorEnvelope(err, cfg.Debug))
		return
	}
	if err := transport.Send(wsConn, revdom.MountEnvelope(mount)); err != nil {
		log.Printf("revdomd: sending mount to %s: %v", sessionID, err)
		return
	}

	queue := revdom.NewSessionQueue(cfg.Session.QueueSize, revdom.DefaultLogger(), func(ev revdom.Event) {
		handleEvent(ev, sessionID, cfg, controller, store, wsConn, registry, transport)
	})
	defer controller.Close()
	defer queue.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("revdomd: connection error for %s: %v", sessionID, err)
			}
			return
		}

		var inbound revdom.InboundEvent
		if err := json.Unmarshal(message, &inbound); err != nil {
			continue
		}
		inbound.SessionID = sessionID
		if err := revdom.ValidateInbound(&inbound); err != nil {
			continue
		}
		queue.Submit(revdom.Event{Kind: inbound.Kind, Payload: inbound.Payload})
	}
}

func handleEvent(
	ev revdom.Event,
	sessionID string,
	cfg *revdom.Config,
	controller *revdom.Controller,
	store revdom.SessionStore,
	conn *revdom.Connection,
	registry *revdom.ConnectionRegistry,
	transport revdom.Transport,
) {
	switch ev.Kind {
	case "reset_request":
		state, err := store.GetState(sessionID)
		if err != nil {
			return
		}
		reset, err := controller.Reset(state)
		if err != nil {
			_ = transport.Send(conn, revdom.ErrorEnvelope(err, cfg.Debug))
			return
		}
		broadcast(registry, conn, transport, revdom.HTMLUpdateEnvelope(reset))
	case "close":
		controller.Close()
		store.Delete(sessionID)
	default:
		if err := store.UpdateState(sessionID, ev.Payload); err != nil {
			return
		}
		state, err := store.GetState(sessionID)
		if err != nil {
			return
		}
		render, err := controller.RenderWithDiff(state)
		if err != nil {
			_ = transport.Send(conn, revdom.ErrorEnvelope(err, cfg.Debug))
			return
		}
		broadcast(registry, conn, transport, revdom.RenderEnvelope(render))
	}
}

// broadcast fans env out to every connection sharing origin's group - every
// open tab for this session, per the connection registry's purpose - not
// just the connection whose event produced it.
func broadcast(registry *revdom.ConnectionRegistry, origin *revdom.Connection, transport revdom.Transport, env revdom.Envelope) {
	for _, c := range registry.GetByGroup(origin.GroupID) {
		_ = transport.Send(c, env)
	}
}
