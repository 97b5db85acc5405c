package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"orbarena/internal/auth"
	"orbarena/internal/game"
	"orbarena/internal/game/tuning"
	persistlog "orbarena/internal/persistence/log"
	"orbarena/internal/store"
	"orbarena/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <data>/tuning.yaml)")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "rng seed for spawn positions")
		secretFlag = flag.String("auth_secret", "", "hmac secret for bearer tokens (or set ORB_AUTH_SECRET)")
		disableLog = flag.Bool("disable_event_log", false, "disable the compressed game-event log")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	secret := strings.TrimSpace(*secretFlag)
	if secret == "" {
		secret = strings.TrimSpace(os.Getenv("ORB_AUTH_SECRET"))
	}
	if secret == "" {
		logger.Fatalf("auth secret required (-auth_secret or ORB_AUTH_SECRET)")
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*dataDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	st, err := store.OpenSQLite(filepath.Join(*dataDir, "orbarena.db"))
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer st.Close()

	gw := game.NewGateway(st, tune.PersistQueue, logger)
	defer gw.Close()

	reg := game.NewRegistry(tune.SessionQueue)
	relay := game.NewChatRelay(reg, gw, tune.ChatMaxLen, logger)
	verifier := auth.NewHMACVerifier([]byte(secret))

	w := game.New(game.Config{Tuning: tune, Seed: *seed}, reg, gw, logger)

	if !*disableLog {
		evlog := persistlog.NewEventLogger(*dataDir)
		defer evlog.Close()
		w.SetEventLogger(evlog)
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m := w.Metrics()

		fmt.Fprintf(rw, "# HELP orbarena_tick Current simulation tick.\n")
		fmt.Fprintf(rw, "# TYPE orbarena_tick gauge\n")
		fmt.Fprintf(rw, "orbarena_tick %d\n", m.Tick)

		fmt.Fprintf(rw, "# HELP orbarena_players Connected sessions.\n")
		fmt.Fprintf(rw, "# TYPE orbarena_players gauge\n")
		fmt.Fprintf(rw, "orbarena_players %d\n", m.Players)

		fmt.Fprintf(rw, "# HELP orbarena_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE orbarena_step_ms gauge\n")
		fmt.Fprintf(rw, "orbarena_step_ms %.3f\n", m.StepMS)

		fmt.Fprintf(rw, "# HELP orbarena_queue_depth Mailbox backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE orbarena_queue_depth gauge\n")
		fmt.Fprintf(rw, "orbarena_queue_depth{queue=%q} %d\n", "join", m.QueueDepths.Join)
		fmt.Fprintf(rw, "orbarena_queue_depth{queue=%q} %d\n", "leave", m.QueueDepths.Leave)
		fmt.Fprintf(rw, "orbarena_queue_depth{queue=%q} %d\n", "input", m.QueueDepths.Input)
		fmt.Fprintf(rw, "orbarena_queue_depth{queue=%q} %d\n", "persist", m.Persist.Depth)

		fmt.Fprintf(rw, "# HELP orbarena_persist_dropped_total Durable-store ops shed on a full queue.\n")
		fmt.Fprintf(rw, "# TYPE orbarena_persist_dropped_total counter\n")
		fmt.Fprintf(rw, "orbarena_persist_dropped_total %d\n", m.Persist.Dropped)
	})
	mux.HandleFunc("/api/chat/recent", func(rw http.ResponseWriter, r *http.Request) {
		ctx2, cancel2 := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel2()
		msgs, err := st.RecentChat(ctx2, tune.ChatRecentLimit)
		if err != nil {
			http.Error(rw, "unavailable", http.StatusServiceUnavailable)
			return
		}
		type chatLine struct {
			UID  string `json:"uid"`
			Name string `json:"name"`
			Hue  int    `json:"hue"`
			Text string `json:"text"`
			TS   int64  `json:"ts"`
		}
		out := make([]chatLine, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, chatLine{UID: m.UserID, Name: m.Username, Hue: m.Hue, Text: m.Text, TS: m.At.UnixMilli()})
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(out)
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(w, reg, relay, verifier, st, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
