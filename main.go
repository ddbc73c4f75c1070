package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "gamehub.db", "Path to the SQLite database")
	clientDir := flag.String("client", "", "Path to client directory (optional)")
	flag.Parse()

	db, err := OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	analytics := NewAnalytics(db)
	defer analytics.Stop()

	loop := NewLoop()
	go loop.Run()

	hub := NewHub(loop, db, analytics)

	registry := NewMatchRegistry()
	orch := NewOrchestrator(loop, hub, DefaultLobbyConfig(), registry, db, analytics)
	registry.Register(GameCardDuel, NewCardDuelEngine(hub, orch))
	registry.Register(GameArena, NewArenaEngine(hub, orch, loop, DefaultArenaConfig()))
	hub.SetOrchestrator(orch)

	go hub.Run()

	mux := SetupRoutes(hub, *clientDir)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		log.Printf("Server starting on %s", *addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	server.Close()
	loop.Stop()
}
