package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crossview/internal/api"
	"crossview/internal/db"
	"crossview/pkg/engine"
	"crossview/pkg/task"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store task.Store
	if os.Getenv("DATABASE_URL") != "" {
		pool, err := db.Connect(ctx)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()

		pg := task.NewPgStore(pool)
		if err := pg.EnsureTable(ctx); err != nil {
			log.Fatalf("ensure tasks table: %v", err)
		}
		store = pg
		log.Println("server: using postgres task store")
	} else {
		store = task.NewMemStore()
		log.Println("server: DATABASE_URL not set, using in-memory task store")
	}

	eng := engine.New(store)

	if interval := os.Getenv("MONITOR_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			log.Fatalf("parse MONITOR_INTERVAL: %v", err)
		}
		eng.Monitor().SetInterval(d)
	}
	eng.StartMonitoring(engine.DefaultViews())

	server := api.New(eng)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Signal handling: stop the monitor before exiting so no tick is left
	// mid-flight.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		log.Printf("server: received %s, shutting down", sig)
		eng.StopMonitoring()
		cancel()
		os.Exit(0)
	}()

	log.Printf("crossview listening on :%s", port)
	if err := http.ListenAndServe(":"+port, server); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
