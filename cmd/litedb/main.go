package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattbab/LiteDB/pkg/server"
	"github.com/mattbab/LiteDB/pkg/storage"
)

func main() {
	// Command line flags
	var (
		port               = flag.String("port", "8080", "Server port")
		dataDir            = flag.String("data-dir", ".", "Data directory for the checkpoint file")
		walDir             = flag.String("wal-dir", "", "Directory for the write-ahead log (defaults to data-dir)")
		safepointThreshold = flag.Int("safepoint-threshold", 1000, "Dirty blocks flushed to the log at each safepoint")
		checkpointInterval = flag.Duration("checkpoint-interval", 30*time.Second, "Background checkpoint interval. Set to 0 to disable.")
		compression        = flag.Bool("compression", false, "Compress write-ahead log entries with lz4")
		fullDurability     = flag.Bool("full-durability", false, "fsync the write-ahead log after every flush")
		showHelp           = flag.Bool("help", false, "Show help message")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nlitedb is an embedded document database with a write-ahead log and an HTTP API.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                    # Start with defaults\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090 -data-dir /var/lib/litedb\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -compression -full-durability      # Safer, slower log writes\n", os.Args[0])
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	// Build storage options based on flags
	options := []storage.Option{
		storage.WithDataDir(*dataDir),
		storage.WithSafepointThreshold(*safepointThreshold),
	}
	if *checkpointInterval > 0 {
		options = append(options, storage.WithCheckpointInterval(*checkpointInterval))
	}
	if *walDir != "" {
		options = append(options, storage.WithWALDir(*walDir))
	}
	if *compression {
		options = append(options, storage.WithCompression(true))
		log.Printf("INFO: Log compression enabled")
	}
	if *fullDurability {
		options = append(options, storage.WithDurability(storage.DurabilityFull))
		log.Printf("INFO: Full durability enabled")
	}

	srv, err := server.NewServer(options...)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	if *checkpointInterval > 0 {
		srv.StartBackgroundWorkers()
		log.Printf("INFO: Background checkpoints enabled: every %v", *checkpointInterval)
	} else {
		log.Printf("WARN: Background checkpoints disabled - data checkpointed only on graceful shutdown")
	}

	// Create HTTP server
	httpServer := &http.Server{
		Addr:    ":" + *port,
		Handler: srv.Router(),
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting litedb server on :%s", *port)
		log.Printf("API endpoints available at http://localhost:%s", *port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("ERROR: Server forced to shutdown: %v", err)
	}

	// Final checkpoint happens on close
	if err := srv.Close(); err != nil {
		log.Fatalf("Failed to close database: %v", err)
	}
	log.Println("Server exited")
}
