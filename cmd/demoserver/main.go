// Command demoserver starts an in-memory job backend for trying out mokuwatch.
// Usage: go run ./cmd/demoserver [port]
// Default port: 9999
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/raysh454/moku-watch/internal/demoserver"
	"github.com/raysh454/moku-watch/internal/logging"
)

func main() {
	cfg := demoserver.DefaultConfig()

	// Optional: custom port from command line
	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		cfg.Port = port
	}
	cfg.Logger = logging.NewZerologLogger(logging.Config{Level: "info", Format: "console"}, os.Stderr)

	fmt.Println("===========================================")
	fmt.Println("   Moku Demo Job Backend")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Printf("Jobs advance one stage every %s.\n", cfg.StepInterval)
	fmt.Println()
	fmt.Printf("  Create a job:  curl -XPOST localhost:%d/jobs -d '{\"target\":\"https://example.com\"}'\n", cfg.Port)
	fmt.Printf("  Watch it:      mokuwatch -base-url http://localhost:%d -job <id>\n", cfg.Port)
	fmt.Printf("  API docs:      http://localhost:%d/swagger/index.html\n", cfg.Port)
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := demoserver.NewDemoServer(cfg)
	go server.Run(ctx)

	httpServer := server.HTTPServer()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}
}
