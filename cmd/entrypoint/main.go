package main

import (
	"log"
	"os"
	"syscall"
	"time"
)

// A tiny entrypoint that ensures sane env defaults and then execs the main binary.
func main() {
	if os.Getenv("API_PORT") == "" && os.Getenv("PORT") == "" {
		// Default to 8000 if platform doesn't inject a port
		_ = os.Setenv("API_PORT", "8000")
	}

	// Optional startup delay so sidecar databases can bind first
	if delay := os.Getenv("STARTUP_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil && d > 0 {
			log.Printf("Applying startup delay: %v", d)
			time.Sleep(d)
		}
	}

	target := os.Getenv("BACKEND_BINARY")
	if target == "" {
		target = "/app/agentplane"
	}
	if err := syscall.Exec(target, []string{target}, os.Environ()); err != nil {
		log.Fatalf("failed to exec %s: %v", target, err)
	}
}
