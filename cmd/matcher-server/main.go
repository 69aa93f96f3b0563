package main

import (
	"fmt"
	"log"
	"os"

	"selection-matcher/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("matcher-server %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("matcher-server - HTTP service for selection-based template matching")
			fmt.Println()
			fmt.Println("Usage: matcher-server [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  MATCHER_PORT=8080    Port to listen on")
			fmt.Println("  GIN_MODE=release     Gin framework mode")
			return
		}
	}

	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	port := os.Getenv("MATCHER_PORT")
	if port == "" {
		port = "8080"
	}

	srv := server.New()
	log.Printf("matcher-server %s listening on :%s", Version, port)
	if err := srv.Router().Run(":" + port); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
