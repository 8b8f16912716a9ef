package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CristiGvl/picoSD/api"
	"github.com/CristiGvl/picoSD/internal/card"
	"github.com/CristiGvl/picoSD/internal/config"
	"github.com/CristiGvl/picoSD/internal/platform"
)

func main() {
	// Parse command line flags
	configFile := flag.String("config", "", "Path to a config file (yaml, json or toml)")
	envFile := flag.String("env-file", ".env", "Path to a .env file with PICOSD_* variables")
	port := flag.String("port", "", "Port to run the server on (overrides config)")
	bind := flag.String("bind", "", "IP address to bind the server to (overrides config)")
	flag.Parse()

	// Validate platform support
	if err := platform.ValidateSupport(); err != nil {
		log.Fatalf("Platform validation failed: %v", err)
	}

	cfg, err := config.Load(*configFile, *envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *bind != "" {
		cfg.Server.Bind = *bind
	}

	// The service keeps running without a card, SD calls then report
	// that no card is present
	var sd *card.Card
	if cfg.SD.Enable && cfg.SD.Device != "" && !platform.CanMount() {
		log.Printf("Mounting %s is not supported on %s, mount it at %s beforehand", cfg.SD.Device, platform.GetOS(), cfg.SD.MountPoint)
	}
	if cfg.SD.Enable {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		sd, err = card.Open(ctx, cfg.SD.Options())
		cancel()
		if err != nil {
			log.Printf("SD card not available: %v", err)
		}
	}

	// Create and start the API server
	server, err := api.NewServer(sd, cfg.Server.RequestTimeout)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
		if sd != nil {
			if err := sd.Close(); err != nil {
				log.Printf("Error closing SD card: %v", err)
			}
		}
		os.Exit(0)
	}()

	// Start the server
	log.Printf("Starting picoSD server on %s", cfg.Server.Address())
	log.Fatal(server.Start(cfg.Server.Address()))
}
