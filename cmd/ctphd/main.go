package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"

	"github.com/go-git/go-billy/v5/osfs"

	"ctph/internal/config"
	"ctph/internal/index"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	var dir string
	flag.StringVar(&dir, "dir", "", "Base directory for the persistent index (overrides server.indexDir)")
	var port int
	flag.IntVar(&port, "port", -1, "Port to listen on (0 for random available port, -1 for the configured port)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if dir != "" {
		cfg.Server.IndexDir = dir
	}
	if port >= 0 {
		cfg.Server.Port = port
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	var idx index.Index
	if cfg.Server.IndexDir != "" {
		fsIdx, err := index.NewFileSystemIndex(osfs.New(cfg.Server.IndexDir))
		if err != nil {
			logger.Fatalf("Failed to open index at %s: %v", cfg.Server.IndexDir, err)
		}
		idx = fsIdx
	} else {
		idx = index.NewInMemoryIndex()
	}

	server := index.NewServer(idx, index.ServerOptions{
		DefaultThreshold: cfg.Server.DefaultThreshold,
		MaxUploadBytes:   cfg.Server.MaxUploadBytes,
		Logger:           logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatalf("Failed to listen on %s: %v", addr, err)
	}

	actualPort := listener.Addr().(*net.TCPAddr).Port
	logger.Infof("Listening on :%d...", actualPort)
	if cfg.Server.IndexDir != "" {
		logger.Infof("Using File System index at %s with %d signatures", cfg.Server.IndexDir, idx.Len())
	} else {
		logger.Infof("Using In-Memory index")
	}
	logger.Fatal(http.Serve(listener, server))
}
