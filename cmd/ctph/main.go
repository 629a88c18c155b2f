package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"ctph/internal/config"
)

func main() {
	var opts options
	flag.BoolVar(&opts.recursive, "r", false, "Recursively hash the files of directories")
	flag.StringVar(&opts.knownFile, "m", "", "Match inputs against the known hashes in this file")
	flag.BoolVar(&opts.compareKnown, "x", false, "Treat arguments as known hash lists and compare their signatures")
	flag.BoolVar(&opts.diff, "d", false, "Compare every input against the inputs hashed before it")
	flag.IntVar(&opts.threshold, "t", 0, "Only report matches scoring above this threshold (0-100)")
	flag.StringVar(&opts.s3, "s3", "", "Hash the objects of an S3 bucket, given as bucket/prefix")
	flag.IntVar(&opts.workers, "workers", 0, "Number of files hashed concurrently (0 for the config or GOMAXPROCS)")
	flag.StringVar(&opts.server, "server", "", "URL of an index daemon to match inputs against")
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] FILES...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	opts.config = cfg
	opts.logger = logger

	if flag.NArg() == 0 && opts.s3 == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := bufio.NewWriter(os.Stdout)
	failed, err := run(ctx, opts, flag.Args(), out)
	out.Flush()
	if err != nil {
		logger.Fatal(err)
	}
	if failed {
		os.Exit(1)
	}
}
