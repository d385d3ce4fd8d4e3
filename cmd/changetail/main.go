/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Command changetail subscribes to the change events published by entitysync
// services and logs them. With an S3 bucket configured every event is also
// archived, and -metrics exposes delivery metrics of the archive.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/suparena/entitysync"
	"github.com/suparena/entitysync/config"
	"github.com/suparena/entitysync/notify"
	"github.com/suparena/entitysync/notify/natsnotify"
	"github.com/suparena/entitysync/notify/s3audit"
)

var (
	configFlag  = flag.String("config", "config.yaml", "Path to the configuration file")
	envFlag     = flag.String("env", "", "Optional .env file loaded before the configuration")
	subjectFlag = flag.String("subject", "", "Subject prefix to tail (default: nats.subject)")
	metricsFlag = flag.String("metrics", "", "Listen address for Prometheus metrics, e.g. :9102")
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
)

func main() {
	flag.Parse()

	if *versionFlag || *vFlag {
		info := entitysync.GetVersionInfo()
		fmt.Printf("entitysync changetail version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		os.Exit(0)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logrus.InfoLevel)

	var envFiles []string
	if *envFlag != "" {
		envFiles = append(envFiles, *envFlag)
	}
	if err := config.LoadEnv(envFiles...); err != nil {
		logger.Fatalf("Failed to load environment: %v", err)
	}
	cfg, err := config.Load(*configFlag)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink, err := newSink(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to set up archive: %v", err)
	}
	if sink != nil {
		defer sink.Close()
	}

	conn, err := natsnotify.Connect(cfg.NATS.URL, cfg.NATS.ConnectOptions("changetail"), logger)
	if err != nil {
		logger.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer conn.Close()

	prefix := cfg.NATS.Subject
	if *subjectFlag != "" {
		prefix = *subjectFlag
	}
	t := &tail{logger: logger}
	if sink != nil {
		t.archive = sink
	}

	sub, err := conn.Subscribe(prefix+".>", func(msg *nats.Msg) {
		t.handle(ctx, msg.Subject, msg.Data)
	})
	if err != nil {
		logger.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()
	logger.Infof("Tailing %s.>", prefix)

	if *metricsFlag != "" {
		go serveMetrics(*metricsFlag, logger)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Infof("Received signal: %v, shutting down...", sig)

	if err := conn.Drain(); err != nil {
		logger.Warnf("Failed to drain NATS connection: %v", err)
	}
	logger.WithField("events", t.seen.Load()).Info("changetail stopped")
}

// newSink returns the S3 archive notifier, instrumented and decoupled by an
// async dispatcher, or nil when no bucket is configured.
func newSink(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*notify.Async, error) {
	if cfg.S3.Bucket == "" {
		return nil, nil
	}
	client, err := s3audit.NewClient(ctx, cfg.S3.AuditConfig())
	if err != nil {
		return nil, err
	}
	archiver, err := s3audit.NewArchiver(client, cfg.S3.Bucket, cfg.S3.Prefix, logger)
	if err != nil {
		return nil, err
	}
	metrics, err := notify.NewMetrics(prometheus.DefaultRegisterer, "changetail")
	if err != nil {
		return nil, err
	}
	opts := append(cfg.Async.Options(), notify.WithAsyncLogger(logger))
	return notify.NewAsync(notify.Instrument(archiver, metrics), opts...), nil
}

func serveMetrics(addr string, logger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Infof("Serving metrics on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("Metrics server failed: %v", err)
	}
}
