// Command skoscached runs the SKOS taxonomy lookup service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tobixen/skoscache/internal/api"
	"github.com/tobixen/skoscache/internal/core/config"
	"github.com/tobixen/skoscache/internal/core/httpclient"
	"github.com/tobixen/skoscache/internal/core/observability"
	"github.com/tobixen/skoscache/internal/core/server"
	"github.com/tobixen/skoscache/internal/hierarchy"
	"github.com/tobixen/skoscache/internal/logger"
	"github.com/tobixen/skoscache/internal/resolver"
	"github.com/tobixen/skoscache/internal/upstream"
	"github.com/tobixen/skoscache/internal/upstream/agrovoc"
	"github.com/tobixen/skoscache/internal/upstream/dbpedia"
	"github.com/tobixen/skoscache/internal/upstream/wikidata"
	"github.com/tobixen/skoscache/internal/vocabulary"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{Level: cfg.LogLevel, Scenario: cfg.Scenario, Component: "skoscached"}, os.Stdout)
	log := logger.NewSlog(&zl)
	log.Info("starting skoscached", "addr", cfg.Addr, "version", Version, "cache_dir", cfg.CacheDir)

	observability.Init(prometheus.DefaultRegisterer, true)
	observability.SetScenario(cfg.Scenario)
	observability.ExposeBuildInfo(Version)

	client := httpclient.NewOutbound()

	adapters := upstream.Registry{
		"agrovoc":  agrovoc.New(client, cfg.AgrovocBaseURL, cfg.UpstreamTimeout),
		"dbpedia":  dbpedia.New(client, cfg.DBpediaBaseURL, cfg.UpstreamTimeout),
		"wikidata": wikidata.New(client, cfg.WikidataBaseURL, cfg.WikidataAPIURL, cfg.UserAgent, cfg.UpstreamTimeout),
	}

	res := resolver.New(adapters, cfg.CacheDir, cfg.CacheTTL)
	hier := hierarchy.New(res)

	voc, err := vocabulary.Load(cfg.VocabularyPath)
	if err != nil {
		log.Warn("vocabulary load failed, serving empty vocabulary", "err", err, "path", cfg.VocabularyPath)
		voc = nil
	}

	handler := &api.Handler{
		Resolver:           res,
		Hierarchy:          hier,
		Vocabulary:         voc,
		CacheDir:           cfg.CacheDir,
		LabelsBatchWorkers: cfg.LabelsBatchMaxWorkers,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, log, handler.Mount); err != nil {
		log.Error("server error", "err", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
