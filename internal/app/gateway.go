package app

import (
	"context"
	"fmt"

	"github.com/samvad-hq/data-api-gateway/internal/config"
	"github.com/samvad-hq/data-api-gateway/internal/gateway"
	"github.com/samvad-hq/data-api-gateway/internal/journal"
	"github.com/samvad-hq/data-api-gateway/internal/logger"
	"github.com/samvad-hq/data-api-gateway/internal/mcpserver"
	"github.com/samvad-hq/data-api-gateway/internal/upstream"
	"github.com/samvad-hq/data-api-gateway/pkg/httpclient"
	"github.com/samvad-hq/data-api-gateway/pkg/notifiers"
)

// Version is stamped at build time.
var Version = "dev"

// Gateway represents the tool gateway runtime. It owns the tool registry, the
// MCP server exposing it, and the optional journal and notifier sinks.
type Gateway struct {
	cfg      *config.Config
	registry *gateway.Registry
	server   *mcpserver.Server
	store    journal.Store
	fanout   *notifiers.Fanout
	notify   *notifyDispatcher
	log      logger.Logger
}

// Options overrides collaborators, mainly for tests.
type Options struct {
	Transport httpclient.Client
}

// NewGateway builds a gateway runtime from config.
func NewGateway(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if !cfg.HasToken() {
		log.WarnObj("no upstream token configured; requests are sent without Authorization", "data_base", cfg.DataBase)
	}

	svc := gateway.NewService(upstream.NewClient(cfg.DataBase, cfg.DataToken, opts.Transport))
	registry, err := gateway.NewRegistry(svc.Tools()...)
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}
	toolNames := make([]string, 0, len(registry.All()))
	for _, t := range registry.All() {
		toolNames = append(toolNames, t.Name)
	}
	log.InfoObj("tool registry loaded", "tools_meta", map[string]any{
		"count": len(toolNames),
		"names": toolNames,
	})

	storeOpts := journal.Options{
		EntryTTL:        cfg.JournalTTL,
		CleanupInterval: cfg.JournalCleanupInterval,
	}
	store, err := journal.NewStore(cfg.JournalType, cfg.JournalPath, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("init journal: %w", err)
	}
	log.InfoObj("journal initialized", "journal_config", map[string]any{
		"type":                     cfg.JournalType,
		"path":                     cfg.JournalPath,
		"entry_ttl_seconds":        int(cfg.JournalTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.JournalCleanupInterval.Seconds()),
	})

	notifierReg, err := notifiers.LoadOptionalRegistry(cfg.NotifiersFile)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load notifiers registry: %w", err)
	}
	enabled := notifierReg.Enabled()
	built, err := notifiers.BuildAll(ctx, notifiers.DefaultRegistry(), enabled, log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build notifiers: %w", err)
	}
	fanout := notifiers.NewFanout(built)
	summaries := make([]map[string]any, 0, len(enabled))
	for _, n := range enabled {
		summaries = append(summaries, map[string]any{
			"id":    n.ID,
			"type":  n.Type,
			"tools": n.Tools,
		})
	}
	log.InfoObj("notifiers registry loaded", "notifiers_meta", map[string]any{
		"count":     len(summaries),
		"notifiers": summaries,
	})

	dispatcher := newNotifyDispatcher(fanout, log)
	registry.Observe(
		logObserver(log),
		journalObserver(store, log),
		dispatcher.observer(),
	)

	return &Gateway{
		cfg:      cfg,
		registry: registry,
		server:   mcpserver.New(cfg.AppName, Version, registry, log),
		store:    store,
		fanout:   fanout,
		notify:   dispatcher,
		log:      log,
	}, nil
}

// Registry exposes the tool registry.
func (g *Gateway) Registry() *gateway.Registry { return g.registry }

// Run serves the configured MCP transport until the context is cancelled.
func (g *Gateway) Run(ctx context.Context) error {
	if g == nil || g.server == nil {
		return fmt.Errorf("gateway is not initialized")
	}
	defer g.Close()

	g.log.InfoObj("gateway starting", "gateway_state", map[string]any{
		"transport":       g.cfg.Transport,
		"listen_addr":     g.cfg.ListenAddr,
		"data_base":       g.cfg.DataBase,
		"notifiers_count": g.fanout.Size(),
	})

	if err := g.server.Serve(ctx, g.cfg.Transport, g.cfg.ListenAddr); err != nil {
		return err
	}
	g.log.InfoObj("gateway exiting", "reason", ctx.Err())
	return nil
}

// Close releases the journal and notifier clients, logging any errors encountered.
func (g *Gateway) Close() {
	if g == nil {
		return
	}
	if g.store != nil {
		if err := g.store.Close(); err != nil {
			g.log.ErrorObj("journal close failed", "error", err)
		}
		g.store = nil
	}
	if g.fanout != nil {
		g.notify.wait()
		if err := g.fanout.Close(); err != nil {
			g.log.ErrorObj("notifiers close failed", "error", err)
		}
		g.fanout = nil
	}
}
