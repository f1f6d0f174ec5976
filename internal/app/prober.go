package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/go-wms/internal/config"
	"github.com/samvad-hq/go-wms/internal/logger"
	"github.com/samvad-hq/go-wms/internal/probe"
	"github.com/samvad-hq/go-wms/internal/storage"
	"github.com/samvad-hq/go-wms/pkg/endpoints"
	"github.com/samvad-hq/go-wms/pkg/httpclient"
	"github.com/samvad-hq/go-wms/pkg/publishers"
)

// Prober runs one probe pass over the configured endpoints, archiving
// capabilities snapshots and publishing events to the enabled sinks.
type Prober struct {
	cfg          *config.Config
	endpointReg  *endpoints.Registry
	fanout       *publishers.Fanout
	probeService *probe.Service
	log          logger.Logger
	store        storage.Store
}

// NewProber builds a prober runtime from config files.
func NewProber(ctx context.Context, cfg *config.Config, log logger.Logger) (*Prober, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	endpointReg, err := endpoints.LoadRegistry(cfg.EndpointsFile)
	if err != nil {
		return nil, fmt.Errorf("load endpoints registry: %w", err)
	}
	endpointList := endpointReg.All()
	endpointIDs := make([]string, 0, len(endpointList))
	for _, ep := range endpointList {
		endpointIDs = append(endpointIDs, ep.ID)
	}
	log.InfoObj("endpoints registry loaded", "endpoints_meta", map[string]any{
		"count": len(endpointIDs),
		"ids":   endpointIDs,
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	storeOpts := storage.Options{
		SnapshotTTL:     cfg.ArchiveTTL,
		CleanupInterval: cfg.ArchiveCleanupInterval,
	}
	store, err := storage.NewStore(cfg.ArchiveType, cfg.ArchivePath, storeOpts)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init archive: %w", err)
	}
	log.InfoObj("archive initialized", "archive_config", map[string]any{
		"type":                     cfg.ArchiveType,
		"path":                     cfg.ArchivePath,
		"snapshot_ttl_seconds":     int(cfg.ArchiveTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.ArchiveCleanupInterval.Seconds()),
	})

	probeService := probe.NewService(
		httpclient.NewRestyClient(cfg.RequestTimeout),
		log,
		probe.WithStore(store),
		probe.WithPublisher(fanout),
		probe.WithUserAgent(cfg.UserAgent),
	)

	return &Prober{
		cfg:          cfg,
		endpointReg:  endpointReg,
		fanout:       fanout,
		probeService: probeService,
		log:          log,
		store:        store,
	}, nil
}

// buildFanout loads the publishers file; an empty path disables publishing.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(path) == "" {
		log.InfoObj("publishing disabled", "publishers_file", path)
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Run performs a single probe pass and releases the archive and publishers.
func (p *Prober) Run(ctx context.Context) error {
	if p == nil || p.probeService == nil {
		return fmt.Errorf("prober is not initialized")
	}
	defer p.close()

	eps := p.endpointReg.All()
	if len(eps) == 0 {
		p.log.WarnObj("no endpoints configured; nothing to probe", "endpoints_file", p.cfg.EndpointsFile)
		return nil
	}

	start := time.Now()
	p.log.InfoObj("probe started", "probe_meta", map[string]any{
		"endpoints_count":  len(eps),
		"publishers_count": p.fanout.Size(),
		"started_at":       start.UTC(),
	})
	if err := p.probeService.Run(ctx, eps); err != nil {
		return err
	}
	p.log.InfoObj("probe completed", "probe_meta", map[string]any{
		"endpoints_count": len(eps),
		"elapsed_ms":      time.Since(start).Milliseconds(),
	})
	return nil
}

func (p *Prober) close() {
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			p.log.ErrorObj("archive close failed", "error", err)
		}
	}
	if p.fanout != nil {
		if err := p.fanout.Close(); err != nil {
			p.log.ErrorObj("publishers close failed", "error", err)
		}
	}
}
