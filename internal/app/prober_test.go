package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/go-wms/internal/config"
	"github.com/samvad-hq/go-wms/internal/storage"
	"github.com/samvad-hq/go-wms/pkg/publishers"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestProberRunArchivesAndPublishes(t *testing.T) {
	wmsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"service":{"name":"WMS","title":"Harbour Charts"}}`))
	}))
	defer wmsSrv.Close()

	var mu sync.Mutex
	var received []publishers.Event
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt publishers.Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			t.Errorf("decode event: %v", err)
		}
		mu.Lock()
		received = append(received, evt)
		mu.Unlock()
	}))
	defer hook.Close()

	dir := t.TempDir()
	cfg := &config.Config{
		EndpointsFile: writeFile(t, dir, "endpoints.yaml", fmt.Sprintf(`
endpoints:
  - id: harbour
    name: Harbour Charts
    base_url: %s/wms
`, wmsSrv.URL)),
		PublishersFile: writeFile(t, dir, "publishers.yaml", fmt.Sprintf(`
publishers:
  - id: hook
    type: http
    http:
      url: %s
`, hook.URL)),
		ArchiveType:            "bbolt",
		ArchivePath:            filepath.Join(dir, "wms.db"),
		ArchiveTTL:             time.Hour,
		ArchiveCleanupInterval: time.Hour,
	}

	prober, err := NewProber(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewProber: %v", err)
	}
	if err := prober.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Service == nil || received[0].Service.Title != "Harbour Charts" || !received[0].Changed {
		t.Fatalf("unexpected event %#v", received[0])
	}

	// Run closes the archive, so the snapshot is readable from a fresh handle.
	store, err := storage.NewStore("bbolt", cfg.ArchivePath, storage.Options{SnapshotTTL: time.Hour, CleanupInterval: time.Hour})
	if err != nil {
		t.Fatalf("reopen archive: %v", err)
	}
	defer store.Close()
	snap, ok, err := store.Latest("harbour")
	if err != nil || !ok {
		t.Fatalf("expected archived snapshot, ok=%v err=%v", ok, err)
	}
	if snap.Name != "WMS" {
		t.Fatalf("unexpected snapshot %#v", snap)
	}
}

func TestNewProberWithoutPublishers(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		EndpointsFile: writeFile(t, dir, "endpoints.yaml", `
endpoints:
  - id: osm
    name: OSM
    base_url: http://sampleserver/wms
    request: GetMap
`),
		ArchiveType: "none",
	}

	prober, err := NewProber(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewProber: %v", err)
	}
	if prober.fanout.Size() != 0 {
		t.Fatalf("expected no publishers, got %d", prober.fanout.Size())
	}
}

func TestNewProberRejectsMissingEndpointsFile(t *testing.T) {
	cfg := &config.Config{EndpointsFile: filepath.Join(t.TempDir(), "missing.yaml"), ArchiveType: "none"}
	if _, err := NewProber(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for missing endpoints file")
	}
}
