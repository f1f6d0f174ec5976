package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/samvad-hq/go-wms/internal/domain"
	"github.com/samvad-hq/go-wms/internal/logger"
	"github.com/samvad-hq/go-wms/pkg/endpoints"
	"github.com/samvad-hq/go-wms/pkg/httpclient"
	"github.com/samvad-hq/go-wms/pkg/publishers"
	"github.com/samvad-hq/go-wms/pkg/wms"
)

// Service probes WMS endpoints once and reports what it saw.
type Service struct {
	client    httpclient.Client
	store     SnapshotStore
	publisher EventPublisher
	userAgent string
	log       logger.Logger
	now       func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithUserAgent sets the User-Agent used when an endpoint does not configure one.
func WithUserAgent(ua string) Option {
	return func(s *Service) { s.userAgent = ua }
}

// WithPublisher attaches the sink that receives probe events.
func WithPublisher(pub EventPublisher) Option {
	return func(s *Service) { s.publisher = pub }
}

// WithStore attaches the snapshot archive.
func WithStore(store SnapshotStore) Option {
	return func(s *Service) { s.store = store }
}

// NewService wires a probe service around the HTTP client shared by all endpoints.
func NewService(client httpclient.Client, log logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	s := &Service{
		client: client,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run probes every endpoint. Failures are logged and joined; the pass continues.
func (s *Service) Run(ctx context.Context, eps []endpoints.Endpoint) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("probe service is not initialized")
	}
	if len(eps) == 0 {
		return fmt.Errorf("no endpoints configured for probing")
	}

	var errs []error
	for _, ep := range eps {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.probeEndpoint(ctx, ep); err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("endpoint probe failed", "probe_error", map[string]any{
				"endpoint_id": ep.ID,
				"error":       err.Error(),
			})
		}
	}
	return errors.Join(errs...)
}

func (s *Service) probeEndpoint(ctx context.Context, ep endpoints.Endpoint) error {
	kind, err := ep.Kind()
	if err != nil {
		return fmt.Errorf("endpoint %s: %w", ep.ID, err)
	}
	target, err := wms.BuildURL(ep.BaseURL, kind)
	if err != nil {
		return fmt.Errorf("endpoint %s: %w", ep.ID, err)
	}

	client, err := wms.New(ep.BaseURL,
		wms.WithHTTPClient(s.client),
		wms.WithHeaders(s.headers(ep)),
		wms.WithLogger(s.log),
	)
	if err != nil {
		return fmt.Errorf("endpoint %s: %w", ep.ID, err)
	}

	resp, err := client.Do(ctx, kind)
	if err != nil {
		return fmt.Errorf("endpoint %s: %w", ep.ID, err)
	}

	evt := publishers.NewEvent(ep.ID, ep.Name, kind.String())
	evt.ProbedAt = s.now()
	evt.RequestURL = target.String()
	evt.StatusCode = resp.StatusCode()
	evt.ContentType = resp.Header().Get("Content-Type")
	evt.ContentLength = len(resp.Body())

	if kind == wms.RequestCapabilities {
		if err := s.inspectCapabilities(ep, resp, &evt); err != nil {
			return fmt.Errorf("endpoint %s: %w", ep.ID, err)
		}
	}

	s.log.InfoObj("endpoint probed", "probe_result", map[string]any{
		"endpoint_id":    ep.ID,
		"request":        evt.Request,
		"status_code":    evt.StatusCode,
		"content_length": evt.ContentLength,
		"changed":        evt.Changed,
	})
	return s.publish(ctx, evt)
}

func (s *Service) inspectCapabilities(ep endpoints.Endpoint, resp wms.Response, evt *publishers.Event) error {
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode(), describeBody(resp.Body()))
	}

	caps, err := wms.ParseCapabilities(resp)
	if err != nil {
		return err
	}
	evt.Service = &publishers.ServiceInfo{Name: caps.Service.Name, Title: caps.Service.Title}

	snap := domain.Snapshot{
		EndpointID: ep.ID,
		RequestURL: evt.RequestURL,
		Name:       caps.Service.Name,
		Title:      caps.Service.Title,
		FetchedAt:  evt.ProbedAt,
	}
	if s.store == nil {
		evt.Changed = true
		return nil
	}

	prev, found, err := s.store.Latest(ep.ID)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	evt.Changed = !found || !prev.SameService(snap)

	if err := s.store.Save(snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, evt publishers.Event) error {
	if s.publisher == nil {
		return nil
	}
	if _, err := s.publisher.Publish(ctx, evt); err != nil {
		return fmt.Errorf("publish event for %s: %w", evt.EndpointID, err)
	}
	return nil
}

func (s *Service) headers(ep endpoints.Endpoint) map[string]string {
	headers := endpoints.Headers(ep)
	if _, ok := headers["User-Agent"]; !ok && s.userAgent != "" {
		headers["User-Agent"] = s.userAgent
	}
	return headers
}
