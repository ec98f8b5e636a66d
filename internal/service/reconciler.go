package service

import (
	"bytes"
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"linkmesh/internal/codec"
	"linkmesh/internal/domain"
	"linkmesh/internal/observability"
	"linkmesh/internal/repository"
)

// Fetcher retrieves the raw topology document for a source URL, bounded by
// its own timeout. Failures are reported as domain.FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ReconcilerOptions tune reconciliation behavior. These replace what used to
// be global settings toggles with explicit construction-time configuration.
type ReconcilerOptions struct {
	// DisconnectVanished transitions active links missing from the fetched
	// graph to disconnected. Disabling it turns reconciliation additive-only.
	DisconnectVanished bool
}

// Reconciler diffs fetched topology graphs against stored links: it creates
// links on first sighting, refreshes metrics on every pass and marks
// vanished links disconnected. Links are never deleted by reconciliation.
type Reconciler struct {
	repo     repository.Repository
	resolver *Resolver
	fetcher  Fetcher
	codec    *codec.NetJSONCodec
	events   *EventBus
	metrics  *observability.ReconcilerCollector
	opts     ReconcilerOptions

	// one lock per source: concurrent updates for the same source are
	// serialized, different sources proceed in parallel
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewReconciler creates a new topology reconciler. metrics may be nil.
func NewReconciler(repo repository.Repository, resolver *Resolver, fetcher Fetcher, events *EventBus, metrics *observability.ReconcilerCollector, opts ReconcilerOptions) *Reconciler {
	return &Reconciler{
		repo:     repo,
		resolver: resolver,
		fetcher:  fetcher,
		codec:    codec.NewNetJSON(),
		events:   events,
		metrics:  metrics,
		opts:     opts,
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (rc *Reconciler) sourceLock(id int64) *sync.Mutex {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	lock, ok := rc.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		rc.locks[id] = lock
	}
	return lock
}

// Update fetches the topology document for a source and reconciles it
// against the stored links:
//
//  1. fetch and decode; any failure aborts the run with nothing mutated
//  2. every edge is resolved or created and refreshed as active
//  3. active links of the source not seen in step 2 become disconnected
//
// Per-edge failures (unknown address, validation) skip only that edge.
// Running Update twice with an unchanged document is a no-op.
func (rc *Reconciler) Update(ctx context.Context, source *domain.TopologySource) error {
	lock := rc.sourceLock(source.ID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	err := rc.update(ctx, source)
	rc.metrics.ObserveRun(source.Slug, time.Since(start), err)
	return err
}

func (rc *Reconciler) update(ctx context.Context, source *domain.TopologySource) error {
	raw, err := rc.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		return err
	}
	graph, err := rc.codec.Parse(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	touched := make(map[int64]bool, len(graph.Links))
	created, skipped := 0, 0

	for _, edge := range graph.Links {
		link, isNew, err := rc.resolver.FindOrCreate(ctx, edge.Source, edge.Target)
		if err != nil {
			log.Printf("topology %s: skipping edge %s <> %s: %v", source.Slug, edge.Source, edge.Target, err)
			skipped++
			continue
		}
		if isNew {
			created++
		}

		statusChanged := link.Status != domain.StatusActive
		link.Status = domain.StatusActive
		link.TopologyID = source.ID
		link.Topology = source
		if source.Metric != "" {
			link.MetricType = strings.ToLower(source.Metric)
		}
		weight := edge.Weight
		link.MetricValue = &weight

		if err := rc.repo.SaveLink(ctx, link); err != nil {
			log.Printf("topology %s: failed to save link %d: %v", source.Slug, link.ID, err)
			skipped++
			continue
		}
		touched[link.ID] = true

		if statusChanged && !isNew {
			rc.events.Publish(Event{
				Type:    EventLinkStatusChanged,
				Payload: map[string]interface{}{"link_id": link.ID, "status": domain.StatusActive},
			})
		}
	}

	// the disconnect pass only starts once every edge has been applied, so
	// a crash in the loop above is recovered by simply re-running Update
	disconnected := 0
	if rc.opts.DisconnectVanished {
		active, err := rc.repo.ListLinks(ctx, repository.LinkFilter{
			TopologyID: source.ID,
			Status:     domain.StatusActive,
		})
		if err != nil {
			return err
		}
		for _, link := range active {
			if touched[link.ID] {
				continue
			}
			link.Status = domain.StatusDisconnected
			if err := rc.repo.SaveLink(ctx, link); err != nil {
				log.Printf("topology %s: failed to disconnect link %d: %v", source.Slug, link.ID, err)
				continue
			}
			disconnected++
			rc.events.Publish(Event{
				Type:    EventLinkStatusChanged,
				Payload: map[string]interface{}{"link_id": link.ID, "status": domain.StatusDisconnected},
			})
		}
	}

	rc.metrics.AddCreated(source.Slug, created)
	rc.metrics.AddDisconnected(source.Slug, disconnected)
	if activeCount, err := rc.repo.CountLinks(ctx, repository.LinkFilter{
		TopologyID: source.ID,
		Status:     domain.StatusActive,
	}); err == nil {
		rc.metrics.SetActive(source.Slug, activeCount)
	}

	log.Printf("topology %s: reconciled %d edges (%d created, %d disconnected, %d skipped)",
		source.Slug, len(graph.Links), created, disconnected, skipped)
	rc.events.Publish(Event{
		Type: EventTopologyReconciled,
		Payload: map[string]interface{}{
			"topology": source.Slug,
			"edges":    len(graph.Links),
			"created":  created,
		},
	})

	return nil
}

// Export derives the NetJSON-like document for a source from its current
// active links: one node entry per distinct endpoint address in order of
// first appearance, one weighted link entry per active link in creation
// order. An empty source yields empty arrays, never null.
func (rc *Reconciler) Export(ctx context.Context, source *domain.TopologySource) (*domain.NetworkGraph, error) {
	links, err := rc.repo.ListLinks(ctx, repository.LinkFilter{
		TopologyID: source.ID,
		Status:     domain.StatusActive,
	})
	if err != nil {
		return nil, err
	}

	graph := domain.NewNetworkGraph(source)
	seen := make(map[string]bool)
	addNode := func(address string) {
		if !seen[address] {
			seen[address] = true
			graph.Nodes = append(graph.Nodes, domain.GraphNode{ID: address})
		}
	}

	for _, link := range links {
		if link.InterfaceA == nil || link.InterfaceB == nil {
			continue
		}
		src := link.InterfaceA.PrimaryAddress()
		dst := link.InterfaceB.PrimaryAddress()
		addNode(src)
		addNode(dst)

		weight := 0.0
		if link.MetricValue != nil {
			weight = *link.MetricValue
		}
		graph.Links = append(graph.Links, domain.GraphEdge{Source: src, Target: dst, Weight: weight})
	}

	return graph, nil
}
