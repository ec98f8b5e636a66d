package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"linkmesh/internal/domain"
	"linkmesh/internal/repository"
	"linkmesh/internal/repository/sqlite"
)

// stubFetcher serves canned documents keyed by URL
type stubFetcher struct {
	documents map[string][]byte
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	doc, ok := f.documents[url]
	if !ok {
		return nil, &domain.FetchError{URL: url, Err: errors.New("no such document")}
	}
	return doc, nil
}

const topologyURL = "http://test.com/topology.json"

func graphDocument(edges ...domain.GraphEdge) []byte {
	doc := map[string]interface{}{
		"type":     "NetworkGraph",
		"protocol": "OLSR",
		"version":  "0.8",
		"metric":   "ETX",
		"nodes":    []interface{}{},
		"links":    edges,
	}
	data, _ := json.Marshal(doc)
	return data
}

// newTestReconciler wires a reconciler over an in-memory repository with a
// seeded inventory and one topology source
func newTestReconciler(t *testing.T, fetcher *stubFetcher, opts ReconcilerOptions) (*Reconciler, *sqlite.Repository, *domain.TopologySource) {
	t.Helper()
	repo := newTestRepo(t)
	seedInventory(t, repo)

	source := &domain.TopologySource{
		Slug: "ninux", URL: topologyURL,
		Protocol: "OLSR", Version: "0.8", Metric: "ETX",
	}
	assertNoError(t, repo.UpsertTopology(context.Background(), source))

	resolver := NewResolver(repo, nil)
	reconciler := NewReconciler(repo, resolver, fetcher, nil, nil, opts)
	return reconciler, repo, source
}

func TestReconcilerUpdate(t *testing.T) {
	fetcher := &stubFetcher{documents: map[string][]byte{
		topologyURL: graphDocument(domain.GraphEdge{Source: "10.40.0.8", Target: "10.40.0.10", Weight: 1.01}),
	}}
	reconciler, repo, source := newTestReconciler(t, fetcher, ReconcilerOptions{DisconnectVanished: true})
	ctx := context.Background()

	assertNoError(t, reconciler.Update(ctx, source))

	links, err := repo.ListLinks(ctx, repository.LinkFilter{TopologyID: source.ID})
	assertNoError(t, err)
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}
	link := links[0]
	if link.Status != domain.StatusActive {
		t.Fatalf("expected active link, got %q", link.Status)
	}
	if link.MetricType != "etx" {
		t.Fatalf("expected metric type etx, got %q", link.MetricType)
	}
	if link.MetricValue == nil || *link.MetricValue != 1.01 {
		t.Fatalf("expected metric value 1.01, got %+v", link.MetricValue)
	}

	t.Run("second run is a no-op", func(t *testing.T) {
		assertNoError(t, reconciler.Update(ctx, source))

		count, err := repo.CountLinks(ctx, repository.LinkFilter{TopologyID: source.ID})
		assertNoError(t, err)
		if count != 1 {
			t.Fatalf("expected still 1 link, got %d", count)
		}

		reloaded, err := repo.GetLink(ctx, link.ID)
		assertNoError(t, err)
		if reloaded.Status != domain.StatusActive {
			t.Fatalf("expected link to stay active, got %q", reloaded.Status)
		}
	})

	t.Run("vanished edge is disconnected, never deleted", func(t *testing.T) {
		fetcher.documents[topologyURL] = graphDocument()
		assertNoError(t, reconciler.Update(ctx, source))

		reloaded, err := repo.GetLink(ctx, link.ID)
		assertNoError(t, err)
		if reloaded == nil {
			t.Fatal("expected link to survive reconciliation")
		}
		if reloaded.Status != domain.StatusDisconnected {
			t.Fatalf("expected disconnected, got %q", reloaded.Status)
		}
	})

	t.Run("reappearing edge is reactivated", func(t *testing.T) {
		fetcher.documents[topologyURL] = graphDocument(
			domain.GraphEdge{Source: "10.40.0.8", Target: "10.40.0.10", Weight: 2.2})
		assertNoError(t, reconciler.Update(ctx, source))

		reloaded, err := repo.GetLink(ctx, link.ID)
		assertNoError(t, err)
		if reloaded.Status != domain.StatusActive {
			t.Fatalf("expected active again, got %q", reloaded.Status)
		}
		if reloaded.MetricValue == nil || *reloaded.MetricValue != 2.2 {
			t.Fatalf("expected refreshed metric value 2.2, got %+v", reloaded.MetricValue)
		}

		count, err := repo.CountLinks(ctx, repository.LinkFilter{TopologyID: source.ID})
		assertNoError(t, err)
		if count != 1 {
			t.Fatalf("expected the same link to be reused, got %d links", count)
		}
	})
}

func TestReconcilerUpdateSkipsUnknownEdges(t *testing.T) {
	fetcher := &stubFetcher{documents: map[string][]byte{
		topologyURL: graphDocument(
			domain.GraphEdge{Source: "10.40.0.99", Target: "10.40.0.10", Weight: 1.0},
			domain.GraphEdge{Source: "10.40.0.8", Target: "10.40.0.10", Weight: 1.01},
		),
	}}
	reconciler, repo, source := newTestReconciler(t, fetcher, ReconcilerOptions{DisconnectVanished: true})
	ctx := context.Background()

	// an unresolvable edge skips only itself
	assertNoError(t, reconciler.Update(ctx, source))

	count, err := repo.CountLinks(ctx, repository.LinkFilter{TopologyID: source.ID})
	assertNoError(t, err)
	if count != 1 {
		t.Fatalf("expected 1 link from the resolvable edge, got %d", count)
	}
}

func TestReconcilerUpdateFetchFailure(t *testing.T) {
	fetcher := &stubFetcher{documents: map[string][]byte{}}
	reconciler, repo, source := newTestReconciler(t, fetcher, ReconcilerOptions{DisconnectVanished: true})
	ctx := context.Background()

	err := reconciler.Update(ctx, source)
	var fetchErr *domain.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}

	// nothing was mutated
	count, countErr := repo.CountLinks(ctx, repository.LinkFilter{})
	assertNoError(t, countErr)
	if count != 0 {
		t.Fatalf("expected no links after failed fetch, got %d", count)
	}
}

func TestReconcilerUpdateDecodeFailure(t *testing.T) {
	fetcher := &stubFetcher{documents: map[string][]byte{
		topologyURL: []byte("not json"),
	}}
	reconciler, _, source := newTestReconciler(t, fetcher, ReconcilerOptions{DisconnectVanished: true})

	err := reconciler.Update(context.Background(), source)
	var decodeErr *domain.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestReconcilerDisconnectDisabled(t *testing.T) {
	fetcher := &stubFetcher{documents: map[string][]byte{
		topologyURL: graphDocument(domain.GraphEdge{Source: "10.40.0.8", Target: "10.40.0.10", Weight: 1.01}),
	}}
	reconciler, repo, source := newTestReconciler(t, fetcher, ReconcilerOptions{DisconnectVanished: false})
	ctx := context.Background()

	assertNoError(t, reconciler.Update(ctx, source))

	fetcher.documents[topologyURL] = graphDocument()
	assertNoError(t, reconciler.Update(ctx, source))

	links, err := repo.ListLinks(ctx, repository.LinkFilter{TopologyID: source.ID})
	assertNoError(t, err)
	if len(links) != 1 || links[0].Status != domain.StatusActive {
		t.Fatal("expected vanished link to stay active with disconnect disabled")
	}
}

func TestReconcilerExport(t *testing.T) {
	fetcher := &stubFetcher{documents: map[string][]byte{
		topologyURL: graphDocument(domain.GraphEdge{Source: "10.40.0.8", Target: "10.40.0.10", Weight: 1.01}),
	}}
	reconciler, _, source := newTestReconciler(t, fetcher, ReconcilerOptions{DisconnectVanished: true})
	ctx := context.Background()

	t.Run("empty source yields empty arrays", func(t *testing.T) {
		graph, err := reconciler.Export(ctx, source)
		assertNoError(t, err)
		if graph.Nodes == nil || graph.Links == nil {
			t.Fatal("expected empty arrays, not nil")
		}
		if len(graph.Nodes) != 0 || len(graph.Links) != 0 {
			t.Fatalf("expected empty graph, got %d nodes and %d links", len(graph.Nodes), len(graph.Links))
		}
		if graph.Type != "NetworkGraph" || graph.Protocol != "OLSR" || graph.Metric != "ETX" {
			t.Fatalf("expected source metadata on graph, got %+v", graph)
		}
	})

	t.Run("active links become weighted edges", func(t *testing.T) {
		assertNoError(t, reconciler.Update(ctx, source))

		graph, err := reconciler.Export(ctx, source)
		assertNoError(t, err)
		if len(graph.Nodes) != 2 {
			t.Fatalf("expected 2 nodes, got %d", len(graph.Nodes))
		}
		if graph.Nodes[0].ID != "10.40.0.8" || graph.Nodes[1].ID != "10.40.0.10" {
			t.Fatalf("expected first-appearance node order, got %+v", graph.Nodes)
		}
		if len(graph.Links) != 1 {
			t.Fatalf("expected 1 edge, got %d", len(graph.Links))
		}
		edge := graph.Links[0]
		if edge.Source != "10.40.0.8" || edge.Target != "10.40.0.10" || edge.Weight != 1.01 {
			t.Fatalf("unexpected edge %+v", edge)
		}
	})

	t.Run("disconnected links are excluded", func(t *testing.T) {
		fetcher.documents[topologyURL] = graphDocument()
		assertNoError(t, reconciler.Update(ctx, source))

		graph, err := reconciler.Export(ctx, source)
		assertNoError(t, err)
		if len(graph.Links) != 0 {
			t.Fatalf("expected no edges, got %d", len(graph.Links))
		}
	})
}

func TestSchedulerRunsInitialTick(t *testing.T) {
	fetcher := &stubFetcher{documents: map[string][]byte{
		topologyURL: graphDocument(domain.GraphEdge{Source: "10.40.0.8", Target: "10.40.0.10", Weight: 1.01}),
	}}
	reconciler, repo, source := newTestReconciler(t, fetcher, ReconcilerOptions{DisconnectVanished: true})

	scheduler := NewScheduler(repo, reconciler, time.Hour, 2)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(done)
	}()

	// the initial tick runs immediately; poll for its effect
	deadline := time.After(5 * time.Second)
	for {
		count, err := repo.CountLinks(context.Background(), repository.LinkFilter{TopologyID: source.ID})
		assertNoError(t, err)
		if count == 1 {
			break
		}
		select {
		case <-deadline:
			cancel()
			t.Fatal("scheduler never reconciled the source")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
}
