package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"linkmesh/internal/domain"
	"linkmesh/internal/report"
	"linkmesh/internal/repository"
	"linkmesh/internal/service"
)

// TopologyUpdater reconciles and exports topology sources. Implemented by
// service.Reconciler; narrowed to an interface so handler tests can stub it.
type TopologyUpdater interface {
	Update(ctx context.Context, source *domain.TopologySource) error
	Export(ctx context.Context, source *domain.TopologySource) (*domain.NetworkGraph, error)
}

// APIHandler handles API requests.
type APIHandler struct {
	repo     repository.Repository
	resolver *service.Resolver
	updater  TopologyUpdater
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(repo repository.Repository, resolver *service.Resolver, updater TopologyUpdater) *APIHandler {
	return &APIHandler{repo: repo, resolver: resolver, updater: updater}
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ListTopologies returns all configured topology sources.
func (h *APIHandler) ListTopologies(w http.ResponseWriter, r *http.Request) {
	sources, err := h.repo.ListTopologies(r.Context())
	if err != nil {
		log.Printf("Failed to list topologies: %v", err)
		h.writeError(w, "Failed to list topologies", err.Error(), http.StatusInternalServerError)
		return
	}
	if sources == nil {
		sources = []*domain.TopologySource{}
	}

	h.writeJSON(w, sources, http.StatusOK)
}

// GetTopology returns the exported graph document for one source, derived
// from its currently active links.
func (h *APIHandler) GetTopology(w http.ResponseWriter, r *http.Request) {
	source, ok := h.lookupTopology(w, r)
	if !ok {
		return
	}

	graph, err := h.updater.Export(r.Context(), source)
	if err != nil {
		log.Printf("Failed to export topology %s: %v", source.Slug, err)
		h.writeError(w, "Failed to export topology", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, graph, http.StatusOK)
}

// UpdateTopology fetches the source document and reconciles it immediately,
// outside the scheduler cadence.
func (h *APIHandler) UpdateTopology(w http.ResponseWriter, r *http.Request) {
	source, ok := h.lookupTopology(w, r)
	if !ok {
		return
	}

	if err := h.updater.Update(r.Context(), source); err != nil {
		log.Printf("Failed to update topology %s: %v", source.Slug, err)
		var fetchErr *domain.FetchError
		var decodeErr *domain.DecodeError
		if errors.As(err, &fetchErr) || errors.As(err, &decodeErr) {
			h.writeError(w, "Failed to update topology", err.Error(), http.StatusBadGateway)
			return
		}
		h.writeError(w, "Failed to update topology", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]string{"status": "reconciled", "topology": source.Slug}, http.StatusOK)
}

// ListLinks returns stored links, optionally filtered by status and topology
// slug query parameters.
func (h *APIHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.linkFilterFromQuery(w, r)
	if !ok {
		return
	}

	links, err := h.repo.ListLinks(r.Context(), filter)
	if err != nil {
		log.Printf("Failed to list links: %v", err)
		h.writeError(w, "Failed to list links", err.Error(), http.StatusInternalServerError)
		return
	}
	if links == nil {
		links = []*domain.Link{}
	}

	h.writeJSON(w, links, http.StatusOK)
}

// GetLinkByAddresses resolves the link joining the interfaces that own the
// two addresses given as query parameters, in either order.
func (h *APIHandler) GetLinkByAddresses(w http.ResponseWriter, r *http.Request) {
	addrA := r.URL.Query().Get("a")
	addrB := r.URL.Query().Get("b")
	if addrA == "" || addrB == "" {
		h.writeError(w, "Invalid query", "both a and b address parameters are required", http.StatusBadRequest)
		return
	}

	link, err := h.resolver.FindFromAddressPair(r.Context(), addrA, addrB)
	if err != nil {
		var addrErr *domain.AddressNotFoundError
		var linkErr *domain.LinkNotFoundError
		switch {
		case errors.Is(err, domain.ErrInvalidAddress):
			h.writeError(w, "Invalid address", err.Error(), http.StatusBadRequest)
		case errors.As(err, &addrErr), errors.As(err, &linkErr):
			h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
		default:
			log.Printf("Failed to resolve link: %v", err)
			h.writeError(w, "Failed to resolve link", err.Error(), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, link, http.StatusOK)
}

// ExportLinksXLSX streams an XLSX report of the stored links, honoring the
// same query filters as ListLinks.
func (h *APIHandler) ExportLinksXLSX(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.linkFilterFromQuery(w, r)
	if !ok {
		return
	}

	links, err := h.repo.ListLinks(r.Context(), filter)
	if err != nil {
		log.Printf("Failed to list links for export: %v", err)
		h.writeError(w, "Failed to export links", err.Error(), http.StatusInternalServerError)
		return
	}

	// buffer the workbook so a render failure can still produce a JSON error
	var buf bytes.Buffer
	if err := report.WriteLinksXLSX(&buf, links); err != nil {
		log.Printf("Failed to render links report: %v", err)
		h.writeError(w, "Failed to export links", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="links.xlsx"`)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Failed to write links report: %v", err)
	}
}

// Healthz reports liveness plus a quick database round-trip.
func (h *APIHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.repo.CountLinks(r.Context(), repository.LinkFilter{}); err != nil {
		h.writeError(w, "Unhealthy", err.Error(), http.StatusServiceUnavailable)
		return
	}
	h.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (h *APIHandler) lookupTopology(w http.ResponseWriter, r *http.Request) (*domain.TopologySource, bool) {
	slug := r.PathValue("slug")
	if slug == "" {
		h.writeError(w, "Invalid topology slug", "Topology slug is required", http.StatusBadRequest)
		return nil, false
	}

	source, err := h.repo.GetTopologyBySlug(r.Context(), slug)
	if err != nil {
		log.Printf("Failed to get topology %s: %v", slug, err)
		h.writeError(w, "Failed to get topology", err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	if source == nil {
		h.writeError(w, "Not found", "no topology with slug "+slug, http.StatusNotFound)
		return nil, false
	}
	return source, true
}

func (h *APIHandler) linkFilterFromQuery(w http.ResponseWriter, r *http.Request) (repository.LinkFilter, bool) {
	filter := repository.LinkFilter{
		Status: domain.LinkStatus(r.URL.Query().Get("status")),
	}

	if slug := r.URL.Query().Get("topology"); slug != "" {
		source, err := h.repo.GetTopologyBySlug(r.Context(), slug)
		if err != nil {
			log.Printf("Failed to get topology %s: %v", slug, err)
			h.writeError(w, "Failed to get topology", err.Error(), http.StatusInternalServerError)
			return filter, false
		}
		if source == nil {
			h.writeError(w, "Not found", "no topology with slug "+slug, http.StatusNotFound)
			return filter, false
		}
		filter.TopologyID = source.ID
	}

	return filter, true
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
