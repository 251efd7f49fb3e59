package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/country-catalog/internal/errs"
	"github.com/sells-group/country-catalog/internal/model"
)

const topCountriesInSummary = 5

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRefresh runs the reconciliation pipeline and, on success,
// regenerates the summary image from fresh catalog figures.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.Refresh(r.Context())
	if err != nil {
		switch {
		case errs.IsSourceUnavailable(err):
			zap.L().Warn("refresh: upstream unavailable", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "external data source unavailable")
		case errors.Is(err, errs.ErrNoData):
			zap.L().Error("refresh: no usable data", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "no usable data received from source")
		default:
			zap.L().Error("refresh failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	s.regenerateSummary(r, result.RefreshedAt)

	writeJSON(w, http.StatusOK, result)
}

// regenerateSummary re-renders the summary image. The refresh itself is
// already committed; a rendering failure is logged, not surfaced.
func (s *Server) regenerateSummary(r *http.Request, refreshedAt time.Time) {
	ctx := r.Context()
	total, err := s.store.Count(ctx)
	if err != nil {
		zap.L().Warn("summary: count failed", zap.Error(err))
		return
	}
	top, err := s.store.TopByEstimatedGDP(ctx, topCountriesInSummary)
	if err != nil {
		zap.L().Warn("summary: top lookup failed", zap.Error(err))
		return
	}
	if err := s.renderer.Generate(total, top, refreshedAt); err != nil {
		zap.L().Warn("summary: render failed", zap.Error(err))
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.CountryFilter{
		Region:       q.Get("region"),
		CurrencyCode: q.Get("currency"),
		Sort:         model.ParseSortOrder(q.Get("sort")),
	}

	countries, err := s.store.List(r.Context(), filter)
	if err != nil {
		zap.L().Error("list countries failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if countries == nil {
		countries = []model.Country{}
	}
	writeJSON(w, http.StatusOK, countries)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	name, ok := pathName(w, r)
	if !ok {
		return
	}

	country, err := s.store.FindByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "country not found")
			return
		}
		zap.L().Error("find country failed", zap.String("name", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, country)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name, ok := pathName(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteByName(r.Context(), name); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "country not found")
			return
		}
		zap.L().Error("delete country failed", zap.String("name", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	total, err := s.store.Count(r.Context())
	if err != nil {
		zap.L().Error("status: count failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := map[string]any{"total_count": total}

	meta, err := s.store.GetMetadata(r.Context(), model.MetadataKeyLastRefreshed)
	if err != nil {
		zap.L().Error("status: metadata lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if meta != nil {
		resp["last_refreshed_at"] = meta.Value
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if !s.renderer.Exists() {
		writeError(w, http.StatusNotFound, "summary image not generated yet")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, s.renderer.Path())
}

// pathName extracts and validates the {name} path parameter. On failure it
// writes the 400 response and returns ok=false.
func pathName(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	name := strings.TrimSpace(raw)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return "", false
	}
	return name, true
}
