package api

import (
	"net/http"

	"github.com/AlchemistMonkey02/Geotree-server/internal/combined"
	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
)

func (s *Server) writePage(w http.ResponseWriter, page combined.Page) {
	success(w, http.StatusOK, envelope{
		"results":    len(page.Results),
		"pagination": page.Pagination,
		"data":       page.Results,
	})
}

// listCombined serves the merged feed of both kinds.
func (s *Server) listCombined(w http.ResponseWriter, r *http.Request) {
	q, err := combined.ParseQuery(r.URL.Query(), s.maxLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	done := observe("combined_list")
	page, err := s.engine.List(r.Context(), q)
	done()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writePage(w, page)
}

// listKind serves the single-kind list endpoints through the same engine.
func (s *Server) listKind(kind plantation.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := combined.ParseQuery(r.URL.Query(), s.maxLimit)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		q.Kind = kind

		done := observe(string(kind) + "_list")
		page, err := s.engine.List(r.Context(), q)
		done()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.writePage(w, page)
	}
}

// dashboard serves the combined statistics report.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	q, err := combined.ParseQuery(r.URL.Query(), s.maxLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	done := observe("combined_dashboard")
	d, err := s.stats.Dashboard(r.Context(), q)
	done()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	success(w, http.StatusOK, envelope{"data": d})
}

// blockStatistics serves the block-only report with species distribution.
func (s *Server) blockStatistics(w http.ResponseWriter, r *http.Request) {
	q, err := combined.ParseQuery(r.URL.Query(), s.maxLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q.Kind = plantation.KindBlock

	done := observe("block_statistics")
	report, err := s.stats.BlockStatistics(r.Context(), q)
	done()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	success(w, http.StatusOK, envelope{"data": report})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, envelope{"status": "error", "database": "down"})
		return
	}
	success(w, http.StatusOK, envelope{"database": "up"})
}
