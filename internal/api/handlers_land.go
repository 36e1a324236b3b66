package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/AlchemistMonkey02/Geotree-server/internal/combined"
	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
	"github.com/AlchemistMonkey02/Geotree-server/internal/store"
)

func queryInt(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func (s *Server) listLand(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := min(queryInt(r, "limit", combined.DefaultLimit), s.maxLimit)
	page := min(queryInt(r, "page", combined.DefaultPage), math.MaxInt/limit)

	f := store.LandFilter{
		Contains:      combined.ParseNear(q.Get("near"), ""),
		OwnershipType: q.Get("ownershipType"),
		LandUseType:   q.Get("landUseType"),
		Limit:         limit,
		Offset:        combined.Query{Page: page, Limit: limit}.Offset(),
	}

	lands, total, err := s.store.ListLand(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	success(w, http.StatusOK, envelope{
		"results": len(lands),
		"pagination": envelope{
			"totalCount":  total,
			"totalPages":  (total + limit - 1) / limit,
			"currentPage": page,
			"limit":       limit,
		},
		"data": lands,
	})
}

func (s *Server) createLand(w http.ResponseWriter, r *http.Request) {
	var in plantation.LandOwnershipInput
	if err := decodeValid(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	l, err := s.store.CreateLand(r.Context(), in, principal(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	success(w, http.StatusCreated, envelope{"data": l})
}

func (s *Server) getLand(w http.ResponseWriter, r *http.Request) {
	l, err := s.store.GetLand(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	success(w, http.StatusOK, envelope{"data": l})
}

func (s *Server) updateLand(w http.ResponseWriter, r *http.Request) {
	var patch plantation.LandOwnershipPatch
	if err := decodeValid(w, r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	existing, err := s.store.GetLand(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if p := principal(r); existing.CreatedBy != p.UserID && !plantation.IsAdmin(p.Role) {
		s.fail(w, r, plantation.Forbidden("only the creator or an admin can update this land ownership record"))
		return
	}

	l, err := s.store.UpdateLand(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	success(w, http.StatusOK, envelope{"data": l})
}

func (s *Server) deleteLand(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteLand(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	success(w, http.StatusOK, envelope{"message": "land ownership deleted"})
}
