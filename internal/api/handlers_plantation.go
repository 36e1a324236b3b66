package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
)

func principal(r *http.Request) Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}

func setETag(w http.ResponseWriter, version int) {
	w.Header().Set("ETag", strconv.Quote(strconv.Itoa(version)))
}

// verifyInput decodes a verification body. An If-Match header carrying the
// record version takes precedence over the body's version field.
func verifyInput(w http.ResponseWriter, r *http.Request) (plantation.VerifyInput, error) {
	var in plantation.VerifyInput
	if err := decodeValid(w, r, &in); err != nil {
		return in, err
	}
	raw := strings.Trim(strings.TrimPrefix(strings.TrimSpace(r.Header.Get("If-Match")), "W/"), `"`)
	if raw == "" {
		return in, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return in, plantation.Validation("If-Match must carry the record version", map[string]any{"ifMatch": raw})
	}
	in.Version = &v
	return in, nil
}

func (s *Server) createIndividual(w http.ResponseWriter, r *http.Request) {
	var in plantation.NewIndividual
	if err := decodeValid(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.store.CreateIndividual(r.Context(), in, principal(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	setETag(w, p.Version)
	success(w, http.StatusCreated, envelope{"data": p})
}

func (s *Server) getIndividual(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetIndividual(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	setETag(w, p.Version)
	success(w, http.StatusOK, envelope{"data": p})
}

func (s *Server) updateIndividual(w http.ResponseWriter, r *http.Request) {
	var patch plantation.IndividualPatch
	if err := decodeValid(w, r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.store.UpdateIndividual(r.Context(), chi.URLParam(r, "id"), patch, principal(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	setETag(w, p.Version)
	success(w, http.StatusOK, envelope{"data": p})
}

func (s *Server) deleteIndividual(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteIndividual(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	success(w, http.StatusOK, envelope{"message": "individual plantation deleted"})
}

func (s *Server) verifyIndividual(w http.ResponseWriter, r *http.Request) {
	in, err := verifyInput(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.store.VerifyIndividual(r.Context(), chi.URLParam(r, "id"), in, principal(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	setETag(w, p.Version)
	success(w, http.StatusOK, envelope{"data": p})
}

func (s *Server) createBlock(w http.ResponseWriter, r *http.Request) {
	var in plantation.NewBlock
	if err := decodeValid(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.store.CreateBlock(r.Context(), in, principal(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	setETag(w, b.Version)
	success(w, http.StatusCreated, envelope{"data": b})
}

func (s *Server) getBlock(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.GetBlock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	setETag(w, b.Version)
	success(w, http.StatusOK, envelope{"data": b})
}

func (s *Server) updateBlock(w http.ResponseWriter, r *http.Request) {
	var patch plantation.BlockPatch
	if err := decodeValid(w, r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.store.UpdateBlock(r.Context(), chi.URLParam(r, "id"), patch, principal(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	setETag(w, b.Version)
	success(w, http.StatusOK, envelope{"data": b})
}

func (s *Server) deleteBlock(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteBlock(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	success(w, http.StatusOK, envelope{"message": "block plantation deleted"})
}

func (s *Server) verifyBlock(w http.ResponseWriter, r *http.Request) {
	in, err := verifyInput(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.store.VerifyBlock(r.Context(), chi.URLParam(r, "id"), in, principal(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	setETag(w, b.Version)
	success(w, http.StatusOK, envelope{"data": b})
}
