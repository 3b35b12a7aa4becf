package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oneconcern/podbundle/pkg/core/status"
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/oneconcern/podbundle/pkg/storage"
	"github.com/oneconcern/podbundle/pkg/wal"
)

const (
	immutable          = "public, max-age=31536000, immutable"
	defaultHistoryPage = 100
)

type historyPage struct {
	Entries []wal.Entry `json:"entries"`
	Next    string      `json:"next,omitempty"`
}

// HandleUploadFeed stores a feed without publishing it
func (s *Server) HandleUploadFeed(w http.ResponseWriter, r *http.Request) {
	payload, err := s.readFeed(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	typ, err := assetType(chi.URLParam(r, "type"), payload.Type)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	feed, err := s.backend.UploadFeed(r.Context(), payload.Tag, typ, payload.Files)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, fileRef{ID: feed.ID, File: model.FeedFile(feed.ID)})
}

// HandlePublishAssets stores a feed and publishes it as the latest feed of its tag
func (s *Server) HandlePublishAssets(w http.ResponseWriter, r *http.Request) {
	payload, err := s.readFeed(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	typ, err := assetType("", payload.Type)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	feed, err := s.backend.PublishAssets(r.Context(), payload.Tag, typ, payload.Files)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, fileRef{ID: feed.ID, File: model.FeedFile(feed.ID)})
}

// HandleFetchFeed returns a stored feed
func (s *Server) HandleFetchFeed(w http.ResponseWriter, r *http.Request) {
	data, err := s.backend.FetchFeed(r.Context(), chi.URLParam(r, "file"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", immutable)
	_, _ = w.Write(data)
}

// HandleCreateBundle builds the bundle of an explicit list of feeds
func (s *Server) HandleCreateBundle(w http.ResponseWriter, r *http.Request) {
	var payload bundlePayload
	r.Body = http.MaxBytesReader(w, r.Body, s.params.MaxUploadSize)
	if err := decodeJSON(r, &payload); err != nil {
		s.respondError(w, r, err)
		return
	}
	typ, err := assetType(chi.URLParam(r, "type"), payload.Type)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	bundle, err := s.backend.CreateBundle(r.Context(), typ, payload.Feeds)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, fileRef{ID: bundle.Identity, File: bundle.File()})
}

// HandleFetchBundle serves the content of a bundle, building it when needed
func (s *Server) HandleFetchBundle(w http.ResponseWriter, r *http.Request) {
	bundle, content, err := s.backend.FetchBundle(r.Context(), chi.URLParam(r, "file"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	etag := strconv.Quote(bundle.Hash)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", immutable)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", storage.ContentType(bundle.File()))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	_, _ = w.Write(content)
}

// HandlePublishInstruction replaces the instruction of a layout
func (s *Server) HandlePublishInstruction(w http.ResponseWriter, r *http.Request) {
	var payload instructionPayload
	r.Body = http.MaxBytesReader(w, r.Body, s.params.MaxUploadSize)
	if err := decodeJSON(r, &payload); err != nil {
		s.respondError(w, r, err)
		return
	}
	typ, err := model.ParseAssetType(payload.Type)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	st, err := s.backend.PublishInstruction(r.Context(), payload.Layout, typ, payload.Tags)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

// HandleInstructionStatus reports how the instruction of a layout joins with the published feeds
func (s *Server) HandleInstructionStatus(w http.ResponseWriter, r *http.Request) {
	typ, err := model.ParseAssetType(chi.URLParam(r, "type"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	st, err := s.backend.InstructionStatus(chi.URLParam(r, "layout"), typ)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

// HandleHistory lists the publishes recorded after the "from" token
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	max := defaultHistoryPage
	if v := r.URL.Query().Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, r, status.ErrValidation.WrapMessage("invalid max %q", v))
			return
		}
		max = n
	}
	entries, next, err := s.backend.History(r.Context(), r.URL.Query().Get("from"), max)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []wal.Entry{}
	}
	s.respondJSON(w, http.StatusOK, historyPage{Entries: entries, Next: next})
}

// HandleHealth is a liveness probe
func (s *Server) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}
