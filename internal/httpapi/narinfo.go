package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nix-community/go-cache-daemon/internal/narinfo"
)

func (s *Server) handleNarinfo(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]
	ctx := r.Context()

	storePath, err := s.Store.Daemon.QueryPathFromHashPart(ctx, hash)
	if err != nil {
		s.serverError(w, r, err)

		return
	}

	if storePath == "" {
		notFound(w, "missed hash")

		return
	}

	info, err := s.Store.Daemon.QueryPathInfo(ctx, storePath)
	if err != nil {
		s.serverError(w, r, err)

		return
	}

	if info == nil {
		notFound(w, "missed hash")

		return
	}

	ni, err := narinfo.Build(s.Store.VirtualStore(), storePath, hash, info, s.Keys)
	if err != nil {
		s.serverError(w, r, err)

		return
	}

	setCacheControlMaxAge(w, maxAge1Day)

	if r.URL.Query().Has("json") {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ni) //nolint:errcheck // client disconnects are not actionable

		return
	}

	w.Header().Set("Content-Type", "text/x-nix-narinfo")
	w.Header().Set("Nix-Link", ni.URL)
	w.Write([]byte(narinfo.FormatText(ni))) //nolint:errcheck // client disconnects are not actionable
}
