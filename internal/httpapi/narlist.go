package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nix-community/go-cache-daemon/pkg/narlist"
)

func (s *Server) handleNarList(w http.ResponseWriter, r *http.Request) {
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

	list, err := narlist.Build(s.Store.RealPath(storePath))
	if err != nil {
		s.serverError(w, r, err)

		return
	}

	setCacheControlMaxAge(w, maxAge1Year)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list) //nolint:errcheck // client disconnects are not actionable
}
