package httpapi

import (
	"compress/bzip2"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"

	"github.com/nix-community/go-cache-daemon/internal/buildlog"
)

func (s *Server) handleBuildLog(w http.ResponseWriter, r *http.Request) {
	drv := mux.Vars(r)["drv"]

	hashPart := drv
	if len(drv) > 32 {
		hashPart = drv[:32]
	}

	ctx := r.Context()

	drvPath, err := s.Store.Daemon.QueryPathFromHashPart(ctx, hashPart)
	if err != nil {
		s.serverError(w, r, err)

		return
	}

	if drvPath == "" {
		notFound(w, "missed hash")

		return
	}

	valid, err := s.Store.Daemon.IsValidPath(ctx, drvPath)
	if err != nil {
		s.serverError(w, r, err)

		return
	}

	if !valid {
		notFound(w, "missed hash")

		return
	}

	logPath, compressed, ok := buildlog.Find(s.Store.RealStore(), drvPath)
	if !ok {
		setCacheControlNoStore(w)
		w.WriteHeader(http.StatusNotFound)

		return
	}

	f, err := os.Open(logPath)
	if err != nil {
		s.serverError(w, r, err)

		return
	}
	defer f.Close()

	acceptEncoding := r.Header.Get("Accept-Encoding")

	if compressed && !strings.Contains(acceptEncoding, "bzip2") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		setCacheControlMaxAge(w, maxAge1Year)
		io.Copy(w, bzip2.NewReader(f)) //nolint:errcheck // client disconnects are not actionable

		return
	}

	encoding := "identity"
	if compressed {
		encoding = "bzip2"
	}

	w.Header().Set("Content-Encoding", encoding)
	setCacheControlMaxAge(w, maxAge1Year)
	io.Copy(w, f) //nolint:errcheck // client disconnects are not actionable
}
