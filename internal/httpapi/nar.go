package httpapi

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nix-community/go-cache-daemon/pkg/nar"
	"github.com/nix-community/go-cache-daemon/pkg/nixbase32"
)

// handleNar streams the NAR serialization of a store path, verifying the
// requested narhash against the daemon's own record before dumping, and
// slicing the stream to satisfy a byte-range request.
func (s *Server) handleNar(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	narHash := vars["narhash"]

	outHash := vars["outhash"]
	if outHash == "" {
		outHash = r.URL.Query().Get("hash")
	}

	if outHash == "" {
		notFound(w, "missing outhash")

		return
	}

	ctx := r.Context()

	storePath, err := s.Store.Daemon.QueryPathFromHashPart(ctx, outHash)
	if err != nil {
		s.serverError(w, r, err)

		return
	}

	if storePath == "" {
		notFound(w, "store path not found")

		return
	}

	info, err := s.Store.Daemon.QueryPathInfo(ctx, storePath)
	if err != nil {
		s.serverError(w, r, err)

		return
	}

	if info == nil {
		notFound(w, "path info not found")

		return
	}

	hashBytes, err := hex.DecodeString(info.NarHash)
	if err != nil {
		s.serverError(w, r, fmt.Errorf("convert nar hash to nix32: %w", err))

		return
	}

	if got := nixbase32.EncodeToString(hashBytes); got != narHash {
		notFound(w, "hash mismatch detected")

		return
	}

	realPath := s.Store.RealPath(storePath)

	pr, pw := io.Pipe()
	defer pr.Close()

	go func() {
		pw.CloseWithError(nar.Dump(pw, realPath))
	}()

	size := info.NarSize

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		w.Header().Set("Content-Type", "application/x-nix-archive")
		w.Header().Set("Accept-Ranges", "bytes")
		setCacheControlMaxAge(w, maxAge1Year)
		io.Copy(w, pr) //nolint:errcheck // client disconnects are not actionable

		return
	}

	br, err := parseByteRange(rangeHeader, size)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)

		return
	}

	w.Header().Set("Content-Type", "application/x-nix-archive")
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Encoding", "identity")
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", br.start, br.start+br.length-1, size))
	setCacheControlMaxAge(w, maxAge1Year)
	w.WriteHeader(http.StatusPartialContent)

	if err := sliceTo(w, pr, br.start, br.length); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		s.Logger.WithError(err).Warn("range slice interrupted")
	}
}

// sliceTo discards the first skip bytes of src, then copies exactly length
// bytes to dst.
func sliceTo(dst io.Writer, src io.Reader, skip, length uint64) error {
	if skip > 0 {
		if _, err := io.CopyN(io.Discard, src, int64(skip)); err != nil {
			return err
		}
	}

	_, err := io.CopyN(dst, src, int64(length))

	return err
}
