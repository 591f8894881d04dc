package httpapi

import (
	"fmt"
	"net/http"
)

const (
	maxAge1Year = 365 * 24 * 60 * 60
	maxAge1Day  = 24 * 60 * 60
)

func setCacheControlMaxAge(w http.ResponseWriter, seconds int) {
	w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", seconds))
}

func setCacheControlNoStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}

// notFound writes a 404 with no-store caching, the way some_or_404! does in
// the original server: a missed hash is never worth caching.
func notFound(w http.ResponseWriter, msg string) {
	setCacheControlNoStore(w)
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprint(w, msg)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.Logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	setCacheControlNoStore(w)
	w.WriteHeader(http.StatusInternalServerError)
}
