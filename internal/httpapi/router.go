package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the server's route table.
func NewRouter(s *Server) *mux.Router {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)

	hash32 := "{hash:[" + nixBase32Class + "]{32}}"

	r.HandleFunc("/"+hash32+".narinfo", s.handleNarinfo).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/"+hash32+".ls", s.handleNarList).Methods(http.MethodGet, http.MethodHead)

	r.HandleFunc("/nar/{narhash:["+nixBase32Class+"]{52}}.nar", s.handleNar).Methods(http.MethodGet)
	r.HandleFunc(
		"/nar/{outhash:["+nixBase32Class+"]{32}}-{narhash:["+nixBase32Class+"]{52}}.nar",
		s.handleNar,
	).Methods(http.MethodGet)

	r.HandleFunc("/log/{drv}", s.handleBuildLog).Methods(http.MethodGet)
	r.HandleFunc("/serve/"+hash32+"{path:.*}", s.handleServe).Methods(http.MethodGet)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	return r
}

// loggingMiddleware logs one line per request the way
// walletserver/middleware.Logger wraps net/http handlers.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		s.Logger.WithFields(logFields(r, sw.status, time.Since(start))).Info("request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

func logFields(r *http.Request, status int, elapsed time.Duration) logrus.Fields {
	return logrus.Fields{
		"method":   r.Method,
		"path":     r.URL.Path,
		"status":   status,
		"duration": elapsed.String(),
	}
}
