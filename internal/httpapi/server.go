// Package httpapi wires the read-only HTTP surface of the binary-cache
// server: narinfo/nar/ls/log/serve routes, routed with gorilla/mux over a
// store.Store and a set of signing keys, the way
// orbas1-Synnergy/synnergy-network/walletserver wires its routes package
// around an injected service.
package httpapi

import (
	"github.com/sirupsen/logrus"

	"github.com/nix-community/go-cache-daemon/internal/store"
	"github.com/nix-community/go-cache-daemon/pkg/signing"
)

const nixBase32Class = "0123456789abcdfghijklmnpqrsvwxyz"

// Server holds the dependencies every route handler needs.
type Server struct {
	Store     *store.Store
	Keys      []signing.Key
	Logger    *logrus.Logger
	StateFile string // path read by handleHealth to compute uptime; may be empty
}

// New builds a Server. If logger is nil, logrus.StandardLogger() is used.
func New(st *store.Store, keys []signing.Key, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Server{Store: st, Keys: keys, Logger: logger}
}
