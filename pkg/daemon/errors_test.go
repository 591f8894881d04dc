package daemon_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nix-community/go-cache-daemon/pkg/daemon"
)

func TestDaemonError(t *testing.T) {
	e := &daemon.DaemonError{
		Message: "path '/nix/store/xxx' is not valid",
	}
	assert.Equal(t, "daemon: path '/nix/store/xxx' is not valid", e.Error())
}

func TestProtocolError(t *testing.T) {
	inner := errors.New("unexpected EOF")
	e := &daemon.ProtocolError{Op: "handshake", Err: inner}
	assert.Equal(t, "protocol: handshake: unexpected EOF", e.Error())
	assert.ErrorIs(t, e, inner)
}
