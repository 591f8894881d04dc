package daemon

import (
	"bufio"
	"fmt"
	"io"
	"net"

	"github.com/nix-community/go-cache-daemon/pkg/wire"
)

// HandshakeInfo holds the result of a successful handshake.
type HandshakeInfo struct {
	Version          uint64
	DaemonFeatures   []string
	DaemonNixVersion string
	Trust            TrustLevel
}

// Handshake performs the Nix daemon protocol handshake over a connection.
// It uses buffered I/O internally.
func Handshake(conn net.Conn) (*HandshakeInfo, error) {
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	return handshakeWithBufIO(r, w)
}

// handshakeWithBufIO performs the Nix daemon protocol handshake using the
// provided buffered reader and writer. This allows both the standalone
// Handshake function and the Client to share the same handshake logic.
//
// Steps follow spec.md's literal sequence, which fixes both the minimum
// accepted and the offered protocol version at the same constant — there is
// no negotiation down to an older server the way some daemon clients do it.
func handshakeWithBufIO(r io.Reader, w *bufio.Writer) (*HandshakeInfo, error) {
	// 1. Write client magic.
	if err := wire.WriteUint64(w, ClientMagic); err != nil {
		return nil, &ProtocolError{Op: "handshake write client magic", Err: err}
	}

	if err := w.Flush(); err != nil {
		return nil, &ProtocolError{Op: "handshake flush client magic", Err: err}
	}

	// 2. Read and validate server magic.
	serverMagic, err := wire.ReadUint64(r)
	if err != nil {
		return nil, &ProtocolError{Op: "handshake read server magic", Err: err}
	}

	if serverMagic != ServerMagic {
		return nil, &ProtocolError{
			Op:  "handshake validate server magic",
			Err: fmt.Errorf("expected %#x, got %#x", ServerMagic, serverMagic),
		}
	}

	// 3. Read the daemon's protocol version; fail unless >= ProtocolVersion.
	serverVersion, err := wire.ReadUint64(r)
	if err != nil {
		return nil, &ProtocolError{Op: "handshake read server version", Err: err}
	}

	if serverVersion < ProtocolVersion {
		return nil, &ProtocolError{
			Op:  "handshake validate server version",
			Err: fmt.Errorf("server version %#x is older than minimum supported %#x", serverVersion, ProtocolVersion),
		}
	}

	// 4. Write the client's protocol version.
	if err := wire.WriteUint64(w, ProtocolVersion); err != nil {
		return nil, &ProtocolError{Op: "handshake write client version", Err: err}
	}

	// 5. Write two obsolete/reserved u64 zeros (CPU affinity, reserve space).
	if err := wire.WriteUint64(w, 0); err != nil {
		return nil, &ProtocolError{Op: "handshake write reserved field 1", Err: err}
	}

	if err := wire.WriteUint64(w, 0); err != nil {
		return nil, &ProtocolError{Op: "handshake write reserved field 2", Err: err}
	}

	if err := w.Flush(); err != nil {
		return nil, &ProtocolError{Op: "handshake flush client version", Err: err}
	}

	// 6. Read the daemon's feature list.
	daemonFeatures, err := ReadStrings(r, MaxStringSize)
	if err != nil {
		return nil, &ProtocolError{Op: "handshake read daemon features", Err: err}
	}

	// 7. Write an empty supported-features list.
	if err := WriteStrings(w, nil); err != nil {
		return nil, &ProtocolError{Op: "handshake write client features", Err: err}
	}

	if err := w.Flush(); err != nil {
		return nil, &ProtocolError{Op: "handshake flush client features", Err: err}
	}

	// 8. Read the daemon's version string.
	daemonVersion, err := wire.ReadString(r, MaxStringSize)
	if err != nil {
		return nil, &ProtocolError{Op: "handshake read daemon version", Err: err}
	}

	// 9. Read the daemon's trust flag.
	trustRaw, err := wire.ReadUint64(r)
	if err != nil {
		return nil, &ProtocolError{Op: "handshake read trust level", Err: err}
	}

	// 10. Drain the logger side-channel until the terminator.
	if err := ProcessStderr(r, nil); err != nil {
		return nil, err
	}

	return &HandshakeInfo{
		Version:          ProtocolVersion,
		DaemonFeatures:   daemonFeatures,
		DaemonNixVersion: daemonVersion,
		Trust:            TrustLevel(trustRaw),
	}, nil
}
