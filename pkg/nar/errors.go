package nar

import "errors"

// ErrTruncatedFile is returned when a file yields fewer bytes than its
// metadata-reported size before reaching EOF.
var ErrTruncatedFile = errors.New("nar: truncated file")

// ErrModifiedDuringDump is returned when a file yields more bytes than its
// metadata-reported size, meaning it grew while being dumped.
var ErrModifiedDuringDump = errors.New("nar: modified during dump")
