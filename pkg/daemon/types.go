package daemon

import "fmt"

// Protocol handshake constants.
const (
	// ClientMagic is the magic number sent by the client to initiate the handshake.
	ClientMagic uint64 = 0x6e697863 // "nixc" in ASCII

	// ServerMagic is the magic number the server responds with during the handshake.
	ServerMagic uint64 = 0x6478696f // "dxio" in ASCII

	// ProtocolVersion is both the minimum version this client accepts from the
	// daemon and the version it offers (major 1, minor 38). Unlike an
	// older-style min/negotiate scheme, this client does not negotiate down to
	// an older server: a server below ProtocolVersion fails the handshake.
	ProtocolVersion uint64 = 0x0126
)

// Operation represents a daemon worker operation code. The catalog covers
// opcodes 1 through 47 (44 named entries; 2, 15 and 17 have none), including
// opcodes this client never sends, so that String can name any of them.
type Operation uint64

// Daemon operation codes.
const (
	OpIsValidPath              Operation = 1
	OpHasSubstitutes           Operation = 3
	OpQueryPathHash            Operation = 4
	OpQueryReferences          Operation = 5
	OpQueryReferrers           Operation = 6
	OpAddToStore               Operation = 7
	OpAddTextToStore           Operation = 8
	OpBuildPaths               Operation = 9
	OpEnsurePath               Operation = 10
	OpAddTempRoot              Operation = 11
	OpAddIndirectRoot          Operation = 12
	OpSyncWithGC               Operation = 13
	OpFindRoots                Operation = 14
	OpExportPath               Operation = 16
	OpQueryDeriver             Operation = 18
	OpSetOptions               Operation = 19
	OpCollectGarbage           Operation = 20
	OpQuerySubstitutablePathInfo Operation = 21
	OpQueryDerivationOutputs   Operation = 22
	OpQueryAllValidPaths       Operation = 23
	OpQueryFailedPaths         Operation = 24
	OpClearFailedPaths         Operation = 25
	OpQueryPathInfo            Operation = 26
	OpImportPaths              Operation = 27
	OpQueryDerivationOutputNames Operation = 28
	OpQueryPathFromHashPart    Operation = 29
	OpQuerySubstitutablePathInfos Operation = 30
	OpQueryValidPaths          Operation = 31
	OpQuerySubstitutablePaths  Operation = 32
	OpQueryValidDerivers       Operation = 33
	OpOptimiseStore            Operation = 34
	OpVerifyStore              Operation = 35
	OpBuildDerivation          Operation = 36
	OpAddSignatures            Operation = 37
	OpNarFromPath              Operation = 38
	OpAddToStoreNar            Operation = 39
	OpQueryMissing             Operation = 40
	OpQueryDerivationOutputMap Operation = 41
	OpRegisterDrvOutput        Operation = 42
	OpQueryRealisation         Operation = 43
	OpAddMultipleToStore       Operation = 44
	OpAddBuildLog              Operation = 45
	OpBuildPathsWithResults    Operation = 46
	OpAddPermRoot              Operation = 47
)

//nolint:gochecknoglobals
var operationNames = map[Operation]string{
	OpIsValidPath:                "IsValidPath",
	OpHasSubstitutes:             "HasSubstitutes",
	OpQueryPathHash:              "QueryPathHash",
	OpQueryReferences:            "QueryReferences",
	OpQueryReferrers:             "QueryReferrers",
	OpAddToStore:                 "AddToStore",
	OpAddTextToStore:             "AddTextToStore",
	OpBuildPaths:                 "BuildPaths",
	OpEnsurePath:                 "EnsurePath",
	OpAddTempRoot:                "AddTempRoot",
	OpAddIndirectRoot:            "AddIndirectRoot",
	OpSyncWithGC:                 "SyncWithGC",
	OpFindRoots:                  "FindRoots",
	OpExportPath:                 "ExportPath",
	OpQueryDeriver:               "QueryDeriver",
	OpSetOptions:                 "SetOptions",
	OpCollectGarbage:             "CollectGarbage",
	OpQuerySubstitutablePathInfo: "QuerySubstitutablePathInfo",
	OpQueryDerivationOutputs:     "QueryDerivationOutputs",
	OpQueryAllValidPaths:         "QueryAllValidPaths",
	OpQueryFailedPaths:           "QueryFailedPaths",
	OpClearFailedPaths:           "ClearFailedPaths",
	OpQueryPathInfo:              "QueryPathInfo",
	OpImportPaths:                "ImportPaths",
	OpQueryDerivationOutputNames: "QueryDerivationOutputNames",
	OpQueryPathFromHashPart:      "QueryPathFromHashPart",
	OpQuerySubstitutablePathInfos: "QuerySubstitutablePathInfos",
	OpQueryValidPaths:            "QueryValidPaths",
	OpQuerySubstitutablePaths:    "QuerySubstitutablePaths",
	OpQueryValidDerivers:         "QueryValidDerivers",
	OpOptimiseStore:              "OptimiseStore",
	OpVerifyStore:                "VerifyStore",
	OpBuildDerivation:            "BuildDerivation",
	OpAddSignatures:              "AddSignatures",
	OpNarFromPath:                "NarFromPath",
	OpAddToStoreNar:              "AddToStoreNar",
	OpQueryMissing:               "QueryMissing",
	OpQueryDerivationOutputMap:   "QueryDerivationOutputMap",
	OpRegisterDrvOutput:          "RegisterDrvOutput",
	OpQueryRealisation:           "QueryRealisation",
	OpAddMultipleToStore:         "AddMultipleToStore",
	OpAddBuildLog:                "AddBuildLog",
	OpBuildPathsWithResults:      "BuildPathsWithResults",
	OpAddPermRoot:                "AddPermRoot",
}

// String returns the human-readable name of the operation, or a numeric
// placeholder for an opcode outside the known catalog.
func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}

	return fmt.Sprintf("Operation(%d)", o)
}

// TrustLevel indicates the trust level of the client as reported by the daemon.
type TrustLevel uint64

const (
	TrustUnknown    TrustLevel = 0
	TrustTrusted    TrustLevel = 1
	TrustNotTrusted TrustLevel = 2
)

// LogMessageType represents a log message type sent by the daemon on the stderr channel.
type LogMessageType uint64

const (
	LogLast          LogMessageType = 0x616c7473
	LogError         LogMessageType = 0x63787470
	LogNext          LogMessageType = 0x6f6c6d67
	LogRead          LogMessageType = 0x64617461
	LogWrite         LogMessageType = 0x64617416
	LogStartActivity LogMessageType = 0x53545254
	LogStopActivity  LogMessageType = 0x53544f50
	LogResult        LogMessageType = 0x52534c54
)

// ActivityType represents the type of an activity in log messages.
type ActivityType uint64

const (
	ActUnknown       ActivityType = 100
	ActCopyPath      ActivityType = 101
	ActFileTransfer  ActivityType = 102
	ActRealise       ActivityType = 103
	ActCopyPaths     ActivityType = 104
	ActBuilds        ActivityType = 105
	ActBuild         ActivityType = 106
	ActOptimiseStore ActivityType = 107
	ActVerifyPaths   ActivityType = 108
	ActSubstitute    ActivityType = 109
	ActQueryPathInfo ActivityType = 110
	ActPostBuildHook ActivityType = 111
	ActBuildWaiting  ActivityType = 112
)

// Verbosity represents the logging verbosity level.
type Verbosity uint64

const (
	VerbError     Verbosity = 0
	VerbWarn      Verbosity = 1
	VerbNotice    Verbosity = 2
	VerbInfo      Verbosity = 3
	VerbTalkative Verbosity = 4
	VerbChatty    Verbosity = 5
	VerbDebug     Verbosity = 6
	VerbVomit     Verbosity = 7
)

// PathInfo holds the metadata for a store path, as returned by QueryPathInfo.
type PathInfo struct {
	// StorePath is the path this info describes.
	StorePath string
	// Deriver is the store path of the derivation that produced this path, if known.
	Deriver string
	// NarHash is the hash of the NAR serialisation of the path contents, hex-encoded
	// (the daemon reports it in hex; callers convert to "sha256:<base32>" for display).
	NarHash string
	// References is the set of store paths this path depends on at runtime.
	References []string
	// RegistrationTime is the Unix timestamp when the path was registered.
	RegistrationTime uint64
	// NarSize is the size of the NAR serialisation in bytes.
	NarSize uint64
	// Ultimate indicates whether this path was built locally (trusted content).
	Ultimate bool
	// Sigs contains the cryptographic signatures already known to the daemon.
	Sigs []string
	// CA is the content-address of this path, if it is content-addressed.
	CA string
}

// LogField represents a single typed field carried by a StartActivity
// message. Exactly one of Int or String is meaningful, selected by IsInt.
type LogField struct {
	Int    uint64
	String string
	IsInt  bool
}

// Activity represents a structured log activity started by the daemon.
type Activity struct {
	ID     uint64
	Level  Verbosity
	Type   ActivityType
	Text   string
	Field  LogField
	Parent uint64
}

// LogMessage represents a log message received from the daemon on the stderr channel.
type LogMessage struct {
	// Type is the log message type.
	Type LogMessageType
	// Text is the log message text (for LogNext and LogWrite).
	Text string
	// Activity is set for LogStartActivity messages.
	Activity *Activity
	// ActivityID is set for LogStopActivity messages.
	ActivityID uint64
	// Result is set for LogResult messages.
	Result string
}
