package version

// Package metadata information, used for versioning and metadata generation
// The release pipeline replaces these variables at build time via ldflags.
var (
	Version      = "0.1.0"     // Version of the pgxn-meta tool
	Toolname     = "pgxn-meta" // Name of the tool
	Organization = "PGXN"      // Organization that built the tool
	BuildDate    = "unknown"   // Date when the tool was built
	CommitSHA    = "unknown"   // Commit SHA of the tool
)
