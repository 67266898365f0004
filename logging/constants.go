package logging

// These constants are used to identify the various services that may do some logging. Each service creates a
// sub-logger keyed by "module" so that log output is grep-able per service.
const (
	// SOURCES_SERVICE is the constant used to identify the sources (resolution, flattening, extraction) package
	SOURCES_SERVICE = "sources"
	// COMPILATION_SERVICE is the constant used to identify the compilation package
	COMPILATION_SERVICE = "compilation"
	// CHAIN_SERVICE is the constant used to identify the chain (rpc fetching, caching) packages
	CHAIN_SERVICE = "chain"
	// VERIFICATION_SERVICE is the constant used to identify the verification package
	VERIFICATION_SERVICE = "verification"
	// CLI_SERVICE is the constant used to identify the cmd package
	CLI_SERVICE = "cli"
)
