package versioning

// ApplicationVersion is stamped at build time via
// -ldflags "-X .../internal/versioning.ApplicationVersion=...".
var ApplicationVersion = "dev"
