// Package registry talks to an npm-compatible package registry.
//
// The [Client] has two jobs: turning a name and version into [Metadata]
// (GET <base>/<name>/<version>) and streaming the package tarball
// (GET <base>/<name>/-/<basename>-<version>.tgz). Specifiers with a
// "file:" prefix are local-path packages: their metadata comes from the
// package.json on disk and the registry is never contacted.
//
// # Caching and retries
//
// Metadata responses are cached through a [cache.Cache] for a configurable
// TTL, keyed by registry:<name>@<version>. Transient failures (transport
// errors and 5xx responses) are retried three times with exponential backoff via [httputil.Retry].
// Tarball downloads are neither cached nor retried.
//
// # Errors
//
// A 404 maps to errors.ErrCodePackageNotFound, any other failure status to
// errors.ErrCodeNetwork. Metadata lacking a name or version is rejected
// with errors.ErrCodeInvalidMetadata.
package registry
