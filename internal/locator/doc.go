// Package locator answers "does this file exist and where does it live" for
// directory references across the local, bucket and cloud-proxy backends.
//
// Service keeps a session-scoped DirectoryCache, resolves candidate URLs through
// backend.Resolver and lists a directory at most once per session. Concurrent
// scans of one directory are coalesced; a failed or timed-out scan leaves the
// directory unscanned so the next call retries.
package locator
