// Package cache holds the in-memory directory cache shared by the resolver and
// the existence checker. It remembers which file URLs and directories have been
// seen in listings, which directory references were fully listed, and the
// per-directory URL templates of the cloud proxy backend (a URL prefix for the
// standard mode, a name → URL map for bundles). The cache is scoped to a
// session: Reset drops everything at once and starts a new session id, and no
// state survives a process restart.
package cache
