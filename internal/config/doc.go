// Package config resolves videocatalogd's settings.json: built-in defaults,
// deep-merged with the on-disk document, deep-merged with a small
// allowlist of environment variables. See Default and Load. Migrate applies
// version migrations to a raw settings document; Load does not call it.
package config
