// Package events owns the events_queue/vectors_pending schema and the
// declarative trigger generation that keeps them in sync with every
// write-side catalog table. See Migrate and Publisher.
package events
