/*
store.go - Persistence contract for versioned JSON blobs

PURPOSE:
  Defines the interface between the domain logic and the remote content host.
  Every ledger and the account directory are stored as one named blob each.
  Different implementations talk to GitHub, S3, Redis, SQLite or memory.

VERSION TAGS:
  Every successful Get and Put returns an opaque Version (git blob SHA, S3
  ETag, counter...). Put takes the version the caller last saw and succeeds
  ONLY if the blob is still at that version. One atomic call on the host:
  there is no "fetch the tag, then write" window.

  expected == ""   -> create; fails with ErrConflict if the blob exists
  expected == v    -> replace; fails with ErrConflict if current != v

FAILURE MODES:
  ErrNotFound      Blob absent (Get only)
  ErrConflict      Precondition failed (Put only)
  ErrUnavailable   Network, auth, throttling, host errors

IMPLEMENTATIONS:
  - recordstore/github: GitHub contents API
  - recordstore/s3: S3 conditional writes
  - recordstore/redis: Lua compare-and-set
  - recordstore/sqlite: versioned table
  - recordstore/memory: In-memory for testing

SEE ALSO:
  - errors.go: Error values
  - recordstore/recordstore.go: JSON helpers on top of BlobStore
*/
package generic

import "context"

// Version is an opaque revision token of a blob.
type Version string

// Blob is one stored document.
type Blob struct {
	Path    string
	Content []byte
	Version Version
}

// =============================================================================
// BLOB STORE - Versioned get / conditional put
// =============================================================================

// BlobStore persists named blobs with compare-and-swap writes.
type BlobStore interface {
	// Get returns the blob at path or ErrNotFound.
	Get(ctx context.Context, path string) (Blob, error)

	// Put writes content if the blob is still at expected and returns the new
	// version. An empty expected means the blob must not exist yet.
	Put(ctx context.Context, path string, content []byte, expected Version) (Version, error)
}
