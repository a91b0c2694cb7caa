// Package session tracks per-channel conversation state: a bounded FIFO of
// recent turns plus the set of sources ingested during the conversation.
//
// State is in-memory only and does not survive restarts. The Store is safe
// for concurrent use; callers that need one-command-at-a-time semantics per
// session additionally use Acquire.
package session

import (
	"time"
)

// SourceKind discriminates the source reference union.
type SourceKind string

const (
	// SourceFile is an uploaded file.
	SourceFile SourceKind = "file"

	// SourceURL is an ingested web page.
	SourceURL SourceKind = "url"

	// SourceDataset is a platform-side dataset tag.
	SourceDataset SourceKind = "dataset"
)

// Source is a reference to ingested content. Label is the display string
// used in the "Sources" footer of replies; sources within a session are
// unique by label. Immutable once created.
type Source struct {
	Kind    SourceKind
	Label   string
	Ref     string // file path, URL, or dataset identifier
	AddedAt time.Time
}

// Turn is one query/answer exchange.
type Turn struct {
	Query  string
	Answer string
	At     time.Time
}

// state is the mutable per-session record. Owned by Store; never handed
// out directly. conversationID is the platform-side conversation handle
// threaded between agent runs; it dies with the session.
type state struct {
	turns          []Turn
	sources        []Source
	conversationID string
}
