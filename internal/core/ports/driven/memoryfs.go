package driven

import "context"

// MemoryFS provides read access to the personal knowledge store on disk:
// turn directories named by a zero-padded numeric convention, recursive
// knowledge/belief note trees, and the user-preferences note.
//
// All methods tolerate partial failure: a single unreadable file is the
// caller's problem to skip, never a reason to abort a scan.
type MemoryFS interface {
	// ListTurns returns the turn numbers present in the store, ascending.
	ListTurns(ctx context.Context) ([]uint64, error)

	// TurnPath returns the document path for a turn, whether or not the
	// turn exists on disk.
	TurnPath(turn uint64) string

	// ListNotes returns the paths of all knowledge/belief note files
	// under the configured roots, recursively.
	ListNotes(ctx context.Context) ([]string, error)

	// PreferencesPath returns the path of the user-preferences note, or
	// "" when none is configured.
	PreferencesPath() string

	// Read returns the raw content of a document by path. Returns
	// domain.ErrNotFound when the file does not exist.
	Read(ctx context.Context, path string) (string, error)
}
