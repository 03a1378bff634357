package mapper

import "context"

// NoMatch is the sentinel a Selector returns when no candidate fits.
const NoMatch = "NO_MATCH"

// Selector chooses one term from a bounded candidate list for a free-text
// fragment, or NoMatch. parent carries the already-selected parent term
// for staged hierarchical selection ("" at the top level).
//
// Implementations may fail; callers treat any error as NoMatch.
type Selector interface {
	Select(ctx context.Context, fragment string, candidates []string, parent string) (string, error)
}
