package ledger

import "context"

// Guard rejects keys that already hold a record.
//
// EnsureAbsent must be called, and must succeed, before any Put for the
// same key. Together with the single Put at the end of every handler this
// is what makes a natural ID committable at most once.
type Guard struct {
	store Store
}

// NewGuard creates a duplicate guard over store.
func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// EnsureAbsent returns DuplicateIDError if key holds a non-empty value.
// It never writes.
func (g *Guard) EnsureAbsent(ctx context.Context, key string) error {
	value, found, err := g.store.Get(ctx, key)
	if err != nil {
		return storeErr("get", key, err)
	}
	if found && len(value) > 0 {
		return &DuplicateIDError{Key: key}
	}
	return nil
}
