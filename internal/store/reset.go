package store

import (
	"context"
)

// ResetQueue replaces the snapshot with an empty one.
func ResetQueue(ctx context.Context, st Store) error {
	return st.Save(ctx, nil)
}
