package client

import (
	"context"
	"fmt"

	"github.com/naseaoi/IceTV/internal/admin"
)

// ListView holds a local ordered copy of a server list for drag-style
// reordering. Moves only touch the copy; the order reaches the server in
// one sort action, and the dirty flag survives until that action
// succeeds or a refetch replaces the copy.
type ListView struct {
	keys  []string
	dirty bool
}

// NewListView creates a view over keys.
func NewListView(keys []string) *ListView {
	return &ListView{keys: append([]string(nil), keys...)}
}

// Keys returns a copy of the current local order.
func (v *ListView) Keys() []string {
	return append([]string(nil), v.keys...)
}

// Dirty reports whether the local order has unsaved moves.
func (v *ListView) Dirty() bool {
	return v.dirty
}

// Move takes the entry at position i out of the list and reinserts it at
// position j. No I/O happens; the view just goes dirty.
func (v *ListView) Move(i, j int) error {
	if i < 0 || i >= len(v.keys) || j < 0 || j >= len(v.keys) {
		return fmt.Errorf("move %d -> %d out of range for %d entries", i, j, len(v.keys))
	}
	if i == j {
		return nil
	}
	key := v.keys[i]
	rest := append(append([]string(nil), v.keys[:i]...), v.keys[i+1:]...)
	v.keys = append(append(append([]string(nil), rest[:j]...), key), rest[j:]...)
	v.dirty = true
	return nil
}

// Replace installs the server's order, discarding local moves.
func (v *ListView) Replace(keys []string) {
	v.keys = append([]string(nil), keys...)
	v.dirty = false
}

// SaveOrder pushes the local order through save. The dirty flag clears
// only when save succeeds; on failure the local order stays so the user
// can retry or refetch.
func (v *ListView) SaveOrder(save func(order []string) error) error {
	if !v.dirty {
		return nil
	}
	if err := save(v.Keys()); err != nil {
		return err
	}
	v.dirty = false
	return nil
}

// SaveSourceOrder saves the view's order as the sort action of a source
// list.
func (v *ListView) SaveSourceOrder(ctx context.Context, c *Console, kind admin.ListKind) error {
	return v.SaveOrder(func(order []string) error {
		return c.SourceAction(ctx, kind, admin.SourceActionRequest{Action: "sort", Order: order})
	})
}

// SaveCategoryOrder saves the view's order as the sort action of the
// custom category list.
func (v *ListView) SaveCategoryOrder(ctx context.Context, c *Console) error {
	return v.SaveOrder(func(order []string) error {
		return c.CategoryAction(ctx, admin.CategoryActionRequest{Action: "sort", Order: order})
	})
}
