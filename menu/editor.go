package menu

import (
	"context"
	"errors"
	"sync"

	"cravings/auth"
	"cravings/content"
	"cravings/models"
)

// ErrUnknownField rejects leaf edits against columns the editor does
// not manage.
var ErrUnknownField = errors.New("unknown menu item field")

// editableItemColumns maps editor field names to their columns. Edits
// outside this set are rejected before any write.
var editableItemColumns = map[string]struct{}{
	"title":       {},
	"custom_id":   {},
	"soup":        {},
	"salads":      {},
	"hot":         {},
	"desserts":    {},
	"description": {},
}

// Editor holds the admin's working copy of the menu tree and applies
// the optimistic-update pattern to it: every mutation lands locally
// first, then commits to the store. Leaf edits revert in place on
// failure; structural edits roll back by refetching the whole tree.
type Editor struct {
	store     *Store
	authState *auth.State
	tracker   *content.Tracker

	mu   sync.Mutex
	tree []Section
}

func NewEditor(store *Store, authState *auth.State, tracker *content.Tracker) *Editor {
	return &Editor{store: store, authState: authState, tracker: tracker}
}

func (e *Editor) Load(ctx context.Context) error {
	tree, err := e.store.SectionTree()
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.tree = tree
	e.mu.Unlock()
	return nil
}

// Tree returns a snapshot of the local working copy.
func (e *Editor) Tree() []Section {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Section, len(e.tree))
	copy(out, e.tree)
	return out
}

func (e *Editor) refetch(ctx context.Context) error {
	return e.Load(ctx)
}

// AddSection inserts a section optimistically. The returned id is the
// placeholder until the commit settles; callers reading the tree after
// a successful return see the server id.
func (e *Editor) AddSection(ctx context.Context, label string, displayOrder int) (string, error) {
	if !e.authState.IsAdmin() {
		return "", content.ErrNotAdmin
	}

	tempID := content.NewTempID()
	row := models.MenuSection{
		Label:        label,
		DisplayOrder: displayOrder,
		IsActive:     true,
	}

	settle := e.tracker.Begin("menu-add-section")
	defer settle()

	e.mu.Lock()
	placeholder := row
	placeholder.ID = tempID
	e.tree = append(e.tree, Section{MenuSection: placeholder})
	e.mu.Unlock()

	if err := e.store.CreateSection(&row); err != nil {
		e.removeSectionLocal(tempID)
		_ = e.refetch(ctx)
		return "", err
	}

	e.swapSectionID(tempID, row.ID)
	return row.ID, nil
}

// AddItem inserts an item into a section optimistically, following the
// placeholder-id protocol: the item appears in the local tree with a
// temporary id immediately, and a single pass swaps in the server id
// once the insert returns. A failed insert removes the placeholder and
// refetches the tree.
func (e *Editor) AddItem(ctx context.Context, sectionID string, item models.MenuItem) (string, error) {
	if !e.authState.IsAdmin() {
		return "", content.ErrNotAdmin
	}

	tempID := content.NewTempID()
	item.ID = ""
	item.SectionID = sectionID

	settle := e.tracker.Begin("menu-add-item")
	defer settle()

	e.mu.Lock()
	placeholder := item
	placeholder.ID = tempID
	for i := range e.tree {
		if e.tree[i].ID == sectionID {
			e.tree[i].Items = append(e.tree[i].Items, Item{MenuItem: placeholder})
			break
		}
	}
	e.mu.Unlock()

	if err := e.store.CreateItem(&item); err != nil {
		e.removeItemLocal(tempID)
		_ = e.refetch(ctx)
		return "", err
	}

	e.swapItemID(tempID, item.ID)
	return item.ID, nil
}

// UpdateItemField is a leaf edit: the new value lands locally at once
// and a failed commit restores exactly the prior value.
func (e *Editor) UpdateItemField(ctx context.Context, itemID, field, value string) error {
	if !e.authState.IsAdmin() {
		return content.ErrNotAdmin
	}
	if _, ok := editableItemColumns[field]; !ok {
		return ErrUnknownField
	}

	prior, ok := e.itemField(itemID, field)
	if !ok {
		return ErrNotFound
	}

	return content.Mutation{
		Name:     "menu-item-field",
		Strategy: content.FieldRestore,
		ApplyLocal: func() {
			e.setItemField(itemID, field, value)
		},
		CommitRemote: func(ctx context.Context) error {
			return e.store.UpdateItemField(itemID, field, value)
		},
		RevertLocal: func() {
			e.setItemField(itemID, field, prior)
		},
	}.Run(ctx, e.tracker)
}

// DeleteItem is structural: the item vanishes locally at once; a failed
// delete restores server truth by refetching the tree.
func (e *Editor) DeleteItem(ctx context.Context, itemID string) error {
	if !e.authState.IsAdmin() {
		return content.ErrNotAdmin
	}

	return content.Mutation{
		Name:     "menu-delete-item",
		Strategy: content.FullRefetch,
		ApplyLocal: func() {
			e.removeItemLocal(itemID)
		},
		CommitRemote: func(ctx context.Context) error {
			return e.store.DeleteItem(itemID)
		},
		Refetch: e.refetch,
	}.Run(ctx, e.tracker)
}

// DeleteSection removes the section and everything under it.
func (e *Editor) DeleteSection(ctx context.Context, sectionID string) error {
	if !e.authState.IsAdmin() {
		return content.ErrNotAdmin
	}

	return content.Mutation{
		Name:     "menu-delete-section",
		Strategy: content.FullRefetch,
		ApplyLocal: func() {
			e.removeSectionLocal(sectionID)
		},
		CommitRemote: func(ctx context.Context) error {
			return e.store.DeleteSection(sectionID)
		},
		Refetch: e.refetch,
	}.Run(ctx, e.tracker)
}

func (e *Editor) swapSectionID(oldID, newID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.tree {
		if e.tree[i].ID == oldID {
			e.tree[i].ID = newID
			for j := range e.tree[i].Items {
				e.tree[i].Items[j].SectionID = newID
			}
			return
		}
	}
}

func (e *Editor) swapItemID(oldID, newID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.tree {
		for j := range e.tree[i].Items {
			if e.tree[i].Items[j].ID == oldID {
				e.tree[i].Items[j].ID = newID
				for k := range e.tree[i].Items[j].Images {
					e.tree[i].Items[j].Images[k].MenuItemID = newID
				}
				return
			}
		}
	}
}

func (e *Editor) removeSectionLocal(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.tree {
		if e.tree[i].ID == id {
			e.tree = append(e.tree[:i], e.tree[i+1:]...)
			return
		}
	}
}

func (e *Editor) removeItemLocal(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.tree {
		for j := range e.tree[i].Items {
			if e.tree[i].Items[j].ID == id {
				e.tree[i].Items = append(e.tree[i].Items[:j], e.tree[i].Items[j+1:]...)
				return
			}
		}
	}
}

func (e *Editor) itemField(id, field string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.tree {
		for j := range e.tree[i].Items {
			if e.tree[i].Items[j].ID == id {
				return itemFieldValue(&e.tree[i].Items[j].MenuItem, field), true
			}
		}
	}
	return "", false
}

func (e *Editor) setItemField(id, field, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.tree {
		for j := range e.tree[i].Items {
			if e.tree[i].Items[j].ID == id {
				setItemFieldValue(&e.tree[i].Items[j].MenuItem, field, value)
				return
			}
		}
	}
}

func itemFieldValue(item *models.MenuItem, field string) string {
	switch field {
	case "title":
		return item.Title
	case "custom_id":
		return item.CustomID
	case "soup":
		return item.Soup
	case "salads":
		return item.Salads
	case "hot":
		return item.Hot
	case "desserts":
		return item.Desserts
	case "description":
		return item.Description
	}
	return ""
}

func setItemFieldValue(item *models.MenuItem, field, value string) {
	switch field {
	case "title":
		item.Title = value
	case "custom_id":
		item.CustomID = value
	case "soup":
		item.Soup = value
	case "salads":
		item.Salads = value
	case "hot":
		item.Hot = value
	case "desserts":
		item.Desserts = value
	case "description":
		item.Description = value
	}
}
