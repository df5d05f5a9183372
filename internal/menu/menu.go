// Package menu models the navigation menu as a recursive tagged tree.
// Leaves carry a navigation stack to push; nodes carry ordered submenus.
// The tree is filtered per user so non-administrators never see entries
// for resources they cannot read.
package menu

// Item is one menu entry: a leaf with an action, or a node with submenus.
// A nil Submenus slice marks a leaf.
type Item struct {
	Key      string
	Title    string
	Expanded bool
	// Stack is the navigation stack pushed when a leaf is selected.
	Stack    []string
	Submenus []*Item
}

// IsLeaf reports whether the item carries an action rather than children.
func (it *Item) IsLeaf() bool { return len(it.Submenus) == 0 }

// Find returns the item with the given key and the ancestor path leading
// to it, outermost first and including the item itself. Views expand every
// ancestor on the path when highlighting the current entry.
func Find(root *Item, key string) ([]*Item, bool) {
	if root == nil {
		return nil, false
	}
	if root.Key == key {
		return []*Item{root}, true
	}
	for _, sub := range root.Submenus {
		if path, ok := Find(sub, key); ok {
			return append([]*Item{root}, path...), true
		}
	}
	return nil, false
}

// PermissionChecker answers whether the current user may read a resource.
// The application state store satisfies this.
type PermissionChecker interface {
	HasPermission(resourceKey string, permission ...string) bool
	IsSuperuser() bool
}

// Filter returns a copy of the tree with entries removed that the user
// may not see. Superusers see everything. A node whose submenus all
// filter away is dropped with them.
func Filter(root *Item, perms PermissionChecker) *Item {
	if root == nil {
		return nil
	}
	if perms.IsSuperuser() {
		return root
	}
	return filter(root, perms)
}

func filter(it *Item, perms PermissionChecker) *Item {
	if it.IsLeaf() {
		if it.Key != "home" && !perms.HasPermission(it.Key, "read") {
			return nil
		}
		return it
	}
	kept := make([]*Item, 0, len(it.Submenus))
	for _, sub := range it.Submenus {
		if f := filter(sub, perms); f != nil {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	out := *it
	out.Submenus = kept
	return &out
}
