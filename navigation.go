package admin

import (
	"context"
	"fmt"
)

// OverflowLabel is the label of the item collecting tabs past the cap.
const OverflowLabel = "More"

// NavigationEntry is one model tab.
type NavigationEntry struct {
	Model   ModelID `json:"model"`
	Label   string  `json:"label"`
	Visible bool    `json:"visible"`
}

// NavigationItem is one rendered top level item. The overflow item has no
// model and lists the collapsed entries as children.
type NavigationItem struct {
	Model    ModelID           `json:"model,omitempty"`
	Label    string            `json:"label"`
	Children []NavigationEntry `json:"children,omitempty"`
}

// Navigation is the assembled tab bar.
type Navigation struct {
	Tabs           []NavigationEntry `json:"tabs"`
	Overflow       []NavigationEntry `json:"overflow,omitempty"`
	MaxVisibleTabs int               `json:"max_visible_tabs"`
	SnapshotID     string            `json:"snapshot_id"`
}

// Entries returns every reachable entry, tabs first.
func (n Navigation) Entries() []NavigationEntry {
	out := make([]NavigationEntry, 0, len(n.Tabs)+len(n.Overflow))
	out = append(out, n.Tabs...)
	return append(out, n.Overflow...)
}

// Contains reports whether model is reachable from the navigation.
func (n Navigation) Contains(model ModelID) bool {
	for _, entry := range n.Entries() {
		if entry.Model == model {
			return true
		}
	}
	return false
}

// Items returns the top level items to render: the tabs followed by a
// single overflow item when entries were collapsed. The result never holds
// more than MaxVisibleTabs+1 items.
func (n Navigation) Items() []NavigationItem {
	items := make([]NavigationItem, 0, len(n.Tabs)+1)
	for _, tab := range n.Tabs {
		items = append(items, NavigationItem{Model: tab.Model, Label: tab.Label})
	}
	if len(n.Overflow) > 0 {
		items = append(items, NavigationItem{
			Label:    OverflowLabel,
			Children: append([]NavigationEntry(nil), n.Overflow...),
		})
	}
	return items
}

// Navigation assembles the tab bar for principal from one snapshot. Models
// appear in source order; excluded models, models whose navigation section
// resolves hidden and models the authorizer denies are left out.
func (r *Registry) Navigation(ctx context.Context, principal string) (Navigation, error) {
	snap := r.current.Load()
	nav := Navigation{MaxVisibleTabs: snap.maxVisibleTabs, SnapshotID: snap.id}
	for _, model := range r.Models() {
		if err := ctx.Err(); err != nil {
			return Navigation{}, err
		}
		if snap.isExcluded(model) {
			continue
		}
		view := SectionView{registry: r, snap: snap, model: model, section: SectionNavigation}
		visible, err := view.sectionVisible()
		if err != nil {
			return Navigation{}, fmt.Errorf("admin: navigation %s: %w", model, err)
		}
		if !visible {
			continue
		}
		allowed, err := r.Authorize(principal, model)
		if err != nil {
			return Navigation{}, err
		}
		if !allowed {
			continue
		}
		label, err := view.sectionLabel()
		if err != nil {
			return Navigation{}, fmt.Errorf("admin: navigation %s: %w", model, err)
		}
		entry := NavigationEntry{Model: model, Label: label, Visible: true}
		if len(nav.Tabs) < nav.MaxVisibleTabs {
			nav.Tabs = append(nav.Tabs, entry)
			continue
		}
		nav.Overflow = append(nav.Overflow, entry)
	}
	return nav, nil
}

// Authorize reports whether principal may reach model. Without an
// authorizer every principal is allowed.
func (r *Registry) Authorize(principal string, model ModelID) (bool, error) {
	if r.cfg.authorizer == nil {
		return true, nil
	}
	allowed, err := r.cfg.authorizer.CanAccess(principal, model)
	if err != nil {
		return false, fmt.Errorf("admin: authorize %s for %q: %w", model, principal, err)
	}
	return allowed, nil
}
