package admin

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func navigationModels(entries []NavigationEntry) []ModelID {
	out := make([]ModelID, len(entries))
	for i, entry := range entries {
		out[i] = entry.Model
	}
	return out
}

func mustNavigation(t *testing.T, reg *Registry, principal string) Navigation {
	t.Helper()
	nav, err := reg.Navigation(context.Background(), principal)
	if err != nil {
		t.Fatalf("navigation: %v", err)
	}
	return nav
}

func TestNavigationOverflow(t *testing.T) {
	reg := newLeagueRegistry(t)
	if err := reg.SetMaxVisibleTabs(2); err != nil {
		t.Fatalf("set tabs: %v", err)
	}

	nav := mustNavigation(t, reg, "")
	if got := navigationModels(nav.Tabs); !reflect.DeepEqual(got, []ModelID{"League", "Division"}) {
		t.Fatalf("unexpected tabs %v", got)
	}
	items := nav.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	more := items[2]
	if more.Label != OverflowLabel || more.Model != "" {
		t.Fatalf("unexpected overflow item %+v", more)
	}
	if got := navigationModels(more.Children); !reflect.DeepEqual(got, []ModelID{"Team", "Player", "Draft", "Fan", "User"}) {
		t.Fatalf("unexpected overflow children %v", got)
	}
	if nav.SnapshotID != reg.Snapshot().ID {
		t.Fatalf("navigation should be built from the current snapshot")
	}
}

func TestNavigationItemsNeverExceedCap(t *testing.T) {
	cases := []struct {
		tabs     int
		excluded []ModelID
		items    int
		overflow int
	}{
		{tabs: 1, items: 2, overflow: 6},
		{tabs: 3, items: 4, overflow: 4},
		{tabs: 5, items: 6, overflow: 2},
		{tabs: 6, items: 7, overflow: 1},
		{tabs: 7, items: 7},
		{tabs: 20, items: 7},
		{tabs: 5, excluded: []ModelID{"Fan", "User"}, items: 5},
		{tabs: 2, excluded: []ModelID{"League", "Division", "Team", "Player", "Draft", "Fan", "User"}},
	}
	for _, tc := range cases {
		reg := newLeagueRegistry(t, WithMaxVisibleTabs(tc.tabs))
		reg.SetExcludedModels(tc.excluded...)

		nav := mustNavigation(t, reg, "")
		items := nav.Items()
		if len(items) != tc.items {
			t.Fatalf("tabs=%d excluded=%v: expected %d items, got %d", tc.tabs, tc.excluded, tc.items, len(items))
		}
		if len(items) > tc.tabs+1 {
			t.Fatalf("tabs=%d: %d items exceed the cap", tc.tabs, len(items))
		}
		if len(nav.Overflow) != tc.overflow {
			t.Fatalf("tabs=%d: expected %d overflow entries, got %d", tc.tabs, tc.overflow, len(nav.Overflow))
		}
	}
}

func TestNavigationSkipsExcludedModels(t *testing.T) {
	reg := newLeagueRegistry(t)
	reg.SetExcludedModels("Team", "Fan")

	nav := mustNavigation(t, reg, "")
	if nav.Contains("Team") || nav.Contains("Fan") {
		t.Fatalf("excluded models leaked into navigation: %v", navigationModels(nav.Entries()))
	}
	if got := navigationModels(nav.Entries()); !reflect.DeepEqual(got, []ModelID{"League", "Division", "Player", "Draft", "User"}) {
		t.Fatalf("unexpected entries %v", got)
	}
	for _, section := range []SectionKind{SectionList, SectionCreate} {
		if _, err := reg.Lookup("Team", section).Resolved(); !IsNotFound(err) {
			t.Fatalf("%s of an excluded model should be not found, got %v", section, err)
		}
	}
}

func TestNavigationVisibility(t *testing.T) {
	reg := newLeagueRegistry(t)
	mustConfigure(t, reg, "Team", func(m *ModelBuilder) { m.HideInNavigation() })
	mustConfigure(t, reg, "Draft", func(m *ModelBuilder) { m.Hide() })
	mustConfigure(t, reg, "Player", func(m *ModelBuilder) {
		m.ShowIf(func(bool) bool { return false })
		m.Navigation(func(s *SectionBuilder) { s.Show() })
	})

	nav := mustNavigation(t, reg, "")
	if got := navigationModels(nav.Entries()); !reflect.DeepEqual(got, []ModelID{"League", "Division", "Player", "Fan", "User"}) {
		t.Fatalf("unexpected entries %v", got)
	}

	if visible, err := reg.Lookup("Team", SectionList).Visible(); err != nil || !visible {
		t.Fatalf("hiding from navigation must keep the list visible, got %v %v", visible, err)
	}
	if visible, err := reg.Lookup("Draft", SectionList).Visible(); err != nil || visible {
		t.Fatalf("base hide should reach the list, got %v %v", visible, err)
	}
}

func TestNavigationLabels(t *testing.T) {
	reg := newLeagueRegistry(t)
	mustConfigure(t, reg, "Fan", func(m *ModelBuilder) {
		m.LabelFunc(func(current string) string { return current + " test" })
	})
	mustConfigure(t, reg, "Team", func(m *ModelBuilder) { m.LabelForNavigation("Clubs") })

	labels := func() map[ModelID]string {
		out := map[ModelID]string{}
		for _, entry := range mustNavigation(t, reg, "").Entries() {
			out[entry.Model] = entry.Label
		}
		return out
	}

	got := labels()
	if got["Fan"] != "Fan test" || got["Team"] != "Clubs" || got["League"] != "League" {
		t.Fatalf("unexpected labels %v", got)
	}

	mustConfigure(t, reg, "Fan", func(m *ModelBuilder) {
		m.Navigation(func(s *SectionBuilder) {
			s.LabelFunc(func(current string) string { return current + " 4" })
		})
	})
	if got := labels(); got["Fan"] != "Fan test 4" {
		t.Fatalf("navigation rule should chain onto the base label, got %q", got["Fan"])
	}
	if label, _ := reg.Lookup("Fan", SectionList).Label(); label != "Fan test" {
		t.Fatalf("navigation rule leaked into list: %q", label)
	}
}

func TestNavigationAuthorizer(t *testing.T) {
	var asked []string
	authorizer := AuthorizerFunc(func(principal string, model ModelID) (bool, error) {
		asked = append(asked, principal+":"+string(model))
		if principal == "scout" {
			return model == "Player" || model == "Draft", nil
		}
		return true, nil
	})
	reg := newLeagueRegistry(t, WithAuthorizer(authorizer))
	reg.SetExcludedModels("Fan")

	nav := mustNavigation(t, reg, "scout")
	if got := navigationModels(nav.Entries()); !reflect.DeepEqual(got, []ModelID{"Player", "Draft"}) {
		t.Fatalf("unexpected entries for scout %v", got)
	}
	for _, call := range asked {
		if strings.HasSuffix(call, ":Fan") {
			t.Fatalf("excluded models should not reach the authorizer")
		}
	}
	if got := len(mustNavigation(t, reg, "admin").Entries()); got != 6 {
		t.Fatalf("expected 6 entries for admin, got %d", got)
	}
}

func TestNavigationAuthorizerError(t *testing.T) {
	boom := errors.New("policy store unavailable")
	reg := newLeagueRegistry(t, WithAuthorizer(AuthorizerFunc(func(string, ModelID) (bool, error) {
		return false, boom
	})))

	if _, err := reg.Navigation(context.Background(), "alice"); !errors.Is(err, boom) {
		t.Fatalf("expected authorizer error, got %v", err)
	}
}

func TestNavigationHonoursContext(t *testing.T) {
	reg := newLeagueRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := reg.Navigation(ctx, ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
