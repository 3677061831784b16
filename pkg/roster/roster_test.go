package roster

import (
	"encoding/json"
	"reflect"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestRoster_ItemIDs(t *testing.T) {
	tests := []struct {
		name   string
		roster Roster
		want   []ItemID
		wantOK bool
	}{
		{
			name:   "picks present",
			roster: Roster{Picks: []Pick{{Element: 10}, {Element: 20}, {Element: 10}}},
			want:   []ItemID{10, 20},
			wantOK: true,
		},
		{
			name:   "picks absent",
			roster: Roster{},
			wantOK: false,
		},
		{
			name:   "empty picks is well formed",
			roster: Roster{Picks: []Pick{}},
			want:   []ItemID{},
			wantOK: true,
		},
		{
			name:   "pick without element",
			roster: Roster{Picks: []Pick{{Element: 10}, {Position: 2}}},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, ok := tt.roster.ItemIDs()
			if ok != tt.wantOK {
				t.Fatalf("ItemIDs() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("ItemIDs() len = %d, want %d", len(ids), len(tt.want))
			}
			for _, id := range tt.want {
				if _, found := ids[id]; !found {
					t.Errorf("ItemIDs() missing %d", id)
				}
			}
		})
	}
}

func TestRoster_Points(t *testing.T) {
	tests := []struct {
		name      string
		roster    Roster
		want      int
		wantFound bool
	}{
		{"entry history wins", Roster{EntryHistory: &EntryHistory{Points: 71}, CurrentEventPoints: intPtr(3)}, 71, true},
		{"current event points fallback", Roster{CurrentEventPoints: intPtr(42)}, 42, true},
		{"present zero", Roster{CurrentEventPoints: intPtr(0)}, 0, true},
		{"absent", Roster{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := tt.roster.Points()
			if got != tt.want || found != tt.wantFound {
				t.Errorf("Points() = (%d, %v), want (%d, %v)", got, found, tt.want, tt.wantFound)
			}
		})
	}
}

func TestRoster_DecodePresence(t *testing.T) {
	var withPicks, withoutPicks Roster
	if err := json.Unmarshal([]byte(`{"picks":[],"entry_history":null}`), &withPicks); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if err := json.Unmarshal([]byte(`{"active_chip":"wildcard"}`), &withoutPicks); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if !withPicks.HasPicks() {
		t.Error("empty picks array should count as present")
	}
	if withPicks.EntryHistory != nil {
		t.Error("null entry_history should decode as absent")
	}
	if withoutPicks.HasPicks() {
		t.Error("missing picks should count as absent")
	}
	if withoutPicks.ActiveChip == nil || *withoutPicks.ActiveChip != "wildcard" {
		t.Errorf("ActiveChip = %v, want wildcard", withoutPicks.ActiveChip)
	}
}

func TestGroupSnapshot_MemberIDs(t *testing.T) {
	snap := &GroupSnapshot{Members: []Member{{Entry: 3}, {Entry: 1}, {Entry: 3}, {Entry: 2}}}

	got := snap.MemberIDs()
	want := []MemberID{3, 1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MemberIDs() = %v, want %v", got, want)
	}

	var nilSnap *GroupSnapshot
	if ids := nilSnap.MemberIDs(); ids != nil {
		t.Errorf("nil snapshot MemberIDs() = %v, want nil", ids)
	}
	if _, ok := nilSnap.Member(1); ok {
		t.Error("nil snapshot Member() should report not found")
	}
}

func TestGroupSnapshot_Member(t *testing.T) {
	snap := &GroupSnapshot{Members: []Member{{Entry: 7, PlayerName: "Ann"}}}

	m, ok := snap.Member(7)
	if !ok || m.PlayerName != "Ann" {
		t.Errorf("Member(7) = (%+v, %v)", m, ok)
	}
	if _, ok := snap.Member(8); ok {
		t.Error("Member(8) should not be found")
	}
}

func TestMapping_IDsAndClone(t *testing.T) {
	m := Mapping{5: {}, 1: {}, 3: {}}

	if got := m.IDs(); !reflect.DeepEqual(got, []MemberID{1, 3, 5}) {
		t.Errorf("IDs() = %v", got)
	}

	c := m.Clone()
	delete(c, 5)
	if _, ok := m[5]; !ok {
		t.Error("Clone() should not alias the original map")
	}
	if len(m.IDSet()) != 3 {
		t.Errorf("IDSet() len = %d, want 3", len(m.IDSet()))
	}
}

func TestUnique(t *testing.T) {
	got := Unique([]MemberID{4, 4, 2, 9, 2})
	if !reflect.DeepEqual(got, []MemberID{4, 2, 9}) {
		t.Errorf("Unique() = %v", got)
	}
}
