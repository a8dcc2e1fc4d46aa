package engine

import (
	"errors"
	"strings"
	"testing"
)

func stateWith(people ...Person) State {
	s := NewState()
	s.People = append(s.People, people...)
	return s
}

func person(name string, items ...string) Person {
	sel := map[string]bool{}
	for _, it := range items {
		sel[it] = true
	}
	return Person{Name: name, Selections: sel}
}

func TestAddPerson(t *testing.T) {
	cases := []struct {
		name    string
		setup   State
		cmd     Command
		wantErr error
	}{
		{
			name:  "adds to empty room",
			setup: NewState(),
			cmd:   Command{Type: CmdAddPerson, Name: "Alex"},
		},
		{
			name:  "trims surrounding whitespace",
			setup: NewState(),
			cmd:   Command{Type: CmdAddPerson, Name: "  Alex  "},
		},
		{
			name:    "rejects exact duplicate",
			setup:   stateWith(person("Alice")),
			cmd:     Command{Type: CmdAddPerson, Name: "Alice"},
			wantErr: ErrDuplicateName,
		},
		{
			name:    "rejects lowercase duplicate of existing name",
			setup:   stateWith(person("Alice")),
			cmd:     Command{Type: CmdAddPerson, Name: "alice"},
			wantErr: ErrDuplicateName,
		},
		{
			name:    "rejects uppercase duplicate of existing name",
			setup:   stateWith(person("alice")),
			cmd:     Command{Type: CmdAddPerson, Name: "ALICE"},
			wantErr: ErrDuplicateName,
		},
		{
			name:    "rejects empty name",
			setup:   NewState(),
			cmd:     Command{Type: CmdAddPerson, Name: "   "},
			wantErr: ErrInvalidName,
		},
		{
			name:    "rejects oversized name",
			setup:   NewState(),
			cmd:     Command{Type: CmdAddPerson, Name: strings.Repeat("x", MaxNameLen+1)},
			wantErr: ErrInvalidName,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := len(tc.setup.People)
			events, next, err := Apply(tc.setup, tc.cmd)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				if len(next.People) != before {
					t.Fatalf("rejected command changed state: %+v", next.People)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if len(next.People) != before+1 {
				t.Fatalf("expected %d people, got %d", before+1, len(next.People))
			}
			added := next.People[len(next.People)-1]
			if added.Name != "Alex" {
				t.Fatalf("expected trimmed name Alex, got %q", added.Name)
			}
			if len(added.Selections) != 0 {
				t.Fatalf("new person should start with empty selections")
			}
			if len(events) != 1 || events[0].Type != EvtPersonAdded {
				t.Fatalf("expected PersonAdded event, got %+v", events)
			}
		})
	}
}

func TestRemovePerson(t *testing.T) {
	s := stateWith(person("Alex", "burger"), person("Sam"))

	_, next, err := Apply(s, Command{Type: CmdRemovePerson, Name: "alex"})
	if err != nil {
		t.Fatalf("remove by other casing should succeed: %v", err)
	}
	if len(next.People) != 1 || next.People[0].Name != "Sam" {
		t.Fatalf("expected only Sam left, got %+v", next.People)
	}

	_, _, err = Apply(next, Command{Type: CmdRemovePerson, Name: "Alex"})
	if !errors.Is(err, ErrPersonNotFound) {
		t.Fatalf("want ErrPersonNotFound, got %v", err)
	}
}

func TestToggleItem(t *testing.T) {
	cases := []struct {
		name    string
		setup   State
		cmd     Command
		wantSel []string
		wantErr error
	}{
		{
			name:    "select adds item",
			setup:   stateWith(person("Alex")),
			cmd:     Command{Type: CmdToggleItem, Name: "Alex", ItemID: "burger", Selected: true},
			wantSel: []string{"burger"},
		},
		{
			name:    "unselect removes item",
			setup:   stateWith(person("Alex", "burger")),
			cmd:     Command{Type: CmdToggleItem, Name: "Alex", ItemID: "burger", Selected: false},
			wantSel: []string{},
		},
		{
			name:    "unselect of absent item is a no-op",
			setup:   stateWith(person("Alex")),
			cmd:     Command{Type: CmdToggleItem, Name: "Alex", ItemID: "fries", Selected: false},
			wantSel: []string{},
		},
		{
			name:    "unknown person rejected",
			setup:   stateWith(person("Alex")),
			cmd:     Command{Type: CmdToggleItem, Name: "Sam", ItemID: "burger", Selected: true},
			wantErr: ErrPersonNotFound,
		},
		{
			name:    "empty item id rejected",
			setup:   stateWith(person("Alex")),
			cmd:     Command{Type: CmdToggleItem, Name: "Alex", ItemID: "  ", Selected: true},
			wantErr: ErrInvalidItem,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, next, err := Apply(tc.setup, tc.cmd)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			sel := next.People[0].Selections
			if len(sel) != len(tc.wantSel) {
				t.Fatalf("want selections %v, got %v", tc.wantSel, sel)
			}
			for _, it := range tc.wantSel {
				if !sel[it] {
					t.Fatalf("missing selection %q in %v", it, sel)
				}
			}
		})
	}
}

func TestToggleItemIsIdempotent(t *testing.T) {
	s := stateWith(person("Alex"))
	cmd := Command{Type: CmdToggleItem, Name: "Alex", ItemID: "burger", Selected: true}

	_, once, err := Apply(s, cmd)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	_, twice, err := Apply(once, cmd)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if len(twice.People[0].Selections) != 1 || !twice.People[0].Selections["burger"] {
		t.Fatalf("double toggle should equal single toggle, got %v", twice.People[0].Selections)
	}
}

func TestRenamePerson(t *testing.T) {
	cases := []struct {
		name    string
		setup   State
		cmd     Command
		wantErr error
	}{
		{
			name:  "renames in place",
			setup: stateWith(person("Alex", "burger"), person("Sam")),
			cmd:   Command{Type: CmdRenamePerson, Name: "Alex", NewName: "Alexandra"},
		},
		{
			name:  "recasing your own name is allowed",
			setup: stateWith(person("alex")),
			cmd:   Command{Type: CmdRenamePerson, Name: "alex", NewName: "Alex"},
		},
		{
			name:    "collision with another person rejected",
			setup:   stateWith(person("Alex"), person("Sam")),
			cmd:     Command{Type: CmdRenamePerson, Name: "Alex", NewName: "sam"},
			wantErr: ErrDuplicateName,
		},
		{
			name:    "unknown person rejected",
			setup:   stateWith(person("Alex")),
			cmd:     Command{Type: CmdRenamePerson, Name: "Sam", NewName: "Max"},
			wantErr: ErrPersonNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, next, err := Apply(tc.setup, tc.cmd)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if next.People[0].Name != tc.cmd.NewName {
				t.Fatalf("expected rename to %q, got %q", tc.cmd.NewName, next.People[0].Name)
			}
			// selections travel with the renamed person
			if len(next.People[0].Selections) != len(tc.setup.People[0].Selections) {
				t.Fatalf("rename must preserve selections")
			}
		})
	}
}

func TestClearRoom(t *testing.T) {
	s := stateWith(person("Alex", "burger"), person("Sam", "fries"))
	events, next, err := Apply(s, Command{Type: CmdClearRoom})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(next.People) != 0 {
		t.Fatalf("expected empty room, got %+v", next.People)
	}
	if len(events) != 1 || events[0].Type != EvtRoomCleared || events[0].Count != 2 {
		t.Fatalf("expected RoomCleared count=2, got %+v", events)
	}
}

func TestApplyDoesNotAliasInput(t *testing.T) {
	s := stateWith(person("Alex"))

	_, next, err := Apply(s, Command{Type: CmdToggleItem, Name: "Alex", ItemID: "burger", Selected: true})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(s.People[0].Selections) != 0 {
		t.Fatalf("input state was mutated: %v", s.People[0].Selections)
	}
	if !next.People[0].Selections["burger"] {
		t.Fatalf("next state missing toggle")
	}
}

func TestUnsupportedCommand(t *testing.T) {
	_, _, err := Apply(NewState(), Command{Type: "Bogus"})
	if !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("want ErrUnsupportedCommand, got %v", err)
	}
}

func TestInsertionOrderPreserved(t *testing.T) {
	s := NewState()
	for _, n := range []string{"Alex", "Sam", "Max"} {
		var err error
		_, s, err = Apply(s, Command{Type: CmdAddPerson, Name: n})
		if err != nil {
			t.Fatalf("unexpected err adding %s: %v", n, err)
		}
	}
	_, s, err := Apply(s, Command{Type: CmdRemovePerson, Name: "Sam"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	got := []string{}
	for _, p := range s.People {
		got = append(got, p.Name)
	}
	want := []string{"Alex", "Max"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order broken: want %v, got %v", want, got)
		}
	}
}
