package engine

import (
	"errors"
	"strings"
)

var ErrPersonNotFound = errors.New("person not found")
var ErrDuplicateName = errors.New("duplicate person name")
var ErrInvalidName = errors.New("invalid person name")
var ErrInvalidItem = errors.New("invalid item id")
var ErrUnsupportedCommand = errors.New("unsupported command")

const (
	MaxNameLen = 64
	MaxItemLen = 100
)

// Person is one participant in a room. Selections is a set of menu item ids.
type Person struct {
	Name       string
	Selections map[string]bool
}

// State holds everything a room synchronizes. People keeps insertion order;
// the UI relies on stable ordering across broadcasts.
type State struct {
	People []Person
}

func NewState() State {
	return State{People: []Person{}}
}

type CommandType string

const (
	CmdAddPerson    CommandType = "AddPerson"
	CmdRemovePerson CommandType = "RemovePerson"
	CmdToggleItem   CommandType = "ToggleItem"
	CmdRenamePerson CommandType = "RenamePerson"
	CmdClearRoom    CommandType = "ClearRoom"
)

type Command struct {
	Type     CommandType
	Name     string
	NewName  string
	ItemID   string
	Selected bool
}

type EventType string

const (
	EvtPersonAdded   EventType = "PersonAdded"
	EvtPersonRemoved EventType = "PersonRemoved"
	EvtItemToggled   EventType = "ItemToggled"
	EvtPersonRenamed EventType = "PersonRenamed"
	EvtRoomCleared   EventType = "RoomCleared"
)

type Event struct {
	Type     EventType
	Name     string
	NewName  string
	ItemID   string
	Selected bool
	Count    int
}

// Apply validates cmd against s and returns the events plus the next state.
// On error the input state is returned untouched; successful applications
// never alias mutated data with s, so callers may keep old snapshots around.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdAddPerson:
		name, err := normName(cmd.Name)
		if err != nil {
			return nil, s, err
		}
		if indexOf(s, name) >= 0 {
			return nil, s, ErrDuplicateName
		}

		newState := s
		newState.People = append(peopleCopy(s.People), Person{Name: name, Selections: map[string]bool{}})

		events := []Event{{Type: EvtPersonAdded, Name: name}}
		return events, newState, nil

	case CmdRemovePerson:
		name, err := normName(cmd.Name)
		if err != nil {
			return nil, s, err
		}
		i := indexOf(s, name)
		if i < 0 {
			return nil, s, ErrPersonNotFound
		}

		removed := s.People[i].Name
		newState := s
		people := peopleCopy(s.People)
		newState.People = append(people[:i], people[i+1:]...)

		events := []Event{{Type: EvtPersonRemoved, Name: removed}}
		return events, newState, nil

	case CmdToggleItem:
		name, err := normName(cmd.Name)
		if err != nil {
			return nil, s, err
		}
		item := strings.TrimSpace(cmd.ItemID)
		if item == "" || len(item) > MaxItemLen {
			return nil, s, ErrInvalidItem
		}
		i := indexOf(s, name)
		if i < 0 {
			return nil, s, ErrPersonNotFound
		}

		newState := s
		people := peopleCopy(s.People)
		sel := selectionsCopy(people[i].Selections)
		if cmd.Selected {
			sel[item] = true
		} else {
			delete(sel, item)
		}
		people[i].Selections = sel
		newState.People = people

		events := []Event{{Type: EvtItemToggled, Name: people[i].Name, ItemID: item, Selected: cmd.Selected}}
		return events, newState, nil

	case CmdRenamePerson:
		oldName, err := normName(cmd.Name)
		if err != nil {
			return nil, s, err
		}
		newName, err := normName(cmd.NewName)
		if err != nil {
			return nil, s, err
		}
		i := indexOf(s, oldName)
		if i < 0 {
			return nil, s, ErrPersonNotFound
		}
		// Renaming to another casing of your own name is fine; colliding
		// with anyone else is not.
		if j := indexOf(s, newName); j >= 0 && j != i {
			return nil, s, ErrDuplicateName
		}

		newState := s
		people := peopleCopy(s.People)
		people[i].Name = newName
		newState.People = people

		events := []Event{{Type: EvtPersonRenamed, Name: oldName, NewName: newName}}
		return events, newState, nil

	case CmdClearRoom:
		newState := s
		newState.People = []Person{}

		events := []Event{{Type: EvtRoomCleared, Count: len(s.People)}}
		return events, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// indexOf finds a person by name, case-insensitively. Uniqueness within a
// room is case-insensitive: "Alice" and "alice" are the same person.
func indexOf(s State, name string) int {
	for i, p := range s.People {
		if strings.EqualFold(p.Name, name) {
			return i
		}
	}
	return -1
}

func normName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxNameLen {
		return "", ErrInvalidName
	}
	return name, nil
}

func peopleCopy(people []Person) []Person {
	out := make([]Person, len(people))
	copy(out, people)
	return out
}

func selectionsCopy(sel map[string]bool) map[string]bool {
	out := make(map[string]bool, len(sel))
	for k, v := range sel {
		out[k] = v
	}
	return out
}
