// Package types defines the JSON wire protocol.
//
// Client -> Server, one operation per message, tagged by "action":
//
//	{action: "add_person", name}
//	{action: "remove_person", name}
//	{action: "toggle_item", person, itemId, selected}
//	{action: "rename_person", name, newName}
//	{action: "clear_room"}
//	{action: "delete_room"}
//	{action: "request_state"}
//
// Server -> Client:
//
//	{type: "state", version, people: [{name, selections: [itemId, ...]}, ...]}
//	{type: "error", message}       (private, originator only)
//	{type: "room_deleted"}         (sent to every member before teardown)
package types

import (
	"sort"

	"github.com/jordanhw/menu-sync-backend/internal/engine"
)

type ClientMessage struct {
	Action   string `json:"action"`
	Name     string `json:"name,omitempty"`
	NewName  string `json:"newName,omitempty"`
	Person   string `json:"person,omitempty"`
	ItemID   string `json:"itemId,omitempty"`
	Selected bool   `json:"selected,omitempty"`
}

type PersonView struct {
	Name       string   `json:"name"`
	Selections []string `json:"selections"`
}

type StateMessage struct {
	Type    string       `json:"type"`
	Version int          `json:"version"`
	People  []PersonView `json:"people"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type RoomDeletedMessage struct {
	Type string `json:"type"`
}

// NewStateMessage serializes a room state at a given version. Selection sets
// come out sorted so repeated snapshots of the same state are byte-identical.
func NewStateMessage(version int, s engine.State) StateMessage {
	people := make([]PersonView, 0, len(s.People))
	for _, p := range s.People {
		sel := make([]string, 0, len(p.Selections))
		for id := range p.Selections {
			sel = append(sel, id)
		}
		sort.Strings(sel)
		people = append(people, PersonView{Name: p.Name, Selections: sel})
	}
	return StateMessage{Type: "state", Version: version, People: people}
}

func NewErrorMessage(msg string) ErrorMessage {
	return ErrorMessage{Type: "error", Message: msg}
}

func NewRoomDeletedMessage() RoomDeletedMessage {
	return RoomDeletedMessage{Type: "room_deleted"}
}
