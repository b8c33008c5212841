package model

import (
	"encoding/json"
	"testing"
	"time"
)

func raidTemplate() *RoleTemplate {
	return &RoleTemplate{Name: "Raid", Roles: []string{"Tank", "Healer"}}
}

func TestNewEvent_OpenSlotsInTemplateOrder(t *testing.T) {
	at := time.Date(2026, 10, 19, 20, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	e := NewEvent("Raid1", raidTemplate(), at)

	if e.Template != "Raid" {
		t.Errorf("Template = %q, want %q", e.Template, "Raid")
	}
	if len(e.Slots) != 2 || e.Slots[0].Role != "Tank" || e.Slots[1].Role != "Healer" {
		t.Fatalf("unexpected slots: %+v", e.Slots)
	}
	for _, s := range e.Slots {
		if !s.Open() {
			t.Errorf("slot %q should be open", s.Role)
		}
	}
	if e.ScheduledAt.Location() != time.UTC {
		t.Errorf("ScheduledAt location = %v, want UTC", e.ScheduledAt.Location())
	}
	if e.Revision != 1 {
		t.Errorf("Revision = %d, want 1", e.Revision)
	}
}

func TestEvent_Queries(t *testing.T) {
	e := NewEvent("Raid1", raidTemplate(), time.Now())
	e.Slots[0].Participant = "alice"

	if got := e.RoleOf("alice"); got != "Tank" {
		t.Errorf("RoleOf(alice) = %q, want Tank", got)
	}
	if got := e.RoleOf("bob"); got != "" {
		t.Errorf("RoleOf(bob) = %q, want empty", got)
	}
	if got := e.RoleOf(""); got != "" {
		t.Errorf("RoleOf(\"\") = %q, want empty", got)
	}
	if e.AllFilled() {
		t.Error("AllFilled() = true with an open slot")
	}
	if got := e.OpenRoles(); len(got) != 1 || got[0] != "Healer" {
		t.Errorf("OpenRoles() = %v, want [Healer]", got)
	}

	e.Slots[1].Participant = "bob"
	if !e.AllFilled() {
		t.Error("AllFilled() = false with every slot taken")
	}
	parts := e.Participants()
	if len(parts) != 2 || parts[0] != "alice" || parts[1] != "bob" {
		t.Errorf("Participants() = %v", parts)
	}
}

func TestEvent_SlotIndex(t *testing.T) {
	e := NewEvent("Raid1", raidTemplate(), time.Now())
	for _, tc := range []struct {
		role string
		want int
	}{
		{"Tank", 0},
		{"healer", 1},
		{"HEALER", 1},
		{"DPS", -1},
	} {
		if got := e.SlotIndex(tc.role); got != tc.want {
			t.Errorf("SlotIndex(%q) = %d, want %d", tc.role, got, tc.want)
		}
	}
}

func TestEvent_CloneIsDeep(t *testing.T) {
	e := NewEvent("Raid1", raidTemplate(), time.Now())
	c := e.Clone()
	c.Slots[0].Participant = "mallory"
	c.Fulfilled = true

	if !e.Slots[0].Open() {
		t.Error("mutating the clone changed the original slots")
	}
	if e.Fulfilled {
		t.Error("mutating the clone changed the original flag")
	}
	var nilEvent *Event
	if nilEvent.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestEvent_JSONShape(t *testing.T) {
	e := NewEvent("Raid1", raidTemplate(), time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC))
	e.Slots[0].Participant = "alice"

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"name", "template", "slots", "scheduled_at", "fulfilled", "revision"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	slots := raw["slots"].([]any)
	if _, ok := slots[1].(map[string]any)["participant"]; ok {
		t.Error("open slot should omit participant")
	}
}
