package model

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const athleteYAML = `
table: athletes
columns: [name, sport, team_id, order, created_at]
search_field: name
relations:
  team:     { type: belongs_to, model: Team }
  sessions: { type: has_many, model: Session, order: "started_at DESC" }
`

const teamYAML = `
table: teams
columns: [name, city]
relations:
  players: { type: has_many, model: Athlete, fk: team_id }
`

const sessionYAML = `
table: sessions
columns: [athlete_id, started_at, status]
relations:
  athlete: { type: belongs_to, model: Athlete }
`

func registryFixture(t *testing.T) *Registry {
	t.Helper()
	models := map[string]*Model{}
	for name, src := range map[string]string{"Athlete": athleteYAML, "Team": teamYAML, "Session": sessionYAML} {
		m, err := ParseModel(name, []byte(src))
		if err != nil {
			t.Fatalf("ParseModel(%s): %v", name, err)
		}
		models[name] = m
	}
	reg, err := NewRegistry(models)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func TestLinkerFillsDefaultKeys(t *testing.T) {
	reg := registryFixture(t)
	athlete, _ := reg.Get("Athlete")

	team := athlete.Relation("team")
	if team.FK != "team_id" || team.PK != "id" || team.GetModelRef().Table != "teams" {
		t.Fatalf("unexpected belongs_to link: %+v", team)
	}
	parent, child := team.Keys()
	if parent != "team_id" || child != "id" {
		t.Fatalf("belongs_to keys = %s/%s", parent, child)
	}

	sessions := athlete.Relation("sessions")
	if sessions.FK != "athlete_id" {
		t.Fatalf("has_many fk must default to owner_id, got %q", sessions.FK)
	}
	parent, child = sessions.Keys()
	if parent != "id" || child != "athlete_id" {
		t.Fatalf("has_many keys = %s/%s", parent, child)
	}
}

func TestLinkerKeepsExplicitFK(t *testing.T) {
	reg := registryFixture(t)
	team, _ := reg.Get("Team")
	if fk := team.Relation("players").FK; fk != "team_id" {
		t.Fatalf("explicit fk overwritten: %q", fk)
	}
}

func TestResourceNames(t *testing.T) {
	reg := registryFixture(t)
	var got []string
	for _, m := range reg.Models() {
		got = append(got, m.Resource)
	}
	if diff := cmp.Diff([]string{"athletes", "sessions", "teams"}, got); diff != "" {
		t.Fatalf("resources mismatch (-want +got):\n%s", diff)
	}
	if pluralize("category") != "categories" || pluralize("box") != "boxes" {
		t.Fatalf("pluralize broken")
	}
}

func TestColumnsAndOrder(t *testing.T) {
	m := &Model{Columns: []string{"email", "password", "order"}, Hidden: []string{"password"}}
	if !m.HasColumn("id") || !m.HasColumn("password") || m.HasColumn("nope") {
		t.Fatalf("HasColumn broken")
	}
	if !m.HasOrder() {
		t.Fatalf("model with order column must report HasOrder")
	}
	if diff := cmp.Diff([]string{"id", "email", "order"}, m.SelectColumns()); diff != "" {
		t.Fatalf("select columns mismatch (-want +got):\n%s", diff)
	}
	if m.Writable("id") || !m.Writable("password") {
		t.Fatalf("Writable broken")
	}
}

func TestParseModelRejectsUnknownKeys(t *testing.T) {
	cases := map[string]string{
		"model key":     "table: x\npresets: {}\n",
		"relation key":  "table: x\nrelations:\n  a: { type: has_many, model: Y, through: Z }\n",
		"relation type": "table: x\nrelations:\n  a: { type: many_to_many, model: Y }\n",
		"columns shape": "table: x\ncolumns: name\n",
		"no table":      "columns: [name]\n",
	}
	for name, src := range cases {
		if _, err := ParseModel("X", []byte(src)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLinkerRejectsBrokenRelations(t *testing.T) {
	cases := map[string]map[string]*Model{
		"missing target": {
			"A": {Table: "a", Relations: map[string]*ModelRelation{"b": {Type: BelongsTo, Model: "B"}}},
		},
		"missing fk column": {
			"A": {Table: "a", Relations: map[string]*ModelRelation{"b": {Type: BelongsTo, Model: "B"}}},
			"B": {Table: "b"},
		},
		"bad order column": {
			"A": {Table: "a", Relations: map[string]*ModelRelation{"bs": {Type: HasMany, Model: "B", Order: "rank DESC"}}},
			"B": {Table: "b", Columns: []string{"a_id"}},
		},
	}
	for name, models := range cases {
		if _, err := NewRegistry(models); err == nil {
			t.Fatalf("%s: expected link error", name)
		}
	}
}

func TestInitRegistryFromDir(t *testing.T) {
	dir := t.TempDir()
	for name, src := range map[string]string{"Athlete": athleteYAML, "Team": teamYAML, "Session": sessionYAML} {
		if err := os.WriteFile(filepath.Join(dir, name+".yml"), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	reg, err := InitRegistry(dir)
	if err != nil {
		t.Fatalf("InitRegistry: %v", err)
	}
	if _, ok := reg.Get("Session"); !ok {
		t.Fatalf("Session not registered")
	}

	_, err = InitRegistry(t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "no model files") {
		t.Fatalf("expected empty dir error, got %v", err)
	}
}
