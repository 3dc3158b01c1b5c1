package repository

import (
	"github.com/NotNullDev/nanomgmt/internal/domain"
)

type kind int

const (
	kindText kind = iota
	kindNumber
	kindList
	kindTimestamp
)

// column maps a record key to a persisted SQL column.
type column struct {
	key  string
	name string
	kind kind
}

// field is anything a predicate or sort directive may reference.
type field struct {
	expr string
	kind kind
}

// displayColumn is a read-only value joined in from another table.
type displayColumn struct {
	key  string
	expr string
}

type tableSpec struct {
	collection   domain.Collection
	table        string
	alias        string
	columns      []column
	joins        string
	display      []displayColumn
	extraFields  map[string]field
	defaultOrder string
	defaults     domain.Record
	validate     func(domain.Record) error

	fields map[string]field
}

func (s *tableSpec) init() *tableSpec {
	s.fields = make(map[string]field, len(s.columns)+len(s.extraFields))
	for _, c := range s.columns {
		s.fields[c.key] = field{expr: s.alias + "." + c.name, kind: c.kind}
	}
	for k, f := range s.extraFields {
		s.fields[k] = f
	}
	return s
}

func stamps() []column {
	return []column{
		{key: "created", name: "created", kind: kindTimestamp},
		{key: "updated", name: "updated", kind: kindTimestamp},
	}
}

func validator[T any](decode func(domain.Record) (T, error)) func(domain.Record) error {
	return func(rec domain.Record) error {
		_, err := decode(rec)
		return err
	}
}

var tables = map[domain.Collection]*tableSpec{
	domain.CollectionProjects: (&tableSpec{
		collection: domain.CollectionProjects,
		table:      "projects",
		alias:      "p",
		columns: append([]column{
			{key: "id", name: "id"},
			{key: "name", name: "name"},
			{key: "organization", name: "organization_id"},
			{key: "tags", name: "tags", kind: kindList},
		}, stamps()...),
		defaultOrder: "p.name, p.id",
		validate:     validator(domain.DecodeProject),
	}).init(),

	domain.CollectionTeams: (&tableSpec{
		collection: domain.CollectionTeams,
		table:      "teams",
		alias:      "tm",
		columns: append([]column{
			{key: "id", name: "id"},
			{key: "name", name: "name"},
			{key: "project", name: "project_id"},
			{key: "tags", name: "tags", kind: kindList},
			{key: "members", name: "members", kind: kindList},
			{key: "managers", name: "managers", kind: kindList},
		}, stamps()...),
		joins: " LEFT JOIN projects p ON p.id = tm.project_id",
		extraFields: map[string]field{
			"project.name": {expr: "p.name"},
		},
		defaultOrder: "tm.name, tm.id",
		validate:     validator(domain.DecodeTeam),
	}).init(),

	domain.CollectionActivities: (&tableSpec{
		collection: domain.CollectionActivities,
		table:      "activities",
		alias:      "a",
		columns: append([]column{
			{key: "id", name: "id"},
			{key: "name", name: "name"},
			{key: "team", name: "team_id"},
			{key: "project", name: "project_id"},
			{key: "organization", name: "organization_id"},
		}, stamps()...),
		joins: " LEFT JOIN teams tm ON tm.id = a.team_id",
		extraFields: map[string]field{
			"team.project":  {expr: "tm.project_id"},
			"team.name":     {expr: "tm.name"},
			"team.managers": {expr: "tm.managers", kind: kindList},
			"team.members":  {expr: "tm.members", kind: kindList},
		},
		defaultOrder: "a.name, a.id",
		validate:     validator(domain.DecodeActivity),
	}).init(),

	domain.CollectionUsers: (&tableSpec{
		collection: domain.CollectionUsers,
		table:      "users",
		alias:      "u",
		columns: append([]column{
			{key: "id", name: "id"},
			{key: "username", name: "username"},
			{key: "email", name: "email"},
			{key: "name", name: "name"},
			{key: "avatar", name: "avatar"},
			{key: "roles", name: "roles", kind: kindList},
			{key: "teams", name: "teams", kind: kindList},
		}, stamps()...),
		defaultOrder: "u.username, u.id",
		validate:     validator(domain.DecodeUser),
	}).init(),

	domain.CollectionTasks: (&tableSpec{
		collection: domain.CollectionTasks,
		table:      "tasks",
		alias:      "t",
		columns: append([]column{
			{key: "id", name: "id"},
			{key: "activity", name: "activity_id"},
			{key: "comment", name: "comment"},
			{key: "duration", name: "duration", kind: kindNumber},
			{key: "date", name: "date", kind: kindTimestamp},
			{key: "user", name: "user_id"},
			{key: "team", name: "team_id"},
			{key: "status", name: "status"},
		}, stamps()...),
		joins: " LEFT JOIN teams tm ON tm.id = t.team_id" +
			" LEFT JOIN projects p ON p.id = tm.project_id" +
			" LEFT JOIN activities a ON a.id = t.activity_id" +
			" LEFT JOIN users u ON u.id = t.user_id",
		display: []displayColumn{
			{key: "teamName", expr: "COALESCE(tm.name, '')"},
			{key: "projectId", expr: "COALESCE(tm.project_id, '')"},
			{key: "projectName", expr: "COALESCE(p.name, '')"},
			{key: "activityName", expr: "COALESCE(a.name, '')"},
			{key: "userName", expr: "COALESCE(NULLIF(u.name, ''), u.username, '')"},
		},
		extraFields: map[string]field{
			"team.project":  {expr: "tm.project_id"},
			"team.name":     {expr: "tm.name"},
			"team.managers": {expr: "tm.managers", kind: kindList},
			"user.name":     {expr: "COALESCE(NULLIF(u.name, ''), u.username)"},
			"activity.name": {expr: "a.name"},
		},
		defaultOrder: "t.date, t.id",
		defaults:     domain.Record{"status": string(domain.TaskNone), "comment": ""},
		validate:     validator(domain.DecodeTask),
	}).init(),
}

func specFor(c domain.Collection) (*tableSpec, bool) {
	s, ok := tables[c]
	return s, ok
}
