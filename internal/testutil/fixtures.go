package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/repository"
	"github.com/google/uuid"
)

// DefaultTaskDate is mid-January 2024, far from month boundaries.
var DefaultTaskDate = time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)

// Project options
type ProjectOption func(*domain.Project)

func WithOrganization(id string) ProjectOption {
	return func(p *domain.Project) { p.OrganizationID = id }
}

func NewTestProject(name string, opts ...ProjectOption) domain.Project {
	p := domain.Project{ID: uuid.NewString(), Name: name}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Team options
type TeamOption func(*domain.Team)

func WithManagers(ids ...string) TeamOption {
	return func(t *domain.Team) { t.ManagerIDs = append(t.ManagerIDs, ids...) }
}

func WithMembers(ids ...string) TeamOption {
	return func(t *domain.Team) { t.MemberIDs = append(t.MemberIDs, ids...) }
}

func NewTestTeam(projectID, name string, opts ...TeamOption) domain.Team {
	t := domain.Team{ID: uuid.NewString(), Name: name, ProjectID: projectID}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

func NewTestActivity(team domain.Team, name string) domain.Activity {
	return domain.Activity{ID: uuid.NewString(), Name: name, TeamID: team.ID, ProjectID: team.ProjectID}
}

// User options
type UserOption func(*domain.User)

func WithRoles(roles ...string) UserOption {
	return func(u *domain.User) { u.Roles = roles }
}

func WithFullName(name string) UserOption {
	return func(u *domain.User) { u.Name = name }
}

func WithUserTeams(ids ...string) UserOption {
	return func(u *domain.User) { u.TeamIDs = ids }
}

func NewTestUser(username string, opts ...UserOption) domain.User {
	u := domain.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    username + "@example.com",
		Roles:    []string{domain.RoleEmployee},
	}
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

// Task options
type TaskOption func(*domain.Task)

func WithDuration(hours float64) TaskOption {
	return func(t *domain.Task) { t.Duration = hours }
}

func WithDate(d time.Time) TaskOption {
	return func(t *domain.Task) { t.Date = d }
}

func WithStatus(s domain.TaskStatus) TaskOption {
	return func(t *domain.Task) { t.Status = s }
}

func WithComment(c string) TaskOption {
	return func(t *domain.Task) { t.Comment = c }
}

func NewTestTask(activity domain.Activity, userID string, opts ...TaskOption) domain.Task {
	t := domain.Task{
		ActivityID: activity.ID,
		TeamID:     activity.TeamID,
		UserID:     userID,
		Duration:   domain.DefaultTaskHours,
		Date:       DefaultTaskDate,
		Status:     domain.TaskNone,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// NewTestStore opens a migrated in-memory store.
func NewTestStore(t *testing.T, opts ...repository.StoreOption) *repository.SQLiteStore {
	t.Helper()
	return repository.NewSQLiteStore(NewTestDB(t), opts...)
}

// MustCreate inserts rec and fails the test on error.
func MustCreate(t *testing.T, s repository.Store, c domain.Collection, rec domain.Record) domain.Record {
	t.Helper()
	out, err := s.Collection(c).Create(context.Background(), rec)
	if err != nil {
		t.Fatalf("creating %s fixture: %v", c, err)
	}
	return out
}

// MustCreateTask inserts task and returns it decoded, with its new id and
// joined display labels.
func MustCreateTask(t *testing.T, s repository.Store, task domain.Task) domain.Task {
	t.Helper()
	rec := MustCreate(t, s, domain.CollectionTasks, task.Record())
	out, err := domain.DecodeTask(rec)
	if err != nil {
		t.Fatalf("decoding task fixture: %v", err)
	}
	return out
}

// World is a small organization: one project with two teams, one activity
// per team, a manager of team A and an employee in both teams.
type World struct {
	Project  domain.Project
	TeamA    domain.Team
	TeamB    domain.Team
	ActA     domain.Activity
	ActB     domain.Activity
	Manager  domain.User
	Employee domain.User
}

// SeedWorld inserts a World into s.
func SeedWorld(t *testing.T, s repository.Store) World {
	t.Helper()
	var w World
	w.Manager = NewTestUser("mia", WithRoles(domain.RoleManager), WithFullName("Mia Manager"))
	w.Employee = NewTestUser("eve", WithFullName("Eve Employee"))
	w.Project = NewTestProject("Acme")
	w.TeamA = NewTestTeam(w.Project.ID, "Alpha", WithManagers(w.Manager.ID), WithMembers(w.Employee.ID))
	w.TeamB = NewTestTeam(w.Project.ID, "Bravo", WithMembers(w.Employee.ID))
	w.ActA = NewTestActivity(w.TeamA, "Build")
	w.ActB = NewTestActivity(w.TeamB, "Support")

	MustCreate(t, s, domain.CollectionUsers, w.Manager.Record())
	MustCreate(t, s, domain.CollectionUsers, w.Employee.Record())
	MustCreate(t, s, domain.CollectionProjects, w.Project.Record())
	MustCreate(t, s, domain.CollectionTeams, w.TeamA.Record())
	MustCreate(t, s, domain.CollectionTeams, w.TeamB.Record())
	MustCreate(t, s, domain.CollectionActivities, w.ActA.Record())
	MustCreate(t, s, domain.CollectionActivities, w.ActB.Record())
	return w
}
