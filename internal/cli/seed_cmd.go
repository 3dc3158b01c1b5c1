package cli

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/NotNullDev/nanomgmt/internal/cli/formatter"
	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/repository"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

//go:embed seed_demo.yaml
var demoFixture []byte

// Fixture is a YAML description of reference data and tasks.
type Fixture struct {
	Users      []fixtureUser     `yaml:"users"`
	Projects   []fixtureProject  `yaml:"projects"`
	Teams      []fixtureTeam     `yaml:"teams"`
	Activities []fixtureActivity `yaml:"activities"`
	Tasks      []fixtureTask     `yaml:"tasks"`
}

type fixtureUser struct {
	ID       string   `yaml:"id"`
	Username string   `yaml:"username"`
	Name     string   `yaml:"name"`
	Email    string   `yaml:"email"`
	Roles    []string `yaml:"roles"`
}

type fixtureProject struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type fixtureTeam struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Project  string   `yaml:"project"`
	Managers []string `yaml:"managers"`
	Members  []string `yaml:"members"`
}

type fixtureActivity struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Team string `yaml:"team"`
}

type fixtureTask struct {
	ID       string  `yaml:"id"`
	Activity string  `yaml:"activity"`
	User     string  `yaml:"user"`
	Date     string  `yaml:"date"`
	Hours    float64 `yaml:"hours"`
	Comment  string  `yaml:"comment"`
	Status   string  `yaml:"status"`
}

// ParseFixture decodes a fixture, rejecting unknown keys.
func ParseFixture(r io.Reader) (Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Fixture{}, fmt.Errorf("decoding fixture: %w", err)
	}
	return f, nil
}

type seedRecord struct {
	c   domain.Collection
	rec domain.Record
}

// SeedCounts reports how many records of each collection were created.
type SeedCounts map[domain.Collection]int

// Seed writes every fixture record to store in one batch: users, then
// projects, teams, activities and tasks, so references resolve in order.
func Seed(ctx context.Context, store repository.Store, f Fixture) (SeedCounts, error) {
	teamProject := make(map[string]string, len(f.Teams))
	for _, t := range f.Teams {
		teamProject[t.ID] = t.Project
	}
	activityTeam := make(map[string]string, len(f.Activities))
	for _, a := range f.Activities {
		activityTeam[a.ID] = a.Team
	}

	var recs []seedRecord
	add := func(c domain.Collection, rec domain.Record) {
		recs = append(recs, seedRecord{c: c, rec: rec})
	}

	for _, u := range f.Users {
		add(domain.CollectionUsers, domain.User{ID: u.ID, Username: u.Username, Name: u.Name, Email: u.Email, Roles: u.Roles}.Record())
	}
	for _, p := range f.Projects {
		add(domain.CollectionProjects, domain.Project{ID: p.ID, Name: p.Name}.Record())
	}
	for _, t := range f.Teams {
		add(domain.CollectionTeams, domain.Team{ID: t.ID, Name: t.Name, ProjectID: t.Project, ManagerIDs: t.Managers, MemberIDs: t.Members}.Record())
	}
	for _, a := range f.Activities {
		add(domain.CollectionActivities, domain.Activity{ID: a.ID, Name: a.Name, TeamID: a.Team, ProjectID: teamProject[a.Team]}.Record())
	}
	for i, ft := range f.Tasks {
		day, err := domain.ParseTimestamp(ft.Date)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i+1, err)
		}
		status := domain.TaskNone
		if ft.Status != "" {
			if status, err = domain.ParseTaskStatus(ft.Status); err != nil {
				return nil, fmt.Errorf("task %d: %w", i+1, err)
			}
		}
		hours := ft.Hours
		if hours == 0 {
			hours = domain.DefaultTaskHours
		}
		task := domain.Task{
			ID:         ft.ID,
			ActivityID: ft.Activity,
			TeamID:     activityTeam[ft.Activity],
			UserID:     ft.User,
			Date:       day,
			Duration:   hours,
			Comment:    ft.Comment,
			Status:     status,
		}
		if task.TeamID == "" {
			return nil, fmt.Errorf("task %d: activity %q is not in the fixture", i+1, ft.Activity)
		}
		add(domain.CollectionTasks, task.Record())
	}

	counts := make(SeedCounts)
	err := repository.InTx(ctx, store, func(tx repository.Store) error {
		for _, r := range recs {
			if _, err := tx.Collection(r.c).Create(ctx, r.rec); err != nil {
				return fmt.Errorf("seeding %s %q: %w", r.c, r.rec.ID(), err)
			}
			counts[r.c]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func newSeedCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [FILE]",
		Short: "Load users, projects, teams, activities and tasks from YAML",
		Long: `Creates every record of a YAML fixture in one batch. Without FILE a small
demo organization is loaded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader
			if len(args) == 1 {
				fh, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer fh.Close()
				r = fh
			} else {
				r = bytes.NewReader(demoFixture)
			}
			f, err := ParseFixture(r)
			if err != nil {
				return err
			}
			counts, err := Seed(cmd.Context(), app.Store, f)
			if err != nil {
				return err
			}
			return app.render(cmd, counts, func() string {
				var rows [][]string
				for _, c := range domain.Collections {
					if counts[c] > 0 {
						rows = append(rows, []string{string(c), fmt.Sprint(counts[c])})
					}
				}
				return formatter.RenderTable([]string{"COLLECTION", "CREATED"}, rows)
			})
		},
	}
}
