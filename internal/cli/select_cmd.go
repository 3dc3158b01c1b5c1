package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/cli/formatter"
	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/query"
	"github.com/NotNullDev/nanomgmt/internal/selection"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// selectionFlags drive the engine the same way the TUI columns do:
// project, then team, then activity, each cascading into the next.
type selectionFlags struct {
	project  string
	team     string
	activity string
	dates    string
	status   string
	sort     string
}

func (f *selectionFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.project, "project", "", "project id or name")
	fs.StringVar(&f.team, "team", "", "team id or name")
	fs.StringVar(&f.activity, "activity", "", "activity id or name")
	fs.StringVar(&f.dates, "range", "", "date range FROM..TO (default: this month)")
	fs.StringVar(&f.status, "status", "", "status filter: none, accepted or rejected")
	fs.StringVar(&f.sort, "order", "", "date sort direction: asc or desc")
}

// apply loads reference data and replays the flags onto the engine.
func (f *selectionFlags) apply(ctx context.Context, app *App) (selection.Snapshot, error) {
	if err := app.Loader.LoadReference(ctx); err != nil {
		return selection.Snapshot{}, err
	}
	e := app.Engine

	if f.project != "" {
		id, err := resolveRef("project", f.project, e.Snapshot().Projects, func(p domain.Project) (string, string) { return p.ID, p.Name })
		if err != nil {
			return selection.Snapshot{}, err
		}
		if err := e.SelectProject(id); err != nil {
			return selection.Snapshot{}, err
		}
	}
	if f.team != "" {
		id, err := resolveRef("team", f.team, e.Snapshot().AvailableTeams, func(t domain.Team) (string, string) { return t.ID, t.Name })
		if err != nil {
			return selection.Snapshot{}, err
		}
		if err := e.SelectTeam(id); err != nil {
			return selection.Snapshot{}, err
		}
	}
	if f.activity != "" {
		id, err := resolveRef("activity", f.activity, e.Snapshot().AvailableActivities, func(a domain.Activity) (string, string) { return a.ID, a.Name })
		if err != nil {
			return selection.Snapshot{}, err
		}
		if err := e.SelectActivity(id); err != nil {
			return selection.Snapshot{}, err
		}
	}
	if f.dates != "" {
		r, err := domain.ParseDateRange(f.dates)
		if err != nil {
			return selection.Snapshot{}, err
		}
		if err := e.SetDateRange(r); err != nil {
			return selection.Snapshot{}, err
		}
	}
	if f.status != "" {
		if err := e.SetStatusFilter(domain.TaskStatus(f.status)); err != nil {
			return selection.Snapshot{}, err
		}
	}
	if f.sort != "" {
		dir, err := domain.ParseSortDirection(f.sort)
		if err != nil {
			return selection.Snapshot{}, err
		}
		if err := e.SetSortDirection(dir); err != nil {
			return selection.Snapshot{}, err
		}
	}
	return e.Snapshot(), nil
}

// resolveRef matches input against ids first, then case-insensitive
// names, then unique id prefixes.
func resolveRef[T any](kind, input string, items []T, key func(T) (id, name string)) (string, error) {
	for _, it := range items {
		if id, _ := key(it); id == input {
			return id, nil
		}
	}
	for _, it := range items {
		if id, name := key(it); strings.EqualFold(name, input) {
			return id, nil
		}
	}
	var matches []string
	for _, it := range items {
		if id, _ := key(it); strings.HasPrefix(id, input) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s %q is not available: %w", kind, input, selection.ErrInvalidSelection)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%s id prefix %q is ambiguous (%d matches)", kind, input, len(matches))
	}
}

type refOut struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type selectionOut struct {
	Project             *refOut  `json:"project" yaml:"project"`
	Team                *refOut  `json:"team" yaml:"team"`
	Activity            *refOut  `json:"activity" yaml:"activity"`
	AvailableTeams      []refOut `json:"availableTeams" yaml:"availableTeams"`
	AvailableActivities []refOut `json:"availableActivities" yaml:"availableActivities"`
	DateRange           string   `json:"dateRange" yaml:"dateRange"`
	Status              string   `json:"status,omitempty" yaml:"status,omitempty"`
	Sort                string   `json:"sort,omitempty" yaml:"sort,omitempty"`
	Online              bool     `json:"online" yaml:"online"`
}

func toSelectionOut(s selection.Snapshot) selectionOut {
	out := selectionOut{
		AvailableTeams:      make([]refOut, 0, len(s.AvailableTeams)),
		AvailableActivities: make([]refOut, 0, len(s.AvailableActivities)),
		DateRange:           s.DateRange.String(),
		Status:              string(s.StatusFilter),
		Sort:                string(s.SortDirection),
		Online:              s.Online,
	}
	if p := s.SelectedProject; p != nil {
		out.Project = &refOut{ID: p.ID, Name: p.Name}
	}
	if t := s.SelectedTeam; t != nil {
		out.Team = &refOut{ID: t.ID, Name: t.Name}
	}
	if a := s.SelectedActivity; a != nil {
		out.Activity = &refOut{ID: a.ID, Name: a.Name}
	}
	for _, t := range s.AvailableTeams {
		out.AvailableTeams = append(out.AvailableTeams, refOut{ID: t.ID, Name: t.Name})
	}
	for _, a := range s.AvailableActivities {
		out.AvailableActivities = append(out.AvailableActivities, refOut{ID: a.ID, Name: a.Name})
	}
	return out
}

func newSelectCmd(app *App) *cobra.Command {
	var sel selectionFlags
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Resolve a project, team and activity selection",
		Long: `Loads projects, teams and activities and applies the given selection.
A project with a single team, or a team with a single activity, is picked
automatically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := sel.apply(cmd.Context(), app)
			if err != nil {
				return err
			}
			return app.render(cmd, toSelectionOut(snap), func() string { return formatter.FormatSelection(snap) })
		},
	}
	sel.bind(cmd.Flags())
	return cmd
}

// filterFlags are the history view's own filters layered over a selection.
type filterFlags struct {
	id     string
	user   string
	from   string
	to     string
	sortBy string
	dir    string
	page   int
	limit  int
}

func (f *filterFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.id, "id", "", "a single task id")
	fs.StringVar(&f.user, "user", "", "only tasks of this user id")
	fs.StringVar(&f.from, "from", "", "first day (YYYY-MM-DD), overrides the range")
	fs.StringVar(&f.to, "to", "", "last day (YYYY-MM-DD), inclusive")
	fs.StringVar(&f.sortBy, "sort", "", "sort column: team, user, taskDuration, date or taskStatus")
	fs.StringVar(&f.dir, "dir", "asc", "direction for --sort: asc or desc")
	fs.IntVar(&f.page, "page", 1, "page number")
	fs.IntVar(&f.limit, "limit", 0, "page size (default from query.limit)")
}

func (f *filterFlags) filter(defaultLimit int) (query.Filter, error) {
	out := query.Filter{Limit: f.limit}
	if out.Limit == 0 {
		out.Limit = defaultLimit
	}
	out.SetID(f.id)
	out.SetUser(f.user)

	from, err := parseOptionalDay(f.from)
	if err != nil {
		return query.Filter{}, err
	}
	to, err := parseOptionalDay(f.to)
	if err != nil {
		return query.Filter{}, err
	}
	if err := out.SetDates(from, to); err != nil {
		return query.Filter{}, err
	}

	if f.sortBy != "" {
		col, err := query.ParseColumn(f.sortBy)
		if err != nil {
			return query.Filter{}, err
		}
		dir, err := domain.ParseSortDirection(f.dir)
		if err != nil {
			return query.Filter{}, err
		}
		if err := out.SetSort(col, dir); err != nil {
			return query.Filter{}, err
		}
	}
	// setters reset paging
	out.Page = f.page
	return out, nil
}

func parseOptionalDay(s string) (t time.Time, err error) {
	if s == "" {
		return t, nil
	}
	return domain.ParseTimestamp(s)
}

type queryOut struct {
	Filter  string `json:"filter" yaml:"filter"`
	Sort    string `json:"sort,omitempty" yaml:"sort,omitempty"`
	Page    int    `json:"page" yaml:"page"`
	PerPage int    `json:"perPage" yaml:"perPage"`
}

func newQueryCmd(app *App) *cobra.Command {
	var sel selectionFlags
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print the record filter, sort and page a task listing would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := sel.apply(cmd.Context(), app)
			if err != nil {
				return err
			}
			f, err := ff.filter(app.Config.Query.Limit)
			if err != nil {
				return err
			}
			q := query.Build(snap, f)
			out := queryOut{Filter: q.Predicate.String(), Sort: q.Sort.String(), Page: q.Page, PerPage: q.Limit}
			return app.render(cmd, out, func() string { return formatter.FormatQuery(q) })
		},
	}
	sel.bind(cmd.Flags())
	ff.bind(cmd.Flags())
	return cmd
}
