package mcp

import (
	"context"
	"fmt"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/query"
	"github.com/NotNullDev/nanomgmt/internal/selection"
	"github.com/NotNullDev/nanomgmt/internal/service"
)

type handlers struct {
	engine    *selection.Engine
	tasks     service.TaskService
	dashboard service.DashboardService
}

func registerTools(server *sdkmcp.Server, h *handlers) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_selection",
		Description: "Show the current project, team and activity selection, what else is selectable, and the date range, status filter and sort direction",
	}, h.getSelection)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "select",
		Description: "Change one selection field. Dependent selections are recomputed; an invalid value leaves everything unchanged",
	}, h.selectField)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "build_query",
		Description: "Preview the record filter, sort and page that list_tasks would use for these arguments and the current selection",
	}, h.buildQuery)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_tasks",
		Description: "List one page of tasks matching the arguments merged with the current selection",
	}, h.listTasks)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "hours_by_team_month",
		Description: "Total hours a user logged per team per month (MM.YYYY)",
	}, h.hoursByTeamMonth)
}

type ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SelectionOutput struct {
	ProjectID           string `json:"project_id,omitempty"`
	TeamID              string `json:"team_id,omitempty"`
	ActivityID          string `json:"activity_id,omitempty"`
	AvailableProjects   []ref  `json:"available_projects"`
	AvailableTeams      []ref  `json:"available_teams"`
	AvailableActivities []ref  `json:"available_activities"`
	DateRange           string `json:"date_range"`
	StatusFilter        string `json:"status_filter,omitempty"`
	SortDirection       string `json:"sort_direction,omitempty"`
	Online              bool   `json:"online"`
	Version             uint64 `json:"version"`
}

func selectionOutput(s selection.Snapshot) SelectionOutput {
	out := SelectionOutput{
		ProjectID:           s.ProjectID(),
		TeamID:              s.TeamID(),
		ActivityID:          s.ActivityID(),
		AvailableProjects:   make([]ref, 0, len(s.Projects)),
		AvailableTeams:      make([]ref, 0, len(s.AvailableTeams)),
		AvailableActivities: make([]ref, 0, len(s.AvailableActivities)),
		DateRange:           s.DateRange.String(),
		StatusFilter:        string(s.StatusFilter),
		SortDirection:       string(s.SortDirection),
		Online:              s.Online,
		Version:             s.Version,
	}
	for _, p := range s.Projects {
		out.AvailableProjects = append(out.AvailableProjects, ref{ID: p.ID, Name: p.Name})
	}
	for _, t := range s.AvailableTeams {
		out.AvailableTeams = append(out.AvailableTeams, ref{ID: t.ID, Name: t.Name})
	}
	for _, a := range s.AvailableActivities {
		out.AvailableActivities = append(out.AvailableActivities, ref{ID: a.ID, Name: a.Name})
	}
	return out
}

func (h *handlers) getSelection(ctx context.Context, req *sdkmcp.CallToolRequest, _ struct{}) (*sdkmcp.CallToolResult, SelectionOutput, error) {
	return nil, selectionOutput(h.engine.Snapshot()), nil
}

type SelectInput struct {
	Field string `json:"field" jsonschema:"one of project, team, activity, date_range, status, sort"`
	Value string `json:"value,omitempty" jsonschema:"id to select, FROM..TO for date_range, none/accepted/rejected for status, asc/desc for sort; empty clears"`
}

var selectFields = map[string]selection.Field{
	"project":    selection.FieldProject,
	"team":       selection.FieldTeam,
	"activity":   selection.FieldActivity,
	"date_range": selection.FieldDateRange,
	"status":     selection.FieldStatusFilter,
	"sort":       selection.FieldSortDirection,
}

func (h *handlers) selectField(ctx context.Context, req *sdkmcp.CallToolRequest, in SelectInput) (*sdkmcp.CallToolResult, SelectionOutput, error) {
	field, ok := selectFields[in.Field]
	if !ok {
		return nil, SelectionOutput{}, fmt.Errorf("unknown field %q", in.Field)
	}
	var value any = in.Value
	if field == selection.FieldDateRange {
		r, err := domain.ParseDateRange(in.Value)
		if err != nil {
			return nil, SelectionOutput{}, err
		}
		value = r
	}
	if err := h.engine.Set(field, value); err != nil {
		return nil, SelectionOutput{}, err
	}
	return nil, selectionOutput(h.engine.Snapshot()), nil
}

type TaskQueryInput struct {
	ID            string `json:"id,omitempty" jsonschema:"a single task id"`
	ProjectID     string `json:"project_id,omitempty"`
	TeamID        string `json:"team_id,omitempty" jsonschema:"defaults to the selected team"`
	ActivityID    string `json:"activity_id,omitempty" jsonschema:"defaults to the selected activity"`
	UserID        string `json:"user_id,omitempty"`
	Status        string `json:"status,omitempty" jsonschema:"none, accepted or rejected; defaults to the selected status filter"`
	From          string `json:"from,omitempty" jsonschema:"YYYY-MM-DD; defaults to the selected date range"`
	To            string `json:"to,omitempty" jsonschema:"YYYY-MM-DD, inclusive"`
	SortColumn    string `json:"sort_column,omitempty" jsonschema:"team, user, taskDuration, date or taskStatus"`
	SortDirection string `json:"sort_direction,omitempty" jsonschema:"asc or desc"`
	Page          int    `json:"page,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}

func (in TaskQueryInput) filter() (query.Filter, error) {
	f := query.Filter{Limit: in.Limit}
	f.SetID(in.ID)
	f.SetProject(in.ProjectID)
	f.SetTeam(in.TeamID)
	f.SetActivity(in.ActivityID)
	f.SetUser(in.UserID)
	if err := f.SetStatus(domain.TaskStatus(in.Status)); err != nil {
		return query.Filter{}, err
	}

	var from, to time.Time
	var err error
	if in.From != "" {
		if from, err = domain.ParseTimestamp(in.From); err != nil {
			return query.Filter{}, err
		}
	}
	if in.To != "" {
		if to, err = domain.ParseTimestamp(in.To); err != nil {
			return query.Filter{}, err
		}
	}
	if err := f.SetDates(from, to); err != nil {
		return query.Filter{}, err
	}

	if in.SortColumn != "" {
		col, err := query.ParseColumn(in.SortColumn)
		if err != nil {
			return query.Filter{}, err
		}
		dir := domain.SortAsc
		if in.SortDirection != "" {
			if dir, err = domain.ParseSortDirection(in.SortDirection); err != nil {
				return query.Filter{}, err
			}
		}
		if err := f.SetSort(col, dir); err != nil {
			return query.Filter{}, err
		}
	}
	// every setter above resets paging
	f.Page = in.Page
	return f, nil
}

type QueryOutput struct {
	Filter string `json:"filter"`
	Sort   string `json:"sort,omitempty"`
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
}

func (h *handlers) build(in TaskQueryInput) (query.Query, error) {
	f, err := in.filter()
	if err != nil {
		return query.Query{}, err
	}
	return query.Build(h.engine.Snapshot(), f), nil
}

func (h *handlers) buildQuery(ctx context.Context, req *sdkmcp.CallToolRequest, in TaskQueryInput) (*sdkmcp.CallToolResult, QueryOutput, error) {
	q, err := h.build(in)
	if err != nil {
		return nil, QueryOutput{}, err
	}
	return nil, QueryOutput{Filter: q.Predicate.String(), Sort: q.Sort.String(), Page: q.Page, Limit: q.Limit}, nil
}

type TaskView struct {
	ID       string  `json:"id"`
	Date     string  `json:"date"`
	Project  string  `json:"project"`
	Team     string  `json:"team"`
	Activity string  `json:"activity"`
	User     string  `json:"user"`
	Hours    float64 `json:"hours"`
	Status   string  `json:"status"`
	Comment  string  `json:"comment,omitempty"`
}

type TasksOutput struct {
	Tasks      []TaskView `json:"tasks"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
	Total      int        `json:"total"`
}

func (h *handlers) listTasks(ctx context.Context, req *sdkmcp.CallToolRequest, in TaskQueryInput) (*sdkmcp.CallToolResult, TasksOutput, error) {
	q, err := h.build(in)
	if err != nil {
		return nil, TasksOutput{}, err
	}
	page, err := h.tasks.History(ctx, q)
	if err != nil {
		return nil, TasksOutput{}, err
	}
	out := TasksOutput{Tasks: make([]TaskView, 0, len(page.Items)), Page: page.Page, Total: page.AllCount}
	if page.PerPage > 0 {
		out.TotalPages = (page.AllCount + page.PerPage - 1) / page.PerPage
	}
	for _, t := range page.Items {
		out.Tasks = append(out.Tasks, TaskView{
			ID:       t.ID,
			Date:     t.Day(),
			Project:  t.ProjectName,
			Team:     t.TeamName,
			Activity: t.ActivityName,
			User:     t.UserName,
			Hours:    t.Duration,
			Status:   string(t.Status),
			Comment:  t.Comment,
		})
	}
	return nil, out, nil
}

type HoursInput struct {
	UserID string `json:"user_id" jsonschema:"whose hours to total"`
	Range  string `json:"range,omitempty" jsonschema:"FROM..TO; defaults to the selected date range"`
}

type MonthHours struct {
	Team  string  `json:"team"`
	Month string  `json:"month"`
	Hours float64 `json:"hours"`
}

type HoursOutput struct {
	Rows []MonthHours `json:"rows"`
}

func (h *handlers) hoursByTeamMonth(ctx context.Context, req *sdkmcp.CallToolRequest, in HoursInput) (*sdkmcp.CallToolResult, HoursOutput, error) {
	rng := h.engine.Snapshot().DateRange
	if in.Range != "" {
		r, err := domain.ParseDateRange(in.Range)
		if err != nil {
			return nil, HoursOutput{}, err
		}
		rng = r
	}
	rows, err := h.dashboard.HoursByTeamMonth(ctx, in.UserID, rng)
	if err != nil {
		return nil, HoursOutput{}, err
	}
	out := HoursOutput{Rows: make([]MonthHours, 0, len(rows))}
	for _, r := range rows {
		out.Rows = append(out.Rows, MonthHours{Team: r.TeamName, Month: r.Month, Hours: r.Hours})
	}
	return nil, out, nil
}
