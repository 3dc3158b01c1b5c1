package selection

import "github.com/NotNullDev/nanomgmt/internal/domain"

// Snapshot is an immutable copy of the engine state. Nothing in it aliases
// engine memory, so a renderer may keep or modify it freely.
type Snapshot struct {
	Projects   []domain.Project
	Teams      []domain.Team
	Activities []domain.Activity

	SelectedProject  *domain.Project
	SelectedTeam     *domain.Team
	SelectedActivity *domain.Activity

	AvailableTeams      []domain.Team
	AvailableActivities []domain.Activity

	DateRange     domain.DateRange
	StatusFilter  domain.TaskStatus
	SortDirection domain.SortDirection

	Online  bool
	Version uint64
}

func (s Snapshot) ProjectID() string {
	if s.SelectedProject == nil {
		return ""
	}
	return s.SelectedProject.ID
}

func (s Snapshot) TeamID() string {
	if s.SelectedTeam == nil {
		return ""
	}
	return s.SelectedTeam.ID
}

func (s Snapshot) ActivityID() string {
	if s.SelectedActivity == nil {
		return ""
	}
	return s.SelectedActivity.ID
}

func (st *state) snapshot() Snapshot {
	snap := Snapshot{
		Projects:            cloneProjects(st.projects),
		Teams:               cloneTeams(st.teams),
		Activities:          cloneActivities(st.activities),
		AvailableTeams:      cloneTeams(st.availableTeams),
		AvailableActivities: cloneActivities(st.availableActivities),
		DateRange:           st.dateRange,
		StatusFilter:        st.statusFilter,
		SortDirection:       st.sortDirection,
		Online:              st.online,
		Version:             st.version,
	}
	if i := indexProject(st.projects, st.project); i >= 0 {
		p := st.projects[i].Clone()
		snap.SelectedProject = &p
	}
	if i := indexTeam(st.availableTeams, st.team); i >= 0 {
		t := st.availableTeams[i].Clone()
		snap.SelectedTeam = &t
	}
	if i := indexActivity(st.availableActivities, st.activity); i >= 0 {
		a := st.availableActivities[i]
		snap.SelectedActivity = &a
	}
	return snap
}

func cloneProjects(in []domain.Project) []domain.Project {
	out := make([]domain.Project, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

func cloneTeams(in []domain.Team) []domain.Team {
	out := make([]domain.Team, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}

func cloneActivities(in []domain.Activity) []domain.Activity {
	out := make([]domain.Activity, len(in))
	copy(out, in)
	return out
}
