package selection

import "github.com/NotNullDev/nanomgmt/internal/domain"

// state is the engine's mutable core. Selections are stored as ids and
// resolved against the reference and available lists on every read.
type state struct {
	projects   []domain.Project
	teams      []domain.Team
	activities []domain.Activity

	project  string
	team     string
	activity string

	availableTeams      []domain.Team
	availableActivities []domain.Activity

	dateRange     domain.DateRange
	statusFilter  domain.TaskStatus
	sortDirection domain.SortDirection

	online  bool
	version uint64
}

// cascade settles every derived field in dependency order:
//
//	projects            -> selected project (singleton, dangling)
//	project, teams      -> available teams  -> selected team
//	team, activities    -> available activities -> selected activity
//
// It reads only reference data and selections, so running it twice with
// the same inputs leaves the state unchanged.
func (st *state) cascade(hideEmptyTeams bool) {
	st.project = settle(st.project, st.projects, func(p domain.Project) string { return p.ID })

	st.availableTeams = teamsFor(st.teams, st.project, st.activities, hideEmptyTeams)
	st.team = settle(st.team, st.availableTeams, func(t domain.Team) string { return t.ID })

	st.availableActivities = activitiesFor(st.activities, st.team)
	st.activity = settle(st.activity, st.availableActivities, func(a domain.Activity) string { return a.ID })
}

// settle applies the singleton and dangling-reference rules to one
// selection. A lone candidate always wins over any previous choice.
func settle[T any](selected string, available []T, id func(T) string) string {
	switch len(available) {
	case 0:
		return ""
	case 1:
		return id(available[0])
	}
	for _, v := range available {
		if id(v) == selected {
			return selected
		}
	}
	return ""
}

func teamsFor(teams []domain.Team, projectID string, activities []domain.Activity, hideEmpty bool) []domain.Team {
	if projectID == "" {
		return nil
	}
	var withActivities map[string]bool
	if hideEmpty {
		withActivities = make(map[string]bool, len(activities))
		for _, a := range activities {
			withActivities[a.TeamID] = true
		}
	}
	var out []domain.Team
	for _, t := range teams {
		if t.ProjectID != projectID {
			continue
		}
		if hideEmpty && !withActivities[t.ID] {
			continue
		}
		out = append(out, t)
	}
	return out
}

func activitiesFor(activities []domain.Activity, teamID string) []domain.Activity {
	if teamID == "" {
		return nil
	}
	var out []domain.Activity
	for _, a := range activities {
		if a.TeamID == teamID {
			out = append(out, a)
		}
	}
	return out
}

func indexProject(ps []domain.Project, id string) int {
	if id == "" {
		return -1
	}
	for i, p := range ps {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func indexTeam(ts []domain.Team, id string) int {
	if id == "" {
		return -1
	}
	for i, t := range ts {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func indexActivity(as []domain.Activity, id string) int {
	if id == "" {
		return -1
	}
	for i, a := range as {
		if a.ID == id {
			return i
		}
	}
	return -1
}
