package domain

// NameMaxLen bounds project, team and activity names.
const NameMaxLen = 255

type Project struct {
	ID             string
	Name           string
	OrganizationID string
	TagIDs         []string
}

// DecodeProject validates a raw record into a Project.
func DecodeProject(rec Record) (Project, error) {
	d := newDecoder(rec)
	p := Project{
		ID:             d.required("id"),
		Name:           d.bounded("name", 1, NameMaxLen),
		OrganizationID: d.str("organization"),
		TagIDs:         d.list("tags"),
	}
	return p, d.err(CollectionProjects)
}

func (p Project) Record() Record {
	return Record{
		"id":           p.ID,
		"name":         p.Name,
		"organization": p.OrganizationID,
		"tags":         toAnySlice(p.TagIDs),
	}
}

type Team struct {
	ID         string
	Name       string
	ProjectID  string
	TagIDs     []string
	MemberIDs  []string
	ManagerIDs []string
}

func DecodeTeam(rec Record) (Team, error) {
	d := newDecoder(rec)
	t := Team{
		ID:         d.required("id"),
		Name:       d.bounded("name", 1, NameMaxLen),
		ProjectID:  d.required("project"),
		TagIDs:     d.list("tags"),
		MemberIDs:  d.list("members"),
		ManagerIDs: d.list("managers"),
	}
	return t, d.err(CollectionTeams)
}

func (t Team) Record() Record {
	return Record{
		"id":       t.ID,
		"name":     t.Name,
		"project":  t.ProjectID,
		"tags":     toAnySlice(t.TagIDs),
		"members":  toAnySlice(t.MemberIDs),
		"managers": toAnySlice(t.ManagerIDs),
	}
}

func (t Team) HasManager(userID string) bool {
	return containsString(t.ManagerIDs, userID)
}

func (t Team) HasMember(userID string) bool {
	return containsString(t.MemberIDs, userID)
}

type Activity struct {
	ID             string
	Name           string
	TeamID         string
	ProjectID      string
	OrganizationID string
}

func DecodeActivity(rec Record) (Activity, error) {
	d := newDecoder(rec)
	a := Activity{
		ID:             d.required("id"),
		Name:           d.bounded("name", 1, NameMaxLen),
		TeamID:         d.required("team"),
		ProjectID:      d.str("project"),
		OrganizationID: d.str("organization"),
	}
	return a, d.err(CollectionActivities)
}

func (a Activity) Record() Record {
	return Record{
		"id":           a.ID,
		"name":         a.Name,
		"team":         a.TeamID,
		"project":      a.ProjectID,
		"organization": a.OrganizationID,
	}
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func (p Project) Clone() Project {
	p.TagIDs = cloneStrings(p.TagIDs)
	return p
}

func (t Team) Clone() Team {
	t.TagIDs = cloneStrings(t.TagIDs)
	t.MemberIDs = cloneStrings(t.MemberIDs)
	t.ManagerIDs = cloneStrings(t.ManagerIDs)
	return t
}

func cloneStrings(ss []string) []string {
	if ss == nil {
		return nil
	}
	out := make([]string, len(ss))
	copy(out, ss)
	return out
}
