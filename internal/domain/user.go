package domain

type User struct {
	ID       string
	Username string
	Email    string
	Name     string
	Avatar   string
	Roles    []string
	TeamIDs  []string
}

func DecodeUser(rec Record) (User, error) {
	d := newDecoder(rec)
	u := User{
		ID:       d.required("id"),
		Username: d.required("username"),
		Email:    d.str("email"),
		Name:     d.str("name"),
		Avatar:   d.str("avatar"),
		Roles:    d.list("roles"),
		TeamIDs:  d.list("teams"),
	}
	return u, d.err(CollectionUsers)
}

func (u User) Record() Record {
	return Record{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"name":     u.Name,
		"avatar":   u.Avatar,
		"roles":    toAnySlice(u.Roles),
		"teams":    toAnySlice(u.TeamIDs),
	}
}

func (u User) IsManager() bool {
	return containsString(u.Roles, RoleManager)
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
