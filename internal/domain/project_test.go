package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeProject_Valid(t *testing.T) {
	p, err := DecodeProject(Record{
		"id":           "p1",
		"name":         "Acme",
		"organization": "org1",
		"tags":         []any{"t1", "t2"},
	})
	require.NoError(t, err)
	assert.Equal(t, Project{ID: "p1", Name: "Acme", OrganizationID: "org1", TagIDs: []string{"t1", "t2"}}, p)
}

func TestDecodeProject_NameBounds(t *testing.T) {
	_, err := DecodeProject(Record{"id": "p1", "name": ""})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRecord))

	_, err = DecodeProject(Record{"id": "p1", "name": strings.Repeat("x", NameMaxLen+1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}

func TestDecodeTeam_CollectsEveryProblem(t *testing.T) {
	_, err := DecodeTeam(Record{"id": "t1", "name": 42, "managers": "u1", "members": []any{"u2", 7}})
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, CollectionTeams, ve.Collection)
	assert.Equal(t, "t1", ve.ID)
	// name: wrong type and empty; project: missing; members[1]: not a string
	assert.Len(t, ve.Problems, 4)
}

func TestDecodeTeam_SingleRelationAccepted(t *testing.T) {
	team, err := DecodeTeam(Record{"id": "t1", "name": "Core", "project": "p1", "managers": "u1"})
	require.NoError(t, err)
	assert.True(t, team.HasManager("u1"))
	assert.False(t, team.HasMember("u1"))
}

func TestDecodeActivity_RequiresTeam(t *testing.T) {
	_, err := DecodeActivity(Record{"id": "a1", "name": "Coding"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "team: required")
}

func TestRecordRoundTrip_Team(t *testing.T) {
	in := Team{ID: "t1", Name: "Core", ProjectID: "p1", MemberIDs: []string{"u1"}, ManagerIDs: []string{"u2"}, TagIDs: []string{}}
	out, err := DecodeTeam(in.Record())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeAll_RejectsWholeBatch(t *testing.T) {
	recs := []Record{
		{"id": "p1", "name": "Acme"},
		{"id": "p2"},
	}
	out, err := DecodeAll(recs, DecodeProject)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestRecordMerge_DoesNotAliasArrays(t *testing.T) {
	base := Record{"id": "t1", "tags": []any{"a"}}
	merged := base.Merge(Record{"name": "Core"})
	merged["tags"].([]any)[0] = "b"

	assert.Equal(t, "a", base["tags"].([]any)[0])
	assert.Equal(t, []string{"id", "name", "tags"}, merged.Keys())
}
