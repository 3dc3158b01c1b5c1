package server

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"net/http"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/repository"
)

// Task writes get the access rules a hosted record store would enforce:
// new tasks start unreviewed, only a manager of the task's team may change
// its status, and the team always follows the activity.

func guardTaskCreate(ctx context.Context, store repository.Store, log *slog.Logger, body domain.Record) (domain.Record, error) {
	out := maps.Clone(body)
	if out == nil {
		out = domain.Record{}
	}
	out["status"] = string(domain.TaskNone)
	if err := pinTeam(ctx, store, log, out, ""); err != nil {
		return nil, err
	}
	return out, nil
}

func guardTaskUpdate(ctx context.Context, store repository.Store, log *slog.Logger, id string, body domain.Record) (domain.Record, error) {
	rec, err := store.Collection(domain.CollectionTasks).FetchOne(ctx, id)
	if err != nil {
		return nil, handleError(log, err)
	}
	cur, err := domain.DecodeTask(rec)
	if err != nil {
		return nil, handleError(log, err)
	}

	out := maps.Clone(body)
	if status, ok := out["status"]; ok && status != string(cur.Status) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		team, err := fetchTeam(ctx, store, cur.TeamID)
		if err != nil {
			return nil, handleError(log, err)
		}
		if !team.HasManager(userID) {
			return nil, newAPIError(http.StatusForbidden, "forbidden",
				"only a manager of the task's team can change its status", nil)
		}
	}

	_, hasActivity := out["activity"]
	_, hasTeam := out["team"]
	if hasActivity || hasTeam {
		if err := pinTeam(ctx, store, log, out, cur.ActivityID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// pinTeam sets body's team to the team owning its activity (or fallback
// when body names none). A conflicting team is rejected.
func pinTeam(ctx context.Context, store repository.Store, log *slog.Logger, body domain.Record, fallback string) error {
	actID, _ := body["activity"].(string)
	if actID == "" {
		actID = fallback
	}
	if actID == "" {
		return nil
	}
	rec, err := store.Collection(domain.CollectionActivities).FetchOne(ctx, actID)
	if errors.Is(err, repository.ErrNotFound) {
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", "unknown activity "+actID, nil)
	}
	if err != nil {
		return handleError(log, err)
	}
	act, err := domain.DecodeActivity(rec)
	if err != nil {
		return handleError(log, err)
	}
	if team, _ := body["team"].(string); team != "" && team != act.TeamID {
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed",
			"activity "+act.ID+" does not belong to team "+team, nil)
	}
	body["team"] = act.TeamID
	return nil
}

func fetchTeam(ctx context.Context, store repository.Store, id string) (domain.Team, error) {
	rec, err := store.Collection(domain.CollectionTeams).FetchOne(ctx, id)
	if err != nil {
		return domain.Team{}, err
	}
	return domain.DecodeTeam(rec)
}
