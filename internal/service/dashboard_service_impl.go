package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/query"
	"github.com/NotNullDev/nanomgmt/internal/repository"
)

type dashboardService struct {
	store repository.Store
}

func NewDashboardService(store repository.Store) DashboardService {
	return &dashboardService{store: store}
}

func (s *dashboardService) HoursByTeamMonth(ctx context.Context, userID string, rng domain.DateRange) ([]domain.TeamMonthHours, error) {
	p := query.Where(query.Eq(query.FieldUser, userID)).And(dateClauses(rng)...)
	tasks, err := fetchTasks(ctx, s.store, p)
	if err != nil {
		return nil, fmt.Errorf("loading hours of %q: %w", userID, err)
	}
	return domain.SumHoursByTeamMonth(tasks), nil
}

// TasksByUser groups a team's tasks per user, ordered by display name,
// with same-day tasks folded together.
func (s *dashboardService) TasksByUser(ctx context.Context, teamID string, rng domain.DateRange) ([]UserDays, error) {
	p := query.Where(query.Eq(query.FieldTeam, teamID)).And(dateClauses(rng)...)
	tasks, err := fetchTasks(ctx, s.store, p)
	if err != nil {
		return nil, fmt.Errorf("loading tasks of team %q: %w", teamID, err)
	}
	recs, err := s.store.Collection(domain.CollectionUsers).FetchAll(ctx, query.Predicate{})
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	users, err := domain.DecodeAll(recs, domain.DecodeUser)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].DisplayName() < users[j].DisplayName() })

	groups := domain.GroupTasksByUser(tasks, users)
	out := make([]UserDays, 0, len(groups))
	for _, g := range groups {
		ud := UserDays{User: g.User, Days: domain.ReduceSameDay(g.Tasks)}
		for _, d := range ud.Days {
			ud.Hours += d.Hours
		}
		out = append(out, ud)
	}
	return out, nil
}
