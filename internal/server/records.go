package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/query"
	"github.com/NotNullDev/nanomgmt/internal/repository"
)

// RecordList is the JSON shape of one page of records.
type RecordList struct {
	Page       int             `json:"page"`
	PerPage    int             `json:"perPage"`
	TotalItems int             `json:"totalItems"`
	TotalPages int             `json:"totalPages"`
	Items      []domain.Record `json:"items"`
}

type recordBody struct {
	Body domain.Record `json:"body"`
}

type collectionPath struct {
	Collection string `path:"collection" doc:"Collection name"`
}

type recordPath struct {
	Collection string `path:"collection" doc:"Collection name"`
	ID         string `path:"id" doc:"Record id"`
}

func registerHealth(api huma.API, store repository.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		if err := store.Health(ctx); err != nil {
			return nil, newAPIError(http.StatusServiceUnavailable, "unavailable", err.Error(), nil)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func collectionOf(store repository.Store, name string) repository.Collection {
	c, err := domain.ParseCollection(name)
	if err != nil {
		return repository.UnknownCollection(domain.Collection(name))
	}
	return store.Collection(c)
}

func registerRecords(api huma.API, store repository.Store, log *slog.Logger) {
	huma.Register(api, huma.Operation{
		OperationID: "list-records",
		Method:      http.MethodGet,
		Path:        "/collections/{collection}/records",
		Summary:     "List records",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		collectionPath
		Page    int    `query:"page" default:"1" minimum:"1"`
		PerPage int    `query:"perPage" default:"30" minimum:"1" maximum:"500"`
		Filter  string `query:"filter" doc:"Filter expression, e.g. team = 'abc' && status = 'none'"`
		Sort    string `query:"sort" doc:"+field or -field"`
	}) (*struct {
		Body RecordList `json:"body"`
	}, error) {
		pred, err := query.ParsePredicate(input.Filter)
		if err != nil {
			return nil, handleError(log, err)
		}
		sort, err := query.ParseSort(input.Sort)
		if err != nil {
			return nil, handleError(log, err)
		}
		coll := collectionOf(store, input.Collection)
		page, err := coll.FetchPage(ctx, input.Page, input.PerPage, pred, sort)
		if err != nil {
			return nil, handleError(log, err)
		}
		return &struct {
			Body RecordList `json:"body"`
		}{Body: RecordList{
			Page:       page.Page,
			PerPage:    page.PerPage,
			TotalItems: page.AllCount,
			TotalPages: page.TotalPages(),
			Items:      page.Items,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-record",
		Method:      http.MethodGet,
		Path:        "/collections/{collection}/records/{id}",
		Summary:     "Get one record",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *recordPath) (*recordBody, error) {
		coll := collectionOf(store, input.Collection)
		rec, err := coll.FetchOne(ctx, input.ID)
		if err != nil {
			return nil, handleError(log, err)
		}
		return &recordBody{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-record",
		Method:      http.MethodPost,
		Path:        "/collections/{collection}/records",
		Summary:     "Create a record",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		collectionPath
		Body domain.Record `json:"body"`
	}) (*recordBody, error) {
		body := input.Body
		if input.Collection == string(domain.CollectionTasks) {
			guarded, err := guardTaskCreate(ctx, store, log, body)
			if err != nil {
				return nil, err
			}
			body = guarded
		}
		coll := collectionOf(store, input.Collection)
		rec, err := coll.Create(ctx, body)
		if err != nil {
			return nil, handleError(log, err)
		}
		return &recordBody{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-record",
		Method:      http.MethodPatch,
		Path:        "/collections/{collection}/records/{id}",
		Summary:     "Patch a record",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		recordPath
		Body domain.Record `json:"body"`
	}) (*recordBody, error) {
		body := input.Body
		if input.Collection == string(domain.CollectionTasks) {
			guarded, err := guardTaskUpdate(ctx, store, log, input.ID, body)
			if err != nil {
				return nil, err
			}
			body = guarded
		}
		coll := collectionOf(store, input.Collection)
		rec, err := coll.Update(ctx, input.ID, body)
		if err != nil {
			return nil, handleError(log, err)
		}
		return &recordBody{Body: rec}, nil
	})
}

func registerMe(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Authenticated user",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		id, err := userIDFromContext(ctx)
		if err != nil {
			return nil, err
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"id": id}}, nil
	})
}
