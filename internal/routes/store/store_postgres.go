package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"leadline/internal/routes/models"
	id "leadline/pkg/domain"
	"leadline/pkg/platform/sentinel"
	txcontext "leadline/pkg/platform/tx"
)

var routeColumns = []string{
	"id", "owner_id", "name", "lead_ids", "stop_count", "starting_point", "route_url", "notes", "created_at",
}

// PostgresStore persists routes in PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type routeRow struct {
	ID            uuid.UUID      `db:"id"`
	OwnerID       uuid.UUID      `db:"owner_id"`
	Name          string         `db:"name"`
	LeadIDs       pq.StringArray `db:"lead_ids"`
	StopCount     int            `db:"stop_count"`
	StartingPoint string         `db:"starting_point"`
	RouteURL      string         `db:"route_url"`
	Notes         string         `db:"notes"`
	CreatedAt     time.Time      `db:"created_at"`
}

func (r routeRow) toModel() (*models.Route, error) {
	leadIDs, err := id.ParseLeadIDs(r.LeadIDs)
	if err != nil {
		return nil, fmt.Errorf("decode route lead ids: %w", err)
	}
	return &models.Route{
		ID:            id.RouteID(r.ID),
		OwnerID:       id.OwnerID(r.OwnerID),
		Name:          r.Name,
		LeadIDs:       leadIDs,
		StopCount:     r.StopCount,
		StartingPoint: r.StartingPoint,
		RouteURL:      r.RouteURL,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
	}, nil
}

func leadIDStrings(ids []id.LeadID) pq.StringArray {
	out := make(pq.StringArray, len(ids))
	for i, leadID := range ids {
		out[i] = leadID.String()
	}
	return out
}

func (s *PostgresStore) Create(ctx context.Context, route *models.Route) error {
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("routes")
	sb.Cols(routeColumns...)
	sb.Values(
		uuid.UUID(route.ID), uuid.UUID(route.OwnerID), route.Name, leadIDStrings(route.LeadIDs), route.StopCount,
		route.StartingPoint, route.RouteURL, route.Notes, route.CreatedAt,
	)
	query, args := sb.Build()
	if _, err := txcontext.Execer(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create route: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, ownerID id.OwnerID, routeID id.RouteID) (*models.Route, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(routeColumns...).From("routes")
	sb.Where(sb.Equal("id", uuid.UUID(routeID)), sb.Equal("owner_id", uuid.UUID(ownerID)))
	query, args := sb.Build()

	var row routeRow
	if err := sqlx.GetContext(ctx, txcontext.Execer(ctx, s.db), &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find route: %w", err)
	}
	return row.toModel()
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID id.OwnerID, limit, offset int) ([]*models.Route, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(routeColumns...).From("routes")
	sb.Where(sb.Equal("owner_id", uuid.UUID(ownerID)))
	sb.OrderBy("created_at").Desc()
	if limit > 0 {
		sb.Limit(limit)
	}
	if offset > 0 {
		sb.Offset(offset)
	}
	query, args := sb.Build()

	var rows []routeRow
	if err := sqlx.SelectContext(ctx, txcontext.Execer(ctx, s.db), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	out := make([]*models.Route, 0, len(rows))
	for _, row := range rows {
		route, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, route)
	}
	return out, nil
}

func (s *PostgresStore) UpdateNotes(ctx context.Context, ownerID id.OwnerID, routeID id.RouteID, notes string) (*models.Route, error) {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("routes")
	ub.Set(ub.Assign("notes", notes))
	ub.Where(ub.Equal("id", uuid.UUID(routeID)), ub.Equal("owner_id", uuid.UUID(ownerID)))
	query, args := ub.Build()
	query += " RETURNING " + strings.Join(routeColumns, ", ")

	var row routeRow
	if err := sqlx.GetContext(ctx, txcontext.Execer(ctx, s.db), &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("update route notes: %w", err)
	}
	return row.toModel()
}

func (s *PostgresStore) Delete(ctx context.Context, ownerID id.OwnerID, routeID id.RouteID) error {
	del := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	del.DeleteFrom("routes")
	del.Where(del.Equal("id", uuid.UUID(routeID)), del.Equal("owner_id", uuid.UUID(ownerID)))
	query, args := del.Build()

	res, err := txcontext.Execer(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete route: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete route: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
