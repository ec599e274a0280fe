package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"leadline/internal/imports/models"
	id "leadline/pkg/domain"
	"leadline/pkg/platform/sentinel"
	txcontext "leadline/pkg/platform/tx"
)

var sessionColumns = []string{
	"id", "owner_id", "source_type", "source_id", "file_name", "list_name",
	"total_records", "imported_records", "failed_records", "status", "error_log",
	"created_at", "updated_at",
}

// PostgresStore persists import sessions in PostgreSQL. The error log is a
// JSONB array of row errors.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type sessionRow struct {
	ID              uuid.UUID `db:"id"`
	OwnerID         uuid.UUID `db:"owner_id"`
	SourceType      string    `db:"source_type"`
	SourceID        string    `db:"source_id"`
	FileName        string    `db:"file_name"`
	ListName        string    `db:"list_name"`
	TotalRecords    int       `db:"total_records"`
	ImportedRecords int       `db:"imported_records"`
	FailedRecords   int       `db:"failed_records"`
	Status          string    `db:"status"`
	ErrorLog        []byte    `db:"error_log"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r sessionRow) toModel() (*models.Session, error) {
	var errorLog []models.RowError
	if len(r.ErrorLog) > 0 {
		if err := json.Unmarshal(r.ErrorLog, &errorLog); err != nil {
			return nil, fmt.Errorf("decode import error log: %w", err)
		}
	}
	if errorLog == nil {
		errorLog = []models.RowError{}
	}
	return &models.Session{
		ID:              id.ImportSessionID(r.ID),
		OwnerID:         id.OwnerID(r.OwnerID),
		SourceType:      models.SourceType(r.SourceType),
		SourceID:        r.SourceID,
		FileName:        r.FileName,
		ListName:        r.ListName,
		TotalRecords:    r.TotalRecords,
		ImportedRecords: r.ImportedRecords,
		FailedRecords:   r.FailedRecords,
		Status:          models.SessionStatus(r.Status),
		ErrorLog:        errorLog,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}, nil
}

func encodeErrorLog(log []models.RowError) ([]byte, error) {
	if log == nil {
		log = []models.RowError{}
	}
	b, err := json.Marshal(log)
	if err != nil {
		return nil, fmt.Errorf("encode import error log: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) Create(ctx context.Context, session *models.Session) error {
	errorLog, err := encodeErrorLog(session.ErrorLog)
	if err != nil {
		return err
	}
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("import_sessions")
	ib.Cols(sessionColumns...)
	ib.Values(
		uuid.UUID(session.ID), uuid.UUID(session.OwnerID), string(session.SourceType), session.SourceID,
		session.FileName, session.ListName, session.TotalRecords, session.ImportedRecords,
		session.FailedRecords, string(session.Status), errorLog, session.CreatedAt, session.UpdatedAt,
	)
	query, args := ib.Build()
	if _, err := txcontext.Execer(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create import session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, session *models.Session) error {
	errorLog, err := encodeErrorLog(session.ErrorLog)
	if err != nil {
		return err
	}
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("import_sessions")
	ub.Set(
		ub.Assign("imported_records", session.ImportedRecords),
		ub.Assign("failed_records", session.FailedRecords),
		ub.Assign("status", string(session.Status)),
		ub.Assign("error_log", errorLog),
		ub.Assign("updated_at", session.UpdatedAt),
	)
	ub.Where(ub.Equal("id", uuid.UUID(session.ID)), ub.Equal("owner_id", uuid.UUID(session.OwnerID)))
	query, args := ub.Build()

	res, err := txcontext.Execer(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update import session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update import session: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, ownerID id.OwnerID, sessionID id.ImportSessionID) (*models.Session, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(sessionColumns...).From("import_sessions")
	sb.Where(sb.Equal("id", uuid.UUID(sessionID)), sb.Equal("owner_id", uuid.UUID(ownerID)))
	query, args := sb.Build()

	var row sessionRow
	if err := sqlx.GetContext(ctx, txcontext.Execer(ctx, s.db), &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find import session: %w", err)
	}
	return row.toModel()
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID id.OwnerID, limit, offset int) ([]*models.Session, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(sessionColumns...).From("import_sessions")
	sb.Where(sb.Equal("owner_id", uuid.UUID(ownerID)))
	sb.OrderBy("created_at").Desc()
	if limit > 0 {
		sb.Limit(limit)
	}
	if offset > 0 {
		sb.Offset(offset)
	}
	query, args := sb.Build()

	var rows []sessionRow
	if err := sqlx.SelectContext(ctx, txcontext.Execer(ctx, s.db), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list import sessions: %w", err)
	}
	out := make([]*models.Session, 0, len(rows))
	for _, row := range rows {
		session, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, nil
}
