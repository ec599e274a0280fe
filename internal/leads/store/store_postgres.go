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

	"leadline/internal/leads/models"
	id "leadline/pkg/domain"
	"leadline/pkg/platform/sentinel"
	txcontext "leadline/pkg/platform/tx"
)

var leadColumns = []string{
	"id", "owner_id", "status", "number", "name", "phone", "provider", "address",
	"maps_address", "type_of_business", "notes", "date_to_call_back",
	"background_color", "list_name", "created_at", "updated_at",
}

// PostgresStore persists leads and their history in PostgreSQL.
// This store is pure I/O; numbering and transition rules live in the service.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type leadRow struct {
	ID              uuid.UUID    `db:"id"`
	OwnerID         uuid.UUID    `db:"owner_id"`
	Status          string       `db:"status"`
	Number          int          `db:"number"`
	Name            string       `db:"name"`
	Phone           string       `db:"phone"`
	Provider        string       `db:"provider"`
	Address         string       `db:"address"`
	MapsAddress     string       `db:"maps_address"`
	TypeOfBusiness  string       `db:"type_of_business"`
	Notes           string       `db:"notes"`
	DateToCallBack  sql.NullTime `db:"date_to_call_back"`
	BackgroundColor string       `db:"background_color"`
	ListName        string       `db:"list_name"`
	CreatedAt       time.Time    `db:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at"`
}

func (r leadRow) toModel() *models.Lead {
	lead := &models.Lead{
		ID:              id.LeadID(r.ID),
		OwnerID:         id.OwnerID(r.OwnerID),
		Status:          models.Status(r.Status),
		Number:          r.Number,
		Name:            r.Name,
		Phone:           r.Phone,
		Provider:        r.Provider,
		Address:         r.Address,
		MapsAddress:     r.MapsAddress,
		TypeOfBusiness:  r.TypeOfBusiness,
		Notes:           r.Notes,
		BackgroundColor: r.BackgroundColor,
		ListName:        r.ListName,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.DateToCallBack.Valid {
		d := r.DateToCallBack.Time.UTC()
		lead.DateToCallBack = &d
	}
	return lead
}

func (s *PostgresStore) execer(ctx context.Context) sqlx.ExtContext {
	return txcontext.Execer(ctx, s.db)
}

func (s *PostgresStore) Create(ctx context.Context, lead *models.Lead) error {
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("leads")
	sb.Cols(leadColumns...)
	sb.Values(
		uuid.UUID(lead.ID), uuid.UUID(lead.OwnerID), string(lead.Status), lead.Number, lead.Name,
		lead.Phone, lead.Provider, lead.Address, lead.MapsAddress, lead.TypeOfBusiness, lead.Notes,
		nullTime(lead.DateToCallBack), lead.BackgroundColor, lead.ListName, lead.CreatedAt, lead.UpdatedAt,
	)
	query, args := sb.Build()
	if _, err := s.execer(ctx).ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create lead: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID) (*models.Lead, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(leadColumns...).From("leads")
	sb.Where(
		sb.Equal("id", uuid.UUID(leadID)),
		sb.Equal("owner_id", uuid.UUID(ownerID)),
	)
	query, args := sb.Build()

	var row leadRow
	if err := sqlx.GetContext(ctx, s.execer(ctx), &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find lead: %w", err)
	}
	return row.toModel(), nil
}

// FindByIDs returns the owner's leads in the order of leadIDs, skipping ids
// that are unknown or foreign.
func (s *PostgresStore) FindByIDs(ctx context.Context, ownerID id.OwnerID, leadIDs []id.LeadID) ([]*models.Lead, error) {
	if len(leadIDs) == 0 {
		return []*models.Lead{}, nil
	}
	raw := make([]any, len(leadIDs))
	for i, leadID := range leadIDs {
		raw[i] = uuid.UUID(leadID)
	}
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(leadColumns...).From("leads")
	sb.Where(
		sb.Equal("owner_id", uuid.UUID(ownerID)),
		sb.In("id", raw...),
	)
	query, args := sb.Build()

	var rows []leadRow
	if err := sqlx.SelectContext(ctx, s.execer(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("find leads: %w", err)
	}
	byID := make(map[id.LeadID]*models.Lead, len(rows))
	for _, r := range rows {
		byID[id.LeadID(r.ID)] = r.toModel()
	}
	out := make([]*models.Lead, 0, len(rows))
	for _, leadID := range leadIDs {
		if lead, ok := byID[leadID]; ok {
			out = append(out, lead)
		}
	}
	return out, nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, ownerID id.OwnerID, status models.Status) ([]*models.Lead, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(leadColumns...).From("leads")
	sb.Where(
		sb.Equal("owner_id", uuid.UUID(ownerID)),
		sb.Equal("status", string(status)),
	)
	sb.OrderBy("number ASC", "created_at ASC")
	query, args := sb.Build()

	var rows []leadRow
	if err := sqlx.SelectContext(ctx, s.execer(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list leads by status: %w", err)
	}
	return toModels(rows), nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context, ownerID id.OwnerID, status models.Status) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, s.execer(ctx), &count,
		`SELECT COUNT(*) FROM leads WHERE owner_id = $1 AND status = $2`,
		uuid.UUID(ownerID), string(status))
	if err != nil {
		return 0, fmt.Errorf("count leads by status: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountsByStatus(ctx context.Context, ownerID id.OwnerID) (models.StatusCounts, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	err := sqlx.SelectContext(ctx, s.execer(ctx), &rows,
		`SELECT status, COUNT(*) AS count FROM leads WHERE owner_id = $1 GROUP BY status`,
		uuid.UUID(ownerID))
	if err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}
	counts := make(models.StatusCounts, len(models.AllStatuses()))
	for _, status := range models.AllStatuses() {
		counts[status] = 0
	}
	for _, r := range rows {
		counts[models.Status(r.Status)] = r.Count
	}
	return counts, nil
}

func (s *PostgresStore) CountCallbacksDue(ctx context.Context, ownerID id.OwnerID, before time.Time) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, s.execer(ctx), &count,
		`SELECT COUNT(*) FROM leads WHERE owner_id = $1 AND status = $2 AND date_to_call_back < $3`,
		uuid.UUID(ownerID), string(models.StatusLater), before)
	if err != nil {
		return 0, fmt.Errorf("count due callbacks: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) List(ctx context.Context, ownerID id.OwnerID, filter models.ListFilter) ([]*models.Lead, int, error) {
	filter = filter.Normalized()

	where := func(sb *sqlbuilder.SelectBuilder) []string {
		conds := []string{sb.Equal("owner_id", uuid.UUID(ownerID))}
		if filter.Status != "" {
			conds = append(conds, sb.Equal("status", string(filter.Status)))
		}
		if filter.ListName != "" {
			conds = append(conds, sb.Equal("list_name", filter.ListName))
		}
		if filter.Provider != "" {
			conds = append(conds, sb.Equal("provider", filter.Provider))
		}
		if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
			pattern := "%" + escapeLike(search) + "%"
			conds = append(conds, sb.Or(
				sb.Like("LOWER(name)", pattern),
				sb.Like("LOWER(phone)", pattern),
				sb.Like("LOWER(address)", pattern),
				sb.Like("LOWER(type_of_business)", pattern),
			))
		}
		return conds
	}

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)").From("leads")
	countSb.Where(where(countSb)...)
	countQuery, countArgs := countSb.Build()
	var total int
	if err := sqlx.GetContext(ctx, s.execer(ctx), &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(leadColumns...).From("leads")
	sb.Where(where(sb)...)
	sb.OrderBy(statusOrderExpr, "number ASC", "created_at ASC")
	sb.Limit(filter.Limit).Offset(filter.Offset)
	query, args := sb.Build()

	var rows []leadRow
	if err := sqlx.SelectContext(ctx, s.execer(ctx), &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	return toModels(rows), total, nil
}

// statusOrderExpr sorts buckets in pipeline order.
const statusOrderExpr = `CASE status WHEN 'new' THEN 0 WHEN 'leads' THEN 1 WHEN 'working' THEN 2 WHEN 'later' THEN 3 WHEN 'signed' THEN 4 ELSE 5 END`

// Update applies patch in a single statement, so a status transition's
// status, number and timestamp become visible together.
func (s *PostgresStore) Update(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID, patch models.LeadPatch) (*models.Lead, error) {
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("leads")

	sets := []string{sb.Assign("updated_at", patch.UpdatedAt)}
	if patch.Status != nil {
		sets = append(sets, sb.Assign("status", string(*patch.Status)))
	}
	if patch.Number != nil {
		sets = append(sets, sb.Assign("number", *patch.Number))
	}
	if patch.DateToCallBack != nil {
		sets = append(sets, sb.Assign("date_to_call_back", *patch.DateToCallBack))
	}
	for col, v := range map[string]*string{
		"name":             patch.Name,
		"phone":            patch.Phone,
		"provider":         patch.Provider,
		"address":          patch.Address,
		"maps_address":     patch.MapsAddress,
		"type_of_business": patch.TypeOfBusiness,
		"notes":            patch.Notes,
		"background_color": patch.BackgroundColor,
		"list_name":        patch.ListName,
	} {
		if v != nil {
			sets = append(sets, sb.Assign(col, *v))
		}
	}
	sb.Set(sets...)
	sb.Where(
		sb.Equal("id", uuid.UUID(leadID)),
		sb.Equal("owner_id", uuid.UUID(ownerID)),
	)
	query, args := sb.Build()
	query += " RETURNING " + strings.Join(leadColumns, ", ")

	var row leadRow
	if err := sqlx.GetContext(ctx, s.execer(ctx), &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		if isCheckViolation(err) {
			return nil, sentinel.ErrInvalidState
		}
		return nil, fmt.Errorf("update lead: %w", err)
	}
	return row.toModel(), nil
}

func (s *PostgresStore) Delete(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM leads WHERE id = $1 AND owner_id = $2`,
		uuid.UUID(leadID), uuid.UUID(ownerID))
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateInteraction(ctx context.Context, in *models.Interaction) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO lead_interactions (id, owner_id, lead_id, interaction_type, old_value, new_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(in.ID), uuid.UUID(in.OwnerID), uuid.UUID(in.LeadID), string(in.Type), in.OldValue, in.NewValue, in.CreatedAt)
	if err != nil {
		return fmt.Errorf("create lead interaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateNote(ctx context.Context, note *models.Note) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO lead_notes (id, owner_id, lead_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(note.ID), uuid.UUID(note.OwnerID), uuid.UUID(note.LeadID), note.Content, note.CreatedAt)
	if err != nil {
		return fmt.Errorf("create lead note: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListInteractions(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID) ([]*models.Interaction, error) {
	var rows []struct {
		ID        uuid.UUID `db:"id"`
		Type      string    `db:"interaction_type"`
		OldValue  string    `db:"old_value"`
		NewValue  string    `db:"new_value"`
		CreatedAt time.Time `db:"created_at"`
	}
	err := sqlx.SelectContext(ctx, s.execer(ctx), &rows, `
		SELECT id, interaction_type, old_value, new_value, created_at
		FROM lead_interactions
		WHERE owner_id = $1 AND lead_id = $2
		ORDER BY created_at ASC`,
		uuid.UUID(ownerID), uuid.UUID(leadID))
	if err != nil {
		return nil, fmt.Errorf("list lead interactions: %w", err)
	}
	out := make([]*models.Interaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, &models.Interaction{
			ID:        id.InteractionID(r.ID),
			OwnerID:   ownerID,
			LeadID:    leadID,
			Type:      models.InteractionType(r.Type),
			OldValue:  r.OldValue,
			NewValue:  r.NewValue,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

func (s *PostgresStore) ListNotes(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID) ([]*models.Note, error) {
	var rows []struct {
		ID        uuid.UUID `db:"id"`
		Content   string    `db:"content"`
		CreatedAt time.Time `db:"created_at"`
	}
	err := sqlx.SelectContext(ctx, s.execer(ctx), &rows, `
		SELECT id, content, created_at
		FROM lead_notes
		WHERE owner_id = $1 AND lead_id = $2
		ORDER BY created_at ASC`,
		uuid.UUID(ownerID), uuid.UUID(leadID))
	if err != nil {
		return nil, fmt.Errorf("list lead notes: %w", err)
	}
	out := make([]*models.Note, 0, len(rows))
	for _, r := range rows {
		out = append(out, &models.Note{
			ID:        id.NoteID(r.ID),
			OwnerID:   ownerID,
			LeadID:    leadID,
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

func toModels(rows []leadRow) []*models.Lead {
	out := make([]*models.Lead, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
