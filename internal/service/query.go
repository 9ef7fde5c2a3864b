package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dataapi/internal/auth"
	"dataapi/internal/model"
	"dataapi/internal/query"
	"dataapi/internal/repository"
	"dataapi/internal/schema"
)

const (
	// DefaultLimit is the page size applied when a list request carries none.
	DefaultLimit = 100
	// MaxLimit caps the page size a single request may ask for.
	MaxLimit = 1000
)

var (
	ErrUnknownModel = errors.New("unknown model")
	ErrNotFound     = errors.New("record not found")
	ErrIDRequired   = errors.New("id is required")
	ErrInvalidInput = errors.New("invalid input")
)

// ErrorDescriptor is one failure inside an otherwise successful response.
// A list response may carry both data and errors.
type ErrorDescriptor struct {
	Message   string `json:"message"`
	ErrorType string `json:"errorType"`
	RecordID  string `json:"recordId,omitempty"`
}

// ListInput carries a list query as received from the transport layer.
type ListInput struct {
	Model     string
	Filter    json.RawMessage
	Limit     int
	NextToken string
	Actor     auth.Context
}

// ListResult is the documented list response shape: an ordered page of
// records, an opaque token for the next page (nil when exhausted), and any
// per-record failures.
type ListResult struct {
	Data      []model.Record    `json:"data"`
	NextToken *string           `json:"nextToken"`
	Errors    []ErrorDescriptor `json:"errors,omitempty"`
}

// GetInput carries a get query.
type GetInput struct {
	Model        string
	ID           string
	SelectionSet []string
	Actor        auth.Context
}

// MutateInput carries a create or update. Values are the raw JSON fields of
// the request body, validated against the schema before use.
type MutateInput struct {
	Model  string
	ID     string
	Values map[string]json.RawMessage
	Actor  auth.Context
}

// DeleteInput carries a delete.
type DeleteInput struct {
	Model string
	ID    string
	Actor auth.Context
}

// QueryService implements the data API operations over the record store.
type QueryService interface {
	// List runs a filtered, cursor-paginated query.
	List(ctx context.Context, in ListInput) (*ListResult, error)

	// Get fetches one record by primary key, resolving and projecting the
	// requested selection set.
	Get(ctx context.Context, in GetInput) (model.Record, error)

	// Create inserts a record. Server-managed fields (id, timestamps, owner)
	// are populated here, never by the caller.
	Create(ctx context.Context, in MutateInput) (model.Record, error)

	// Update applies field changes to an existing record.
	Update(ctx context.Context, in MutateInput) (model.Record, error)

	// Delete removes a record.
	Delete(ctx context.Context, in DeleteInput) error
}

type queryService struct {
	reg  *schema.Registry
	repo repository.RecordRepository
}

// NewQueryService constructs a QueryService over the given registry and store.
func NewQueryService(reg *schema.Registry, repo repository.RecordRepository) QueryService {
	return &queryService{reg: reg, repo: repo}
}

func (s *queryService) List(ctx context.Context, in ListInput) (*ListResult, error) {
	m, ok := s.reg.Model(in.Model)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, in.Model)
	}
	if !m.ReadAllowed(string(in.Actor.Mode)) {
		return nil, fmt.Errorf("%w: auth mode %s cannot read %s", auth.ErrUnauthorized, in.Actor.Mode, m.Name)
	}

	limit := in.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	filter, err := query.ParseFilter(in.Filter, m)
	if err != nil {
		return nil, err
	}

	var cursor *query.Cursor
	if in.NextToken != "" {
		c, err := query.DecodeCursor(in.NextToken)
		if err != nil {
			return nil, err
		}
		cursor = &c
	}

	page, err := s.repo.List(ctx, m, repository.ListQuery{Filter: filter, Limit: limit, Cursor: cursor})
	if err != nil {
		return nil, err
	}

	res := &ListResult{Data: make([]model.Record, 0, len(page.Items))}
	for _, scanErr := range page.ScanErrors {
		res.Errors = append(res.Errors, ErrorDescriptor{
			Message:   fmt.Sprintf("failed to read record: %v", scanErr),
			ErrorType: "DataError",
		})
	}
	for _, rec := range page.Items {
		if d, ok := s.ownerDenied(m, in.Actor, rec); ok {
			res.Errors = append(res.Errors, d)
			continue
		}
		res.Data = append(res.Data, rec)
	}
	if page.NextCursor != nil {
		tok := query.EncodeCursor(*page.NextCursor)
		res.NextToken = &tok
	}
	return res, nil
}

func (s *queryService) Get(ctx context.Context, in GetInput) (model.Record, error) {
	m, ok := s.reg.Model(in.Model)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, in.Model)
	}
	if !m.ReadAllowed(string(in.Actor.Mode)) {
		return nil, fmt.Errorf("%w: auth mode %s cannot read %s", auth.ErrUnauthorized, in.Actor.Mode, m.Name)
	}
	if in.ID == "" {
		return nil, ErrIDRequired
	}

	sel, err := query.ParseSelection(in.SelectionSet, m, s.reg)
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.FindByID(ctx, m, in.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if d, denied := s.ownerDenied(m, in.Actor, rec); denied {
		return nil, fmt.Errorf("%w: %s", auth.ErrUnauthorized, d.Message)
	}

	// Attach relations to a copy so the fetched record stays scalar-only.
	rec = rec.Clone()
	if err := s.resolveRelations(ctx, m, rec, sel); err != nil {
		return nil, err
	}
	return sel.Apply(rec), nil
}

// resolveRelations fetches the related records the selection set asks for
// and attaches them to the parent record before projection.
func (s *queryService) resolveRelations(ctx context.Context, m *schema.Model, rec model.Record, sel *query.Selection) error {
	for name := range sel.Relations {
		rel, ok := m.Relation(name)
		if !ok {
			continue // validated at parse time
		}
		target, ok := s.reg.Model(rel.Target)
		if !ok {
			continue
		}
		switch rel.Kind {
		case schema.HasMany:
			items, err := s.repo.FindRelated(ctx, target, rel.ForeignKey, rec.ID())
			if err != nil {
				return err
			}
			rec[name] = items
		case schema.BelongsTo:
			fk, _ := rec[rel.ForeignKey].(string)
			if fk == "" {
				continue
			}
			parent, err := s.repo.FindByID(ctx, target, fk)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					continue
				}
				return err
			}
			rec[name] = parent
		}
	}
	return nil
}

func (s *queryService) Create(ctx context.Context, in MutateInput) (model.Record, error) {
	m, err := s.writableModel(in.Model, in.Actor)
	if err != nil {
		return nil, err
	}

	rec, err := coerceValues(m, in.Values)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec["id"] = uuid.NewString()
	rec["created_at"] = now
	rec["updated_at"] = now
	if m.Auth.OwnerField != "" && in.Actor.Mode == auth.ModeUserPool {
		rec[m.Auth.OwnerField] = in.Actor.Subject
	}

	return s.repo.Create(ctx, m, rec)
}

func (s *queryService) Update(ctx context.Context, in MutateInput) (model.Record, error) {
	m, err := s.writableModel(in.Model, in.Actor)
	if err != nil {
		return nil, err
	}
	if in.ID == "" {
		return nil, ErrIDRequired
	}

	existing, err := s.repo.FindByID(ctx, m, in.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if d, denied := s.ownerDenied(m, in.Actor, existing); denied {
		return nil, fmt.Errorf("%w: %s", auth.ErrUnauthorized, d.Message)
	}

	changes, err := coerceValues(m, in.Values)
	if err != nil {
		return nil, err
	}
	changes["updated_at"] = time.Now().UTC()

	return s.repo.Update(ctx, m, in.ID, changes)
}

func (s *queryService) Delete(ctx context.Context, in DeleteInput) error {
	m, err := s.writableModel(in.Model, in.Actor)
	if err != nil {
		return err
	}
	if in.ID == "" {
		return ErrIDRequired
	}

	existing, err := s.repo.FindByID(ctx, m, in.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if d, denied := s.ownerDenied(m, in.Actor, existing); denied {
		return fmt.Errorf("%w: %s", auth.ErrUnauthorized, d.Message)
	}

	return s.repo.Delete(ctx, m, in.ID)
}

func (s *queryService) writableModel(name string, actor auth.Context) (*schema.Model, error) {
	m, ok := s.reg.Model(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	if !m.WriteAllowed(string(actor.Mode)) {
		return nil, fmt.Errorf("%w: auth mode %s cannot write %s", auth.ErrUnauthorized, actor.Mode, m.Name)
	}
	return m, nil
}

// ownerDenied reports whether an owner-scoped record is hidden from a
// userPool actor. apiKey actors see all records of readable models.
func (s *queryService) ownerDenied(m *schema.Model, actor auth.Context, rec model.Record) (ErrorDescriptor, bool) {
	if m.Auth.OwnerField == "" || actor.Mode != auth.ModeUserPool {
		return ErrorDescriptor{}, false
	}
	owner, _ := rec[m.Auth.OwnerField].(string)
	if owner == actor.Subject {
		return ErrorDescriptor{}, false
	}
	return ErrorDescriptor{
		Message:   fmt.Sprintf("not authorized to access %s/%s", m.Name, rec.ID()),
		ErrorType: "Unauthorized",
		RecordID:  rec.ID(),
	}, true
}

// coerceValues validates mutation fields against the schema. Server-managed
// fields cannot be set by the caller.
func coerceValues(m *schema.Model, values map[string]json.RawMessage) (model.Record, error) {
	rec := make(model.Record, len(values))
	for name, raw := range values {
		if serverManaged(m, name) {
			return nil, fmt.Errorf("%w: field %q is server-managed", ErrInvalidInput, name)
		}
		f, ok := m.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q on model %s", ErrInvalidInput, name, m.Name)
		}
		v, err := query.CoerceValue(raw, f)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		rec[name] = v
	}
	return rec, nil
}

func serverManaged(m *schema.Model, name string) bool {
	if name == "id" || name == "created_at" || name == "updated_at" {
		return true
	}
	return m.Auth.OwnerField != "" && name == m.Auth.OwnerField
}
