package marketplace

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Providers is the provider profile store.
type Providers interface {
	repository.Repository[*Provider]

	GetByEmail(ctx context.Context, email string) (*Provider, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Provider, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Provider, error)
	List(ctx context.Context, page, perPage int) ([]*Provider, int, error)
	SetOTP(ctx context.Context, id uuid.UUID, otp string) error
	ClearOTP(ctx context.Context, id uuid.UUID) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
	AddDocument(ctx context.Context, id uuid.UUID, key string) error
}

type providers struct {
	repository.Repository[*Provider]
	db *bun.DB
}

var _ Providers = (*providers)(nil)

func NewProvidersRepository(db *bun.DB) Providers {
	repo := repository.NewRepository[*Provider](db, repository.ModelHandlers[*Provider]{
		NewRecord: func() *Provider { return &Provider{} },
		GetID: func(p *Provider) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Provider, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &providers{
		Repository: repo,
		db:         db,
	}
}

func (r *providers) Create(ctx context.Context, record *Provider, criteria ...repository.InsertCriteria) (*Provider, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *providers) CreateTx(ctx context.Context, tx bun.IDB, record *Provider, criteria ...repository.InsertCriteria) (*Provider, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (r *providers) GetByEmail(ctx context.Context, email string) (*Provider, error) {
	return r.GetByEmailTx(ctx, r.db, email)
}

func (r *providers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Provider, error) {
	record := &Provider{}
	err := tx.NewSelect().
		Model(record).
		Relation("User").
		Relation("State").
		Relation("City").
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}

	return record, nil
}

func (r *providers) GetByUserID(ctx context.Context, userID uuid.UUID) (*Provider, error) {
	record := &Provider{}
	err := r.db.NewSelect().
		Model(record).
		Relation("User").
		Relation("State").
		Relation("City").
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"user_id": userID.String()})
		}
		return nil, err
	}

	return record, nil
}

// List returns a page of providers with owner and location info.
func (r *providers) List(ctx context.Context, page, perPage int) ([]*Provider, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	var records []*Provider
	total, err := r.db.NewSelect().
		Model(&records).
		Relation("User").
		Relation("State").
		Relation("City").
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// SetOTP stores a fresh code and stamps its creation time, restarting
// the expiry window.
func (r *providers) SetOTP(ctx context.Context, id uuid.UUID, otp string) error {
	_, err := r.db.NewUpdate().
		Model((*Provider)(nil)).
		Set("otp = ?", otp).
		Set("otp_created_at = CURRENT_TIMESTAMP").
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

// ClearOTP removes a consumed code without touching the verified flag.
func (r *providers) ClearOTP(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewUpdate().
		Model((*Provider)(nil)).
		Set("otp = NULL").
		Set("otp_created_at = NULL").
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

// MarkVerified flips the verified flag and clears the used code.
func (r *providers) MarkVerified(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewUpdate().
		Model((*Provider)(nil)).
		Set("is_verified = ?", true).
		Set("otp = NULL").
		Set("otp_created_at = NULL").
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

// AddDocument appends an object key to the provider document list. The
// list is read back and rewritten so the append works on both dialects.
func (r *providers) AddDocument(ctx context.Context, id uuid.UUID, key string) error {
	record := &Provider{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return err
	}

	record.Documents = append(record.Documents, key)
	now := time.Now()
	record.UpdatedAt = &now

	_, err = r.db.NewUpdate().
		Model(record).
		Column("documents", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

// States is the state reference store.
type States interface {
	repository.Repository[*State]
	List(ctx context.Context) ([]*State, error)
}

type states struct {
	repository.Repository[*State]
	db *bun.DB
}

var _ States = (*states)(nil)

func NewStatesRepository(db *bun.DB) States {
	repo := repository.NewRepository[*State](db, repository.ModelHandlers[*State]{
		NewRecord: func() *State { return &State{} },
		GetID: func(s *State) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *State, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
		GetIdentifier: func() string {
			return "code"
		},
	})

	return &states{Repository: repo, db: db}
}

func (r *states) Create(ctx context.Context, record *State, criteria ...repository.InsertCriteria) (*State, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.Create(ctx, record, criteria...)
}

func (r *states) List(ctx context.Context) ([]*State, error) {
	var records []*State
	err := r.db.NewSelect().
		Model(&records).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Cities is the city reference store.
type Cities interface {
	repository.Repository[*City]
	List(ctx context.Context) ([]*City, error)
	ListByState(ctx context.Context, stateID uuid.UUID) ([]*City, error)
}

type cities struct {
	repository.Repository[*City]
	db *bun.DB
}

var _ Cities = (*cities)(nil)

func NewCitiesRepository(db *bun.DB) Cities {
	repo := repository.NewRepository[*City](db, repository.ModelHandlers[*City]{
		NewRecord: func() *City { return &City{} },
		GetID: func(c *City) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *City, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &cities{Repository: repo, db: db}
}

func (r *cities) Create(ctx context.Context, record *City, criteria ...repository.InsertCriteria) (*City, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.Create(ctx, record, criteria...)
}

func (r *cities) List(ctx context.Context) ([]*City, error) {
	var records []*City
	err := r.db.NewSelect().
		Model(&records).
		Relation("State").
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *cities) ListByState(ctx context.Context, stateID uuid.UUID) ([]*City, error) {
	var records []*City
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.state_id = ?", stateID).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}
