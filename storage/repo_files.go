package storage

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ListFilter narrows a file listing. A zero UserID means all owners,
// which only the admin surface is allowed to request.
type ListFilter struct {
	UserID     uuid.UUID
	Search     string
	TypePrefix string
	Page       int
	PerPage    int
	WithOwner  bool
}

// Files is the file metadata store.
type Files interface {
	repository.Repository[*StoredFile]

	List(ctx context.Context, filter ListFilter) ([]*StoredFile, int, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	UsageByUser(ctx context.Context) (map[uuid.UUID]FileUsage, error)
	Totals(ctx context.Context) (int, int64, error)
}

// FileUsage is the per-owner aggregate used by the admin report.
type FileUsage struct {
	FileCount    int   `bun:"file_count"`
	TotalStorage int64 `bun:"total_storage"`
}

type files struct {
	repository.Repository[*StoredFile]
	db *bun.DB
}

var _ Files = (*files)(nil)

func NewFilesRepository(db *bun.DB) Files {
	repo := repository.NewRepository[*StoredFile](db, repository.ModelHandlers[*StoredFile]{
		NewRecord: func() *StoredFile { return &StoredFile{} },
		GetID: func(f *StoredFile) uuid.UUID {
			if f == nil {
				return uuid.Nil
			}
			return f.ID
		},
		SetID: func(f *StoredFile, id uuid.UUID) {
			if f != nil {
				f.ID = id
			}
		},
		GetIdentifier: func() string {
			return "file_key"
		},
	})

	return &files{
		Repository: repo,
		db:         db,
	}
}

func (r *files) Create(ctx context.Context, record *StoredFile, criteria ...repository.InsertCriteria) (*StoredFile, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.Create(ctx, record, criteria...)
}

// List returns a page of file rows newest first, plus the total count
// for the filter.
func (r *files) List(ctx context.Context, filter ListFilter) ([]*StoredFile, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = 20
	}

	var records []*StoredFile
	q := r.db.NewSelect().Model(&records)

	if filter.WithOwner {
		q = q.Relation("Owner")
	}

	if filter.UserID != uuid.Nil {
		q = q.Where("?TableAlias.user_id = ?", filter.UserID)
	}

	if filter.Search != "" {
		q = q.Where("lower(?TableAlias.file_name) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}

	if filter.TypePrefix != "" {
		q = q.Where("?TableAlias.file_type LIKE ?", filter.TypePrefix+"%")
	}

	total, err := q.
		Order("created_at DESC").
		Limit(filter.PerPage).
		Offset((filter.Page - 1) * filter.PerPage).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *files) DeleteByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*StoredFile)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

// UsageByUser aggregates file count and bytes per owner.
func (r *files) UsageByUser(ctx context.Context) (map[uuid.UUID]FileUsage, error) {
	var rows []struct {
		UserID       uuid.UUID `bun:"user_id"`
		FileCount    int       `bun:"file_count"`
		TotalStorage int64     `bun:"total_storage"`
	}

	err := r.db.NewSelect().
		Model((*StoredFile)(nil)).
		ColumnExpr("?TableAlias.user_id AS user_id").
		ColumnExpr("count(*) AS file_count").
		ColumnExpr("coalesce(sum(?TableAlias.file_size), 0) AS total_storage").
		Group("user_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	usage := make(map[uuid.UUID]FileUsage, len(rows))
	for _, row := range rows {
		usage[row.UserID] = FileUsage{
			FileCount:    row.FileCount,
			TotalStorage: row.TotalStorage,
		}
	}

	return usage, nil
}

// Totals returns the global file count and byte total.
func (r *files) Totals(ctx context.Context) (int, int64, error) {
	var row struct {
		TotalFiles   int   `bun:"total_files"`
		TotalStorage int64 `bun:"total_storage"`
	}

	err := r.db.NewSelect().
		Model((*StoredFile)(nil)).
		ColumnExpr("count(*) AS total_files").
		ColumnExpr("coalesce(sum(?TableAlias.file_size), 0) AS total_storage").
		Scan(ctx, &row)
	if err != nil {
		return 0, 0, err
	}

	return row.TotalFiles, row.TotalStorage, nil
}
