package repositories

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"todo-notes/internal/models"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// todoRecord is the row layout created by the goose migrations.
type todoRecord struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	Title       string    `gorm:"not null"`
	Description string    `gorm:"not null;default:''"`
	Date        time.Time `gorm:"not null"`
}

func (todoRecord) TableName() string {
	return "todos"
}

func (r todoRecord) toModel() models.Todo {
	return models.Todo{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Date:        r.Date.UTC(),
	}
}

// GormTodoRepository stores todos in postgres or sqlite. Ids are v7 UUIDs,
// so the id DESC tie-break on equal dates lists newer todos first.
type GormTodoRepository struct {
	db    *gorm.DB
	now   func() time.Time
	newID func() (uuid.UUID, error)

	idMu   sync.Mutex
	lastID uuid.UUID
}

func NewGormTodoRepository(db *gorm.DB) *GormTodoRepository {
	return &GormTodoRepository{db: db, now: time.Now, newID: uuid.NewV7}
}

// nextID returns an id greater than every id this repository issued before.
// The v7 counter is only 12 bits wide and may wrap inside one millisecond;
// when it does, the previous id is bumped instead.
func (r *GormTodoRepository) nextID() (uuid.UUID, error) {
	id, err := r.newID()
	if err != nil {
		return uuid.Nil, err
	}

	r.idMu.Lock()
	defer r.idMu.Unlock()

	if bytes.Compare(id[:], r.lastID[:]) <= 0 {
		id = r.lastID
		binary.BigEndian.PutUint64(id[8:], binary.BigEndian.Uint64(id[8:])+1)
	}
	r.lastID = id
	return id, nil
}

// escapeLike escapes LIKE wildcards so the search term matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (r *GormTodoRepository) scoped(ctx context.Context, search string) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&todoRecord{})
	if search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		tx = tx.Where(`LOWER(title) LIKE ? ESCAPE '\'`, pattern)
	}
	return tx
}

func (r *GormTodoRepository) List(ctx context.Context, q models.ListQuery) ([]models.Todo, int64, error) {
	var total int64
	if err := r.scoped(ctx, q.Search).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count todos: %w", err)
	}

	var records []todoRecord
	err := r.scoped(ctx, q.Search).
		Order("date DESC").
		Order("id DESC").
		Offset(q.Skip()).
		Limit(q.Limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list todos: %w", err)
	}

	todos := make([]models.Todo, 0, len(records))
	for _, rec := range records {
		todos = append(todos, rec.toModel())
	}
	return todos, total, nil
}

func (r *GormTodoRepository) Get(ctx context.Context, id string) (models.Todo, error) {
	rec, err := r.find(r.db.WithContext(ctx), id)
	if err != nil {
		return models.Todo{}, err
	}
	return rec.toModel(), nil
}

func (r *GormTodoRepository) find(tx *gorm.DB, id string) (todoRecord, error) {
	var rec todoRecord

	if _, err := uuid.FromString(id); err != nil {
		return rec, ErrNotFound
	}

	err := tx.Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("failed to get todo: %w", err)
	}
	return rec, nil
}

func (r *GormTodoRepository) Create(ctx context.Context, input models.TodoInput) (models.Todo, error) {
	id, err := r.nextID()
	if err != nil {
		return models.Todo{}, fmt.Errorf("failed to generate todo ID: %w", err)
	}

	rec := todoRecord{
		ID:          id.String(),
		Title:       input.Title,
		Description: input.Description,
		Date:        r.now().UTC().Truncate(time.Millisecond),
	}

	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return models.Todo{}, translateSQLError("create", err)
	}
	return rec.toModel(), nil
}

func (r *GormTodoRepository) Update(ctx context.Context, id string, patch models.TodoPatch) (models.Todo, error) {
	var rec todoRecord

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if rec, err = r.find(tx, id); err != nil {
			return err
		}

		if patch.IsEmpty() {
			return nil
		}

		if err := tx.Model(&todoRecord{}).Where("id = ?", id).Updates(patch.Fields()).Error; err != nil {
			return translateSQLError("update", err)
		}

		rec, err = r.find(tx, id)
		return err
	})
	if err != nil {
		return models.Todo{}, err
	}

	return rec.toModel(), nil
}

func (r *GormTodoRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.FromString(id); err != nil {
		return ErrNotFound
	}

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&todoRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete todo: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormTodoRepository) Health() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx)
}

// translateSQLError maps constraint violations (postgres class 23, sqlite
// "constraint failed") onto ErrValidation.
func translateSQLError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return fmt.Errorf("%w: %s", ErrValidation, pgErr.Message)
	}

	if strings.Contains(strings.ToLower(err.Error()), "constraint failed") {
		return fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	return fmt.Errorf("failed to %s todo: %w", op, err)
}
