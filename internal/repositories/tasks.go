package repositories

import (
	"context"
	"errors"
	"fmt"
	"math"

	"taskify/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskStatusChanged = errors.New("task status changed concurrently")
)

type TaskFilter struct {
	Status   models.TaskStatus
	Page     int
	PageSize int
}

func (f TaskFilter) offset() int {
	if f.Page <= 1 || f.PageSize <= 0 {
		return 0
	}
	if f.Page-1 > math.MaxInt32/f.PageSize {
		return math.MaxInt32
	}
	return (f.Page - 1) * f.PageSize
}

// TaskRepository scopes every query by the owning user id. A task owned by
// someone else is reported as ErrTaskNotFound.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByUUID(ctx context.Context, userID uint, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Where("uuid = ? AND user_id = ?", id, userID).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) List(ctx context.Context, userID uint, filter TaskFilter) ([]models.Task, int64, error) {
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Task{}).Where("user_id = ?", userID)
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	tasks := make([]models.Task, 0)
	q := scoped().Order("created_at DESC").Order("id DESC")
	if filter.PageSize > 0 {
		q = q.Limit(filter.PageSize).Offset(filter.offset())
	}
	if err := q.Find(&tasks).Error; err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, total, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *models.Task, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(task).
		Where("user_id = ?", task.UserID).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// UpdateStatus moves the task to status only if its stored status still
// equals task.Status. ErrTaskStatusChanged means another writer got there
// first.
func (r *TaskRepository) UpdateStatus(ctx context.Context, task *models.Task, status models.TaskStatus) error {
	res := r.db.WithContext(ctx).
		Model(task).
		Where("user_id = ? AND status = ?", task.UserID, task.Status).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("update task status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByUUID(ctx, task.UserID, task.UUID); err != nil {
			return err
		}
		return ErrTaskStatusChanged
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, userID uint, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("uuid = ? AND user_id = ?", id, userID).
		Delete(&models.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}
