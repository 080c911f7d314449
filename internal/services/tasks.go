package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskify/backend/internal/models"
	"taskify/backend/internal/repositories"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
)

type CreateTaskRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description" binding:"required"`
}

type UpdateTaskRequest struct {
	UUID        string `json:"uuid" binding:"required,uuid"`
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description" binding:"required"`
}

type UpdateTaskStatusRequest struct {
	UUID   string            `json:"uuid" binding:"required,uuid"`
	Status models.TaskStatus `json:"status" binding:"required,task_status"`
}

type ListTasksQuery struct {
	Status   models.TaskStatus
	Page     int
	PageSize int
}

type TaskPage struct {
	Tasks    []models.Task `json:"tasks"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

type TaskService interface {
	CreateTask(ctx context.Context, userID uint, req CreateTaskRequest) (*models.Task, error)
	GetTask(ctx context.Context, userID uint, id uuid.UUID) (*models.Task, error)
	ListTasks(ctx context.Context, userID uint, query ListTasksQuery) (*TaskPage, error)
	PastTasks(ctx context.Context, userID uint) ([]models.Task, error)
	UpdateTask(ctx context.Context, user *models.User, req UpdateTaskRequest) (*models.Task, error)
	UpdateTaskStatus(ctx context.Context, user *models.User, req UpdateTaskStatusRequest) (*models.Task, error)
	DeleteTask(ctx context.Context, user *models.User, id uuid.UUID) error
}

type TaskServiceImpl struct {
	tasks         *repositories.TaskRepository
	notifications NotificationQueue
	log           zerolog.Logger
}

func NewTaskService(tasks *repositories.TaskRepository, notifications NotificationQueue, log zerolog.Logger) *TaskServiceImpl {
	if notifications == nil {
		notifications = NoopNotifications()
	}
	return &TaskServiceImpl{tasks: tasks, notifications: notifications, log: log}
}

func (s *TaskServiceImpl) CreateTask(ctx context.Context, userID uint, req CreateTaskRequest) (*models.Task, error) {
	task := &models.Task{
		UserID:      userID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      models.TaskStatusPending,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskServiceImpl) GetTask(ctx context.Context, userID uint, id uuid.UUID) (*models.Task, error) {
	return s.tasks.FindByUUID(ctx, userID, id)
}

func (s *TaskServiceImpl) ListTasks(ctx context.Context, userID uint, query ListTasksQuery) (*TaskPage, error) {
	if query.Status != "" && !query.Status.IsValid() {
		return nil, ErrInvalidTaskStatus
	}
	tasks, total, err := s.tasks.List(ctx, userID, repositories.TaskFilter{
		Status:   query.Status,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		return nil, err
	}
	return &TaskPage{Tasks: tasks, Total: total, Page: query.Page, PageSize: query.PageSize}, nil
}

func (s *TaskServiceImpl) PastTasks(ctx context.Context, userID uint) ([]models.Task, error) {
	tasks, _, err := s.tasks.List(ctx, userID, repositories.TaskFilter{Status: models.TaskStatusCompleted})
	return tasks, err
}

func (s *TaskServiceImpl) UpdateTask(ctx context.Context, user *models.User, req UpdateTaskRequest) (*models.Task, error) {
	id, err := uuid.FromString(req.UUID)
	if err != nil {
		return nil, ErrTaskNotFound
	}
	task, err := s.tasks.FindByUUID(ctx, user.ID, id)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if err := s.tasks.Update(ctx, task, map[string]interface{}{
		"title":       title,
		"description": req.Description,
	}); err != nil {
		return nil, err
	}
	task.Title = title
	task.Description = req.Description

	s.notify(ctx, user, "Task updated Successfully "+task.Title)
	return task, nil
}

// UpdateTaskStatus moves a pending task to a new status. Completed and
// cancelled tasks only accept their current status, which is a no-op.
func (s *TaskServiceImpl) UpdateTaskStatus(ctx context.Context, user *models.User, req UpdateTaskStatusRequest) (*models.Task, error) {
	if !req.Status.IsValid() {
		return nil, ErrInvalidTaskStatus
	}
	id, err := uuid.FromString(req.UUID)
	if err != nil {
		return nil, ErrTaskNotFound
	}
	task, err := s.tasks.FindByUUID(ctx, user.ID, id)
	if err != nil {
		return nil, err
	}

	if !task.Status.CanTransitionTo(req.Status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, task.Status, req.Status)
	}
	if task.Status == req.Status {
		return task, nil
	}

	if err := s.tasks.UpdateStatus(ctx, task, req.Status); err != nil {
		if errors.Is(err, repositories.ErrTaskStatusChanged) {
			return s.settledStatus(ctx, user, id, req.Status)
		}
		return nil, err
	}
	task.Status = req.Status

	s.notify(ctx, user, "Task Status Updated Successfully "+task.Title)
	return task, nil
}

// settledStatus resolves a lost status race. A concurrent writer that set
// the same status makes this call a no-op; any other outcome is terminal.
func (s *TaskServiceImpl) settledStatus(ctx context.Context, user *models.User, id uuid.UUID, want models.TaskStatus) (*models.Task, error) {
	current, err := s.tasks.FindByUUID(ctx, user.ID, id)
	if err != nil {
		return nil, err
	}
	if current.Status == want {
		return current, nil
	}
	return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, current.Status, want)
}

func (s *TaskServiceImpl) DeleteTask(ctx context.Context, user *models.User, id uuid.UUID) error {
	task, err := s.tasks.FindByUUID(ctx, user.ID, id)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, user.ID, id); err != nil {
		return err
	}
	s.notify(ctx, user, "Task deleted Successfully "+task.Title)
	return nil
}

func (s *TaskServiceImpl) notify(ctx context.Context, user *models.User, message string) {
	if user.PhoneNumber == "" {
		return
	}
	if err := s.notifications.EnqueueTaskSMS(ctx, user.PhoneNumber, message); err != nil {
		s.log.Warn().Err(err).Str("user_uuid", user.UUID.String()).Msg("Failed to enqueue task SMS")
	}
}
