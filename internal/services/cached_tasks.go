package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskify/backend/internal/cache"
	"taskify/backend/internal/models"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
)

const (
	taskListTTL = 5 * time.Minute
	pastTaskTTL = 10 * time.Minute
)

// CachedTaskService serves task reads from Redis and drops every cached list
// of a user whenever one of that user's tasks changes. Cache failures are
// logged and never fail the call.
type CachedTaskService struct {
	taskService TaskService
	cache       *cache.RedisCache
	metrics     *cache.CacheMetrics
	log         zerolog.Logger
}

func NewCachedTaskService(taskService TaskService, redisCache *cache.RedisCache, log zerolog.Logger) *CachedTaskService {
	return &CachedTaskService{
		taskService: taskService,
		cache:       redisCache,
		metrics:     cache.NewCacheMetrics(),
		log:         log,
	}
}

func userTasksPattern(userID uint) string {
	return fmt.Sprintf("user_tasks:%d:*", userID)
}

func taskListKey(userID uint, q ListTasksQuery) string {
	status := string(q.Status)
	if status == "" {
		status = "all"
	}
	return fmt.Sprintf("user_tasks:%d:%s:%d:%d", userID, status, q.Page, q.PageSize)
}

func pastTasksKey(userID uint) string {
	return fmt.Sprintf("user_tasks:%d:past", userID)
}

func (s *CachedTaskService) CreateTask(ctx context.Context, userID uint, req CreateTaskRequest) (*models.Task, error) {
	task, err := s.taskService.CreateTask(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return task, nil
}

func (s *CachedTaskService) GetTask(ctx context.Context, userID uint, id uuid.UUID) (*models.Task, error) {
	return s.taskService.GetTask(ctx, userID, id)
}

func (s *CachedTaskService) ListTasks(ctx context.Context, userID uint, query ListTasksQuery) (*TaskPage, error) {
	key := taskListKey(userID, query)

	var cached TaskPage
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	page, err := s.taskService.ListTasks(ctx, userID, query)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, page, taskListTTL)
	return page, nil
}

func (s *CachedTaskService) PastTasks(ctx context.Context, userID uint) ([]models.Task, error) {
	key := pastTasksKey(userID)

	var cached []models.Task
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}

	tasks, err := s.taskService.PastTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, tasks, pastTaskTTL)
	return tasks, nil
}

func (s *CachedTaskService) UpdateTask(ctx context.Context, user *models.User, req UpdateTaskRequest) (*models.Task, error) {
	task, err := s.taskService.UpdateTask(ctx, user, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, user.ID)
	return task, nil
}

func (s *CachedTaskService) UpdateTaskStatus(ctx context.Context, user *models.User, req UpdateTaskStatusRequest) (*models.Task, error) {
	task, err := s.taskService.UpdateTaskStatus(ctx, user, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, user.ID)
	return task, nil
}

func (s *CachedTaskService) DeleteTask(ctx context.Context, user *models.User, id uuid.UUID) error {
	if err := s.taskService.DeleteTask(ctx, user, id); err != nil {
		return err
	}
	s.invalidate(ctx, user.ID)
	return nil
}

func (s *CachedTaskService) GetCacheStats() cache.CacheStats {
	return s.metrics.GetStats()
}

func (s *CachedTaskService) lookup(ctx context.Context, key string, dest interface{}) bool {
	err := s.cache.Get(ctx, key, dest)
	switch {
	case err == nil:
		s.metrics.RecordHit()
		return true
	case errors.Is(err, cache.ErrCacheMiss):
		s.metrics.RecordMiss()
	default:
		s.metrics.RecordError()
		s.log.Debug().Err(err).Str("key", key).Msg("Task cache read failed")
	}
	return false
}

func (s *CachedTaskService) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		s.metrics.RecordError()
		s.log.Debug().Err(err).Str("key", key).Msg("Task cache write failed")
		return
	}
	s.metrics.RecordSet()
}

func (s *CachedTaskService) invalidate(ctx context.Context, userID uint) {
	if err := s.cache.DeletePattern(ctx, userTasksPattern(userID)); err != nil {
		s.metrics.RecordError()
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("Task cache invalidation failed")
		return
	}
	s.metrics.RecordDelete()
}
