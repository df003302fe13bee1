package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/yashrajoria/fulfillment-service/models"
	"github.com/yashrajoria/fulfillment-service/repository"
	"github.com/yashrajoria/fulfillment-service/sender"
	"github.com/yashrajoria/fulfillment-service/worker"
	"go.uber.org/zap"
)

// TaskSendNotification is the worker task kind carrying a NotificationJob.
const TaskSendNotification = "notification.send"

type NotificationJob struct {
	UserID  uuid.UUID      `json:"user_id"`
	Title   string         `json:"title"`
	Content string         `json:"content"`
	Type    string         `json:"type"`
	Data    models.JSONMap `json:"data,omitempty"`
}

type NotificationService interface {
	Send(ctx context.Context, userID uuid.UUID, title, content, notificationType string, data models.JSONMap) error
	List(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Notification, int64, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
}

// Notifier implements NotificationService.
type Notifier struct {
	repo   repository.NotificationRepository
	users  repository.UserRepository
	email  sender.EmailSender
	logger *zap.Logger
}

// NewNotificationService stores in-app notifications and mirrors them to
// email when email is non-nil.
func NewNotificationService(
	repo repository.NotificationRepository,
	users repository.UserRepository,
	email sender.EmailSender,
	logger *zap.Logger,
) *Notifier {
	return &Notifier{repo: repo, users: users, email: email, logger: logger}
}

// Send persists the notification. Email delivery is best effort: a failure
// is logged and does not fail the call.
func (s *Notifier) Send(ctx context.Context, userID uuid.UUID, title, content, notificationType string, data models.JSONMap) error {
	n := &models.Notification{
		UserID:  userID,
		Title:   title,
		Content: content,
		Type:    notificationType,
		Data:    data,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	if s.email == nil {
		return nil
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.logger.Warn("notification recipient lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil
	}
	if user.Email == "" {
		return nil
	}
	res, err := s.email.SendEmail(ctx, user.Email, title, content)
	if err != nil {
		s.logger.Warn("notification email failed",
			zap.String("user_id", userID.String()),
			zap.String("type", notificationType),
			zap.Error(err),
		)
		return nil
	}
	s.logger.Debug("notification email sent", zap.String("message_id", res.MessageID), zap.String("type", notificationType))
	return nil
}

func (s *Notifier) List(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Notification, int64, error) {
	page, limit = normalizePage(page, limit)
	return s.repo.ListByUser(ctx, userID, page, limit)
}

func (s *Notifier) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, id)
}

// HandleTask is the worker handler for TaskSendNotification.
func (s *Notifier) HandleTask(ctx context.Context, task worker.Task) error {
	var job NotificationJob
	if err := json.Unmarshal(task.Payload, &job); err != nil {
		// a malformed payload will never succeed; drop it
		s.logger.Error("bad notification payload", zap.String("task_id", task.ID), zap.Error(err))
		return nil
	}
	return s.Send(ctx, job.UserID, job.Title, job.Content, job.Type, job.Data)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
