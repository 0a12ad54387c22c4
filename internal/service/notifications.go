package service

import (
	"context"
	"fmt"
	"strings"

	"lira-rate-alerts/internal/storage"
)

// NotificationList is a user's inbox.
type NotificationList struct {
	Notifications []storage.Notification `json:"notifications"`
	UnreadCount   int64                  `json:"unread_count"`
}

// ListNotifications returns the inbox of userID, newest first.
func (s *Service) ListNotifications(ctx context.Context, userID int64) (NotificationList, error) {
	notes, err := s.store.ListNotifications(ctx, userID)
	if err != nil {
		return NotificationList{}, fmt.Errorf("list notifications: %w", err)
	}
	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return NotificationList{}, fmt.Errorf("count unread: %w", err)
	}
	return NotificationList{Notifications: notes, UnreadCount: unread}, nil
}

// ownedNotification hides other users' notifications behind ErrNotFound.
func (s *Service) ownedNotification(ctx context.Context, userID, id int64) (storage.Notification, error) {
	note, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return storage.Notification{}, err
	}
	if note.UserID != userID {
		return storage.Notification{}, storage.ErrNotFound
	}
	return note, nil
}

// MarkNotificationRead flags one of the user's notifications as read.
func (s *Service) MarkNotificationRead(ctx context.Context, userID, id int64) (storage.Notification, error) {
	note, err := s.ownedNotification(ctx, userID, id)
	if err != nil {
		return storage.Notification{}, err
	}
	if err := s.store.MarkNotificationRead(ctx, id); err != nil {
		return storage.Notification{}, fmt.Errorf("mark read: %w", err)
	}
	note.IsRead = true
	return note, nil
}

// DeleteNotification removes one of the user's notifications.
func (s *Service) DeleteNotification(ctx context.Context, userID, id int64) error {
	if _, err := s.ownedNotification(ctx, userID, id); err != nil {
		return err
	}
	return s.store.DeleteNotification(ctx, id)
}

// ClearNotifications removes every notification of the user.
func (s *Service) ClearNotifications(ctx context.Context, userID int64) error {
	return s.store.DeleteNotificationsForUser(ctx, userID)
}

// SendNotification writes an administrative notification to userID.
func (s *Service) SendNotification(ctx context.Context, userID int64, title, message string) (storage.Notification, error) {
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if userID <= 0 {
		return storage.Notification{}, invalid("user_id is required")
	}
	if title == "" || message == "" {
		return storage.Notification{}, invalid("title and message are required")
	}

	note, err := s.store.InsertNotification(ctx, storage.Notification{
		UserID:    userID,
		Title:     title,
		Message:   message,
		CreatedAt: s.now(),
	})
	if err != nil {
		return storage.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	s.logger.Info().Int64("user_id", userID).Int64("notification_id", note.ID).Msg("administrative notification sent")
	return note, nil
}
