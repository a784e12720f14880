package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"notification-service/internal/auth"
	"notification-service/internal/models"
)

type OutboxRepositoryMock struct {
	mock.Mock
}

func (m *OutboxRepositoryMock) PendingEvents(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	var events []models.OutboxEvent
	if val := args.Get(0); val != nil {
		events = val.([]models.OutboxEvent)
	}
	return events, args.Error(1)
}

func (m *OutboxRepositoryMock) MarkBroadcasting(ctx context.Context, eventID int64) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *OutboxRepositoryMock) FinishBroadcast(ctx context.Context, eventID int64, total, successful, failed int) error {
	args := m.Called(ctx, eventID, total, successful, failed)
	return args.Error(0)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) UnreadForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	args := m.Called(ctx, userID)
	var notifications []models.Notification
	if val := args.Get(0); val != nil {
		notifications = val.([]models.Notification)
	}
	return notifications, args.Error(1)
}

func (m *NotificationRepositoryMock) UnreadCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, userID string, notificationIDs []int64) error {
	args := m.Called(ctx, userID, notificationIDs)
	return args.Error(0)
}

type TokenValidatorMock struct {
	mock.Mock
}

func (m *TokenValidatorMock) Validate(ctx context.Context, token string) (auth.Identity, error) {
	args := m.Called(ctx, token)
	var identity auth.Identity
	if val := args.Get(0); val != nil {
		identity = val.(auth.Identity)
	}
	return identity, args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
