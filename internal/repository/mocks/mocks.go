package mocks

import (
	"context"

	"github.com/leomorozovskii/erc721-rent/internal/domain/event"
	"github.com/leomorozovskii/erc721-rent/internal/domain/rent"
	"github.com/stretchr/testify/mock"
)

// RentRepository is a mock for rent.Repository.
type RentRepository struct {
	mock.Mock
}

func (m *RentRepository) Get(ctx context.Context, key rent.Key) (*rent.Rent, error) {
	args := m.Called(ctx, key)
	if rec, ok := args.Get(0).(*rent.Rent); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RentRepository) Save(ctx context.Context, r *rent.Rent) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *RentRepository) Delete(ctx context.Context, key rent.Key) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *RentRepository) List(ctx context.Context, opts rent.ListOptions) ([]rent.Rent, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]rent.Rent); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// EventRepository is a mock for event.Repository.
type EventRepository struct {
	mock.Mock
}

func (m *EventRepository) Log(ctx context.Context, evt *event.Event) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *EventRepository) List(ctx context.Context, opts event.ListOptions) ([]event.Event, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]event.Event); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Notifier is a mock for rent.Notifier.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) Notify(ctx context.Context, evt *event.Event) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}
