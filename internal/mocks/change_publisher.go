package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/smartmarks-server/internal/model"
)

var _ model.ChangePublisher = (*ChangePublisher)(nil)

type ChangePublisher struct {
	mock.Mock
}

func NewChangePublisher(t testingT) *ChangePublisher {
	m := &ChangePublisher{}
	register(&m.Mock, t)
	return m
}

func (m *ChangePublisher) Publish(ctx context.Context, event model.ChangeEvent) error {
	return m.Called(ctx, event).Error(0)
}
