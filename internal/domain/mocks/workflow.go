// Package mocks provides testify mocks of the domain interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"splice.dev/pkg/splice/internal/domain"
	m "splice.dev/pkg/splice/internal/model"
)

// MockWorkflow is a mock of domain.Workflow.
type MockWorkflow struct {
	mock.Mock
}

var _ domain.Workflow = (*MockWorkflow)(nil)

// NewMockWorkflow creates a MockWorkflow whose expectations are asserted when
// the test ends.
func NewMockWorkflow(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorkflow {
	w := &MockWorkflow{}
	w.Mock.Test(t)

	t.Cleanup(func() { w.AssertExpectations(t) })

	return w
}

// Discover provides a mock function.
func (w *MockWorkflow) Discover(args domain.BuildArgs) ([]m.File, error) {
	ret := w.Called(args)

	var files []m.File
	if v, ok := ret.Get(0).([]m.File); ok {
		files = v
	}

	return files, ret.Error(1)
}

// Build provides a mock function.
func (w *MockWorkflow) Build(ctx context.Context, args domain.BuildArgs) error {
	return w.Called(ctx, args).Error(0)
}

// Check provides a mock function.
func (w *MockWorkflow) Check(ctx context.Context, args domain.BuildArgs) error {
	return w.Called(ctx, args).Error(0)
}

// List provides a mock function.
func (w *MockWorkflow) List(ctx context.Context, args domain.BuildArgs) error {
	return w.Called(ctx, args).Error(0)
}

// Journal provides a mock function.
func (w *MockWorkflow) Journal(ctx context.Context) ([]m.Evaluation, error) {
	ret := w.Called(ctx)

	var entries []m.Evaluation
	if v, ok := ret.Get(0).([]m.Evaluation); ok {
		entries = v
	}

	return entries, ret.Error(1)
}
