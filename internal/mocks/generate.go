// Package mocks provides mock implementations for testing the applyflow system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the ports in internal/core. The mocks are generated using go:generate
// directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	repo := mocks.NewMockApplicationRepository(ctrl)
//	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(app, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=application_repository_mock.go github.com/applyflow/applyflow-api/internal/core ApplicationRepository

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=user_repository_mock.go github.com/applyflow/applyflow-api/internal/core UserRepository

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=session_store_mock.go github.com/applyflow/applyflow-api/internal/core SessionStore

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=automation_runner_mock.go github.com/applyflow/applyflow-api/internal/core AutomationRunner

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=cancel_bus_mock.go github.com/applyflow/applyflow-api/internal/core CancelBus
