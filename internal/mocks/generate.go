// Package mocks provides mock implementations for testing the brief generation engine.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	provider := mocks.NewMockProvider(ctrl)
//	provider.EXPECT().Name().Return("smtp").AnyTimes()
//	provider.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)
package mocks

// Generate mock for Provider interface from internal/delivery package.
// This creates MockProvider with methods: Name, Send
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=delivery_provider_mock.go github.com/periwatch/brief-api/internal/delivery Provider

// Generate mock for Renderer interface from internal/core package.
// This creates MockRenderer with methods: Render
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=renderer_mock.go github.com/periwatch/brief-api/internal/core Renderer

// Generate mock for Deliverer interface from internal/core package.
// This creates MockDeliverer with methods: Send
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=deliverer_mock.go github.com/periwatch/brief-api/internal/core Deliverer

// Generate mock for Sink interface from internal/observability/notify package.
// This creates MockSink with methods: SendJobFailure
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=notify_sink_mock.go github.com/periwatch/brief-api/internal/observability/notify Sink
