package llm

import "context"

// MockClient implements the Client interface for testing.
type MockClient struct {
	CompleteFn   func(ctx context.Context, req Request) (*Response, error)
	ProviderName string
}

func (m *MockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, req)
	}
	return &Response{Model: req.Model}, nil
}

func (m *MockClient) Provider() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}
