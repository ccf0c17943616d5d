package provider

import (
	"context"
	"sync"
)

// MockTextGenerator provides scripted completions for testing. Responses
// are consumed in order; the last entry repeats once the script runs out.
type MockTextGenerator struct {
	mu        sync.Mutex
	Responses []Completion
	Errs      []error
	Calls     int
}

func (m *MockTextGenerator) Complete(ctx context.Context, systemPrompt, userPrompt string) (Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.Calls
	m.Calls++
	if idx < len(m.Errs) && m.Errs[idx] != nil {
		return Completion{}, m.Errs[idx]
	}
	if len(m.Responses) == 0 {
		return Completion{Text: `{"narration": "Mock narration.", "image_prompt": "mock scene", "quick_actions": ["Continue"]}`}, nil
	}
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

// MockModerator flags every input when FlagAll is set, or fails each call
// with Err to simulate a moderation outage.
type MockModerator struct {
	FlagAll bool
	Err     error
	Calls   int
}

func (m *MockModerator) Moderate(ctx context.Context, text string) (bool, error) {
	m.Calls++
	if m.Err != nil {
		return false, m.Err
	}
	return m.FlagAll, nil
}

// MockImageGenerator returns a fixed URL or a scripted error per call.
type MockImageGenerator struct {
	mu    sync.Mutex
	URL   string
	Errs  []error
	Calls int
}

func (m *MockImageGenerator) Generate(ctx context.Context, req ImageRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.Calls
	m.Calls++
	if idx < len(m.Errs) && m.Errs[idx] != nil {
		return "", m.Errs[idx]
	}
	if m.URL == "" {
		return "https://images.example.com/mock.png", nil
	}
	return m.URL, nil
}
