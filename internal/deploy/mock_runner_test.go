package deploy

import (
	"context"
	"strings"
	"sync"

	"github.com/podnetlabs/podfw/internal/rcc"
)

// mockCall records a single Run invocation.
type mockCall struct {
	Host    string
	Payload string
}

// mockRunner is a test double for rcc.Runner. It records all calls and
// returns configured results matched by payload substring, first match wins.
type mockRunner struct {
	mu sync.Mutex

	calls []mockCall

	// results maps a payload substring to the result to return.
	results []mockResult
}

type mockResult struct {
	payloadContains string
	hostIs          string
	result          rcc.Result
}

func (m *mockRunner) Run(ctx context.Context, host, payload string) rcc.Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, mockCall{Host: host, Payload: payload})
	for _, r := range m.results {
		if r.hostIs != "" && r.hostIs != host {
			continue
		}
		if strings.Contains(payload, r.payloadContains) {
			return r.result
		}
	}
	return rcc.Result{}
}

// on configures the result for payloads containing substr on any host.
func (m *mockRunner) on(substr string, result rcc.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, mockResult{payloadContains: substr, result: result})
}

// onHost configures the result for payloads containing substr on one host.
func (m *mockRunner) onHost(host, substr string, result rcc.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, mockResult{payloadContains: substr, hostIs: host, result: result})
}

func (m *mockRunner) callsFor(host string) []mockCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []mockCall
	for _, c := range m.calls {
		if c.Host == host {
			out = append(out, c)
		}
	}
	return out
}
