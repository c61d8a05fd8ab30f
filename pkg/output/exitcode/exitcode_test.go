package exitcode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/collection"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/config"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/credentials"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/output/writers"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/veracode"
)

func TestFromError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, Success},
		{"cancelled", fmt.Errorf("aggregate: %w", context.Canceled), Interrupted},
		{"deadline", context.DeadlineExceeded, Interrupted},
		{"invalid config", fmt.Errorf("%w: concurrency must be positive", config.ErrInvalidConfig), Configuration},
		{"missing flag", fmt.Errorf("%w: collection", config.ErrMissingRequired), Configuration},
		{"scan type", fmt.Errorf("%w: \"IAST\"", finding.ErrUnknownScanType), Configuration},
		{"format", fmt.Errorf("%w: \"xlsx\"", writers.ErrUnknownFormat), Configuration},
		{"auth config", &credentials.AuthConfigError{Source: "environment", Reason: "no key"}, Auth},
		{"unauthorized", &veracode.APIError{StatusCode: 401, Method: "GET", Path: "/x"}, Auth},
		{"not found", &collection.NotFoundError{Identifier: collection.ByName("Payments")}, NotFound},
		{"ambiguous", &collection.AmbiguousNameError{Name: "Payments", GUIDs: []string{"a", "b"}}, NotFound},
		{"schema", finding.Unrecognized("findings", "severity", "9"), Schema},
		{"render", &writers.RenderError{Format: "pdf", Err: errors.New("boom")}, Render},
		{"server error", &veracode.APIError{StatusCode: 500, Method: "GET", Path: "/x"}, API},
		{"other", errors.New("dial tcp: connection refused"), API},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FromError(tt.err))
		})
	}
}

func TestManager_Priority(t *testing.T) {
	t.Parallel()
	m := New()
	code, _ := m.ExitCode()
	assert.Equal(t, Success, code)

	m.RecordPartial(2)
	code, reason := m.ExitCode()
	assert.Equal(t, Partial, code)
	assert.Contains(t, reason, "assets: 2")

	m.Record(&writers.RenderError{Format: "pdf", Err: errors.New("boom")})
	code, reason = m.ExitCode()
	assert.Equal(t, Render, code)
	assert.Contains(t, reason, "boom")

	m.SetInterrupted()
	code, _ = m.ExitCode()
	assert.Equal(t, Interrupted, code)
}

func TestManager_IgnoresNil(t *testing.T) {
	t.Parallel()
	m := New()
	assert.Equal(t, Success, m.Record(nil))
	m.RecordPartial(0)
	code, _ := m.ExitCode()
	assert.Equal(t, Success, code)
}

func TestManager_Concurrent(t *testing.T) {
	t.Parallel()
	m := New()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.RecordPartial(1)
		}()
		go func() {
			defer wg.Done()
			m.Record(&writers.RenderError{Format: "csv", Err: errors.New("x")})
		}()
	}
	wg.Wait()
	code, _ := m.ExitCode()
	assert.Equal(t, Render, code)
}

func TestCodeStrings(t *testing.T) {
	t.Parallel()
	for _, code := range append([]Code{Success}, priority...) {
		assert.NotContains(t, CodeString(code), "unknown", code)
		assert.NotContains(t, CodeDescription(code), "Unknown", code)
	}
	assert.Equal(t, "unknown_code_42", CodeString(42))
	assert.Equal(t, "partial_failures", Partial.String())
}

func TestCodeValues(t *testing.T) {
	t.Parallel()
	want := map[Code]int{
		Success: 0, Partial: 1, Render: 2, Configuration: 3, Auth: 4,
		NotFound: 5, Schema: 6, Interrupted: 7, API: 8,
	}
	for code, n := range want {
		assert.Equal(t, n, int(code))
	}
}
