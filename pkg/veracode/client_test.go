package veracode_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/credentials"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/testutil"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/veracode"
)

func newClient(t *testing.T, p *testutil.Platform, opts ...veracode.Option) *veracode.Client {
	t.Helper()
	creds := credentials.Credentials{KeyID: testutil.TestKeyID, Secret: testutil.TestKeySecret}
	opts = append([]veracode.Option{
		veracode.WithBaseURL(p.URL),
		veracode.WithHTTPClient(p.Client()),
		veracode.WithRateLimit(0, 0),
	}, opts...)
	c, err := veracode.New(creds, opts...)
	require.NoError(t, err)
	return c
}

func seed(p *testutil.Platform) {
	p.AddApp(testutil.App{GUID: "app-a", Name: "A", ComplianceStatus: "DID_NOT_PASS",
		Scans: []testutil.Scan{{Type: finding.Static, Modified: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}},
		Findings: []testutil.Finding{
			{IssueID: 1, ScanType: finding.Static, Level: 4, CWE: 89, Title: "SQL Injection", FilePath: "db.go", ViolatesPolicy: true},
			{IssueID: 2, ScanType: finding.Static, Level: 4, CWE: 79, Title: "XSS"},
			{IssueID: 3, ScanType: finding.Static, Level: 2, CWE: 327, Title: "Weak Crypto"},
		},
	})
	p.AddApp(testutil.App{GUID: "app-b", Name: "B", ComplianceStatus: "PASSED"})
	p.AddCollection(testutil.Collection{GUID: "coll-1", Name: "PaymentsApp", Members: []string{"app-a", "app-b"}})
	p.AddCollection(testutil.Collection{GUID: "coll-2", Name: "PaymentsApp Legacy"})
}

func TestGetCollection(t *testing.T) {
	t.Parallel()
	p := testutil.NewPlatform(t)
	seed(p)
	c := newClient(t, p)

	coll, err := c.GetCollection(context.Background(), "coll-1")
	require.NoError(t, err)
	assert.Equal(t, "PaymentsApp", coll.Name)
	assert.Equal(t, 2, coll.TotalAssets)
	assert.Equal(t, 1, coll.ComplianceOverview.NotPassingPolicy)
	assert.Equal(t, 1, coll.ComplianceOverview.PassingPolicy)

	_, err = c.GetCollection(context.Background(), "missing")
	assert.ErrorIs(t, err, veracode.ErrNotFound)
	var apiErr *veracode.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestPager_DrainsAllPagesAndRestarts(t *testing.T) {
	t.Parallel()
	p := testutil.NewPlatform(t)
	for i := range 7 {
		p.AddCollection(testutil.Collection{GUID: string(rune('a' + i)), Name: "C"})
	}
	c := newClient(t, p, veracode.WithPageSize(3))
	pager := c.Collections("")

	first, err := veracode.Collect(context.Background(), pager)
	require.NoError(t, err)
	require.Len(t, first, 7)
	assert.Equal(t, "a", first[0].GUID)
	assert.Equal(t, "g", first[6].GUID)
	assert.Equal(t, 3, p.Hits("/appsec/v1/collections"))

	second, err := veracode.Collect(context.Background(), pager)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPager_EarlyBreak(t *testing.T) {
	t.Parallel()
	p := testutil.NewPlatform(t)
	for i := range 5 {
		p.AddCollection(testutil.Collection{GUID: string(rune('a' + i)), Name: "C"})
	}
	c := newClient(t, p, veracode.WithPageSize(2))

	for coll, err := range c.Collections("").All(context.Background()) {
		require.NoError(t, err)
		assert.Equal(t, "a", coll.GUID)
		break
	}
	assert.Equal(t, 1, p.Hits("/appsec/v1/collections"))
}

func TestPager_EmptyList(t *testing.T) {
	t.Parallel()
	p := testutil.NewPlatform(t)
	c := newClient(t, p)

	got, err := veracode.Collect(context.Background(), c.Collections("nothing"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCollectionAssets(t *testing.T) {
	t.Parallel()
	p := testutil.NewPlatform(t)
	seed(p)
	c := newClient(t, p, veracode.WithPageSize(1))

	assets, err := veracode.Collect(context.Background(), c.CollectionAssets("coll-1"))
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "A", assets[0].Name)
	assert.Equal(t, veracode.ComplianceDidNotPass, assets[0].ComplianceStatus())
	assert.Equal(t, veracode.CompliancePassed, assets[1].ComplianceStatus())
}

func TestCountFindings(t *testing.T) {
	t.Parallel()
	p := testutil.NewPlatform(t)
	seed(p)
	c := newClient(t, p)
	ctx := context.Background()

	n, err := c.CountFindings(ctx, "app-a", finding.Static, finding.High, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = c.CountFindings(ctx, "app-a", finding.Static, finding.High, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = c.CountFindings(ctx, "app-a", finding.Dynamic, finding.High, false)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFindings_Raw(t *testing.T) {
	t.Parallel()
	p := testutil.NewPlatform(t)
	seed(p)
	c := newClient(t, p)

	recs, err := veracode.Collect(context.Background(), c.Findings("app-a", finding.Static, false))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	raw := recs[0].Raw()
	assert.Equal(t, 1, raw.IssueID)
	assert.Equal(t, "4", raw.SeverityToken)
	assert.Equal(t, 89, raw.CWEID)
	assert.Equal(t, "SQL Injection", raw.Title)
	assert.Equal(t, "db.go", raw.Location)
	assert.Equal(t, "OPEN", raw.Status)
	assert.True(t, raw.ViolatesPolicy)
}

func TestGetApplication(t *testing.T) {
	t.Parallel()
	p := testutil.NewPlatform(t)
	seed(p)
	c := newClient(t, p)

	app, err := c.GetApplication(context.Background(), "app-a")
	require.NoError(t, err)
	last, ok := app.LastScan(finding.Static)
	require.True(t, ok)
	assert.Equal(t, 2024, last.Year())
	_, ok = app.LastScan(finding.Dynamic)
	assert.False(t, ok)
}

func TestTransientClassification(t *testing.T) {
	t.Parallel()
	tests := []struct {
		status    int
		transient bool
		sentinel  error
	}{
		{http.StatusServiceUnavailable, true, nil},
		{http.StatusTooManyRequests, true, nil},
		{http.StatusForbidden, false, veracode.ErrUnauthorized},
		{http.StatusNotFound, false, veracode.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			p := testutil.NewPlatform(t)
			p.AddApp(testutil.App{GUID: "x", Name: "X", FailStatus: tt.status})
			c := newClient(t, p)

			_, err := c.GetApplication(context.Background(), "x")
			require.Error(t, err)
			assert.Equal(t, tt.transient, veracode.IsTransient(err))
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
			var apiErr *veracode.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, 1, strings.Count(err.Error(), "/appsec/v1/applications/x"), err.Error())
		})
	}
}

func TestConnectionRefusedIsTransient(t *testing.T) {
	t.Parallel()
	p := testutil.NewPlatform(t)
	c := newClient(t, p)
	p.Close()

	_, err := c.Self(context.Background())
	require.Error(t, err)
	assert.True(t, veracode.IsTransient(err), "got %v", err)
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()
	p := testutil.NewPlatform(t)
	seed(p)
	c := newClient(t, p)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetCollection(ctx, "coll-1")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, veracode.IsTransient(err))
}

func TestSelfAndCredentials(t *testing.T) {
	t.Parallel()
	p := testutil.NewPlatform(t)
	p.User.First, p.User.Last = "Ada", "Lovelace"
	p.Expiration = time.Now().Add(72 * time.Hour)
	c := newClient(t, p)

	u, err := c.Self(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", u.DisplayName())

	info, err := c.CredentialsInfo(context.Background())
	require.NoError(t, err)
	_, soon, err := info.ExpiresWithin(time.Now(), 7*24*time.Hour)
	require.NoError(t, err)
	assert.True(t, soon)
}

func TestUnsignedRequestRejected(t *testing.T) {
	t.Parallel()
	p := testutil.NewPlatform(t)
	resp, err := p.Client().Get(p.URL + "/api/authn/v2/users/self")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestObserver(t *testing.T) {
	t.Parallel()
	p := testutil.NewPlatform(t)
	seed(p)
	var statuses []int
	c := newClient(t, p, veracode.WithObserver(func(_ string, status int, _ time.Duration) {
		statuses = append(statuses, status)
	}))

	_, _ = c.GetCollection(context.Background(), "coll-1")
	_, _ = c.GetCollection(context.Background(), "nope")
	assert.Equal(t, []int{200, 404}, statuses)
}
