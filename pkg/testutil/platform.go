package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/jsonutil"
)

// TestKeyID and TestKeySecret are a syntactically valid API key pair.
const (
	TestKeyID     = "3ddaeeb10ca690df3fee5e3bd1c329fa"
	TestKeySecret = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
)

// Collection is a fake collection fixture.
type Collection struct {
	GUID             string
	Name             string
	Description      string
	ComplianceStatus string
	Members          []string // application GUIDs, in listing order
}

// Scan is a fake scan-list entry.
type Scan struct {
	Type     finding.ScanType
	Modified time.Time
}

// Finding is a fake findings-resource record.
type Finding struct {
	IssueID          int
	ScanType         finding.ScanType
	Level            int    // severity level used for count filters
	SeverityText     string // emitted instead of Level when set
	CWE              int
	Title            string
	Status           string // defaults to OPEN
	Resolution       string
	ResolutionStatus string
	ViolatesPolicy   bool
	FilePath         string
}

// App is a fake application profile.
type App struct {
	GUID             string
	Name             string
	ComplianceStatus string
	Scans            []Scan
	Findings         []Finding

	// FailStatus, when non-zero, is returned for every request touching
	// this application. FailTimes limits it to the first N requests.
	FailStatus int
	FailTimes  int

	// FailFindingsPage, when positive, makes every findings listing
	// request for that page number answer 503. Count requests, which
	// carry a severity filter, are unaffected.
	FailFindingsPage int
}

// Platform is an httptest server speaking the subset of the REST API the
// report needs. Requests without a signature get 401.
type Platform struct {
	*httptest.Server

	mu          sync.Mutex
	collections []*Collection
	apps        map[string]*App
	hits        map[string]int
	failures    map[string]int

	User       struct{ First, Last string }
	Expiration time.Time
}

// NewPlatform starts a fake platform that is closed with the test.
func NewPlatform(t testing.TB) *Platform {
	t.Helper()
	p := &Platform{
		apps:       make(map[string]*App),
		hits:       make(map[string]int),
		failures:   make(map[string]int),
		Expiration: time.Now().Add(90 * 24 * time.Hour),
	}
	p.User.First, p.User.Last = "Test", "User"

	mux := http.NewServeMux()
	mux.HandleFunc("GET /appsec/v1/collections", p.listCollections)
	mux.HandleFunc("GET /appsec/v1/collections/{guid}", p.getCollection)
	mux.HandleFunc("GET /appsec/v1/collections/{guid}/assets", p.listAssets)
	mux.HandleFunc("GET /appsec/v1/applications/{guid}", p.getApplication)
	mux.HandleFunc("GET /appsec/v2/applications/{guid}/findings", p.listFindings)
	mux.HandleFunc("GET /api/authn/v2/users/self", p.self)
	mux.HandleFunc("GET /api/authn/v2/api_credentials", p.credentials)

	p.Server = httptest.NewServer(p.authenticate(mux))
	t.Cleanup(p.Close)
	return p
}

// AddCollection registers a collection.
func (p *Platform) AddCollection(c Collection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.collections = append(p.collections, &c)
}

// AddApp registers an application.
func (p *Platform) AddApp(a App) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.apps[a.GUID] = &a
}

// Hits returns how many requests reached paths starting with prefix.
func (p *Platform) Hits(prefix string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for path, c := range p.hits {
		if strings.HasPrefix(path, prefix) {
			n += c
		}
	}
	return n
}

func (p *Platform) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.hits[r.URL.Path]++
		p.mu.Unlock()
		if !strings.HasPrefix(r.Header.Get("Authorization"), "VERACODE-HMAC-SHA-256 id=") {
			writeError(w, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := jsonutil.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

func writeError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	b, _ := jsonutil.Marshal(map[string]any{"_embedded": map[string]any{
		"errors": []map[string]any{{"status": strconv.Itoa(status), "title": http.StatusText(status)}},
	}})
	w.Write(b)
}

// page slices items per the page and size query parameters and wraps
// them in the HAL envelope.
func page[T any](r *http.Request, key string, items []T) map[string]any {
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size <= 0 {
		size = 50
	}
	num, _ := strconv.Atoi(r.URL.Query().Get("page"))
	start := min(num*size, len(items))
	end := min(start+size, len(items))

	env := map[string]any{
		"page": map[string]any{
			"number":         num,
			"size":           size,
			"total_elements": len(items),
			"total_pages":    (len(items) + size - 1) / size,
		},
	}
	if end > start {
		env["_embedded"] = map[string]any{key: items[start:end]}
	}
	return env
}

func (p *Platform) collection(guid string) *Collection {
	for _, c := range p.collections {
		if c.GUID == guid {
			return c
		}
	}
	return nil
}

func (p *Platform) collectionJSON(c *Collection) map[string]any {
	overview := map[string]int{
		"not_passing_policy":           0,
		"passing_policy":               0,
		"conditionally_passing_policy": 0,
		"not_assessed":                 0,
	}
	for _, guid := range c.Members {
		switch p.appStatus(guid) {
		case "PASSED":
			overview["passing_policy"]++
		case "DID_NOT_PASS":
			overview["not_passing_policy"]++
		case "CONDITIONAL_PASS":
			overview["conditionally_passing_policy"]++
		default:
			overview["not_assessed"]++
		}
	}
	return map[string]any{
		"guid":                c.GUID,
		"name":                c.Name,
		"description":         c.Description,
		"compliance_status":   c.ComplianceStatus,
		"compliance_overview": overview,
		"total_assets":        len(c.Members),
	}
}

func (p *Platform) appStatus(guid string) string {
	if a, ok := p.apps[guid]; ok && a.ComplianceStatus != "" {
		return a.ComplianceStatus
	}
	return "NOT_ASSESSED"
}

func (p *Platform) listCollections(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	name := r.URL.Query().Get("name")
	var out []map[string]any
	for _, c := range p.collections {
		// The real filter is a case-insensitive substring match.
		if name == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(name)) {
			out = append(out, p.collectionJSON(c))
		}
	}
	writeJSON(w, page(r, "collections", out))
}

func (p *Platform) getCollection(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.collection(r.PathValue("guid"))
	if c == nil {
		writeError(w, http.StatusNotFound)
		return
	}
	writeJSON(w, p.collectionJSON(c))
}

func (p *Platform) listAssets(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.collection(r.PathValue("guid"))
	if c == nil {
		writeError(w, http.StatusNotFound)
		return
	}
	out := make([]map[string]any, 0, len(c.Members))
	for _, guid := range c.Members {
		name := guid
		var lastScan string
		if a, ok := p.apps[guid]; ok {
			name = a.Name
			for _, s := range a.Scans {
				if ts := s.Modified.UTC().Format("2006-01-02T15:04:05.000Z"); ts > lastScan {
					lastScan = ts
				}
			}
		}
		status := p.appStatus(guid)
		out = append(out, map[string]any{
			"guid": guid,
			"name": name,
			"attributes": map[string]any{
				"policies":                        []map[string]any{{"name": "Default", "policy_compliance_status": status}},
				"last_completed_scan_date":        lastScan,
				"policy_passed_rules":             status == "PASSED",
				"policy_passed_scan_requirements": status != "NOT_ASSESSED",
				"policy_in_grace_period":          status == "CONDITIONAL_PASS",
			},
		})
	}
	writeJSON(w, page(r, "assets", out))
}

// app returns the application and whether the request must fail.
func (p *Platform) app(w http.ResponseWriter, guid string) (*App, bool) {
	a, ok := p.apps[guid]
	if !ok {
		writeError(w, http.StatusNotFound)
		return nil, false
	}
	if a.FailStatus != 0 && (a.FailTimes == 0 || p.failures[guid] < a.FailTimes) {
		p.failures[guid]++
		writeError(w, a.FailStatus)
		return nil, false
	}
	return a, true
}

func (p *Platform) getApplication(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.app(w, r.PathValue("guid"))
	if !ok {
		return
	}
	scans := make([]map[string]any, 0, len(a.Scans))
	for _, s := range a.Scans {
		scans = append(scans, map[string]any{
			"scan_type":     string(s.Type),
			"status":        "PUBLISHED",
			"modified_date": s.Modified.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, map[string]any{
		"guid":    a.GUID,
		"profile": map[string]any{"name": a.Name},
		"scans":   scans,
	})
}

func (p *Platform) listFindings(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.app(w, r.PathValue("guid"))
	if !ok {
		return
	}
	q := r.URL.Query()
	st := q.Get("scan_type")
	sev := q.Get("severity")
	policyOnly := q.Get("violates_policy") == "true"
	if a.FailFindingsPage > 0 && sev == "" && q.Get("page") == strconv.Itoa(a.FailFindingsPage) {
		writeError(w, http.StatusServiceUnavailable)
		return
	}

	out := []map[string]any{}
	for _, f := range a.Findings {
		if st != "" && string(f.ScanType) != st {
			continue
		}
		if sev != "" && strconv.Itoa(f.Level) != sev {
			continue
		}
		if policyOnly && !f.ViolatesPolicy {
			continue
		}
		out = append(out, findingJSON(f))
	}
	writeJSON(w, page(r, "findings", out))
}

func findingJSON(f Finding) map[string]any {
	status := f.Status
	if status == "" {
		status = "OPEN"
	}
	var severity any = f.Level
	if f.SeverityText != "" {
		severity = f.SeverityText
	}
	details := map[string]any{"severity": severity}
	if f.CWE > 0 || f.Title != "" {
		details["cwe"] = map[string]any{"id": f.CWE, "name": f.Title}
	}
	if f.FilePath != "" {
		details["file_path"] = f.FilePath
	}
	return map[string]any{
		"issue_id":        f.IssueID,
		"scan_type":       string(f.ScanType),
		"description":     f.Title,
		"violates_policy": f.ViolatesPolicy,
		"finding_status": map[string]any{
			"status":            status,
			"resolution":        f.Resolution,
			"resolution_status": f.ResolutionStatus,
		},
		"finding_details": details,
	}
}

func (p *Platform) self(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"user_name":  "tuser",
		"first_name": p.User.First,
		"last_name":  p.User.Last,
	})
}

func (p *Platform) credentials(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"api_id":        TestKeyID,
		"expiration_ts": p.Expiration.UTC().Format("2006-01-02T15:04:05.000-0700"),
	})
}
