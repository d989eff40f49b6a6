package diagnostics

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/videocatalog/videocatalog/internal/pathresolver"
)

// SubTest is one named functional smoke test. It returns a JSON-marshalable
// value to diff against the checked-in golden fixture of the same name.
type SubTest struct {
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context) (any, error)
}

// SubTestResult is one sub-test's outcome.
type SubTestResult struct {
	Name     string `json:"name"`
	Pass     bool   `json:"pass"`
	Detail   string `json:"detail,omitempty"`
	Duration string `json:"duration"`
}

// SmokeReport aggregates every sub-test run in one Smoke.Run call.
type SmokeReport struct {
	RanAtUTC string          `json:"ran_at_utc"`
	Results  []SubTestResult `json:"results"`
	AllPass  bool            `json:"all_pass"`
}

const (
	defaultSubTestTimeout = 10 * time.Second
	gpuSubTestTimeout     = 30 * time.Second
	floatEpsilon          = 1e-6
)

// Smoke runs the functional test table named in spec.md §4.11:
// structureParse, tvMapping, textlitePreview, ffprobeHeaders, frameSampling,
// vectorRefresh, assistantToolDryRun. Callers register each sub-test's Run
// function; tests that have no wiring in this deployment are simply absent
// from SubTests rather than failing.
type Smoke struct {
	SubTests  []SubTest
	goldenDir string
	wd        pathresolver.WorkingDir
}

// NewSmoke builds a Smoke suite rooted at wd, reading golden fixtures from
// testdata/golden relative to goldenDir (normally the repo root).
func NewSmoke(wd pathresolver.WorkingDir, goldenDir string) *Smoke {
	return &Smoke{wd: wd, goldenDir: filepath.Join(goldenDir, "testdata", "golden")}
}

// Run executes every sub-test under its own timeout, comparing the result
// to its golden fixture with a tolerant diff, and writes Markdown + JUnit
// reports under exports/testruns/<ts>/.
func (s *Smoke) Run(ctx context.Context) SmokeReport {
	report := SmokeReport{RanAtUTC: time.Now().UTC().Format(time.RFC3339), AllPass: true}

	for _, st := range s.SubTests {
		timeout := st.Timeout
		if timeout <= 0 {
			timeout = defaultSubTestTimeout
		}
		subCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		result := s.runOne(subCtx, st)
		cancel()
		result.Duration = time.Since(start).String()
		if !result.Pass {
			report.AllPass = false
		}
		report.Results = append(report.Results, result)
	}

	s.persist(report)
	return report
}

func (s *Smoke) runOne(ctx context.Context, st SubTest) SubTestResult {
	got, err := st.Run(ctx)
	if err != nil {
		return SubTestResult{Name: st.Name, Pass: false, Detail: err.Error()}
	}

	golden, err := s.loadGolden(st.Name)
	if err != nil {
		return SubTestResult{Name: st.Name, Pass: false, Detail: "no golden fixture: " + err.Error()}
	}

	gotJSON, err := toComparable(got)
	if err != nil {
		return SubTestResult{Name: st.Name, Pass: false, Detail: err.Error()}
	}

	if !tolerantEqual(gotJSON, golden) {
		return SubTestResult{Name: st.Name, Pass: false, Detail: "output does not match golden fixture"}
	}
	return SubTestResult{Name: st.Name, Pass: true}
}

func (s *Smoke) loadGolden(name string) (any, error) {
	path := filepath.Join(s.goldenDir, name+".json")
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func toComparable(v any) (any, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// tolerantEqual compares two decoded-JSON values, ignoring map key order
// (maps have none in Go) and treating numeric values within floatEpsilon as
// equal rather than requiring exact float matches.
func tolerantEqual(a, b any) bool {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && math.Abs(av-bv) <= floatEpsilon
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !tolerantEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, vv := range av {
			bvv, ok := bv[k]
			if !ok || !tolerantEqual(vv, bvv) {
				return false
			}
		}
		return true
	default:
		return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
	}
}

func (s *Smoke) persist(report SmokeReport) {
	ts := report.RanAtUTC
	dir := filepath.Join(s.wd.Exports, "testruns", sanitizeTimestamp(ts))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return
	}
	s.writeMarkdown(filepath.Join(dir, "summary.md"), report)
	s.writeJUnit(filepath.Join(dir, "junit.xml"), report)
}

func sanitizeTimestamp(ts string) string {
	out := make([]byte, 0, len(ts))
	for _, c := range []byte(ts) {
		if c == ':' {
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

func (s *Smoke) writeMarkdown(path string, report SmokeReport) {
	md := fmt.Sprintf("# Smoke test run %s\n\n", report.RanAtUTC)
	for _, r := range report.Results {
		status := "PASS"
		if !r.Pass {
			status = "FAIL"
		}
		md += fmt.Sprintf("- **%s**: %s (%s) %s\n", r.Name, status, r.Duration, r.Detail)
	}
	_ = os.WriteFile(path, []byte(md), 0o640)
}

func (s *Smoke) writeJUnit(path string, report SmokeReport) {
	failures := 0
	for _, r := range report.Results {
		if !r.Pass {
			failures++
		}
	}
	xml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>`+"\n"+
		`<testsuite name="smoke" tests="%d" failures="%d">`+"\n", len(report.Results), failures)
	for _, r := range report.Results {
		xml += fmt.Sprintf(`  <testcase name=%q time=%q>`, r.Name, r.Duration)
		if !r.Pass {
			xml += fmt.Sprintf(`<failure message=%q/>`, r.Detail)
		}
		xml += "</testcase>\n"
	}
	xml += "</testsuite>\n"
	_ = os.WriteFile(path, []byte(xml), 0o640)
}
