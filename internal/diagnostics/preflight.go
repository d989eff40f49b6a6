package diagnostics

import (
	"context"
	"database/sql"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/videocatalog/videocatalog/internal/assistant"
	"github.com/videocatalog/videocatalog/internal/config"
	"github.com/videocatalog/videocatalog/internal/pathresolver"
)

// ProbeResult is one named preflight check's outcome.
type ProbeResult struct {
	Name     string `json:"name"`
	Pass     bool   `json:"pass"`
	Detail   string `json:"detail,omitempty"`
	Duration string `json:"duration"`
}

// Report aggregates every probe run in one Preflight.Run call.
type Report struct {
	RanAtUTC string        `json:"ran_at_utc"`
	Probes   []ProbeResult `json:"probes"`
	AllPass  bool          `json:"all_pass"`
}

// Preflight runs the startup readiness checks named in spec.md §4.11: GPU,
// external tools, API keys, filesystem writability, and catalog DB health.
type Preflight struct {
	cfg       config.DiagnosticsSettings
	assistant config.AssistantSettings
	wd        pathresolver.WorkingDir
	catalogDB *sql.DB
	reportPath string
}

// NewPreflight builds a Preflight bound to the working directory and
// catalog connection whose health it checks.
func NewPreflight(cfg config.DiagnosticsSettings, assistantCfg config.AssistantSettings, wd pathresolver.WorkingDir, catalogDB *sql.DB) *Preflight {
	return &Preflight{
		cfg:        cfg,
		assistant:  assistantCfg,
		wd:         wd,
		catalogDB:  catalogDB,
		reportPath: filepath.Join(wd.Logs, "diagnostics_preflight.json"),
	}
}

// Run executes every probe with its own timeout and persists the result.
func (p *Preflight) Run(ctx context.Context) Report {
	report := Report{RanAtUTC: time.Now().UTC().Format(time.RFC3339), AllPass: true}

	checks := []struct {
		name string
		fn   func(context.Context) ProbeResult
	}{
		{"gpu_cuda", p.probeGPU},
		{"external_tools", p.probeExternalTools},
		{"api_keys", p.probeAPIKeys},
		{"filesystem_writable", p.probeFilesystem},
		{"catalog_db", p.probeCatalogDB},
	}

	for _, c := range checks {
		timeout := p.cfg.ProbeTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		result := c.fn(probeCtx)
		cancel()
		result.Name = c.name
		result.Duration = time.Since(start).String()
		if !result.Pass {
			report.AllPass = false
		}
		report.Probes = append(report.Probes, result)
	}

	p.persist(report)
	return report
}

func (p *Preflight) probeGPU(ctx context.Context) ProbeResult {
	probe := assistant.NewGPUProbe(10 * time.Second)
	readiness := probe.Probe(ctx)
	if readiness.Ready {
		return ProbeResult{Pass: true, Detail: "GPU ready"}
	}
	return ProbeResult{Pass: false, Detail: readiness.Reason}
}

func (p *Preflight) probeExternalTools(ctx context.Context) ProbeResult {
	for _, tool := range []string{"ffprobe", "tesseract"} {
		if _, err := exec.LookPath(tool); err != nil {
			return ProbeResult{Pass: false, Detail: tool + " not found on PATH"}
		}
	}
	return ProbeResult{Pass: true, Detail: "ffprobe and tesseract found"}
}

func (p *Preflight) probeAPIKeys(ctx context.Context) ProbeResult {
	missing := []string{}
	if p.assistant.TMDBAPIKey == "" {
		missing = append(missing, "tmdb")
	}
	if p.assistant.OpenSubtitlesKey == "" {
		missing = append(missing, "opensubtitles")
	}
	if len(missing) == 0 {
		return ProbeResult{Pass: true, Detail: "all provider keys configured"}
	}
	return ProbeResult{Pass: false, Detail: "missing keys for: " + joinComma(missing)}
}

func (p *Preflight) probeFilesystem(ctx context.Context) ProbeResult {
	probe := filepath.Join(p.wd.Root, ".diagnostics_write_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return ProbeResult{Pass: false, Detail: err.Error()}
	}
	_ = os.Remove(probe)

	longPath := filepath.Join(p.wd.Root, longDirName())
	if err := os.MkdirAll(longPath, 0o750); err != nil {
		return ProbeResult{Pass: false, Detail: "long path unsupported: " + err.Error()}
	}
	_ = os.RemoveAll(longPath)
	return ProbeResult{Pass: true, Detail: "working directory writable, long paths supported"}
}

func (p *Preflight) probeCatalogDB(ctx context.Context) ProbeResult {
	if p.catalogDB == nil {
		return ProbeResult{Pass: false, Detail: "catalog database not connected"}
	}
	var mode string
	if err := p.catalogDB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		return ProbeResult{Pass: false, Detail: err.Error()}
	}
	var busyTimeout int
	_ = p.catalogDB.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busyTimeout)
	if mode != "wal" {
		return ProbeResult{Pass: false, Detail: "catalog DB is not in WAL mode (journal_mode=" + mode + ")"}
	}
	return ProbeResult{Pass: true, Detail: "WAL mode, busy_timeout=" + (time.Duration(busyTimeout) * time.Millisecond).String()}
}

func (p *Preflight) persist(report Report) {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(p.reportPath, body, 0o640)
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

func longDirName() string {
	name := ""
	for i := 0; i < 200; i++ {
		name += "a"
	}
	return name
}
