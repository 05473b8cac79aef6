package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"xai-bench/internal/cache"
	"xai-bench/internal/scalarize"
	"xai-bench/internal/search"
)

type SpoolArtifact struct {
	Version int `json:"version"`

	CreatedAt time.Time `json:"created_at"`

	RunName     string `json:"run_name"`
	RunChecksum string `json:"run_checksum"`
	Session     string `json:"session"`
	Explainer   string `json:"explainer"`
	Strategy    string `json:"strategy"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	ConfigContent string `json:"config_content"`

	Properties []string           `json:"properties"`
	Trials     []search.Trial     `json:"trials"`
	History    *scalarize.History `json:"history"`
	Best       *search.Trial      `json:"best,omitempty"`
}

func DefaultSpoolDir() string {
	if v := strings.TrimSpace(os.Getenv("XAI_BENCH_SPOOL_DIR")); v != "" {
		return v
	}
	return "spool"
}

// BuildSpoolArtifact assembles the artifact of a finished run.
func BuildSpoolArtifact(meta RunMeta, configContent string, props []string, trials []search.Trial, history *scalarize.History) *SpoolArtifact {
	a := &SpoolArtifact{
		Version:       1,
		CreatedAt:     time.Now(),
		RunName:       meta.Name,
		RunChecksum:   meta.Checksum,
		Session:       meta.Session,
		Explainer:     meta.Explainer,
		Strategy:      meta.Strategy,
		StartTime:     meta.Started,
		EndTime:       meta.Finished,
		ConfigContent: configContent,
		Properties:    props,
		Trials:        trials,
		History:       history,
	}
	if best, ok := search.Best(trials); ok {
		a.Best = &best
	}
	return a
}

// WriteSpoolArtifact writes a gzip-compressed JSON artifact to disk atomically.
// It returns the final file path.
func WriteSpoolArtifact(dir string, artifact *SpoolArtifact) (string, error) {
	if artifact == nil {
		return "", fmt.Errorf("spool artifact is nil")
	}
	if dir == "" {
		dir = DefaultSpoolDir()
	}
	checksum := artifact.RunChecksum
	if checksum == "" {
		checksum = "nocsum"
	}
	name := fmt.Sprintf(
		"run_%s_%s_%s.json.gz",
		artifact.RunName,
		artifact.CreatedAt.UTC().Format("20060102T150405Z"),
		checksum,
	)
	finalPath := filepath.Join(dir, name)
	if err := cache.WriteFileAtomic(finalPath, artifact); err != nil {
		return "", fmt.Errorf("write spool %s: %w", finalPath, err)
	}
	return finalPath, nil
}

func ReadSpoolArtifact(path string) (*SpoolArtifact, error) {
	var a SpoolArtifact
	if err := cache.ReadFile(path, &a); err != nil {
		return nil, fmt.Errorf("read spool %s: %w", path, err)
	}
	return &a, nil
}
