// Package export writes the trials of a finished run to CSV, to a gzip JSON
// spool artifact and optionally to InfluxDB.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"xai-bench/internal/evaluation"
	"xai-bench/internal/logging"
	"xai-bench/internal/search"

	"github.com/sirupsen/logrus"
)

// RunMeta identifies the run the trials belong to.
type RunMeta struct {
	Name      string
	Explainer string
	Strategy  string
	Checksum  string
	Session   string
	Started   time.Time
	Finished  time.Time
}

// ExportToCSV writes one row per trial into dir and returns the file path.
func ExportToCSV(dir string, meta RunMeta, props []evaluation.Property, trials []search.Trial) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	checksum := meta.Checksum
	if checksum == "" {
		checksum = "nocsum"
	}
	filename := filepath.Join(dir, fmt.Sprintf("%s_%s_%s.csv",
		meta.Name, meta.Started.UTC().Format("20060102T150405Z"), checksum))

	file, err := os.Create(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	params := paramNames(trials)
	header := []string{"trial", "strategy", "explainer"}
	for _, p := range params {
		header = append(header, "param_"+p)
	}
	for _, p := range props {
		header = append(header, "score_"+p.String())
	}
	header = append(header, "aggregated_score", "duration_ms")
	if err := writer.Write(header); err != nil {
		return "", err
	}

	for _, t := range trials {
		m := t.Config.Map()
		row := []string{strconv.Itoa(t.Index), string(t.Strategy), meta.Explainer}
		for _, p := range params {
			if v, ok := m[p]; ok {
				row = append(row, fmt.Sprint(v))
			} else {
				row = append(row, "")
			}
		}
		for _, p := range props {
			row = append(row, formatFloat(t.Scores[p]))
		}
		row = append(row, formatFloat(t.Aggregated), strconv.FormatInt(t.Duration.Milliseconds(), 10))
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}

	logging.GetLogger().WithFields(logrus.Fields{
		"file":   filename,
		"trials": len(trials),
	}).Info("Exported trials to CSV")
	return filename, nil
}

func paramNames(trials []search.Trial) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range trials {
		for k := range t.Config.Map() {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
