package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"xai-bench/internal/logging"

	"github.com/sirupsen/logrus"
)

// Dataset holds the rows that are explained together with their labels and
// the canonical feature order.
type Dataset struct {
	FeatureNames []string
	Rows         [][]float64
	Labels       []float64
}

func (d *Dataset) Dim() int {
	return len(d.FeatureNames)
}

func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Head returns a copy restricted to the first n rows.
func (d *Dataset) Head(n int) *Dataset {
	if n <= 0 || n >= len(d.Rows) {
		n = len(d.Rows)
	}
	out := &Dataset{
		FeatureNames: append([]string(nil), d.FeatureNames...),
		Rows:         make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		out.Rows[i] = append([]float64(nil), d.Rows[i]...)
	}
	if len(d.Labels) > 0 {
		out.Labels = append([]float64(nil), d.Labels[:n]...)
	}
	return out
}

// LoadCSV reads a headered CSV file. Every column except labelColumn is a
// feature; labelColumn may be empty when no labels are available.
func LoadCSV(path string, labelColumn string) (*Dataset, error) {
	logger := logging.GetLogger()

	file, err := os.Open(path)
	if err != nil {
		logger.WithField("filepath", path).WithError(err).Error("Failed to open dataset")
		return nil, err
	}
	defer file.Close()

	ds, err := ReadCSV(file, labelColumn)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}

	logger.WithFields(logrus.Fields{
		"filepath": path,
		"rows":     ds.Len(),
		"features": ds.Dim(),
	}).Debug("Loaded dataset")

	return ds, nil
}

func ReadCSV(r io.Reader, labelColumn string) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	labelIdx := -1
	ds := &Dataset{}
	for i, name := range header {
		name = strings.TrimSpace(name)
		if labelColumn != "" && name == labelColumn {
			labelIdx = i
			continue
		}
		ds.FeatureNames = append(ds.FeatureNames, name)
	}
	if labelColumn != "" && labelIdx < 0 {
		return nil, fmt.Errorf("label column %q not found in header", labelColumn)
	}
	if len(ds.FeatureNames) == 0 {
		return nil, fmt.Errorf("no feature columns")
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make([]float64, 0, len(ds.FeatureNames))
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, header[i], err)
			}
			if i == labelIdx {
				ds.Labels = append(ds.Labels, v)
				continue
			}
			row = append(row, v)
		}
		ds.Rows = append(ds.Rows, row)
	}

	if len(ds.Rows) == 0 {
		return nil, fmt.Errorf("dataset has no rows")
	}

	return ds, nil
}
