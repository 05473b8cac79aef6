package dataset

import (
	"strings"
	"testing"
)

func TestReadCSV_SplitsLabelColumn(t *testing.T) {
	in := "a,y,b\n1,10,2\n3,20,4\n"
	ds, err := ReadCSV(strings.NewReader(in), "y")
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if ds.Dim() != 2 || ds.FeatureNames[0] != "a" || ds.FeatureNames[1] != "b" {
		t.Fatalf("unexpected feature names %v", ds.FeatureNames)
	}
	if ds.Len() != 2 || ds.Rows[1][0] != 3 || ds.Rows[1][1] != 4 {
		t.Fatalf("unexpected rows %v", ds.Rows)
	}
	if len(ds.Labels) != 2 || ds.Labels[1] != 20 {
		t.Fatalf("unexpected labels %v", ds.Labels)
	}
}

func TestReadCSV_MissingLabelColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n1,2\n"), "y")
	if err == nil || !strings.Contains(err.Error(), "label column") {
		t.Fatalf("expected label column error, got %v", err)
	}
}

func TestReadCSV_BadNumber(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n1,x\n"), "")
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected parse error on line 2, got %v", err)
	}
}

func TestHead_CopiesPrefix(t *testing.T) {
	ds := &Dataset{FeatureNames: []string{"a"}, Rows: [][]float64{{1}, {2}, {3}}, Labels: []float64{0, 1, 0}}
	h := ds.Head(2)
	h.Rows[0][0] = 99
	if h.Len() != 2 || ds.Rows[0][0] != 1 || len(h.Labels) != 2 {
		t.Fatalf("Head did not copy a 2-row prefix: %+v", h)
	}
}
