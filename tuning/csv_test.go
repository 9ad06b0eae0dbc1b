package tuning

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestReadPathCSV(t *testing.T) {
	content := `C,sigma,mmce.test.mean,exec.time,dob,error.message
0.25,0.5,0.31,0.04,1,
1.0,0.5,NA,,2,model crashed
4.0,2.0,0.22,0.05,3,
`
	path := filepath.Join(t.TempDir(), "path.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	measures := []Measure{{ID: "mmce.test.mean", Minimize: true, Worst: 1}}
	tr, err := ReadPathCSV(path, "random", []string{"C", "sigma"}, measures)
	if err != nil {
		t.Fatalf("ReadPathCSV: %v", err)
	}
	if tr.Optimizer != "random" {
		t.Fatalf("unexpected optimizer %q", tr.Optimizer)
	}
	if len(tr.Path.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(tr.Path.Entries))
	}

	first := tr.Path.Entries[0]
	if v := first.Params["C"]; !v.IsNum || v.Num != 0.25 {
		t.Fatalf("unexpected C value %+v", v)
	}
	if first.Measures["mmce.test.mean"] != 0.31 || first.ExecTime != 0.04 {
		t.Fatalf("unexpected first entry %+v", first)
	}

	second := tr.Path.Entries[1]
	if !math.IsNaN(second.Measures["mmce.test.mean"]) {
		t.Fatal("NA measure cell should parse as NaN")
	}
	if !math.IsNaN(second.ExecTime) {
		t.Fatal("empty exec.time cell should parse as NaN")
	}
	if second.DOB != 2 || second.ErrMessage != "model crashed" {
		t.Fatalf("unexpected second entry %+v", second)
	}
}

func TestReadPathCSVDefaultsDOBToRowOrder(t *testing.T) {
	content := `c,mmce.test.mean
1.0,0.3
2.0,0.2
`
	path := filepath.Join(t.TempDir(), "nodob.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	// Column lookup is case-insensitive.
	tr, err := ReadPathCSV(path, "grid", []string{"C"}, []Measure{{ID: "mmce.test.mean", Minimize: true, Worst: 1}})
	if err != nil {
		t.Fatalf("ReadPathCSV: %v", err)
	}
	for i, e := range tr.Path.Entries {
		if e.DOB != i+1 {
			t.Fatalf("entry %d: expected DOB %d, got %d", i, i+1, e.DOB)
		}
	}
}

func TestReadPathCSVMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.csv")
	if err := os.WriteFile(path, []byte("C,mmce.test.mean\n1.0,0.3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadPathCSV(path, "grid", []string{"C", "sigma"}, []Measure{{ID: "mmce.test.mean"}})
	if err == nil {
		t.Fatal("expected error for missing parameter column")
	}
}
