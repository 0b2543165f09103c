package storage

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/dyluth/pricepipe/internal/dataset"
)

// Partition directory and file names under the base directory.
const (
	TrainName      = "train"
	ValidationName = "validation"
	TestName       = "test"
	DataDir        = "data"
)

// Outputs are the files one split was written to.
type Outputs struct {
	Train      string `json:"train"`
	Validation string `json:"validation"`
	Test       string `json:"test"`
}

// PartitionPath returns <baseDir>/<name>/<name>.csv.
func PartitionPath(baseDir, name string) string {
	return filepath.Join(baseDir, name, name+".csv")
}

// WritePartitions writes the three partitions under baseDir, headerless.
// Files written before a failure are left in place.
func WritePartitions(baseDir string, p dataset.Partitions) (Outputs, error) {
	out := Outputs{
		Train:      PartitionPath(baseDir, TrainName),
		Validation: PartitionPath(baseDir, ValidationName),
		Test:       PartitionPath(baseDir, TestName),
	}

	parts := []struct {
		path  string
		table *dataset.Table
	}{
		{out.Train, p.Train},
		{out.Validation, p.Validation},
		{out.Test, p.Test},
	}
	for _, part := range parts {
		if err := writeTable(part.path, part.table); err != nil {
			return Outputs{}, &StorageError{Op: "write", Location: part.path, Err: err}
		}
	}
	return out, nil
}

func writeTable(path string, t *dataset.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	if err := dataset.WriteCSV(w, t); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
