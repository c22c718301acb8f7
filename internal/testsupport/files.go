package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to the target path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// BalancedCSV is a two-row statement that parses cleanly and sums to zero.
const BalancedCSV = "date,amount,currency,description,counterparty\n" +
	"2023-10-01,-42.50,USD,Office chairs,Vendor Co\n" +
	"2023-10-01,42.50,USD,Office chairs settlement,Vendor Co\n"
