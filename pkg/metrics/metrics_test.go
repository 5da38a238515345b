package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fptrap.prom")
	err := WriteTextfile(path, []Result{
		{Strategy: "portable", State: "fault-caught", ExitCode: 0, Caught: true},
		{Strategy: "direct", State: "terminated", ExitCode: -1},
	})
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, s := range []string{
		`fptrap_fault_caught{strategy="portable"} 1`,
		`fptrap_fault_caught{strategy="direct"} 0`,
		`fptrap_probe_outcome{state="terminated",strategy="direct"} 1`,
		`fptrap_probe_exit_code{strategy="direct"} -1`,
		"# TYPE fptrap_last_run_timestamp_seconds gauge",
	} {
		if !strings.Contains(out, s) {
			t.Errorf("missing %q in:\n%s", s, out)
		}
	}
}
