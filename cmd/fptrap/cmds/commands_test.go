package cmds

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/fptrap/fptrap/pkg/config"
	"github.com/fptrap/fptrap/pkg/probe"
)

func TestApplyConfig(t *testing.T) {
	conf := &config.Config{
		Isolate: true,
		Timeout: "5s",
		Wrapper: "taskset -c 0",
		Traps:   []string{"overflow"},
		Color:   "never",
	}

	cmd := NewProbe("test-fp-traps-direct", "direct")
	if err := cmd.ParseFlags([]string{"--wrapper=qemu-aarch64", "--timeout=1m"}); err != nil {
		t.Fatal(err)
	}
	if err := applyConfig(cmd, conf); err != nil {
		t.Fatal(err)
	}

	if !isolate {
		t.Errorf("isolate not taken from config")
	}
	if wrapper != "qemu-aarch64" {
		t.Errorf("wrapper %q, the flag should win over the config file", wrapper)
	}
	if timeout != time.Minute {
		t.Errorf("timeout %v, the flag should win over the config file", timeout)
	}
	if len(traps) != 1 || traps[0] != "overflow" {
		t.Errorf("traps %q not taken from config", traps)
	}
	if color != "never" {
		t.Errorf("color %q not taken from config", color)
	}
}

func TestApplyConfigBadTimeout(t *testing.T) {
	cmd := NewProbe("test-fp-traps", "portable")
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatal(err)
	}
	if err := applyConfig(cmd, &config.Config{Timeout: "soon"}); err == nil {
		t.Fatal("expected an error for an unparsable timeout")
	}
}

func TestChildArgs(t *testing.T) {
	cmd := NewProbe("test-fp-traps", "portable")
	if err := cmd.ParseFlags([]string{"--traps=overflow,invalid", "--log", "--log-output=probe", "-v", "--color=always"}); err != nil {
		t.Fatal(err)
	}
	got := strings.Join(childArgs("direct"), " ")
	const want = "child --strategy=direct --color=never --isolate=false --traps=overflow,invalid --verbose --log --log-output=probe"
	if got != want {
		t.Fatalf("childArgs:\n got %q\nwant %q", got, want)
	}
}

func writeConfig(t *testing.T, data string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "fptrap"), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "fptrap", "config.yml"), []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestChildIgnoresIsolateConfig(t *testing.T) {
	writeConfig(t, "isolate: true\n")

	root := New(true)
	c, _, err := root.Find([]string{"portable"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.ParseFlags(nil); err != nil {
		t.Fatal(err)
	}
	if err := setupProbe(c, false); err != nil {
		t.Fatal(err)
	}
	if !isolate {
		t.Fatalf("isolate from the config file not applied to portable")
	}

	root = New(true)
	c, _, err = root.Find([]string{"child"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.ParseFlags([]string{"--strategy=portable"}); err != nil {
		t.Fatal(err)
	}
	if err := setupProbe(c, true); err != nil {
		t.Fatal(err)
	}
	if isolate {
		t.Fatalf("child would start another child")
	}

	// The arguments a supervisor passes pin isolation off on their own.
	root = New(true)
	c, _, _ = root.Find([]string{"child"})
	if err := c.ParseFlags(childArgs("portable")[1:]); err != nil {
		t.Fatal(err)
	}
	if err := applyConfig(c, &config.Config{Isolate: true}); err != nil {
		t.Fatal(err)
	}
	if isolate {
		t.Fatalf("--isolate=false did not override the config file")
	}
}

func TestVerdict(t *testing.T) {
	testCases := []struct {
		outcome probe.Outcome
		want    string
	}{
		{
			probe.Outcome{State: probe.FaultCaught, Output: []byte("Enabling FP traps...\nTesting overflow...\nSUCCESS: Caught SIGFPE for overflow\n")},
			"SUCCESS: Caught SIGFPE for overflow",
		},
		{
			probe.Outcome{State: probe.FaultNotCaught, ExitCode: 1, Output: []byte("Testing overflow...\nFAIL: No SIGFPE caught (result=inf)\n")},
			"FAIL: No SIGFPE caught (result=inf)",
		},
		{
			probe.Outcome{State: probe.TerminatedAbnormally, ExitCode: -1, Signal: unix.SIGILL, Output: []byte("FPCR before: 0x0000000000000000\n")},
			"terminated abnormally: SIGILL, the FPCR write was refused",
		},
		{
			probe.Outcome{State: probe.TerminatedAbnormally, ExitCode: 2},
			"terminated abnormally: exit status 2",
		},
		{
			probe.Outcome{State: probe.Unsupported, ExitCode: probe.ExitUnsupported},
			"not supported on this host",
		},
	}
	for _, tc := range testCases {
		if got := verdict(&tc.outcome); got != tc.want {
			t.Errorf("verdict(%s) = %q, want %q", &tc.outcome, got, tc.want)
		}
	}
}

func TestRenderComparison(t *testing.T) {
	results := []comparison{
		{strategy: "portable", outcome: &probe.Outcome{State: probe.FaultCaught, Output: []byte("SUCCESS: Caught SIGFPE for overflow\n")}},
		{strategy: "direct", outcome: &probe.Outcome{State: probe.TerminatedAbnormally, ExitCode: -1, Signal: unix.SIGFPE}},
	}
	var buf bytes.Buffer
	if err := renderComparison(&buf, results); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	t.Logf("%s", out)
	for _, s := range []string{"portable", "fault-caught", "direct", "terminated", "SIGFPE"} {
		if !strings.Contains(out, s) {
			t.Errorf("table does not contain %q", s)
		}
	}
}

func TestMetricsResults(t *testing.T) {
	results := metricsResults([]comparison{
		{strategy: "portable", outcome: &probe.Outcome{State: probe.FaultCaught}},
		{strategy: "direct", err: errors.New("context deadline exceeded")},
	})
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if !results[0].Caught || results[0].State != "fault-caught" {
		t.Errorf("unexpected portable result %#v", results[0])
	}
	if results[1].Caught || results[1].State != "error" || results[1].ExitCode != -1 {
		t.Errorf("unexpected direct result %#v", results[1])
	}
}

func TestCommandTree(t *testing.T) {
	root := New(true)
	for _, name := range []string{"portable", "direct", "compare", "env", "config", "version", "log", "child"} {
		c, _, err := root.Find([]string{name})
		if err != nil || c.Name() != name {
			t.Errorf("command %q not found: %v", name, err)
		}
	}
	c, _, _ := root.Find([]string{"child"})
	if !c.Hidden {
		t.Errorf("child command should be hidden")
	}
	if c.Flags().Lookup("strategy") == nil {
		t.Errorf("child command has no --strategy flag")
	}
}

func TestProbeRejectsArguments(t *testing.T) {
	cmd := NewProbe("test-fp-traps", "portable")
	if err := cmd.Args(cmd, []string{"extra"}); err == nil {
		t.Fatal("expected positional arguments to be rejected")
	}
}
