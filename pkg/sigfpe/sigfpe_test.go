package sigfpe

import (
	"errors"
	"runtime"
	"testing"

	"golang.org/x/sys/unix"
)

func TestDispositionString(t *testing.T) {
	testCases := []struct {
		d   Disposition
		tgt string
	}{
		{Disposition{Signal: unix.SIGFPE}, "SIGFPE handler=SIG_DFL flags=[]"},
		{Disposition{Signal: unix.SIGFPE, Handler: 1}, "SIGFPE handler=SIG_IGN flags=[]"},
		{Disposition{Signal: unix.SIGFPE, Handler: 0x1000, Flags: saSiginfo | saOnstack | saRestart | saRestorer}, "SIGFPE handler=0x1000 flags=[SA_SIGINFO SA_ONSTACK SA_RESTART SA_RESTORER]"},
		{Disposition{Signal: unix.SIGFPE, Handler: 0x1000, Flags: 0x20}, "SIGFPE handler=0x1000 flags=[0x20]"},
	}
	for _, tc := range testCases {
		if out := tc.d.String(); out != tc.tgt {
			t.Errorf("expected %q, got %q", tc.tgt, out)
		}
	}
}

func TestInstall(t *testing.T) {
	if runtime.GOOS != "linux" || (runtime.GOARCH != "amd64" && runtime.GOARCH != "arm64") {
		if _, err := Install(); !errors.Is(err, ErrUnsupported) {
			t.Fatalf("expected ErrUnsupported, got %v", err)
		}
		return
	}
	d, err := Install()
	if err != nil {
		t.Fatalf("runtime SIGFPE handler not found: %v", err)
	}
	if !d.Siginfo() {
		t.Fatalf("expected SA_SIGINFO, got %s", d)
	}
	t.Logf("%s", d)
}
