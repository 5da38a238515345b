package probe

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// childEnv selects a helper behavior when the test binary is re-executed
// by a supervisor test.
const childEnv = "FPTRAP_TEST_CHILD"

func TestMain(m *testing.M) {
	if name := os.Getenv(childEnv); name != "" {
		os.Exit(testChild(name))
	}
	os.Exit(m.Run())
}

func testChild(name string) int {
	switch name {
	case "caught":
		fmt.Println("SUCCESS: Caught SIGFPE for overflow")
		return 0
	case "missed":
		fmt.Println("FAIL: No SIGFPE caught (result=inf)")
		return 1
	case "crash":
		return 3
	case "kill":
		unix.Kill(os.Getpid(), unix.SIGKILL)
		time.Sleep(time.Minute)
		return 0
	case "unsupported":
		return ChildExitCode(Unsupported, errors.New("not supported on this architecture"))
	case "setup":
		return ChildExitCode(Init, errors.New("unknown trap \"bogus\""))
	case "sleep":
		time.Sleep(time.Minute)
		return 0
	case "portable", "direct":
		s, err := New(name, 0)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return ChildExitCode(Init, err)
		}
		rep, err := Run(s, Options{})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		return ChildExitCode(rep.State, err)
	}
	fmt.Fprintf(os.Stderr, "unknown child %q\n", name)
	return 2
}
