// Package probe checks whether floating-point exception traps are
// delivered as SIGFPE on the running machine.
//
// A probe runs in three steps: it verifies that SIGFPE reaches a handler
// with extended signal context, enables the overflow, divide-by-zero and
// invalid-operation traps with a Strategy, and multiplies 1e308 by 1e308
// inside a Checkpoint. When the trap fires, the Go runtime turns the
// signal into a run-time panic and the checkpoint resumes execution with
// the fault recorded; when it does not, the product (+Inf) is returned
// and the probe reports failure.
//
// Supervise runs a probe in a child process instead, for environments
// where the trap or the register write itself kills the process.
package probe
