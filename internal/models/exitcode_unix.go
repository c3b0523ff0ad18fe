//go:build !windows

package models

// SignalTerminationExitCode is the exit code a supervisor reports for a task
// process killed by SIGTERM.
const SignalTerminationExitCode int64 = -15

// IsSignalTermination reports whether an exit code means the process was
// killed by SIGTERM. The shell's 128+n form is accepted as well.
func IsSignalTermination(code int64) bool {
	return code == SignalTerminationExitCode || code == 128-SignalTerminationExitCode
}
