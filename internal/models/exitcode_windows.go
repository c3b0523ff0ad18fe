//go:build windows

package models

// SignalTerminationExitCode is STATUS_CONTROL_C_EXIT (0xC000013A) as a signed
// 32-bit value, the code Windows reports for a process stopped by a console
// control event.
const SignalTerminationExitCode int64 = -1073741510

const statusControlCExit uint32 = 0xC000013A

// IsSignalTermination reports whether an exit code means the process was
// stopped by a console control event. The NTSTATUS may arrive either as an
// unsigned DWORD or sign-extended, so only the low 32 bits are compared.
func IsSignalTermination(code int64) bool {
	return uint32(code) == statusControlCExit
}
