package emu

import "errors"

// Errors reported by the instruction semantics. All of them are fatal to a
// simulation run.
var (
	ErrUnknownOpcode      = errors.New("unknown opcode")
	ErrUnknownTrap        = errors.New("unsupported trap vector")
	ErrUnalignedAccess    = errors.New("unaligned access")
	ErrPrivilegeViolation = errors.New("RTI is not supported in user mode")
)
