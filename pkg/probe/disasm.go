package probe

import (
	"errors"
	"fmt"

	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

// DecodeInstruction disassembles the single instruction at the start of
// mem, located at pc, for the given GOARCH.
func DecodeInstruction(arch string, pc uint64, mem []byte) (string, error) {
	switch arch {
	case "arm64":
		if len(mem) < 4 {
			return "", errors.New("short instruction")
		}
		inst, err := arm64asm.Decode(mem[:4])
		if err != nil {
			return "", err
		}
		return inst.String(), nil
	case "amd64":
		inst, err := x86asm.Decode(mem, 64)
		if err != nil {
			return "", err
		}
		return x86asm.GNUSyntax(inst, pc, nil), nil
	}
	return "", fmt.Errorf("no disassembler for %s", arch)
}
