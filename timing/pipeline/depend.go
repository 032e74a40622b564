package pipeline

import (
	"github.com/sarchlab/lc3bsim/emu"
	"github.com/sarchlab/lc3bsim/insts"
)

// FetchDepends reports whether candidate cannot be fetched before prior
// writes back, which is the case whenever prior may redirect the PC.
func FetchDepends(candidate, prior *emu.Record) bool {
	return prior.Inst.WritesPC()
}

// ReadDepends reports whether candidate cannot read its operands before
// prior writes back. A candidate load whose address is still unknown is
// assumed to conflict with any store.
func ReadDepends(candidate, prior *emu.Record) bool {
	c, p := &candidate.Inst, &prior.Inst

	if p.Mask.Has(insts.DepDR) && c.ReadsReg(p.DR) {
		return true
	}

	if c.ReadsMemory() && p.WritesMemory() {
		if !candidate.AddrKnown || !prior.AddrKnown {
			return true
		}
		return wordAlign(candidate.Addr) == wordAlign(prior.Addr)
	}

	return false
}
