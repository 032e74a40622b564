package pipeline

import "github.com/sarchlab/lc3bsim/emu"

// windowEntry is one instruction remembered for the recurrences.
type windowEntry struct {
	rec    emu.Record
	timing Timing
}

// Analytical computes stage cycles in closed form from the two preceding
// instructions instead of simulating cycles. For instruction k with
// predecessors p1 = k-1 and p2 = k-2:
//
//	fetch[k] = max(p1.read, p1.write if FetchDepends(k, p1))
//	read[k]  = max(fetch[k]+1, p1.exec,
//	               p1.write if ReadDepends(k, p1),
//	               p2.write if ReadDepends(k, p2))
//	exec[k]  = max(read[k]+1, p1.write)
//	write[k] = max(exec[k]+1, p1.write+1)
type Analytical struct {
	stream

	// window[0] is p1, window[1] is p2.
	window [Lookback]windowEntry
	filled int
}

// NewAnalytical creates an analytical scheduler.
func NewAnalytical(semantics InstructionSemantics, opts ...Option) *Analytical {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Analytical{stream: newStream(semantics, o, "analytical")}
}

// Reset discards the window and the schedule.
func (a *Analytical) Reset() {
	a.stream.reset()
	a.window = [Lookback]windowEntry{}
	a.filled = 0
}

// Advance executes and places one instruction.
func (a *Analytical) Advance() error {
	var rec emu.Record

	ok, err := a.next(&rec)
	if !ok {
		return err
	}

	t := a.place(&rec)
	a.schedule = append(a.schedule, t)
	a.push(rec, t)

	a.log.V(2).Info("placed", "timing", t.String())

	return nil
}

// Run executes instructions until the stream halts.
func (a *Analytical) Run() error {
	for !a.Done() {
		if err := a.Advance(); err != nil {
			return err
		}
	}
	return a.err
}

// Cycles returns the write cycle of the last placed instruction.
func (a *Analytical) Cycles() uint64 {
	if a.filled == 0 {
		return 0
	}
	return a.window[0].timing.Write
}

// Stats returns statistics derived from the schedule.
func (a *Analytical) Stats() Statistics {
	return summarize(a.schedule, a.Cycles())
}

func (a *Analytical) place(rec *emu.Record) Timing {
	t := Timing{Seq: rec.Seq, PC: rec.PC, Op: rec.Inst.Op}

	if a.filled == 0 {
		t.Fetch, t.Read, t.Exec, t.Write = 0, 1, 2, 3
		return t
	}

	p1 := &a.window[0]

	t.Fetch = p1.timing.Read
	if FetchDepends(rec, &p1.rec) {
		t.Fetch = max(t.Fetch, p1.timing.Write)
	}

	t.Read = max(t.Fetch+1, p1.timing.Exec)
	if ReadDepends(rec, &p1.rec) {
		t.Read = max(t.Read, p1.timing.Write)
	}
	if a.filled > 1 {
		p2 := &a.window[1]
		if ReadDepends(rec, &p2.rec) {
			t.Read = max(t.Read, p2.timing.Write)
		}
	}

	t.Exec = max(t.Read+1, p1.timing.Write)
	t.Write = max(t.Exec+1, p1.timing.Write+1)

	return t
}

func (a *Analytical) push(rec emu.Record, t Timing) {
	copy(a.window[1:], a.window[:Lookback-1])
	a.window[0] = windowEntry{rec: rec, timing: t}
	if a.filled < Lookback {
		a.filled++
	}
}
