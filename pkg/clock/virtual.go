package clock

// Virtual is a deterministic Source for simulation and tests. Every call to
// GetTime returns the current counter and then advances it by the configured
// step, modelling the CPU time spent between two samples.
type Virtual struct {
	ticks uint64
	step  uint16
	reads uint64
}

// NewVirtual creates a Virtual source advancing step ticks per read.
func NewVirtual(step uint16) *Virtual {
	if step == 0 {
		step = 1
	}
	return &Virtual{step: step}
}

func (v *Virtual) Init() {}

// GetTime implements Source.
func (v *Virtual) GetTime() uint16 {
	now := uint16(v.ticks)
	v.ticks += uint64(v.step)
	v.reads++
	return now
}

// Advance moves the counter forward without a read.
func (v *Virtual) Advance(ticks uint64) {
	v.ticks += ticks
}

// Ticks returns the total number of ticks elapsed since creation.
func (v *Virtual) Ticks() uint64 {
	return v.ticks
}

// Reads returns how many times GetTime was called.
func (v *Virtual) Reads() uint64 {
	return v.reads
}

// Seconds returns the simulated time in seconds.
func (v *Virtual) Seconds() float64 {
	return float64(v.ticks) / TickFrequency
}
