package pp96

// Adapter is the minimal capability the controller needs from the PWM
// hardware: drive a channel to an angle within a pulse range, stop driving
// it, and release the underlying handle.
//
// Close should be best-effort and leave the hardware in a safe state.
type Adapter interface {
	SetAngle(channel int, angleDeg float64, pulseMinUs, pulseMaxUs int) error
	Release(channel int) error
	Close() error
}

// Write is one recorded SetAngle call.
type Write struct {
	Channel    int
	AngleDeg   float64
	PulseMinUs int
	PulseMaxUs int
}

// DryRun is an Adapter that performs no hardware I/O. Every call succeeds
// and is recorded, so tests and hardware-less environments see the exact
// command stream the live board would have received.
type DryRun struct {
	writes   []Write
	released []int
	closed   bool
}

func NewDryRun() *DryRun { return &DryRun{} }

func (d *DryRun) SetAngle(channel int, angleDeg float64, pulseMinUs, pulseMaxUs int) error {
	d.writes = append(d.writes, Write{
		Channel:    channel,
		AngleDeg:   angleDeg,
		PulseMinUs: pulseMinUs,
		PulseMaxUs: pulseMaxUs,
	})
	return nil
}

func (d *DryRun) Release(channel int) error {
	d.released = append(d.released, channel)
	return nil
}

func (d *DryRun) Close() error {
	d.closed = true
	return nil
}

// Writes returns every SetAngle call in order.
func (d *DryRun) Writes() []Write { return d.writes }

// Released returns the channels released so far, in order.
func (d *DryRun) Released() []int { return d.released }

// Closed reports whether Close has been called.
func (d *DryRun) Closed() bool { return d.closed }

// LastAngle returns the most recent commanded angle for a channel.
func (d *DryRun) LastAngle(channel int) (float64, bool) {
	for i := len(d.writes) - 1; i >= 0; i-- {
		if d.writes[i].Channel == channel {
			return d.writes[i].AngleDeg, true
		}
	}
	return 0, false
}
