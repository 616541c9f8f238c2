package shell

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"pp96ctl/internal/config"
)

type fakeRig struct {
	setAngles []float64
	plateIn   int
	plateOut  int
}

func (f *fakeRig) Set(angle float64, hold time.Duration) error {
	f.setAngles = append(f.setAngles, angle)
	return nil
}

func (f *fakeRig) PlateIn(hold time.Duration) error  { f.plateIn++; return nil }
func (f *fakeRig) PlateOut(hold time.Duration) error { f.plateOut++; return nil }

func noSleep(t *testing.T) {
	t.Helper()
	old := sleep
	sleep = func(time.Duration) {}
	t.Cleanup(func() { sleep = old })
}

func runScript(t *testing.T, script string) (*fakeRig, string) {
	t.Helper()
	noSleep(t)
	rig := &fakeRig{}
	var out bytes.Buffer
	sh := New(rig, config.Default(), strings.NewReader(script), &out)
	if err := sh.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return rig, out.String()
}

func TestStepDelay(t *testing.T) {
	cases := []struct {
		pct  int
		want time.Duration
	}{
		{100, 1 * time.Millisecond},
		{1, 30 * time.Millisecond},
		{0, 30 * time.Millisecond},   // clamped
		{150, 1 * time.Millisecond},  // clamped
	}
	for _, tc := range cases {
		if got := stepDelay(tc.pct); got != tc.want {
			t.Fatalf("stepDelay(%d)=%s want %s", tc.pct, got, tc.want)
		}
	}
}

func TestUp_SweepsOneDegreeAtATime(t *testing.T) {
	rig, out := runScript(t, "up\nquit\n")

	if len(rig.setAngles) == 0 {
		t.Fatalf("no writes issued")
	}
	// Starts from neutral (90), walks down to 30.
	if first := rig.setAngles[0]; first != 89 {
		t.Fatalf("first step=%g want 89", first)
	}
	if last := rig.setAngles[len(rig.setAngles)-1]; last != 30 {
		t.Fatalf("last step=%g want 30", last)
	}
	for i := 1; i < len(rig.setAngles)-1; i++ {
		if diff := rig.setAngles[i] - rig.setAngles[i-1]; diff != -1 {
			t.Fatalf("step %d jumps by %g", i, diff)
		}
	}
	if !strings.Contains(out, "state: UP (30 / 150)") {
		t.Fatalf("output missing state line: %q", out)
	}
}

func TestSet_TracksAngleAcrossCommands(t *testing.T) {
	rig, _ := runScript(t, "set 120\nset 110\nquit\n")

	last := rig.setAngles[len(rig.setAngles)-1]
	if last != 110 {
		t.Fatalf("final angle=%g want 110", last)
	}
	// Second sweep must start from 120, not from neutral.
	var sawDescendFrom120 bool
	for i := 1; i < len(rig.setAngles); i++ {
		if rig.setAngles[i-1] == 120 && rig.setAngles[i] == 119 {
			sawDescendFrom120 = true
		}
	}
	if !sawDescendFrom120 {
		t.Fatalf("second sweep did not continue from 120: %v", rig.setAngles)
	}
}

func TestPlateCommands(t *testing.T) {
	rig, out := runScript(t, "in\npull\npush\nout\nquit\n")

	if rig.plateIn != 2 || rig.plateOut != 2 {
		t.Fatalf("plateIn=%d plateOut=%d want 2/2", rig.plateIn, rig.plateOut)
	}
	if !strings.Contains(out, "plate: IN (extended)") || !strings.Contains(out, "plate: OUT (retracted)") {
		t.Fatalf("output missing plate lines: %q", out)
	}
}

func TestSpeedAndBadInput(t *testing.T) {
	rig, out := runScript(t, "speed 0\nspeed 250\nset xyz\nbogus\nquit\n")

	if len(rig.setAngles) != 0 {
		t.Fatalf("unexpected writes: %v", rig.setAngles)
	}
	if !strings.Contains(out, "speed set to 1%") || !strings.Contains(out, "speed set to 100%") {
		t.Fatalf("speed clamping output wrong: %q", out)
	}
	if !strings.Contains(out, "usage: set <0..180>") {
		t.Fatalf("missing set usage line: %q", out)
	}
	if !strings.Contains(out, "unrecognized") {
		t.Fatalf("missing unrecognized line: %q", out)
	}
}

func TestEOF_EndsSession(t *testing.T) {
	rig, _ := runScript(t, "neutral\n")
	// Neutral from neutral is a single confirming write.
	if len(rig.setAngles) != 1 || rig.setAngles[0] != 90 {
		t.Fatalf("setAngles=%v want single 90", rig.setAngles)
	}
}
