package pca9685

import (
	"fmt"
	"testing"
	"time"
)

type regWrite struct {
	reg  byte
	data []byte
}

type fakeRegIO struct {
	writes   []regWrite
	failReg  byte
	failErr  error
	mode1Val byte
}

func (f *fakeRegIO) WriteReg(reg, value byte) error {
	return f.WriteBurst(reg, value)
}

func (f *fakeRegIO) WriteBurst(reg byte, values ...byte) error {
	if f.failErr != nil && reg == f.failReg {
		return f.failErr
	}
	f.writes = append(f.writes, regWrite{reg: reg, data: values})
	return nil
}

func (f *fakeRegIO) ReadRegU8(reg byte) (byte, error) {
	if f.failErr != nil && reg == f.failReg {
		return 0, f.failErr
	}
	if reg == regMode1 {
		return f.mode1Val, nil
	}
	return 0, nil
}

func noSleep(t *testing.T) {
	t.Helper()
	old := sleep
	sleep = func(time.Duration) {}
	t.Cleanup(func() { sleep = old })
}

func newTestDevice(t *testing.T) (*Device, *fakeRegIO) {
	t.Helper()
	noSleep(t)
	fake := &fakeRegIO{}
	d, err := newWithIO(fake)
	if err != nil {
		t.Fatalf("newWithIO: %v", err)
	}
	fake.writes = nil
	return d, fake
}

func TestNew_ProgramsServoPrescale(t *testing.T) {
	noSleep(t)
	fake := &fakeRegIO{}
	if _, err := newWithIO(fake); err != nil {
		t.Fatalf("newWithIO: %v", err)
	}

	var prescale *regWrite
	for i := range fake.writes {
		if fake.writes[i].reg == regPrescale {
			prescale = &fake.writes[i]
		}
	}
	if prescale == nil {
		t.Fatalf("no prescale write in init sequence")
	}
	// 25MHz / (4096 * 50Hz) rounds to 122; register wants that minus one.
	if got := prescale.data[0]; got != 121 {
		t.Fatalf("prescale=%d want 121", got)
	}
}

func TestNew_ProbeFailure(t *testing.T) {
	noSleep(t)
	fake := &fakeRegIO{failReg: regMode1, failErr: fmt.Errorf("remote I/O error")}
	if _, err := newWithIO(fake); err == nil {
		t.Fatalf("expected probe error for absent chip")
	}
}

func TestSetAngle_PulseCounts(t *testing.T) {
	d, fake := newTestDevice(t)

	cases := []struct {
		angle   float64
		wantOff int
	}{
		// 500..2500us over a 20ms frame at 12 bits.
		{0, 102},    // 500us * 4096/20000
		{90, 307},   // 1500us
		{180, 512},  // 2500us
		{200, 512},  // clamped to 180
		{-10, 102},  // clamped to 0
	}
	for _, tc := range cases {
		fake.writes = nil
		if err := d.SetAngle(3, tc.angle, 500, 2500); err != nil {
			t.Fatalf("SetAngle(%g): %v", tc.angle, err)
		}
		if len(fake.writes) != 1 {
			t.Fatalf("writes=%d want 1", len(fake.writes))
		}
		w := fake.writes[0]
		if w.reg != regLed0OnL+4*3 {
			t.Fatalf("reg=0x%02X want 0x%02X", w.reg, regLed0OnL+4*3)
		}
		off := int(w.data[2]) | int(w.data[3])<<8
		if off != tc.wantOff {
			t.Fatalf("angle=%g off=%d want %d", tc.angle, off, tc.wantOff)
		}
		if w.data[0] != 0 || w.data[1] != 0 {
			t.Fatalf("on counts=%v want 0,0", w.data[:2])
		}
	}
}

func TestSetAngle_Validation(t *testing.T) {
	d, _ := newTestDevice(t)

	if err := d.SetAngle(16, 90, 500, 2500); err == nil {
		t.Fatalf("expected channel range error")
	}
	if err := d.SetAngle(-1, 90, 500, 2500); err == nil {
		t.Fatalf("expected channel range error")
	}
	if err := d.SetAngle(0, 90, 2500, 500); err == nil {
		t.Fatalf("expected pulse range error")
	}
}

func TestRelease_SetsFullOff(t *testing.T) {
	d, fake := newTestDevice(t)

	if err := d.Release(1); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if len(fake.writes) != 1 {
		t.Fatalf("writes=%d want 1", len(fake.writes))
	}
	w := fake.writes[0]
	if w.reg != regLed0OnL+4*1 {
		t.Fatalf("reg=0x%02X want 0x%02X", w.reg, regLed0OnL+4*1)
	}
	if w.data[3] != fullOffBit {
		t.Fatalf("off high byte=0x%02X want 0x%02X", w.data[3], fullOffBit)
	}
}
