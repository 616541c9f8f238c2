//go:build linux

package i2c

import (
	"os"
	"strings"
	"testing"
)

func devNullBus(t *testing.T) *Bus {
	t.Helper()
	f, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile /dev/null: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return &Bus{f: f, path: "/dev/null"}
}

func TestDevTx_InvalidAddr(t *testing.T) {
	b := devNullBus(t)

	for _, addr := range []uint16{0, 0x80} {
		d := &Dev{bus: b, addr: addr}
		err := d.Write([]byte{0x00})
		if err == nil || !strings.Contains(err.Error(), "invalid i2c addr") {
			t.Fatalf("addr=0x%X err=%v want invalid i2c addr", addr, err)
		}
	}
}

func TestDevTx_EmptyIsNoop(t *testing.T) {
	b := devNullBus(t)
	d := &Dev{bus: b, addr: 0x40}

	n, err := d.tx(nil, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if n != 0 {
		t.Fatalf("n=%d want 0", n)
	}
}

func TestDevWrite_NilDevice(t *testing.T) {
	var d *Dev
	if err := d.WriteReg(0x00, 0x01); err == nil {
		t.Fatalf("expected error on nil device")
	}
}

func TestBusClose_Idempotent(t *testing.T) {
	b := devNullBus(t)
	if err := b.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
