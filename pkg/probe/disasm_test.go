package probe

import (
	"reflect"
	"runtime"
	"strings"
	"testing"
)

func TestDecodeInstruction(t *testing.T) {
	testCases := []struct {
		arch string
		mem  []byte
		tgt  string
	}{
		// FMUL D0, D0, D1
		{"arm64", []byte{0x00, 0x08, 0x61, 0x1e}, "FMUL"},
		// mulsd %xmm1,%xmm0
		{"amd64", []byte{0xf2, 0x0f, 0x59, 0xc1}, "mulsd"},
	}
	for _, tc := range testCases {
		out, err := DecodeInstruction(tc.arch, 0x1000, tc.mem)
		if err != nil {
			t.Errorf("%s: %v", tc.arch, err)
			continue
		}
		if !strings.Contains(out, tc.tgt) {
			t.Errorf("%s: expected %q in %q", tc.arch, tc.tgt, out)
		}
	}
	if _, err := DecodeInstruction("arm64", 0, []byte{0}); err == nil {
		t.Error("expected error for short arm64 instruction")
	}
	if _, err := DecodeInstruction("mips", 0, []byte{0, 0, 0, 0}); err == nil {
		t.Error("expected error for unknown architecture")
	}
}

func TestTextAt(t *testing.T) {
	if runtime.GOOS != "linux" || (runtime.GOARCH != "arm64" && runtime.GOARCH != "amd64") {
		t.Skip("reads /proc/self/mem on linux/arm64 and linux/amd64")
	}
	pc := reflect.ValueOf(multiplyOverflow).Pointer()
	mem, err := textAt(pc, runtime.GOARCH)
	if err != nil {
		t.Fatal(err)
	}
	if runtime.GOARCH == "arm64" && len(mem) != 4 {
		t.Fatalf("expected 4 bytes, got %d", len(mem))
	}
	inst, err := DecodeInstruction(runtime.GOARCH, uint64(pc), mem)
	if err != nil {
		t.Fatalf("decoding % x at %#x: %v", mem, pc, err)
	}
	t.Logf("%#x: %s", pc, inst)

	if _, err := textAt(pc, "mips"); err == nil {
		t.Error("expected error for unknown architecture")
	}
}
