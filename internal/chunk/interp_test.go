package chunk

import "testing"

func TestInterpSectionCopyBuf(t *testing.T) {
	ctx := newTestCtx()
	i := NewInterpSection("/lib64/ld-linux-x86-64.so.2")

	if err := i.UpdateShdr(ctx); err != nil {
		t.Fatalf("UpdateShdr: %v", err)
	}
	want := uint64(len("/lib64/ld-linux-x86-64.so.2") + 1)
	if i.Shdr.Size != want {
		t.Errorf("Shdr.Size = %d, want %d (path plus NUL)", i.Shdr.Size, want)
	}

	buf := make([]byte, i.Shdr.Size)
	if err := i.CopyBuf(ctx, buf); err != nil {
		t.Fatalf("CopyBuf: %v", err)
	}
	if got := string(buf[:len(buf)-1]); got != i.Path {
		t.Errorf("path bytes = %q, want %q", got, i.Path)
	}
	if buf[len(buf)-1] != 0 {
		t.Errorf("last byte = %d, want NUL terminator", buf[len(buf)-1])
	}
}
