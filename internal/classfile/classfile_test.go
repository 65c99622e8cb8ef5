// SPDX-License-Identifier: MPL-2.0

package classfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"slices"
	"strings"
	"testing"
)

// poolEntry is one constant for buildClass: a UTF-8 string, or raw bytes
// (tag included) for other constants.
type poolEntry struct {
	utf8  string
	raw   []byte
	slots int
}

func utf8Entry(s string) poolEntry { return poolEntry{utf8: s, slots: 1} }

func rawEntry(slots int, b ...byte) poolEntry { return poolEntry{raw: b, slots: slots} }

// buildClass assembles a minimal class file: header, constant pool, and a
// fixed tail standing in for the rest of the class.
func buildClass(entries []poolEntry, tail []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, Magic)
	_ = binary.Write(&buf, binary.BigEndian, uint16(0))  // minor
	_ = binary.Write(&buf, binary.BigEndian, uint16(65)) // major (Java 21)
	count := 1
	for _, e := range entries {
		count += e.slots
	}
	_ = binary.Write(&buf, binary.BigEndian, uint16(count))
	for _, e := range entries {
		if e.raw != nil {
			buf.Write(e.raw)
			continue
		}
		buf.WriteByte(TagUtf8)
		_ = binary.Write(&buf, binary.BigEndian, uint16(len(e.utf8)))
		buf.WriteString(e.utf8)
	}
	buf.Write(tail)
	return buf.Bytes()
}

func sampleEntries() []poolEntry {
	return []poolEntry{
		utf8Entry("com/google/gson/Gson"),
		rawEntry(1, TagClass, 0, 1),
		rawEntry(2, TagLong, 0, 0, 0, 0, 0, 0, 0, 42),
		utf8Entry("(Lcom/google/gson/Gson;)V"),
		rawEntry(1, TagMethodHandle, 1, 0, 2),
		rawEntry(1, TagInteger, 0, 0, 0, 7),
		rawEntry(2, TagDouble, 1, 2, 3, 4, 5, 6, 7, 8),
		utf8Entry("toJson"),
		rawEntry(1, TagNameAndType, 0, 8, 0, 4),
	}
}

func TestRewriteUTF8(t *testing.T) {
	t.Parallel()

	tail := []byte{0x00, 0x21, 0x00, 0x02, 0xDE, 0xAD}
	in := buildClass(sampleEntries(), tail)

	out, changed, err := RewriteUTF8(in, func(s string) string {
		return strings.ReplaceAll(s, "com/google/gson", "org/example/libs/gson")
	})
	if err != nil {
		t.Fatalf("RewriteUTF8() error: %v", err)
	}
	if !changed {
		t.Fatal("RewriteUTF8() reported no change")
	}

	got := utf8Constants(t, out)
	want := []string{"org/example/libs/gson/Gson", "(Lorg/example/libs/gson/Gson;)V", "toJson"}
	if !slices.Equal(got, want) {
		t.Errorf("constants = %v, want %v", got, want)
	}
	if !bytes.HasSuffix(out, tail) {
		t.Error("bytes after the constant pool were not preserved")
	}

	// The rewritten class equals a class built directly with the new strings.
	entries := sampleEntries()
	entries[0] = utf8Entry(want[0])
	entries[3] = utf8Entry(want[1])
	if expected := buildClass(entries, tail); !bytes.Equal(out, expected) {
		t.Errorf("rewritten class differs from the expected encoding:\n got %x\nwant %x", out, expected)
	}
}

func TestRewriteUTF8_Unchanged(t *testing.T) {
	t.Parallel()

	in := buildClass(sampleEntries(), []byte{1, 2, 3})
	out, changed, err := RewriteUTF8(in, func(s string) string { return s })
	if err != nil {
		t.Fatalf("RewriteUTF8() error: %v", err)
	}
	if changed {
		t.Error("identity rewrite reported a change")
	}
	if !bytes.Equal(out, in) {
		t.Error("identity rewrite altered the class")
	}
}

func TestRewriteUTF8_Errors(t *testing.T) {
	t.Parallel()

	valid := buildClass([]poolEntry{utf8Entry("abc")}, nil)
	badMagic := slices.Clone(valid)
	badMagic[0] = 0

	unknownTag := buildClass([]poolEntry{rawEntry(1, 99, 0, 0)}, nil)

	tests := []struct {
		name string
		data []byte
		fn   func(string) string
		want error
	}{
		{name: "empty", data: nil, want: ErrNotClassFile},
		{name: "bad magic", data: badMagic, want: ErrNotClassFile},
		{name: "truncated utf8", data: valid[:len(valid)-1], want: ErrMalformed},
		{name: "truncated pool", data: valid[:headerSize], want: ErrMalformed},
		{name: "unknown tag", data: unknownTag, want: ErrMalformed},
		{
			name: "constant too long",
			data: valid,
			fn:   func(string) string { return strings.Repeat("x", 0x10000) },
			want: ErrConstantTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fn := tt.fn
			if fn == nil {
				fn = func(s string) string { return s }
			}
			if _, _, err := RewriteUTF8(tt.data, fn); !errors.Is(err, tt.want) {
				t.Errorf("RewriteUTF8() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// utf8Constants returns the CONSTANT_Utf8 values of a class file in pool order.
func utf8Constants(t *testing.T, data []byte) []string {
	t.Helper()

	var values []string
	if _, _, err := RewriteUTF8(data, func(s string) string {
		values = append(values, s)
		return s
	}); err != nil {
		t.Fatalf("RewriteUTF8() error: %v", err)
	}
	return values
}
