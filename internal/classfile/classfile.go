// SPDX-License-Identifier: MPL-2.0

// Package classfile rewrites the UTF-8 entries of a JVM class file constant pool.
//
// Class, field, method and string references all bottom out in CONSTANT_Utf8
// entries, so renaming a namespace only needs those entries rewritten; every
// other byte of the class file is copied unchanged.
package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Magic is the first four bytes of every class file.
const Magic uint32 = 0xCAFEBABE

// Constant pool tags.
const (
	TagUtf8               byte = 1
	TagInteger            byte = 3
	TagFloat              byte = 4
	TagLong               byte = 5
	TagDouble             byte = 6
	TagClass              byte = 7
	TagString             byte = 8
	TagFieldref           byte = 9
	TagMethodref          byte = 10
	TagInterfaceMethodref byte = 11
	TagNameAndType        byte = 12
	TagMethodHandle       byte = 15
	TagMethodType         byte = 16
	TagDynamic            byte = 17
	TagInvokeDynamic      byte = 18
	TagModule             byte = 19
	TagPackage            byte = 20
)

// headerSize covers magic, minor_version, major_version and constant_pool_count.
const headerSize = 10

var (
	// ErrNotClassFile is returned when the magic number is wrong.
	ErrNotClassFile = errors.New("not a class file")
	// ErrMalformed is returned when the constant pool cannot be walked.
	ErrMalformed = errors.New("malformed class file")
	// ErrConstantTooLong is returned when a rewritten constant exceeds 65535 bytes.
	ErrConstantTooLong = errors.New("rewritten constant exceeds 65535 bytes")
)

// fixedSizes is the payload size of every non-UTF-8 tag.
var fixedSizes = map[byte]int{
	TagInteger:            4,
	TagFloat:              4,
	TagLong:               8,
	TagDouble:             8,
	TagClass:              2,
	TagString:             2,
	TagFieldref:           4,
	TagMethodref:          4,
	TagInterfaceMethodref: 4,
	TagNameAndType:        4,
	TagMethodHandle:       3,
	TagMethodType:         2,
	TagDynamic:            4,
	TagInvokeDynamic:      4,
	TagModule:             2,
	TagPackage:            2,
}

// RewriteUTF8 returns a copy of the class file in data with every CONSTANT_Utf8
// entry replaced by fn's result. The second result reports whether any entry
// changed; when none did, data itself is returned.
func RewriteUTF8(data []byte, fn func(string) string) ([]byte, bool, error) {
	count, err := header(data)
	if err != nil {
		return nil, false, err
	}

	out := make([]byte, 0, len(data)+len(data)/8)
	out = append(out, data[:headerSize]...)
	changed := false

	pos := headerSize
	for index := 1; index < count; index++ {
		if pos >= len(data) {
			return nil, false, fmt.Errorf("%w: constant pool truncated at entry %d", ErrMalformed, index)
		}
		tag := data[pos]

		if tag == TagUtf8 {
			if pos+3 > len(data) {
				return nil, false, fmt.Errorf("%w: truncated UTF-8 length at entry %d", ErrMalformed, index)
			}
			n := int(binary.BigEndian.Uint16(data[pos+1:]))
			end := pos + 3 + n
			if end > len(data) {
				return nil, false, fmt.Errorf("%w: truncated UTF-8 entry %d", ErrMalformed, index)
			}
			value := string(data[pos+3 : end])
			rewritten := fn(value)
			if len(rewritten) > 0xFFFF {
				return nil, false, fmt.Errorf("%w: entry %d", ErrConstantTooLong, index)
			}
			if rewritten != value {
				changed = true
			}
			out = append(out, TagUtf8)
			out = binary.BigEndian.AppendUint16(out, uint16(len(rewritten)))
			out = append(out, rewritten...)
			pos = end
			continue
		}

		size, ok := fixedSizes[tag]
		if !ok {
			return nil, false, fmt.Errorf("%w: unknown constant tag %d at entry %d", ErrMalformed, tag, index)
		}
		end := pos + 1 + size
		if end > len(data) {
			return nil, false, fmt.Errorf("%w: truncated entry %d", ErrMalformed, index)
		}
		out = append(out, data[pos:end]...)
		pos = end
		// Long and Double take two pool slots.
		if tag == TagLong || tag == TagDouble {
			index++
		}
	}

	if !changed {
		return data, false, nil
	}
	return append(out, data[pos:]...), true, nil
}

func header(data []byte) (int, error) {
	if len(data) < headerSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrNotClassFile, len(data))
	}
	if binary.BigEndian.Uint32(data) != Magic {
		return 0, ErrNotClassFile
	}
	return int(binary.BigEndian.Uint16(data[8:])), nil
}
