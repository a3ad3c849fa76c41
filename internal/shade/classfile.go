package shade

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const classMagic = 0xCAFEBABE

// Constant pool tags, JVMS §4.4.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

var errTruncatedClass = errors.New("truncated class file")

// rewriteClass applies fn to every Utf8 constant of a class file. Only the
// constant pool is touched, everything after it is copied verbatim, so
// constant indices and attribute offsets stay valid.
func rewriteClass(data []byte, fn func(string) (string, bool)) ([]byte, bool, error) {
	if len(data) < 10 || binary.BigEndian.Uint32(data) != classMagic {
		return nil, false, fmt.Errorf("not a class file")
	}
	count := int(binary.BigEndian.Uint16(data[8:10]))

	var out bytes.Buffer
	out.Grow(len(data) + 256)
	out.Write(data[:10])

	changed := false
	pos := 10
	for i := 1; i < count; i++ {
		if pos >= len(data) {
			return nil, false, errTruncatedClass
		}
		tag := data[pos]
		var size int
		switch tag {
		case tagUtf8:
			if pos+3 > len(data) {
				return nil, false, errTruncatedClass
			}
			n := int(binary.BigEndian.Uint16(data[pos+1:]))
			end := pos + 3 + n
			if end > len(data) {
				return nil, false, errTruncatedClass
			}
			s := string(data[pos+3 : end])
			if repl, ok := fn(s); ok {
				if len(repl) > 0xFFFF {
					return nil, false, fmt.Errorf("relocated constant exceeds 65535 bytes")
				}
				var hdr [3]byte
				hdr[0] = tagUtf8
				binary.BigEndian.PutUint16(hdr[1:], uint16(len(repl)))
				out.Write(hdr[:])
				out.WriteString(repl)
				changed = true
				pos = end
				continue
			}
			size = 3 + n
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			size = 3
		case tagMethodHandle:
			size = 4
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagInterfaceMethodref,
			tagNameAndType, tagDynamic, tagInvokeDynamic:
			size = 5
		case tagLong, tagDouble:
			size = 9
			// Eight-byte constants take two pool slots.
			i++
		default:
			return nil, false, fmt.Errorf("unknown constant pool tag %d at offset %d", tag, pos)
		}
		if pos+size > len(data) {
			return nil, false, errTruncatedClass
		}
		out.Write(data[pos : pos+size])
		pos += size
	}
	if !changed {
		return data, false, nil
	}
	out.Write(data[pos:])
	return out.Bytes(), true, nil
}
