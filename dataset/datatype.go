package dataset

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DataType is the storage type of a band's pixels
type DataType string

// Supported band DataTypes
const (
	Uint8  DataType = "uint8"
	Uint16 DataType = "uint16"
	Uint32 DataType = "uint32"
	Uint64 DataType = "uint64"
	Int16  DataType = "int16"
	Int32  DataType = "int32"
	Int64  DataType = "int64"
)

// ParseDataType converts a name such as "uint32" into a DataType
func ParseDataType(s string) (DataType, error) {
	dt := DataType(s)
	if dt.Size() == 0 {
		return "", fmt.Errorf("Unsupported data type %s", s)
	}
	return dt, nil
}

// Size returns the number of bytes per pixel, or 0 for an unsupported DataType
func (dt DataType) Size() int {
	switch dt {
	case Uint8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32:
		return 4
	case Uint64, Int64:
		return 8
	default:
		return 0
	}
}

// Contains returns true iff v can be stored in this DataType. Every value
// is accepted for Uint64, which stores the bit pattern of v.
func (dt DataType) Contains(v int64) bool {
	switch dt {
	case Uint8:
		return v >= 0 && v <= math.MaxUint8
	case Uint16:
		return v >= 0 && v <= math.MaxUint16
	case Uint32:
		return v >= 0 && v <= math.MaxUint32
	case Int16:
		return v >= math.MinInt16 && v <= math.MaxInt16
	case Int32:
		return v >= math.MinInt32 && v <= math.MaxInt32
	default:
		return true
	}
}

// encode writes pixels to buf in little-endian order
func (dt DataType) encode(buf []byte, pixels []int64) {
	switch dt {
	case Uint8:
		for i, v := range pixels {
			buf[i] = uint8(v)
		}
	case Uint16, Int16:
		for i, v := range pixels {
			binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
		}
	case Uint32, Int32:
		for i, v := range pixels {
			binary.LittleEndian.PutUint32(buf[4*i:], uint32(v))
		}
	default:
		for i, v := range pixels {
			binary.LittleEndian.PutUint64(buf[8*i:], uint64(v))
		}
	}
}

// decode reads little-endian pixels from buf
func (dt DataType) decode(pixels []int64, buf []byte) {
	switch dt {
	case Uint8:
		for i := range pixels {
			pixels[i] = int64(buf[i])
		}
	case Uint16:
		for i := range pixels {
			pixels[i] = int64(binary.LittleEndian.Uint16(buf[2*i:]))
		}
	case Int16:
		for i := range pixels {
			pixels[i] = int64(int16(binary.LittleEndian.Uint16(buf[2*i:])))
		}
	case Uint32:
		for i := range pixels {
			pixels[i] = int64(binary.LittleEndian.Uint32(buf[4*i:]))
		}
	case Int32:
		for i := range pixels {
			pixels[i] = int64(int32(binary.LittleEndian.Uint32(buf[4*i:])))
		}
	default:
		for i := range pixels {
			pixels[i] = int64(binary.LittleEndian.Uint64(buf[8*i:]))
		}
	}
}
