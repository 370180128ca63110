package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"wasmdb/internal/domain"
)

// Row log payload encoding: one tag byte per value followed by the payload.
// Int and Boolean are 8-byte little-endian integers, Float is an 8-byte
// IEEE-754 bit pattern, String is a u32 length prefix plus UTF-8 bytes.
const (
	tagInt  byte = 1
	tagFlt  byte = 2
	tagStr  byte = 3
	tagBool byte = 4
)

func encodeRow(row domain.Row) []byte {
	var buf bytes.Buffer
	var scratch [8]byte
	for _, v := range row {
		switch v.Kind() {
		case domain.TypeInt:
			buf.WriteByte(tagInt)
			binary.LittleEndian.PutUint64(scratch[:], uint64(v.Int()))
			buf.Write(scratch[:])
		case domain.TypeFloat:
			buf.WriteByte(tagFlt)
			binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(v.Float()))
			buf.Write(scratch[:])
		case domain.TypeString:
			buf.WriteByte(tagStr)
			s := v.Str()
			binary.LittleEndian.PutUint32(scratch[:4], uint32(len(s)))
			buf.Write(scratch[:4])
			buf.WriteString(s)
		case domain.TypeBoolean:
			buf.WriteByte(tagBool)
			var n uint64
			if v.Bool() {
				n = 1
			}
			binary.LittleEndian.PutUint64(scratch[:], n)
			buf.Write(scratch[:])
		}
	}
	return buf.Bytes()
}

func decodeRow(payload []byte) (domain.Row, error) {
	var row domain.Row
	for len(payload) > 0 {
		tag := payload[0]
		payload = payload[1:]
		switch tag {
		case tagInt, tagBool, tagFlt:
			if len(payload) < 8 {
				return nil, fmt.Errorf("truncated value payload")
			}
			n := binary.LittleEndian.Uint64(payload[:8])
			payload = payload[8:]
			switch tag {
			case tagInt:
				row = append(row, domain.IntValue(int64(n)))
			case tagBool:
				row = append(row, domain.BoolValue(n == 1))
			case tagFlt:
				row = append(row, domain.FloatValue(math.Float64frombits(n)))
			}
		case tagStr:
			if len(payload) < 4 {
				return nil, fmt.Errorf("truncated string length")
			}
			n := binary.LittleEndian.Uint32(payload[:4])
			payload = payload[4:]
			if uint32(len(payload)) < n {
				return nil, fmt.Errorf("truncated string payload")
			}
			row = append(row, domain.StringValue(string(payload[:n])))
			payload = payload[n:]
		default:
			return nil, fmt.Errorf("unknown value tag %d", tag)
		}
	}
	return row, nil
}
