package canonical

import (
	"strconv"
	"strings"
)

// Encode returns the canonical string form of v.
//
// Two values with the same structure and content encode to byte-identical
// strings regardless of map insertion order; any difference in structure or
// content yields a different string. Map keys are sorted byte-wise, list order
// is preserved, strings and keys are Go-quoted and no whitespace is emitted.
func Encode(v Value) string {
	var sb strings.Builder
	encodeTo(&sb, v)
	return sb.String()
}

func encodeTo(sb *strings.Builder, v Value) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		sb.WriteString(formatNumber(v.num))
	case KindString:
		sb.WriteString(strconv.Quote(v.str))
	case KindList:
		sb.WriteByte('[')
		for i, e := range v.items {
			if i > 0 {
				sb.WriteByte(',')
			}
			encodeTo(sb, e)
		}
		sb.WriteByte(']')
	case KindMap:
		sb.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteByte(':')
			encodeTo(sb, v.fields[k])
		}
		sb.WriteByte('}')
	}
}

// formatNumber renders f in its shortest exact decimal form without an
// exponent, so 1 encodes as "1" and 0.5 as "0.5".
func formatNumber(f float64) string {
	if f == 0 {
		// Collapse -0 into 0.
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
