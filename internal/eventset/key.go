package eventset

import (
	"strconv"
	"strings"

	"github.com/vk/eventflowgo/internal/schema"
)

// KeyValue is one decoded index key component. Only the integer and string
// dtypes permitted for indexes are representable.
type KeyValue struct {
	DType schema.DType
	Int   int64
	Str   string
}

// Int64Key builds an int64 key component.
func Int64Key(v int64) KeyValue { return KeyValue{DType: schema.Int64, Int: v} }

// Int32Key builds an int32 key component.
func Int32Key(v int32) KeyValue { return KeyValue{DType: schema.Int32, Int: int64(v)} }

// StrKey builds a string key component.
func StrKey(s string) KeyValue { return KeyValue{DType: schema.String, Str: s} }

// String renders the component's value without type decoration.
func (k KeyValue) String() string {
	if k.DType == schema.String {
		return k.Str
	}
	return strconv.FormatInt(k.Int, 10)
}

// EncodeKey renders a key to its canonical string form, used for bucket
// lookup and for the deterministic bucket iteration order. String
// components are quoted so separators inside values cannot collide.
func EncodeKey(key []KeyValue) string {
	if len(key) == 0 {
		return ""
	}
	var b strings.Builder
	for i, kv := range key {
		if i > 0 {
			b.WriteByte('|')
		}
		switch kv.DType {
		case schema.String:
			b.WriteString("s:")
			b.WriteString(strconv.Quote(kv.Str))
		default:
			b.WriteString("i:")
			b.WriteString(strconv.FormatInt(kv.Int, 10))
		}
	}
	return b.String()
}
