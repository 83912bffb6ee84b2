// Package sqltypes implements the SQL values that sqlbuilder writes inline
// into statement text (THEN / ELSE results, explicit literals).  Values that
// are bound as parameters never pass through here.
package sqltypes

import (
	"encoding/hex"
	"io"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dropbox/sqldsl/errors"
)

var (
	NULL    = Value{}
	nullstr = []byte("null")
)

// Writer is the sink literals are encoded into.  *bytes.Buffer satisfies it.
type Writer interface {
	io.Writer
	io.ByteWriter
}

// Value can store any SQL literal. NULL is stored as nil.
type Value struct {
	Inner InnerValue
}

// Numeric represents non-fractional SQL number.
type Numeric []byte

// Fractional represents fractional types like float and decimal.
type Fractional []byte

// Boolean renders as the true / false keywords.
type Boolean bool

// String represents any SQL type that needs to be represented using quotes.
// If isUtf8 is false it is written as a hex literal.
type String struct {
	data   []byte
	isUtf8 bool
}

// InnerValue defines methods that need to be supported by all non-null value
// types.
type InnerValue interface {
	raw() []byte
	encodeSql(Writer)
}

// MakeNumeric makes a Numeric from a []byte without validation.
func MakeNumeric(b []byte) Value {
	return Value{Numeric(b)}
}

// MakeString makes a binary String value from a []byte.
func MakeString(b []byte) Value {
	return Value{String{b, false}}
}

// MakeUtf8String makes a String value from a string.
func MakeUtf8String(s string) Value {
	return Value{String{[]byte(s), true}}
}

// Raw returns the raw bytes.
func (v Value) Raw() []byte {
	if v.Inner == nil {
		return nil
	}
	return v.Inner.raw()
}

// String returns the raw value as a string
func (v Value) String() string {
	if v.Inner == nil {
		return ""
	}
	return string(v.Inner.raw())
}

// EncodeSql writes the value as an SQL literal.
func (v Value) EncodeSql(b Writer) {
	if v.Inner == nil {
		if _, err := b.Write(nullstr); err != nil {
			panic(err)
		}
	} else {
		v.Inner.encodeSql(b)
	}
}

func (v Value) IsNull() bool {
	return v.Inner == nil
}

func (v Value) IsNumeric() (ok bool) {
	if v.Inner != nil {
		_, ok = v.Inner.(Numeric)
	}
	return ok
}

func (v Value) IsString() (ok bool) {
	if v.Inner != nil {
		_, ok = v.Inner.(String)
	}
	return ok
}

// BuildValue converts a go value into a literal.  Pointers are followed; a
// nil pointer becomes NULL.
func BuildValue(goval interface{}) (v Value, err error) {
	switch bindVal := Deref(goval).(type) {
	case nil:
		// no op
	case bool:
		v = Value{Boolean(bindVal)}
	case int:
		v = Value{Numeric(strconv.AppendInt(nil, int64(bindVal), 10))}
	case int8:
		v = Value{Numeric(strconv.AppendInt(nil, int64(bindVal), 10))}
	case int16:
		v = Value{Numeric(strconv.AppendInt(nil, int64(bindVal), 10))}
	case int32:
		v = Value{Numeric(strconv.AppendInt(nil, int64(bindVal), 10))}
	case int64:
		v = Value{Numeric(strconv.AppendInt(nil, bindVal, 10))}
	case uint:
		v = Value{Numeric(strconv.AppendUint(nil, uint64(bindVal), 10))}
	case uint8:
		v = Value{Numeric(strconv.AppendUint(nil, uint64(bindVal), 10))}
	case uint16:
		v = Value{Numeric(strconv.AppendUint(nil, uint64(bindVal), 10))}
	case uint32:
		v = Value{Numeric(strconv.AppendUint(nil, uint64(bindVal), 10))}
	case uint64:
		v = Value{Numeric(strconv.AppendUint(nil, bindVal, 10))}
	case float32:
		v = Value{Fractional(strconv.AppendFloat(nil, float64(bindVal), 'f', -1, 32))}
	case float64:
		v = Value{Fractional(strconv.AppendFloat(nil, bindVal, 'f', -1, 64))}
	case string:
		v = Value{String{[]byte(bindVal), true}}
	case []byte:
		v = Value{String{bindVal, false}}
	case time.Time:
		v = Value{String{[]byte(bindVal.Format("2006-01-02 15:04:05.000000000")), true}}
	case uuid.UUID:
		v = Value{String{[]byte(bindVal.String()), true}}
	case Numeric, Fractional, String, Boolean:
		v = Value{bindVal.(InnerValue)}
	case Value:
		v = bindVal
	default:
		return Value{}, errors.Newf("Unsupported literal type %T: %v", goval, goval)
	}
	return v, nil
}

// Deref follows pointers until it reaches a non-pointer value.  Typed nil
// pointers collapse to an untyped nil so callers can test presence with a
// plain comparison.
func Deref(goval interface{}) interface{} {
	if goval == nil {
		return nil
	}
	rv := reflect.ValueOf(goval)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.CanInterface() {
		return goval
	}
	return rv.Interface()
}

// BuildNumeric builds a Numeric type that represents any whole number.
// It normalizes the representation to ensure 1:1 mapping between the
// number and its representation.
func BuildNumeric(val string) (n Value, err error) {
	if val == "" {
		return Value{}, errors.New("Empty numeric literal")
	}
	if val[0] == '-' || val[0] == '+' {
		signed, err := strconv.ParseInt(val, 0, 64)
		if err != nil {
			return Value{}, err
		}
		n = Value{Numeric(strconv.AppendInt(nil, signed, 10))}
	} else {
		unsigned, err := strconv.ParseUint(val, 0, 64)
		if err != nil {
			return Value{}, err
		}
		n = Value{Numeric(strconv.AppendUint(nil, unsigned, 10))}
	}
	return n, nil
}

func (n Numeric) raw() []byte {
	return []byte(n)
}

func (n Numeric) encodeSql(b Writer) {
	if _, err := b.Write(n.raw()); err != nil {
		panic(err)
	}
}

func (f Fractional) raw() []byte {
	return []byte(f)
}

func (f Fractional) encodeSql(b Writer) {
	if _, err := b.Write(f.raw()); err != nil {
		panic(err)
	}
}

func (t Boolean) raw() []byte {
	return strconv.AppendBool(nil, bool(t))
}

func (t Boolean) encodeSql(b Writer) {
	if _, err := b.Write(t.raw()); err != nil {
		panic(err)
	}
}

func (s String) raw() []byte {
	return s.data
}

// Strings use standard SQL quoting: the only escape is a doubled quote.
func (s String) encodeSql(b Writer) {
	if !s.isUtf8 {
		if _, err := b.Write([]byte("X'")); err != nil {
			panic(err)
		}
		if _, err := hex.NewEncoder(b).Write(s.data); err != nil {
			panic(err)
		}
		writebyte(b, '\'')
		return
	}

	writebyte(b, '\'')
	for _, ch := range s.data {
		if ch == '\'' {
			writebyte(b, '\'')
		}
		writebyte(b, ch)
	}
	writebyte(b, '\'')
}

func writebyte(b Writer, c byte) {
	if err := b.WriteByte(c); err != nil {
		panic(err)
	}
}
