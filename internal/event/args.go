package event

import (
	"errors"
	"fmt"
	"strconv"
)

// Errors returned while resolving kinds and decoding arguments.
var (
	ErrUnknownKind = errors.New("unknown event kind")
	ErrArgCount    = errors.New("wrong number of event arguments")
	ErrArgType     = errors.New("wrong event argument type")
)

// ArgType is the shape of one callback argument as the host delivers it.
type ArgType uint8

const (
	ArgHandle  ArgType = iota // opaque host object handle
	ArgAddress                // virtual address or offset
	ArgLength                 // byte length
	ArgEnum                   // small host enumeration value
	ArgName                   // UTF-8 name
	ArgBytes                  // raw byte string
)

var argTypeNames = map[ArgType]string{
	ArgHandle:  "handle",
	ArgAddress: "address",
	ArgLength:  "length",
	ArgEnum:    "enum",
	ArgName:    "name",
	ArgBytes:   "bytes",
}

func (t ArgType) String() string {
	if name, ok := argTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Param describes one callback argument.
type Param struct {
	Name string
	Type ArgType
}

func (p Param) String() string {
	return p.Name + ":" + p.Type.String()
}

// Value is one reconstructed argument. Numeric shapes use Num, ArgName uses
// Str and ArgBytes uses Bytes.
type Value struct {
	Param Param
	Num   uint64
	Str   string
	Bytes []byte
}

func (v Value) String() string {
	switch v.Param.Type {
	case ArgName:
		return fmt.Sprintf("%s=%q", v.Param.Name, v.Str)
	case ArgBytes:
		return fmt.Sprintf("%s=%q", v.Param.Name, v.Bytes)
	case ArgAddress, ArgHandle:
		return fmt.Sprintf("%s=%#x", v.Param.Name, v.Num)
	default:
		return fmt.Sprintf("%s=%d", v.Param.Name, v.Num)
	}
}

// Args is the typed payload of one event occurrence.
type Args struct {
	Kind   Kind
	Values []Value
}

// Get returns the value of the named parameter.
func (a Args) Get(name string) (Value, bool) {
	for _, v := range a.Values {
		if v.Param.Name == name {
			return v, true
		}
	}
	return Value{}, false
}

// Decode converts the raw values the host passed for kind into typed Args.
// Byte payloads are copied so the result does not alias host memory.
func Decode(kind Kind, raw []any) (Args, error) {
	if !kind.Subscribable() {
		return Args{}, fmt.Errorf("%w: %s is not a host event", ErrUnknownKind, kind)
	}

	params := kind.Params()
	if len(raw) != len(params) {
		return Args{}, fmt.Errorf("%w: %s takes %d, got %d", ErrArgCount, kind, len(params), len(raw))
	}

	args := Args{Kind: kind, Values: make([]Value, len(params))}
	for i, p := range params {
		v, err := convert(p, raw[i])
		if err != nil {
			return Args{}, fmt.Errorf("%s argument %d: %w", kind, i, err)
		}
		args.Values[i] = v
	}
	return args, nil
}

func convert(p Param, raw any) (Value, error) {
	v := Value{Param: p}
	switch p.Type {
	case ArgHandle, ArgAddress, ArgLength, ArgEnum:
		n, ok := toUint64(raw)
		if !ok {
			return v, fmt.Errorf("%w: %s wants an unsigned integer, got %T", ErrArgType, p, raw)
		}
		if p.Type == ArgEnum && n > 1<<32-1 {
			return v, fmt.Errorf("%w: %s value %d out of range", ErrArgType, p, n)
		}
		v.Num = n
	case ArgName:
		switch s := raw.(type) {
		case string:
			v.Str = s
		case []byte:
			v.Str = string(s)
		default:
			return v, fmt.Errorf("%w: %s wants a string, got %T", ErrArgType, p, raw)
		}
	case ArgBytes:
		switch b := raw.(type) {
		case []byte:
			v.Bytes = append([]byte(nil), b...)
		case string:
			v.Bytes = []byte(b)
		default:
			return v, fmt.Errorf("%w: %s wants bytes, got %T", ErrArgType, p, raw)
		}
	default:
		return v, fmt.Errorf("%w: %s", ErrArgType, p)
	}
	return v, nil
}

func toUint64(raw any) (uint64, bool) {
	switch n := raw.(type) {
	case uint64:
		return n, true
	case uint32:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint:
		return uint64(n), true
	case int64:
		return uint64(n), n >= 0
	case int32:
		return uint64(n), n >= 0
	case int16:
		return uint64(n), n >= 0
	case int:
		return uint64(n), n >= 0
	default:
		return 0, false
	}
}

// ParseText converts command-line arguments for kind into the raw values
// Decode and the D-Bus bridge accept. Numbers may be decimal or 0x-prefixed.
func ParseText(kind Kind, text []string) ([]any, error) {
	params := kind.Params()
	if len(text) != len(params) {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrArgCount, kind, len(params), len(text))
	}

	raw := make([]any, len(params))
	for i, p := range params {
		switch p.Type {
		case ArgName:
			raw[i] = text[i]
		case ArgBytes:
			raw[i] = []byte(text[i])
		case ArgEnum:
			n, err := strconv.ParseUint(text[i], 0, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrArgType, p, err)
			}
			raw[i] = uint32(n)
		default:
			n, err := strconv.ParseUint(text[i], 0, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrArgType, p, err)
			}
			raw[i] = n
		}
	}
	return raw, nil
}
