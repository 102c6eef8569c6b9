// Package apiquery builds the flat key/value argument lists used by the
// Cloudmere Query wire protocol. Nested records and lists are flattened
// into dotted keys (`Filters.member.1.Name`, `Tags.1.Key`) the same way
// the service expects them on the query string.
package apiquery

import (
	"sort"
	"strconv"
	"strings"
)

// Pair is a single key/value entry. Value is generic so that helpers like
// [OptionalMember] can operate on lists that are not yet stringified.
type Pair[V any] struct {
	Key   string
	Value V
}

// Arg is one flattened query argument.
type Arg = Pair[string]

// Args is an ordered list of query arguments. The protocol itself does not
// care about ordering, but signing and tests do, so every helper here keeps
// existing entries intact and in place.
type Args = []Arg

const upperhex = "0123456789ABCDEF"

func isUnreserved(c byte) bool {
	return 'a' <= c && c <= 'z' ||
		'A' <= c && c <= 'Z' ||
		'0' <= c && c <= '9' ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

// EscapeURI percent-encodes s for use as a query key or value. Only the
// RFC 3986 unreserved characters pass through; everything else, including
// `! * ' ( )`, becomes %XX with uppercase hex. Calling it on an already
// escaped string escapes the percent signs again, so escape exactly once.
func EscapeURI(s string) string {
	escaped := 0
	for i := 0; i < len(s); i++ {
		if !isUnreserved(s[i]) {
			escaped++
		}
	}
	if escaped == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*escaped)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0xF])
	}
	return b.String()
}

// EncodeBool renders the protocol's boolean literals.
func EncodeBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// EncodeString is the no-op transform for fields that are already strings.
func EncodeString(s string) string { return s }

// Identity returns its input untouched. It is the no-op branch when a
// pipeline conditionally contributes arguments.
func Identity(args Args) Args { return args }

func prepend[V any](list []Pair[V], batch ...Pair[V]) []Pair[V] {
	out := make([]Pair[V], 0, len(batch)+len(list))
	out = append(out, batch...)
	return append(out, list...)
}

// AddOne returns a pipeline step inserting (key, transform(value)) ahead of
// the accumulated arguments. Empty keys are passed through as-is.
func AddOne[T any](transform func(T) string, key string, value T) func(Args) Args {
	return func(args Args) Args {
		return prepend(args, Arg{Key: key, Value: transform(value)})
	}
}

// AddDict folds every entry of dict through [AddOne], using the entry's own
// key as the wire key. Iteration is sorted by key so output is deterministic;
// since each step inserts ahead of the previous one, the greatest key ends up
// frontmost among the dict's contributions.
func AddDict[T any](toString func(T) string, dict map[string]T) func(Args) Args {
	return func(args Args) Args {
		keys := make([]string, 0, len(dict))
		for k := range dict {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			args = AddOne(toString, k, dict[k])(args)
		}
		return args
	}
}

// listItemKey renames a list item's key: `base.N` when flattened,
// `base.member.N` otherwise, with the item's own sub-key dotted on when
// present. Indexes are 1-based on the wire.
func listItemKey(flattened bool, index int, base, key string) string {
	var segment string
	if flattened {
		segment = base + "." + strconv.Itoa(index)
	} else {
		segment = base + ".member." + strconv.Itoa(index)
	}
	if key == "" {
		return segment
	}
	return segment + "." + key
}

// AddList flattens values under base. Each item's own arguments are obtained
// from transform(item, nil), renamed per [listItemKey], and the whole batch
// is inserted ahead of the accumulator in item order, each item's arguments
// keeping their internal order.
func AddList[T any](flattened bool, transform func(T, Args) Args, base string, values []T) func(Args) Args {
	return func(args Args) Args {
		var batch Args
		for i, value := range values {
			for _, arg := range transform(value, nil) {
				batch = append(batch, Arg{
					Key:   listItemKey(flattened, i+1, base, arg.Key),
					Value: arg.Value,
				})
			}
		}
		return prepend(args, batch...)
	}
}

// AddRecord nests a record's arguments under base by dotting the prefix onto
// every key produced by transform. An empty base leaves the keys bare. The
// transform's relative order is preserved.
func AddRecord[T any](transform func(T) Args, base string, record T) func(Args) Args {
	return func(args Args) Args {
		pairs := transform(record)
		batch := make(Args, 0, len(pairs))
		for _, arg := range pairs {
			key := arg.Key
			if base != "" {
				key = base + "." + arg.Key
			}
			batch = append(batch, Arg{Key: key, Value: arg.Value})
		}
		return prepend(args, batch...)
	}
}

// OptionalMember contributes (key, encode(*value)) when value is non-nil and
// leaves the list untouched otherwise.
func OptionalMember[A, B any](encode func(A) B, key string, value *A) func([]Pair[B]) []Pair[B] {
	return func(list []Pair[B]) []Pair[B] {
		if value == nil {
			return list
		}
		return prepend(list, Pair[B]{Key: key, Value: encode(*value)})
	}
}
