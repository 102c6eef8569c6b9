package apiquery

import (
	"reflect"
	"strconv"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// Marshal flattens a params struct into query arguments by walking its
// `query` struct tags. Pointer fields are optional members and omitted when
// nil; slice fields become member lists (or `base.N` lists with the
// `flattened` tag option); nested structs become dotted records; string maps
// contribute their own keys verbatim.
func Marshal(params any) Args {
	if params == nil {
		return nil
	}
	val := reflect.ValueOf(params)
	for val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}
	return structArgs(val)
}

func structArgs(val reflect.Value) Args {
	var args Args
	typ := val.Type()
	// Every step inserts ahead of the accumulator, so walking the fields in
	// reverse keeps the output in declaration order.
	for i := typ.NumField() - 1; i >= 0; i-- {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, ok := parseQueryStructTag(sf)
		if !ok || tag.name == "-" {
			continue
		}
		args = fieldStep(tag, val.Field(i))(args)
	}
	return args
}

func fieldStep(tag parsedStructTag, v reflect.Value) func(Args) Args {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return Identity
		}
		return fieldStep(tag, v.Elem())
	}

	if v.Kind() == reflect.Struct && v.Type().ConvertibleTo(timeType) {
		t := v.Convert(timeType).Interface().(time.Time)
		if tag.omitempty && t.IsZero() {
			return Identity
		}
		return AddOne(encodeTime, tag.name, t)
	}

	switch v.Kind() {
	case reflect.Struct:
		return AddRecord(structArgs, tag.name, v)
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return Identity
		}
		items := make([]reflect.Value, v.Len())
		for i := range items {
			items[i] = v.Index(i)
		}
		transform := func(item reflect.Value, _ Args) Args {
			return itemArgs(item)
		}
		return AddList(tag.flattened, transform, tag.name, items)
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String || v.Len() == 0 {
			return Identity
		}
		dict := make(map[string]string, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			if s, ok := scalarString(iter.Value()); ok {
				dict[iter.Key().String()] = s
			}
		}
		return AddDict(EncodeString, dict)
	default:
		s, ok := scalarString(v)
		if !ok {
			return Identity
		}
		if tag.omitempty && v.IsZero() {
			return Identity
		}
		return AddOne(EncodeString, tag.name, s)
	}
}

// itemArgs produces a list item's own arguments in isolation: records expand
// to their sub-keys, scalars become a single empty-keyed pair that
// listItemKey later resolves to the bare indexed segment.
func itemArgs(item reflect.Value) Args {
	for item.Kind() == reflect.Pointer {
		if item.IsNil() {
			return nil
		}
		item = item.Elem()
	}
	if item.Kind() == reflect.Struct && item.Type().ConvertibleTo(timeType) {
		t := item.Convert(timeType).Interface().(time.Time)
		return Args{{Key: "", Value: encodeTime(t)}}
	}
	if item.Kind() == reflect.Struct {
		return structArgs(item)
	}
	if s, ok := scalarString(item); ok {
		return Args{{Key: "", Value: s}}
	}
	return nil
}

func scalarString(v reflect.Value) (string, bool) {
	switch v.Kind() {
	case reflect.String:
		return v.String(), true
	case reflect.Bool:
		return EncodeBool(v.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'f', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), true
	}
	return "", false
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
