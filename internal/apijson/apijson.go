// Package apijson decodes Cloudmere response envelopes into typed structs
// driven by gjson, and encodes request snippets with sjson. It follows the
// `json` struct tags and tolerates missing or extra fields.
package apijson

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

type decoderFunc func(node gjson.Result, value reflect.Value) error

var decoders sync.Map

var timeType = reflect.TypeOf(time.Time{})

// UnmarshalRoot decodes raw into to, which must be a non-nil pointer.
func UnmarshalRoot(raw []byte, to any) error {
	value := reflect.ValueOf(to)
	if value.Kind() != reflect.Pointer || value.IsNil() {
		return fmt.Errorf("apijson: target must be a non-nil pointer")
	}
	value = value.Elem()
	return typeDecoder(value.Type())(gjson.ParseBytes(raw), value)
}

func typeDecoder(t reflect.Type) decoderFunc {
	if fi, ok := decoders.Load(t); ok {
		return fi.(decoderFunc)
	}

	// Populate the cache with an indirect func first so recursive types
	// resolve to the real decoder once it is built.
	var (
		wg sync.WaitGroup
		f  decoderFunc
	)
	wg.Add(1)
	fi, loaded := decoders.LoadOrStore(t, decoderFunc(func(node gjson.Result, v reflect.Value) error {
		wg.Wait()
		return f(node, v)
	}))
	if loaded {
		return fi.(decoderFunc)
	}

	f = newTypeDecoder(t)
	wg.Done()
	decoders.Store(t, f)
	return f
}

func newTypeDecoder(t reflect.Type) decoderFunc {
	if t.ConvertibleTo(timeType) && t.Kind() == reflect.Struct {
		return timeDecoder(t)
	}

	switch t.Kind() {
	case reflect.Pointer:
		inner := t.Elem()
		innerDecoder := typeDecoder(inner)
		return func(n gjson.Result, v reflect.Value) error {
			if !n.Exists() || n.Type == gjson.Null {
				return nil
			}
			newValue := reflect.New(inner)
			if err := innerDecoder(n, newValue.Elem()); err != nil {
				return err
			}
			v.Set(newValue)
			return nil
		}
	case reflect.Struct:
		return newStructTypeDecoder(t)
	case reflect.Slice:
		return newSliceTypeDecoder(t)
	case reflect.Map:
		return newMapTypeDecoder(t)
	default:
		return primitiveDecoder
	}
}

func newStructTypeDecoder(t reflect.Type) decoderFunc {
	fields := map[string][]int{}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := strings.Split(sf.Tag.Get("json"), ",")[0]
		if name == "" {
			name = sf.Name
		}
		if name == "-" {
			continue
		}
		fields[name] = sf.Index
	}

	return func(node gjson.Result, value reflect.Value) error {
		if !node.IsObject() {
			return nil
		}
		var err error
		node.ForEach(func(key, raw gjson.Result) bool {
			idx, ok := fields[key.String()]
			if !ok {
				return true
			}
			field := value.FieldByIndex(idx)
			err = typeDecoder(field.Type())(raw, field)
			return err == nil
		})
		return err
	}
}

func newSliceTypeDecoder(t reflect.Type) decoderFunc {
	itemDecoder := typeDecoder(t.Elem())
	return func(node gjson.Result, value reflect.Value) error {
		if !node.IsArray() {
			return nil
		}
		items := node.Array()
		slice := reflect.MakeSlice(t, len(items), len(items))
		for i, item := range items {
			if err := itemDecoder(item, slice.Index(i)); err != nil {
				return err
			}
		}
		value.Set(slice)
		return nil
	}
}

func newMapTypeDecoder(t reflect.Type) decoderFunc {
	if t.Key().Kind() != reflect.String {
		return func(gjson.Result, reflect.Value) error {
			return fmt.Errorf("apijson: unsupported map key type %s", t.Key())
		}
	}
	valueDecoder := typeDecoder(t.Elem())
	return func(node gjson.Result, value reflect.Value) error {
		if !node.IsObject() {
			return nil
		}
		m := reflect.MakeMap(t)
		var err error
		node.ForEach(func(key, raw gjson.Result) bool {
			item := reflect.New(t.Elem()).Elem()
			if err = valueDecoder(raw, item); err != nil {
				return false
			}
			m.SetMapIndex(reflect.ValueOf(key.String()).Convert(t.Key()), item)
			return true
		})
		if err != nil {
			return err
		}
		value.Set(m)
		return nil
	}
}

func timeDecoder(t reflect.Type) decoderFunc {
	return func(node gjson.Result, value reflect.Value) error {
		if node.Type != gjson.String {
			return nil
		}
		parsed, err := time.Parse(time.RFC3339, node.String())
		if err != nil {
			return fmt.Errorf("apijson: invalid timestamp %q: %w", node.String(), err)
		}
		value.Set(reflect.ValueOf(parsed).Convert(t))
		return nil
	}
}

func primitiveDecoder(node gjson.Result, value reflect.Value) error {
	if !node.Exists() || node.Type == gjson.Null {
		return nil
	}
	switch value.Kind() {
	case reflect.String:
		value.SetString(node.String())
	case reflect.Bool:
		value.SetBool(node.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		value.SetInt(node.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		value.SetUint(node.Uint())
	case reflect.Float32, reflect.Float64:
		value.SetFloat(node.Float())
	case reflect.Interface:
		if value.CanSet() && node.Value() != nil {
			value.Set(reflect.ValueOf(node.Value()))
		}
	default:
		return fmt.Errorf("apijson: cannot decode into %s", value.Type())
	}
	return nil
}

// MarshalRoot encodes v by its `json` struct tags. Zero-valued fields tagged
// omitempty are dropped.
func MarshalRoot(v any) ([]byte, error) {
	value := reflect.ValueOf(v)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return []byte("null"), nil
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, fmt.Errorf("apijson: cannot marshal %s", value.Kind())
	}

	out := []byte("{}")
	t := value.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		parts := strings.Split(sf.Tag.Get("json"), ",")
		name := parts[0]
		if name == "" {
			name = sf.Name
		}
		if name == "-" {
			continue
		}
		field := value.Field(i)
		if len(parts) > 1 && parts[1] == "omitempty" && field.IsZero() {
			continue
		}
		var err error
		out, err = sjson.SetBytes(out, name, field.Interface())
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
