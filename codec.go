package graft

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// hydrate decodes a stored document into dst, honoring bson struct tags.
// Numeric widths differ between backends (int32 from MongoDB, float64 from
// JSON columns), so decoding is deliberately weakly typed.
func hydrate(raw map[string]any, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "bson",
		Result:           dst,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("building decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("hydrating document: %w", err)
	}
	return nil
}

// dehydrate converts a document struct into the flat map shape stores
// consume. The identifier field ("_id") is omitted: stores receive it as an
// explicit argument instead.
func dehydrate(v any) (map[string]any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot dehydrate nil document")
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		return structToMap(rv), nil
	case reflect.Map:
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot dehydrate nil document")
		}
		out, _ := mapValue(rv).(map[string]any)
		delete(out, "_id")
		return out, nil
	default:
		return nil, fmt.Errorf("cannot dehydrate %s document", rv.Kind())
	}
}

func structToMap(rv reflect.Value) map[string]any {
	t := rv.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, omitempty, skip := bsonName(field)
		if skip || name == "_id" {
			continue
		}
		fv := rv.Field(i)
		if omitempty && fv.IsZero() {
			continue
		}
		out[name] = fieldValue(fv)
	}
	return out
}

func fieldValue(fv reflect.Value) any {
	switch fv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if fv.IsNil() {
			return nil
		}
		return fieldValue(fv.Elem())
	case reflect.Struct:
		if t, ok := fv.Interface().(time.Time); ok {
			return t
		}
		return structToMap(fv)
	case reflect.Slice:
		if fv.IsNil() {
			return nil
		}
		if fv.Type().Elem().Kind() == reflect.Uint8 {
			return fv.Interface()
		}
		return sliceValue(fv)
	case reflect.Array:
		return sliceValue(fv)
	case reflect.Map:
		return mapValue(fv)
	default:
		return fv.Interface()
	}
}

func sliceValue(fv reflect.Value) []any {
	out := make([]any, fv.Len())
	for i := range out {
		out[i] = fieldValue(fv.Index(i))
	}
	return out
}

func mapValue(fv reflect.Value) any {
	if fv.IsNil() {
		return nil
	}
	out := make(map[string]any, fv.Len())
	iter := fv.MapRange()
	for iter.Next() {
		out[fmt.Sprint(iter.Key().Interface())] = fieldValue(iter.Value())
	}
	return out
}

// bsonName resolves the stored field name the same way the MongoDB driver
// does: the bson tag wins, otherwise the lowercased field name.
func bsonName(field reflect.StructField) (name string, omitempty, skip bool) {
	tag := field.Tag.Get("bson")
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitempty = true
		}
	}
	if name == "" {
		name = strings.ToLower(field.Name)
	}
	return name, omitempty, false
}
