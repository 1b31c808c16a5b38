package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// envLoader copies SKILLFORGE_* variables into fields carrying an env tag.
// Every bad value is reported, not just the first.
type envLoader struct {
	lookup func(string) (string, bool)
	errs   []error
}

// loadFromEnv overrides cfg with any set environment variables.
func loadFromEnv(cfg *Config) error {
	return loadFromLookup(cfg, os.LookupEnv)
}

func loadFromLookup(cfg *Config, lookup func(string) (string, bool)) error {
	l := &envLoader{lookup: lookup}
	l.walk(reflect.ValueOf(cfg).Elem())
	return errors.Join(l.errs...)
}

func (l *envLoader) walk(v reflect.Value) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field, meta := v.Field(i), t.Field(i)
		if !meta.IsExported() {
			continue
		}
		name := meta.Tag.Get("env")
		if name == "" {
			if field.Kind() == reflect.Struct {
				l.walk(field)
			}
			continue
		}
		raw, ok := l.lookup(name)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		if err := assign(field, raw); err != nil {
			l.errs = append(l.errs, fmt.Errorf("%s: %w", name, err))
		}
	}
}

// assign parses raw into field according to the field's type.
func assign(field reflect.Value, raw string) error {
	raw = strings.TrimSpace(raw)
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q", raw)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", raw)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer %q", raw)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer %q", raw)
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float %q", raw)
		}
		field.SetFloat(f)
	case reflect.Slice:
		return assignList(field, raw)
	case reflect.Map:
		return assignPairs(field, raw)
	default:
		return fmt.Errorf("unsupported type %s", field.Type())
	}
	return nil
}

// assignList fills a slice of any string kind from "a,b,c".
func assignList(field reflect.Value, raw string) error {
	elem := field.Type().Elem()
	if elem.Kind() != reflect.String {
		return fmt.Errorf("unsupported slice of %s", elem)
	}
	parts := splitList(raw)
	out := reflect.MakeSlice(field.Type(), 0, len(parts))
	for _, p := range parts {
		out = reflect.Append(out, reflect.ValueOf(p).Convert(elem))
	}
	field.Set(out)
	return nil
}

// assignPairs fills a string map from "k1=v1,k2=v2".
func assignPairs(field reflect.Value, raw string) error {
	typ := field.Type()
	if typ.Key().Kind() != reflect.String || typ.Elem().Kind() != reflect.String {
		return fmt.Errorf("unsupported map %s", typ)
	}
	out := reflect.MakeMap(typ)
	for _, pair := range splitList(raw) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return fmt.Errorf("invalid pair %q, want key=value", pair)
		}
		out.SetMapIndex(
			reflect.ValueOf(strings.TrimSpace(k)).Convert(typ.Key()),
			reflect.ValueOf(strings.TrimSpace(v)).Convert(typ.Elem()),
		)
	}
	field.Set(out)
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
