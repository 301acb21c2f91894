// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mapper

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
)

var nowFn = time.Now

// templateFuncs are the functions available inside every field template.
// String functions take the subject as last argument so that they can be used in pipelines.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"trim":       strings.TrimSpace,
		"trimPrefix": func(prefix, s string) string { return strings.TrimPrefix(s, prefix) },
		"trimSuffix": func(suffix, s string) string { return strings.TrimSuffix(s, suffix) },
		"upper":      strings.ToUpper,
		"lower":      strings.ToLower,
		"replace":    func(old, new, s string) string { return strings.ReplaceAll(s, old, new) },
		"split":      func(sep, s string) []string { return strings.Split(s, sep) },
		"truncate":   truncate,
		"quote":      func(v any) string { return fmt.Sprintf("%q", toString(v)) },
		"toJSON":     toJSON,
		"get":        get,
		"pick":       pick,
		"pluck":      pluck,
		"first":      first,
		"now":        func() string { return nowFn().UTC().Format(time.RFC3339) },
		"uuid":       uuid.NewString,
		"sha256":     sha256Sum,
		"b64enc":     func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) },
		"b64dec":     b64dec,
	}
}

// truncate keeps the first length bytes of s, or the last ones when length is negative.
func truncate(length int, s string) string {
	if length < 0 && len(s)+length > 0 {
		return s[len(s)+length:]
	}
	if length >= 0 && len(s) > length {
		return s[:length]
	}
	return s
}

func toJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// get returns object[key], or defaultValue when the key is missing.
func get(key string, object map[string]any, defaultValue any) any {
	if value, ok := object[key]; ok {
		return value
	}
	return defaultValue
}

// pick returns a copy of object with only the given keys.
func pick(object map[string]any, keys ...string) map[string]any {
	result := make(map[string]any, len(keys))
	for _, key := range keys {
		if value, ok := object[key]; ok {
			result[key] = value
		}
	}
	return result
}

// pluck collects the key field of every object of list. Elements that are not objects
// or miss the key are skipped.
func pluck(key string, list any) ([]any, error) {
	value := reflect.ValueOf(list)
	if value.Kind() != reflect.Slice && value.Kind() != reflect.Array {
		return nil, fmt.Errorf("cannot pluck from type %T", list)
	}

	result := make([]any, 0, value.Len())
	for i := range value.Len() {
		object, ok := value.Index(i).Interface().(map[string]any)
		if !ok {
			continue
		}
		if field, ok := object[key]; ok {
			result = append(result, field)
		}
	}
	return result, nil
}

// first returns the first element of a list or string, nil when it is empty.
func first(list any) (any, error) {
	value := reflect.ValueOf(list)
	switch value.Kind() {
	case reflect.Slice, reflect.Array:
		if value.Len() == 0 {
			return nil, nil
		}
		return value.Index(0).Interface(), nil
	case reflect.String:
		if value.Len() == 0 {
			return nil, nil
		}
		return value.String()[:1], nil
	default:
		return nil, fmt.Errorf("cannot find first element of type %T", list)
	}
}

func sha256Sum(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

func b64dec(input string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(input)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func toString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
