package models

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// classificationFieldMap caches JSON tag -> struct field index mappings
var (
	classificationFieldMap     map[string]int
	classificationFieldMapOnce sync.Once
)

func getClassificationFieldMap() map[string]int {
	classificationFieldMapOnce.Do(func() {
		t := reflect.TypeOf(ClassificationInput{})
		classificationFieldMap = make(map[string]int, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			tag := t.Field(i).Tag.Get("json")
			if tag == "" || tag == "-" {
				continue
			}
			name := strings.Split(tag, ",")[0]
			classificationFieldMap[name] = i
		}
	})
	return classificationFieldMap
}

// UnmarshalJSON accepts both native JSON numbers and string-encoded values.
// HTML forms submit every field as a string ("23", "4"); those are coerced to
// the field's Go type. Keys are matched case-insensitively so payloads keyed by
// the model's column names ("Age", "NOC") decode as well.
func (in *ClassificationInput) UnmarshalJSON(data []byte) error {
	// Alias prevents infinite recursion
	type Alias ClassificationInput
	a := (*Alias)(in)

	// Fast path: all types match natively
	if err := json.Unmarshal(data, a); err == nil {
		in.normalize()
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("flex unmarshal: %w", err)
	}

	fieldMap := getClassificationFieldMap()
	v := reflect.ValueOf(a).Elem()

	for key, rawVal := range raw {
		idx, ok := fieldMap[strings.ToLower(key)]
		if !ok {
			continue
		}

		fv := v.Field(idx)
		if !fv.CanSet() {
			continue
		}

		ptr := reflect.New(fv.Type())
		if err := json.Unmarshal(rawVal, ptr.Interface()); err == nil {
			fv.Set(ptr.Elem())
			continue
		}

		// Value is a JSON string but target is numeric, or a number but target is a string
		if len(rawVal) > 1 && rawVal[0] == '"' {
			var s string
			if err := json.Unmarshal(rawVal, &s); err != nil {
				continue
			}
			if err := coerceStringToField(fv, strings.TrimSpace(s)); err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
		} else if fv.Kind() == reflect.String {
			fv.SetString(strings.TrimSpace(string(rawVal)))
		}
	}

	in.normalize()
	return nil
}

func (in *ClassificationInput) normalize() {
	in.Gender = strings.TrimSpace(in.Gender)
	in.NOC = strings.TrimSpace(in.NOC)
	in.Discipline = strings.TrimSpace(in.Discipline)
	in.Sport = strings.TrimSpace(in.Sport)
}

// coerceStringToField converts a string value to the field's native type.
// Empty numeric strings leave the field at zero, matching the form default.
func coerceStringToField(fv reflect.Value, s string) error {
	switch fv.Kind() {
	case reflect.Float32, reflect.Float64:
		if s == "" {
			return nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		fv.SetFloat(n)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if s == "" {
			return nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		fv.SetInt(int64(n))
	case reflect.String:
		fv.SetString(s)
	}
	return nil
}
