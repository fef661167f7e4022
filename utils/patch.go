package utils

import (
	"reflect"
	"strconv"
	"strings"
)

// UpdatesFromPtrDTO turns a pointer-field update DTO into the column map fed
// to gorm's Updates: only the non-nil fields appear, keyed by the field's
// `json` tag (our DTO tags match the snake_case column names). A PATCH that
// only sends a new price updates only the price column.
func UpdatesFromPtrDTO(dto any) map[string]any {
	res := make(map[string]any)
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr {
		return res
	}
	s := v.Elem()
	if s.Kind() != reflect.Struct {
		return res
	}
	t := s.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fv := s.Field(i)
		if fv.Kind() != reflect.Ptr || fv.IsNil() {
			continue
		}
		jsonTag := sf.Tag.Get("json")
		if jsonTag == "" || jsonTag == "-" {
			continue
		}
		res[strings.Split(jsonTag, ",")[0]] = fv.Elem().Interface()
	}
	return res
}

// ParseIntDefault parses list-endpoint query params like ?limit=20, falling
// back to def on garbage or negative input.
func ParseIntDefault(s string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && v >= 0 {
		return v
	}
	return def
}
