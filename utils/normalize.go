package utils

import (
	"reflect"
	"strings"
)

// NormalizePtrDTO trims *string fields and rounds *float64 fields on a
// pointer-field update DTO (UpdateServiceInput and friends). Nil fields stay
// nil so a partial update leaves the untouched columns alone.
func NormalizePtrDTO(dto any) {
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr {
		return
	}
	s := v.Elem()
	if s.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		if f.Kind() != reflect.Ptr || f.IsNil() {
			continue
		}
		ef := f.Elem()
		switch ef.Kind() {
		case reflect.String:
			ef.SetString(strings.TrimSpace(ef.String()))
		case reflect.Float64:
			ef.SetFloat(Round2(ef.Float()))
		}
	}
}

// NormalizeDTO is the plain-field variant for create DTOs: service names and
// descriptions lose surrounding whitespace, prices get rounded to cents.
func NormalizeDTO(dto any) {
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr {
		return
	}
	s := v.Elem()
	if s.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		switch f.Kind() {
		case reflect.String:
			if f.CanSet() {
				f.SetString(strings.TrimSpace(f.String()))
			}
		case reflect.Float64:
			if f.CanSet() {
				f.SetFloat(Round2(f.Float()))
			}
		}
	}
}
