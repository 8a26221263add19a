// Tilemason - Geospatial Tiling and Aggregation Engine
// Copyright 2026 The Tilemason Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geoforge/tilemason

// Package validation provides struct validation using
// go-playground/validator v10 behind a thread-safe singleton, shared by
// configuration loading and the ingestion boundary.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// instance returns the shared validator, creating it on first use. The
// singleton matters: validator caches struct metadata internally.
func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// FieldError describes one failed field.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

// Error implements error.
func (e FieldError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("field %s failed %s=%s", e.Field, e.Tag, e.Param)
	}
	return fmt.Sprintf("field %s failed %s", e.Field, e.Tag)
}

// StructError is the collection of field errors for one struct.
type StructError struct {
	Fields []FieldError
}

// Error implements error.
func (e *StructError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return strings.Join(msgs, "; ")
}

// ValidateStruct validates s against its `validate` tags. It returns a
// *StructError listing every failed field, or nil.
func ValidateStruct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &StructError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}
