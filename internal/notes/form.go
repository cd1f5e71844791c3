// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package notes

import (
	"errors"
	"mime/multipart"
	"net/url"
)

// ErrFormFrozen is returned by ParsedForm.Set after normalization completes.
var ErrFormFrozen = errors.New("form is frozen")

// ParsedForm is the uniform key/value view of a request body produced by
// the body normalizer, so parameter extraction never branches on content
// type. The field map is mutable while the normalizer assembles it and
// frozen before the handler sees it.
type ParsedForm struct {
	fields url.Values
	files  map[string][]*multipart.FileHeader
	frozen bool
}

// NewParsedForm creates a mutable form over the given field map.
func NewParsedForm(fields url.Values) *ParsedForm {
	if fields == nil {
		fields = url.Values{}
	}
	return &ParsedForm{fields: fields}
}

// Get returns the first value for the named field.
func (f *ParsedForm) Get(name string) string {
	return f.fields.Get(name)
}

// Has reports whether the named field is present.
func (f *ParsedForm) Has(name string) bool {
	return f.fields.Has(name)
}

// Values returns all values for the named field.
func (f *ParsedForm) Values(name string) []string {
	return f.fields[name]
}

// FieldNames returns the names of all present fields.
func (f *ParsedForm) FieldNames() []string {
	names := make([]string, 0, len(f.fields))
	for name := range f.fields {
		names = append(names, name)
	}
	return names
}

// Set sets the named field. It fails once the form is frozen.
func (f *ParsedForm) Set(name, value string) error {
	if f.frozen {
		return ErrFormFrozen
	}
	f.fields.Set(name, value)
	return nil
}

// AddFile records an uploaded file under the named field.
func (f *ParsedForm) AddFile(name string, header *multipart.FileHeader) error {
	if f.frozen {
		return ErrFormFrozen
	}
	if f.files == nil {
		f.files = make(map[string][]*multipart.FileHeader)
	}
	f.files[name] = append(f.files[name], header)
	return nil
}

// File returns the uploaded files recorded under the named field.
func (f *ParsedForm) File(name string) []*multipart.FileHeader {
	return f.files[name]
}

// Freeze makes the form immutable.
func (f *ParsedForm) Freeze() {
	f.frozen = true
}

// Frozen reports whether the form has been frozen.
func (f *ParsedForm) Frozen() bool {
	return f.frozen
}
