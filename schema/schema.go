package schema

import (
	"fmt"

	"github.com/go-sif/rat"
	"github.com/go-sif/rat/errors"
)

// Schema is a mapping from field names to the typed columns of an attribute
// table. Each field has a global column number, and an index amongst the fields
// of the same type, which is where its values live in the typed storage.
type Schema struct {
	byName  map[string]int
	fields  []rat.Field
	byTypes [4]int
}

// CreateSchema is a factory for Schemas
func CreateSchema() *Schema {
	return &Schema{
		byName: make(map[string]int),
		fields: make([]rat.Field, 0),
	}
}

// Equals returns nil iff this and another Schema are equivalent
func (s *Schema) Equals(otherSchema *Schema) error {
	if s.NumFields() != otherSchema.NumFields() {
		return fmt.Errorf("Schemas have unequal numbers of fields")
	}
	return s.ForEachField(func(f rat.Field) error {
		other, err := otherSchema.GetField(f.Name)
		if err != nil {
			return err
		}
		if f.ColNum != other.ColNum {
			return fmt.Errorf("Field %s column numbers do not match", f.Name)
		}
		if f.Type != other.Type {
			return fmt.Errorf("Field %s types do not match", f.Name)
		}
		if f.Index != other.Index {
			return fmt.Errorf("Field %s type indices do not match", f.Name)
		}
		return nil
	})
}

// Clone returns a copy of this Schema
func (s *Schema) Clone() *Schema {
	byName := make(map[string]int, len(s.byName))
	for k, v := range s.byName {
		byName[k] = v
	}
	fields := make([]rat.Field, len(s.fields))
	copy(fields, s.fields)
	return &Schema{byName: byName, fields: fields, byTypes: s.byTypes}
}

// NumFields returns the number of fields in this Schema
func (s *Schema) NumFields() int {
	return len(s.fields)
}

// NumFieldsOfType returns the number of fields of the given type in this Schema
func (s *Schema) NumFieldsOfType(ft rat.FieldType) int {
	if ft < rat.FieldBool || ft > rat.FieldString {
		return 0
	}
	return s.byTypes[ft]
}

// GetField returns the field with the given name
func (s *Schema) GetField(name string) (rat.Field, error) {
	idx, ok := s.byName[name]
	if !ok {
		return rat.Field{}, errors.MissingFieldError{Name: name}
	}
	return s.fields[idx], nil
}

// HasField returns true iff this schema contains a field with the given name
func (s *Schema) HasField(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// FieldByColNum returns the field with the given global column number
func (s *Schema) FieldByColNum(colNum int) (rat.Field, error) {
	if colNum < 0 || colNum >= len(s.fields) {
		return rat.Field{}, errors.MissingFieldError{ColNum: colNum}
	}
	return s.fields[colNum], nil
}

// CreateField defines a new field within the Schema
func (s *Schema) CreateField(name string, ft rat.FieldType, usage string) (rat.Field, error) {
	if _, exists := s.byName[name]; exists {
		return rat.Field{}, errors.FieldExistsError{Name: name}
	}
	if ft < rat.FieldBool || ft > rat.FieldString {
		return rat.Field{}, fmt.Errorf("Cannot create field %s of unknown type %d", name, ft)
	}
	f := rat.Field{
		Name:   name,
		Type:   ft,
		Usage:  usage,
		Index:  s.byTypes[ft],
		ColNum: len(s.fields),
	}
	s.byTypes[ft]++
	s.byName[name] = f.ColNum
	s.fields = append(s.fields, f)
	return f, nil
}

// Fields returns the fields in the schema, in column order
func (s *Schema) Fields() []rat.Field {
	fields := make([]rat.Field, len(s.fields))
	copy(fields, s.fields)
	return fields
}

// FieldNames returns the names in the schema, in column order
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// ForEachField iterates over the fields in this Schema, in column order
func (s *Schema) ForEachField(fn func(f rat.Field) error) error {
	for _, f := range s.fields {
		err := fn(f)
		if err != nil {
			return err
		}
	}
	return nil
}
