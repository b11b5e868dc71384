package editor

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/plus3/rtx/ecs"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrFieldType    = errors.New("field type mismatch")
)

// FieldInfo describes one editable field of a component struct.
type FieldInfo struct {
	Name      string
	Type      reflect.Type
	Index     int
	IsPointer bool
	IsStruct  bool
	IsSlice   bool
	IsMap     bool
}

// FieldCache memoizes the exported fields of component types. Embedded structs
// such as ecs.BaseComponent are skipped.
type FieldCache struct {
	mu     sync.RWMutex
	fields map[reflect.Type][]FieldInfo
}

func NewFieldCache() *FieldCache {
	return &FieldCache{fields: make(map[reflect.Type][]FieldInfo)}
}

// Fields returns the exported fields of t, dereferencing pointer types.
func (fc *FieldCache) Fields(t reflect.Type) []FieldInfo {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	fc.mu.RLock()
	cached, ok := fc.fields[t]
	fc.mu.RUnlock()
	if ok {
		return cached
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if cached, ok := fc.fields[t]; ok {
		return cached
	}

	var fields []FieldInfo
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() || field.Anonymous {
				continue
			}
			ft := field.Type
			isPointer := ft.Kind() == reflect.Ptr
			if isPointer {
				ft = ft.Elem()
			}
			fields = append(fields, FieldInfo{
				Name:      field.Name,
				Type:      ft,
				Index:     i,
				IsPointer: isPointer,
				IsStruct:  ft.Kind() == reflect.Struct,
				IsSlice:   ft.Kind() == reflect.Slice,
				IsMap:     ft.Kind() == reflect.Map,
			})
		}
	}
	fc.fields[t] = fields
	return fields
}

// Value returns the current value of the named field of c.
func (fc *FieldCache) Value(c ecs.Component, name string) (reflect.Value, error) {
	field, val, err := fc.lookup(c, name)
	if err != nil {
		return reflect.Value{}, err
	}
	return val.Field(field.Index), nil
}

// Set assigns value to the named field of c, converting between numeric kinds
// and between array types of the same shape such as mgl32.Vec3 and [3]float32.
// The component is marked dirty.
func (fc *FieldCache) Set(c ecs.Component, name string, value any) error {
	field, val, err := fc.lookup(c, name)
	if err != nil {
		return err
	}
	target := val.Field(field.Index)
	if field.IsPointer || !target.CanSet() {
		return fmt.Errorf("%w: %s.%s is not assignable", ErrFieldType, c.Name(), name)
	}

	v := reflect.ValueOf(value)
	if !v.IsValid() || !v.Type().ConvertibleTo(target.Type()) || !sameKindClass(v.Kind(), target.Kind()) {
		return fmt.Errorf("%w: %s.%s is %s, got %T", ErrFieldType, c.Name(), name, target.Type(), value)
	}
	target.Set(v.Convert(target.Type()))

	if d, ok := c.(interface{ MarkDirty() }); ok {
		d.MarkDirty()
	}
	return nil
}

func (fc *FieldCache) lookup(c ecs.Component, name string) (FieldInfo, reflect.Value, error) {
	val := reflect.ValueOf(c)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	for _, f := range fc.Fields(val.Type()) {
		if f.Name == name {
			return f, val, nil
		}
	}
	return FieldInfo{}, reflect.Value{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, c.Name(), name)
}

// sameKindClass rejects conversions reflect allows but an editor should not, such
// as int to string.
func sameKindClass(a, b reflect.Kind) bool {
	return kindClass(a) == kindClass(b)
}

func kindClass(k reflect.Kind) int {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return 1
	case reflect.String:
		return 2
	case reflect.Bool:
		return 3
	case reflect.Array:
		return 4
	default:
		return 5 + int(k)
	}
}
