package event

import (
	"fmt"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/rtx/ecs"
)

// Kind discriminates the value held by a Variant.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindString
	KindEntity
	KindVector3
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindEntity:
		return "entity"
	case KindVector3:
		return "vector3"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Variant is the closed set of payload values an event can carry.
// The zero Variant is Nil.
type Variant struct {
	kind   Kind
	b      bool
	n      float64
	s      string
	entity ecs.EntityId
	vec    mgl32.Vec3
}

// Nil returns the empty payload.
func Nil() Variant { return Variant{} }

func Bool(b bool) Variant { return Variant{kind: KindBool, b: b} }

func Number(n float64) Variant { return Variant{kind: KindNumber, n: n} }

func String(s string) Variant { return Variant{kind: KindString, s: s} }

// Entity wraps an entity handle. Receivers must resolve it before use since the
// entity may have been destroyed after the event was raised.
func Entity(id ecs.EntityId) Variant { return Variant{kind: KindEntity, entity: id} }

func Vector3(v mgl32.Vec3) Variant { return Variant{kind: KindVector3, vec: v} }

func (v Variant) Kind() Kind { return v.kind }

func (v Variant) IsNil() bool { return v.kind == KindNil }

func (v Variant) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Variant) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

func (v Variant) AsString() (string, bool) { return v.s, v.kind == KindString }

func (v Variant) AsEntity() (ecs.EntityId, bool) { return v.entity, v.kind == KindEntity }

func (v Variant) AsVector3() (mgl32.Vec3, bool) { return v.vec, v.kind == KindVector3 }

// Value returns the payload as a plain Go value for encoding.
func (v Variant) Value() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindEntity:
		return uint64(v.entity)
	case KindVector3:
		return [3]float32{v.vec.X(), v.vec.Y(), v.vec.Z()}
	default:
		return nil
	}
}

// FromValue converts a decoded JSON value to a Variant. Unsupported values become Nil.
func FromValue(value any) Variant {
	switch val := value.(type) {
	case bool:
		return Bool(val)
	case float64:
		return Number(val)
	case float32:
		return Number(float64(val))
	case int:
		return Number(float64(val))
	case string:
		return String(val)
	case ecs.EntityId:
		return Entity(val)
	case mgl32.Vec3:
		return Vector3(val)
	case []any:
		if len(val) != 3 {
			return Nil()
		}
		var vec mgl32.Vec3
		for i, item := range val {
			f, ok := item.(float64)
			if !ok {
				return Nil()
			}
			vec[i] = float32(f)
		}
		return Vector3(vec)
	default:
		return Nil()
	}
}

func (v Variant) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindEntity:
		return v.entity.String()
	case KindVector3:
		return fmt.Sprintf("(%g, %g, %g)", v.vec.X(), v.vec.Y(), v.vec.Z())
	default:
		return v.kind.String()
	}
}
