package component

import (
	"fmt"
	"math"
	"reflect"

	"github.com/milk9111/simcore/common"
)

// Kind is the type tag of a property value.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindVec3
	KindQuat
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindVec3:
		return "vec3"
	case KindQuat:
		return "quat"
	default:
		return "unknown"
	}
}

// Property reads and writes one named field of an opaque component instance.
// Owners are always the pointer stored on the entity.
type Property interface {
	Name() string
	Kind() Kind
	OwnerType() reflect.Type
	ReadOnly() bool
	// Get returns the current value boxed as any.
	Get(owner any) any
	// Set converts v to the property's value type and writes it.
	Set(owner any, v any) error
}

// TypedProperty is a Property with a statically known value type.
type TypedProperty[V any] interface {
	Property
	Value(owner any) V
	SetValue(owner any, v V)
}

type FieldProperty[C any, V any] struct {
	name string
	kind Kind
	get  func(*C) V
	set  func(*C, V)
}

var _ TypedProperty[int] = (*FieldProperty[struct{}, int])(nil)

// Field binds name to accessors on component type C. A nil set makes the
// property read-only.
func Field[C any, V any](name string, get func(*C) V, set func(*C, V)) *FieldProperty[C, V] {
	if get == nil {
		panic(fmt.Sprintf("ecs: property %q has no getter", name))
	}
	return &FieldProperty[C, V]{name: name, kind: kindOf[V](), get: get, set: set}
}

func (p *FieldProperty[C, V]) Name() string {
	return p.name
}

func (p *FieldProperty[C, V]) Kind() Kind {
	return p.kind
}

func (p *FieldProperty[C, V]) OwnerType() reflect.Type {
	return reflect.TypeOf((*C)(nil)).Elem()
}

func (p *FieldProperty[C, V]) ReadOnly() bool {
	return p.set == nil
}

func (p *FieldProperty[C, V]) Value(owner any) V {
	return p.get(p.owner(owner))
}

func (p *FieldProperty[C, V]) SetValue(owner any, v V) {
	c := p.owner(owner)
	if p.set == nil {
		panic(fmt.Errorf("%w: %s", ErrPropertyReadOnly, p.name))
	}
	p.set(c, v)
}

func (p *FieldProperty[C, V]) Get(owner any) any {
	return p.Value(owner)
}

func (p *FieldProperty[C, V]) Set(owner any, v any) error {
	c := p.owner(owner)
	if p.set == nil {
		return fmt.Errorf("%w: %s", ErrPropertyReadOnly, p.name)
	}
	value, err := convertValue[V](v)
	if err != nil {
		return fmt.Errorf("property %q: %w", p.name, err)
	}
	p.set(c, value)
	return nil
}

func (p *FieldProperty[C, V]) owner(owner any) *C {
	c, ok := owner.(*C)
	if !ok || c == nil {
		panic(fmt.Errorf("%w: property %q wants *%s, got %T", ErrPropertyOwner, p.name, reflect.TypeOf((*C)(nil)).Elem(), owner))
	}
	return c
}

func kindOf[V any]() Kind {
	var zero V
	switch any(zero).(type) {
	case bool:
		return KindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt
	case float32, float64:
		return KindFloat
	case string:
		return KindString
	case common.Vec3:
		return KindVec3
	case common.Quat:
		return KindQuat
	default:
		return KindUnknown
	}
}

// convertValue accepts the loose shapes produced by YAML decoding and script
// bridges: any numeric type for numbers, maps or arrays for vectors.
func convertValue[V any](v any) (V, error) {
	var out V
	if cast, ok := v.(V); ok {
		return cast, nil
	}
	fail := func() (V, error) {
		var zero V
		return zero, fmt.Errorf("%w: want %T, got %T", ErrPropertyValue, zero, v)
	}

	switch p := any(&out).(type) {
	case *float64:
		f, ok := toFloat(v)
		if !ok {
			return fail()
		}
		*p = f
	case *float32:
		f, ok := toFloat(v)
		if !ok {
			return fail()
		}
		*p = float32(f)
	case *int:
		i, ok := toInt(v)
		if !ok {
			return fail()
		}
		*p = int(i)
	case *int64:
		i, ok := toInt(v)
		if !ok {
			return fail()
		}
		*p = i
	case *int32:
		i, ok := toInt(v)
		if !ok || i < math.MinInt32 || i > math.MaxInt32 {
			return fail()
		}
		*p = int32(i)
	case *uint32:
		i, ok := toInt(v)
		if !ok || i < 0 || i > math.MaxUint32 {
			return fail()
		}
		*p = uint32(i)
	case *common.Vec3:
		vec, ok := toVec3(v)
		if !ok {
			return fail()
		}
		*p = vec
	case *common.Quat:
		q, ok := toQuat(v)
		if !ok {
			return fail()
		}
		*p = q
	default:
		return fail()
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

func toVec3(v any) (common.Vec3, bool) {
	switch val := v.(type) {
	case map[string]any:
		var out common.Vec3
		for key, raw := range val {
			f, ok := toFloat(raw)
			if !ok {
				return common.Vec3{}, false
			}
			switch key {
			case "x":
				out.X = f
			case "y":
				out.Y = f
			case "z":
				out.Z = f
			default:
				return common.Vec3{}, false
			}
		}
		return out, true
	case []any:
		if len(val) < 2 || len(val) > 3 {
			return common.Vec3{}, false
		}
		var xyz [3]float64
		for i, raw := range val {
			f, ok := toFloat(raw)
			if !ok {
				return common.Vec3{}, false
			}
			xyz[i] = f
		}
		return common.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}, true
	default:
		return common.Vec3{}, false
	}
}

func toQuat(v any) (common.Quat, bool) {
	switch val := v.(type) {
	case map[string]any:
		q := common.Identity()
		for key, raw := range val {
			f, ok := toFloat(raw)
			if !ok {
				return common.Quat{}, false
			}
			switch key {
			case "w":
				q.W = f
			case "x":
				q.X = f
			case "y":
				q.Y = f
			case "z":
				q.Z = f
			default:
				return common.Quat{}, false
			}
		}
		return q, true
	case []any:
		if len(val) != 4 {
			return common.Quat{}, false
		}
		var wxyz [4]float64
		for i, raw := range val {
			f, ok := toFloat(raw)
			if !ok {
				return common.Quat{}, false
			}
			wxyz[i] = f
		}
		return common.Quat{W: wxyz[0], X: wxyz[1], Y: wxyz[2], Z: wxyz[3]}, true
	default:
		return common.Quat{}, false
	}
}
