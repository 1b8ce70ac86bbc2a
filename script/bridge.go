package script

import (
	"fmt"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/milk9111/simcore/common"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/log"
)

// Bridge exposes entity state to scripts. Every value crosses through the
// registered property descriptors, so scripts see exactly what templates see.
type Bridge struct {
	entities *ecs.EntityManager
	log      log.Log
	module   *tengo.ImmutableMap
}

func NewBridge(entities *ecs.EntityManager, logger log.Log) *Bridge {
	if logger == nil {
		logger = log.Nop()
	}
	b := &Bridge{entities: entities, log: logger}
	b.module = b.buildModule()
	return b
}

// Module is the `engine` object bound into every script.
func (b *Bridge) Module() *tengo.ImmutableMap {
	return b.module
}

func (b *Bridge) buildModule() *tengo.ImmutableMap {
	values := map[string]tengo.Object{}

	values["get"] = &tengo.UserFunction{Name: "get", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 3 {
			return nil, tengo.ErrWrongNumArguments
		}
		e, instance, desc, errObj := b.lookup(args[0], args[1])
		if errObj != nil || e == nil {
			return orUndefined(errObj), nil
		}
		prop, errObj := property(desc, args[2])
		if errObj != nil {
			return errObj, nil
		}
		return toObject(prop.Get(instance)), nil
	}}

	values["set"] = &tengo.UserFunction{Name: "set", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 4 {
			return nil, tengo.ErrWrongNumArguments
		}
		e, instance, desc, errObj := b.lookup(args[0], args[1])
		if errObj != nil || e == nil {
			return orUndefined(errObj), nil
		}
		prop, errObj := property(desc, args[2])
		if errObj != nil {
			return errObj, nil
		}
		if err := prop.Set(instance, objectToAny(args[3])); err != nil {
			return errorObject(err.Error()), nil
		}
		return tengo.TrueValue, nil
	}}

	values["has"] = &tengo.UserFunction{Name: "has", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 2 {
			return nil, tengo.ErrWrongNumArguments
		}
		e := b.resolve(args[0])
		if e == nil {
			return tengo.FalseValue, nil
		}
		desc, ok := e.Registry().ByName(objectAsString(args[1]))
		if !ok || !e.HasComponent(desc.ID()) {
			return tengo.FalseValue, nil
		}
		return tengo.TrueValue, nil
	}}

	values["position"] = &tengo.UserFunction{Name: "position", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		e := b.resolve(args[0])
		if e == nil {
			return tengo.UndefinedValue, nil
		}
		return toObject(e.Position), nil
	}}

	values["erase"] = &tengo.UserFunction{Name: "erase", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		id, ok := entityID(args[0])
		if !ok || !b.entities.Erase(id) {
			return tengo.FalseValue, nil
		}
		return tengo.TrueValue, nil
	}}

	values["log"] = &tengo.UserFunction{Name: "log", Value: func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, arg := range args {
			parts = append(parts, objectAsString(arg))
		}
		b.log.Info("script: " + strings.Join(parts, " "))
		return tengo.UndefinedValue, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}

func (b *Bridge) resolve(obj tengo.Object) *ecs.Entity {
	id, ok := entityID(obj)
	if !ok {
		return nil
	}
	return b.entities.Resolve(id)
}

// lookup resolves an entity and one of its components. A nil entity with a
// nil error object means the id no longer resolves.
func (b *Bridge) lookup(idObj, nameObj tengo.Object) (*ecs.Entity, any, *component.Descriptor, tengo.Object) {
	e := b.resolve(idObj)
	if e == nil {
		return nil, nil, nil, nil
	}
	name := objectAsString(nameObj)
	desc, ok := e.Registry().ByName(name)
	if !ok || !desc.Registered() {
		return nil, nil, nil, errorObject(fmt.Sprintf("unknown component %q", name))
	}
	instance := e.ComponentByID(desc.ID())
	if instance == nil {
		return nil, nil, nil, errorObject(fmt.Sprintf("entity %s has no %s", e.ID(), name))
	}
	return e, instance, desc, nil
}

func property(desc *component.Descriptor, nameObj tengo.Object) (component.Property, tengo.Object) {
	name := objectAsString(nameObj)
	prop, ok := desc.Property(name)
	if !ok {
		return nil, errorObject(fmt.Sprintf("unknown property %s.%s", desc.Name(), name))
	}
	return prop, nil
}

func entityID(obj tengo.Object) (ecs.EntityID, bool) {
	n, ok := tengo.ToInt64(obj)
	if !ok || n <= 0 {
		return 0, false
	}
	return ecs.EntityID(n), true
}

func errorObject(msg string) tengo.Object {
	return &tengo.Error{Value: &tengo.String{Value: msg}}
}

func orUndefined(obj tengo.Object) tengo.Object {
	if obj == nil {
		return tengo.UndefinedValue
	}
	return obj
}

// toObject converts property values, including vectors, into tengo objects.
func toObject(v any) tengo.Object {
	switch val := v.(type) {
	case common.Vec3:
		return &tengo.Map{Value: map[string]tengo.Object{
			"x": &tengo.Float{Value: val.X},
			"y": &tengo.Float{Value: val.Y},
			"z": &tengo.Float{Value: val.Z},
		}}
	case common.Quat:
		return &tengo.Map{Value: map[string]tengo.Object{
			"w": &tengo.Float{Value: val.W},
			"x": &tengo.Float{Value: val.X},
			"y": &tengo.Float{Value: val.Y},
			"z": &tengo.Float{Value: val.Z},
		}}
	case float32:
		return &tengo.Float{Value: float64(val)}
	case int32:
		return &tengo.Int{Value: int64(val)}
	case uint32:
		return &tengo.Int{Value: int64(val)}
	}
	obj, err := tengo.FromInterface(v)
	if err != nil {
		return errorObject(err.Error())
	}
	return obj
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	default:
		return strings.Trim(v.String(), "\"")
	}
}

func objectToAny(obj tengo.Object) any {
	if obj == nil {
		return nil
	}

	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	case *tengo.Int:
		return int(v.Value)
	case *tengo.Float:
		return v.Value
	case *tengo.Bool:
		return !v.IsFalsy()
	case *tengo.Array:
		out := make([]any, 0, len(v.Value))
		for _, item := range v.Value {
			out = append(out, objectToAny(item))
		}
		return out
	case *tengo.Map:
		out := make(map[string]any, len(v.Value))
		for k, item := range v.Value {
			out[k] = objectToAny(item)
		}
		return out
	case *tengo.ImmutableMap:
		out := make(map[string]any, len(v.Value))
		for k, item := range v.Value {
			out[k] = objectToAny(item)
		}
		return out
	default:
		return tengo.ToInterface(obj)
	}
}
