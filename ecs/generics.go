package ecs

import (
	"fmt"

	"github.com/milk9111/simcore/ecs/component"
)

// Add default-constructs a T through its registered factory and attaches it.
// Adding a type the entity already holds is a programming error and panics.
func Add[T any](e *Entity) *T {
	desc := component.DescriptorOf[T](e.registry)
	instance, ok := desc.New().(*T)
	if !ok {
		panic(fmt.Sprintf("ecs: factory for %s returned %T", desc.Name(), desc.New()))
	}
	mustAttach(e, desc.ID(), instance)
	return instance
}

// AddValue attaches a copy of value.
func AddValue[T any](e *Entity, value T) *T {
	instance := &value
	mustAttach(e, component.DescriptorOf[T](e.registry).ID(), instance)
	return instance
}

// Get returns the owned T or nil.
func Get[T any](e *Entity) *T {
	if e == nil {
		return nil
	}
	instance, ok := e.components[component.DescriptorOf[T](e.registry).ID()]
	if !ok {
		return nil
	}
	cast, _ := instance.(*T)
	return cast
}

func Has[T any](e *Entity) bool {
	return Get[T](e) != nil
}

// Remove destroys the owned T, if any.
func Remove[T any](e *Entity) bool {
	return e.RemoveByID(component.DescriptorOf[T](e.registry).ID())
}

func mustAttach(e *Entity, id component.TypeID, instance any) {
	if err := e.Attach(id, instance); err != nil {
		panic(err)
	}
}
