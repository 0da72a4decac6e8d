package types

import "testing"

func chain(names ...string) []*Class {
	var parent *Class
	classes := make([]*Class, len(names))
	for i, n := range names {
		c := &Class{Name: n, Parent: parent}
		classes[i] = c
		parent = c
	}
	return classes
}

// TestSubtypeReflexiveTransitive encodes spec.md §8 property 5.
func TestSubtypeReflexiveTransitive(t *testing.T) {
	cs := chain("Object", "A", "B", "C")
	object, a, b, c := cs[0], cs[1], cs[2], cs[3]

	for _, cls := range cs {
		ty := OfClass(cls)
		if !IsSubtype(ty, ty) {
			t.Fatalf("%s is not a subtype of itself", cls.Name)
		}
	}

	if !IsSubtype(OfClass(c), OfClass(a)) || !IsSubtype(OfClass(a), OfClass(object)) {
		t.Fatalf("expected C <: A <: Object")
	}
	if !IsSubtype(OfClass(c), OfClass(object)) {
		t.Fatalf("transitivity failed: expected C <: Object")
	}
	if IsSubtype(OfClass(a), OfClass(b)) {
		t.Fatalf("A must not be a subtype of its own subclass B")
	}
}

// TestLUBCorrectness encodes spec.md §8 property 6.
func TestLUBCorrectness(t *testing.T) {
	object := &Class{Name: "Object"}
	animal := &Class{Name: "Animal", Parent: object}
	dog := &Class{Name: "Dog", Parent: animal}
	cat := &Class{Name: "Cat", Parent: animal}

	got, ok := LUB(OfClass(dog), OfClass(cat), false)
	if !ok || got.Class != animal {
		t.Fatalf("LUB(Dog, Cat) = %v, want Animal", got)
	}

	got, ok = LUB(OfClass(dog), OfClass(dog), false)
	if !ok || got.Class != dog {
		t.Fatalf("LUB(Dog, Dog) = %v, want Dog", got)
	}

	got, ok = LUB(OfClass(dog), OfClass(object), false)
	if !ok || got.Class != object {
		t.Fatalf("LUB(Dog, Object) = %v, want Object", got)
	}
}

func TestLUBPrimitivesRequireEquality(t *testing.T) {
	if _, ok := LUB(Primitive(Int32), Primitive(String), false); ok {
		t.Fatalf("LUB(int32, string) should not exist")
	}
	got, ok := LUB(Primitive(Bool), Primitive(Bool), false)
	if !ok || got.Kind != Bool {
		t.Fatalf("LUB(bool, bool) should be bool")
	}
}

func TestLUBExtendedNumericWidening(t *testing.T) {
	got, ok := LUB(Primitive(Int32), Primitive(Double), true)
	if !ok || got.Kind != Double {
		t.Fatalf("LUB(int32, double) under -ext should widen to double, got %v", got)
	}
	if _, ok := LUB(Primitive(Int32), Primitive(Double), false); ok {
		t.Fatalf("LUB(int32, double) should not exist outside -ext")
	}
}

func TestUnitAbsorption(t *testing.T) {
	object := &Class{Name: "Object"}
	got, ok := LUB(Primitive(Unit), OfClass(object), false)
	if !ok || got.Kind != Unit {
		t.Fatalf("unit must absorb the other branch, got %v", got)
	}
}
