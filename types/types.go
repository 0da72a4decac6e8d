// Package types implements the VSOP type lattice: the primitive types,
// class types, the subtype relation, and least-upper-bound computation
// (spec.md §3, "VSOP type").
package types

// Kind distinguishes a primitive type from a class type.
type Kind int

const (
	Unit Kind = iota
	Int32
	Bool
	String
	Double // extended dialect only
	ClassType
	Error // sentinel for a failed check (spec.md §3 invariant 5)
)

// Type is a VSOP type: either one of the fixed primitives or a reference to
// a resolved class. Two Type values denote the same type iff Kind matches
// and, for ClassType, Class is the same *Class.
type Type struct {
	Kind  Kind
	Class *Class
}

// Class is the subset of class bookkeeping the type lattice needs: a name
// and a parent link. The resolver's ast.Class is the fuller declaration;
// this is the minimal, cycle-free view subtype/LUB computation walks.
type Class struct {
	Name   string
	Parent *Class // nil only for Object
}

func (t *Type) TypeName() string {
	switch t.Kind {
	case Unit:
		return "unit"
	case Int32:
		return "int32"
	case Bool:
		return "bool"
	case String:
		return "string"
	case Double:
		return "double"
	case ClassType:
		return t.Class.Name
	default:
		return "<error>"
	}
}

func Primitive(k Kind) *Type { return &Type{Kind: k} }

func OfClass(c *Class) *Type { return &Type{Kind: ClassType, Class: c} }

// ErrorType is the sentinel assigned when a node fails to type-check, so
// that traversal can continue without a nil static type (spec.md §3
// invariant 5).
var ErrorType = &Type{Kind: Error}

// Equal reports whether a and b denote the identical type.
func Equal(a, b *Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == ClassType {
		return a.Class == b.Class
	}
	return true
}

// IsSubtype reports whether a is a sub-type of b: reflexive/transitive
// closure of `extends` for classes, plain equality for primitives
// (spec.md §3, "Subtype relation").
func IsSubtype(a, b *Type) bool {
	if a.Kind == Error || b.Kind == Error {
		return true // an already-diagnosed error should not cascade further errors
	}
	if a.Kind != ClassType || b.Kind != ClassType {
		return Equal(a, b)
	}
	for c := a.Class; c != nil; c = c.Parent {
		if c == b.Class {
			return true
		}
	}
	return false
}

// ancestors returns c and every ancestor up to Object, root-last.
func ancestors(c *Class) []*Class {
	var chain []*Class
	for ; c != nil; c = c.Parent {
		chain = append(chain, c)
	}
	return chain
}

// LUB computes the least upper bound of two types (spec.md §3, "Least
// upper bound"). For class/class it is the lowest common ancestor,
// guaranteed to exist via the Object root. For primitive/primitive it
// requires equality, with the extended-dialect exception
// LUB(int32, double) = double. Returns (nil, false) when no LUB exists.
func LUB(a, b *Type, extended bool) (*Type, bool) {
	if a.Kind == Error {
		return b, true
	}
	if b.Kind == Error {
		return a, true
	}
	if a.Kind == Unit || b.Kind == Unit {
		return Primitive(Unit), true
	}
	if a.Kind == ClassType && b.Kind == ClassType {
		c, ok := lowestCommonAncestor(a.Class, b.Class)
		if !ok {
			return nil, false
		}
		return OfClass(c), true
	}
	if a.Kind == ClassType || b.Kind == ClassType {
		return nil, false
	}
	if Equal(a, b) {
		return a, true
	}
	if extended {
		if (a.Kind == Int32 && b.Kind == Double) || (a.Kind == Double && b.Kind == Int32) {
			return Primitive(Double), true
		}
	}
	return nil, false
}

// lowestCommonAncestor finds the unique ancestor C of both a and b such
// that no proper subclass of C is also a common ancestor (spec.md §8,
// property 6).
func lowestCommonAncestor(a, b *Class) (*Class, bool) {
	bAncestors := make(map[*Class]bool)
	for _, c := range ancestors(b) {
		bAncestors[c] = true
	}
	for _, c := range ancestors(a) {
		if bAncestors[c] {
			return c, true
		}
	}
	return nil, false
}

// NumericKind reports whether k is int32 or (extended) double.
func NumericKind(k Kind) bool { return k == Int32 || k == Double }
