package naming

import (
	"strconv"
	"strings"
)

// Named describes an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}

// NamedBase is a base implementation of Named.
type NamedBase struct {
	name string
}

// Name returns the name.
func (b NamedBase) Name() string {
	return b.name
}

// MakeNamedBase creates a new NamedBase. It panics if the name does not
// follow the naming convention.
func MakeNamedBase(name string) NamedBase {
	NameMustBeValid(name)

	return NamedBase{name: name}
}

// NameMustBeValid panics if the name does not follow the naming convention.
//  1. Names are hierarchical, separated by dots. "Switch0.Port[1].Gate[3]" is
//     valid, "Switch0." is not.
//  2. Individual elements must not be empty and must start with a capital
//     letter.
//  3. Elements in a series use square-bracket indices.
func NameMustBeValid(name string) {
	for _, token := range strings.Split(name, ".") {
		tokenMustBeValid(name, token)
	}
}

func tokenMustBeValid(name, token string) {
	elem, indices, found := strings.Cut(token, "[")

	if elem == "" {
		panic("name " + name + " is not valid: element must not be empty")
	}

	if strings.ContainsAny(elem, "_\"'- ") {
		panic("name " + name + " is not valid: element contains invalid character")
	}

	if elem[0] < 'A' || elem[0] > 'Z' {
		panic("name " + name + " is not valid: element must start with a capital letter")
	}

	if !found {
		return
	}

	for _, idx := range strings.Split("["+indices, "[")[1:] {
		if !strings.HasSuffix(idx, "]") {
			panic("name " + name + " is not valid: bracket must match")
		}

		if _, err := strconv.Atoi(strings.TrimSuffix(idx, "]")); err != nil {
			panic("name " + name + " is not valid: index must be integer")
		}
	}
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds a name from a parent name, an element name and an
// index.
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}
