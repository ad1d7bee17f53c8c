package compiler

import "strings"

// MangleFunc builds the symbol name for one monomorphized specialization:
// name_type1_type2... The bare name is kept for non-generic functions.
func MangleFunc(name string, typeArgs []Type) string {
	if len(typeArgs) == 0 {
		return name
	}
	parts := make([]string, 0, len(typeArgs)+1)
	parts = append(parts, name)
	for _, t := range typeArgs {
		parts = append(parts, t.Mangle())
	}
	return strings.Join(parts, "_")
}

// MangleMethod builds the symbol name for a struct method. Methods are
// name-mangled as <StructName>_<methodName> to avoid collision with free
// functions.
func MangleMethod(structName, methodName string) string {
	return structName + "_" + methodName
}

// SpecKey is the specialization-cache key: one generic name plus the
// ordered concrete type arguments, collapsed to a stable string the same
// way the emitted symbol is.
func SpecKey(name string, typeArgs []Type) string {
	return MangleFunc(name, typeArgs)
}
