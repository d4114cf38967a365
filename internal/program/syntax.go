package program

// Range is a byte range [Start, End) in the source text.
type Range struct {
	Start int
	End   int
}

// Import is a static import/export-from specifier. Range covers the string
// literal including quotes.
type Import struct {
	Specifier string
	Range     Range
	TypeOnly  bool
}

// StringLit is a string or no-substitution template literal.
type StringLit struct {
	Value string
	Range Range
}

// Property is one key of an object literal argument.
type Property struct {
	Key     string
	Range   Range // whole "key: value" pair
	Value   Range
	Strings []StringLit // string value, or string elements of an array value
	IsArray bool
}

// Decorator is "@Name(args)". Props is set when the first argument is an
// object literal.
type Decorator struct {
	Name    string
	Range   Range
	ArgText string
	Props   []Property
	HasArgs bool
}

// Prop returns the named property of the decorator argument.
func (d *Decorator) Prop(key string) (*Property, bool) {
	for i := range d.Props {
		if d.Props[i].Key == key {
			return &d.Props[i], true
		}
	}
	return nil, false
}

// Param is a constructor parameter.
type Param struct {
	Name       string
	Type       string // type annotation text without ':'
	Range      Range
	Decorators []Decorator
}

// Class is a class declaration with what the compilers need from it.
type Class struct {
	Name       string
	Range      Range
	BodyStart  int // offset just after '{'
	Exported   bool
	Extends    bool
	Decorators []Decorator
	Members    []string // fields, methods, accessors, parameter properties
	Ctor       []Param
	HasCtor    bool
}

// Decorator returns the class decorator with the given name.
func (c *Class) Decorator(name string) (*Decorator, bool) {
	for i := range c.Decorators {
		if c.Decorators[i].Name == name {
			return &c.Decorators[i], true
		}
	}
	return nil, false
}

// Call is a call whose callee is a plain identifier.
type Call struct {
	Callee      string
	CalleeRange Range
}

// WorkerRef is `new Worker(new URL('<url>', import.meta.url))`.
type WorkerRef struct {
	URL StringLit
}

// SyntaxError is an ERROR or MISSING node reported by the parser.
type SyntaxError struct {
	Range   Range
	Missing bool
	Text    string
}

// Syntax holds the facts extracted from one parse.
type Syntax struct {
	Imports []Import
	Exports []string
	Classes []Class
	Calls   []Call
	Workers []WorkerRef
	Errors  []SyntaxError
}
