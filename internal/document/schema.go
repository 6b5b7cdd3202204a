package document

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	mocheerrors "moche.dev/moche/internal/errors"
)

// Schema describes how document members map onto a value of type T.
// Schemas are declared once as package level variables next to the type they describe.
type Schema[T any] struct {
	name     string
	fields   []Field[T]
	index    map[string]int
	defaults func(*T)
}

// NewSchema creates a schema for T. It panics on duplicate member names.
func NewSchema[T any](name string, fields ...Field[T]) *Schema[T] {
	s := &Schema[T]{
		name:   name,
		fields: fields,
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if _, dup := s.index[f.name]; dup {
			panic(fmt.Sprintf("document: duplicate member %s in schema %s", f.name, name))
		}
		s.index[f.name] = i
	}
	return s
}

// WithDefaults registers a function that initializes values created by the schema.
func (s *Schema[T]) WithDefaults(fn func(*T)) *Schema[T] {
	s.defaults = fn
	return s
}

// Name returns the type name used in error messages.
func (s *Schema[T]) Name() string {
	return s.name
}

// New allocates a T with the schema defaults applied.
func (s *Schema[T]) New() *T {
	v := new(T)
	if s.defaults != nil {
		s.defaults(v)
	}
	return v
}

// Members returns the member names in declaration order.
func (s *Schema[T]) Members() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.name
	}
	return names
}

// apply merges one block of nodes into obj. Clear-on-merge members are
// emptied the first time they are touched within this block.
func (s *Schema[T]) apply(obj *T, nodes []*Node) error {
	touched := make(map[string]bool)
	for _, n := range nodes {
		i, ok := s.index[n.Name]
		if !ok {
			return mocheerrors.NewSchemaError(n.Line, s.name, n.Name, "unknown member")
		}
		f := s.fields[i]
		m := f.bind(obj)
		if f.clearOnMerge && !touched[f.name] {
			m.clear()
		}
		touched[f.name] = true

		if err := m.merge(n); err != nil {
			if errors.Is(err, mocheerrors.ErrSchema) || errors.Is(err, mocheerrors.ErrParse) {
				return err
			}
			return mocheerrors.NewSchemaError(n.Line, s.name, n.Name, err.Error())
		}
	}
	return nil
}

func (s *Schema[T]) write(w *writer, obj *T, depth int) {
	for _, f := range s.fields {
		f.bind(obj).write(w, f.name, depth)
	}
}

// Field describes one named member of T.
type Field[T any] struct {
	name         string
	clearOnMerge bool
	bind         func(*T) member
}

// ClearOnMerge marks a list or map member to be replaced, not extended, by each
// block that sets it.
func (f Field[T]) ClearOnMerge() Field[T] {
	f.clearOnMerge = true
	return f
}

type member interface {
	merge(n *Node) error
	clear()
	write(w *writer, name string, depth int)
}

// String declares a string member.
func String[T any](name string, get func(*T) *string) Field[T] {
	return Enum(name, get, func(s string) (string, error) { return s, nil }, func(s string) string { return s })
}

// Bool declares a boolean member. False is not written.
func Bool[T any](name string, get func(*T) *bool) Field[T] {
	return Enum(name, get, strconv.ParseBool, func(b bool) string {
		if !b {
			return ""
		}
		return "true"
	})
}

// Int declares an integer member.
func Int[T any](name string, get func(*T) *int) Field[T] {
	return Enum(name, get, strconv.Atoi, strconv.Itoa)
}

// Enum declares a scalar member converted with parse and format. A value that
// formats to the empty string is not written.
func Enum[T, E any](name string, get func(*T) *E, parse func(string) (E, error), format func(E) string) Field[T] {
	return Field[T]{
		name: name,
		bind: func(obj *T) member {
			return &scalarMember[E]{ptr: get(obj), parse: parse, format: format}
		},
	}
}

// StringList declares a repeated string member.
func StringList[T any](name string, get func(*T) *[]string) Field[T] {
	return EnumList(name, get, func(s string) (string, error) { return s, nil }, func(s string) string { return s })
}

// EnumList declares a repeated scalar member.
func EnumList[T, E any](name string, get func(*T) *[]E, parse func(string) (E, error), format func(E) string) Field[T] {
	return Field[T]{
		name: name,
		bind: func(obj *T) member {
			return &scalarListMember[E]{ptr: get(obj), parse: parse, format: format}
		},
	}
}

// Object declares a nested block. The value is allocated on first touch.
func Object[T, U any](name string, get func(*T) **U, schema *Schema[U]) Field[T] {
	return Field[T]{
		name: name,
		bind: func(obj *T) member {
			return &objectMember[U]{ptr: get(obj), schema: schema}
		},
	}
}

// ObjectList declares a repeated nested block. Each block appends a new element.
func ObjectList[T, U any](name string, get func(*T) *[]*U, schema *Schema[U]) Field[T] {
	return Field[T]{
		name: name,
		bind: func(obj *T) member {
			return &objectListMember[U]{ptr: get(obj), schema: schema}
		},
	}
}

// StringMap declares a block whose members are arbitrary keys with string values.
func StringMap[T any](name string, get func(*T) *Map[string, string]) Field[T] {
	return Field[T]{
		name: name,
		bind: func(obj *T) member {
			return &stringMapMember{m: get(obj)}
		},
	}
}

// KeyedMap declares a block whose members are keys, each opening a nested block
// merged into the value stored under that key.
func KeyedMap[T any, K comparable, U any](name string, get func(*T) *Map[K, *U], parseKey func(string) (K, error), formatKey func(K) string, schema *Schema[U]) Field[T] {
	return Field[T]{
		name: name,
		bind: func(obj *T) member {
			return &keyedMapMember[K, U]{m: get(obj), parseKey: parseKey, formatKey: formatKey, schema: schema}
		},
	}
}

// EmbeddedMap declares a repeated nested block collected into a map keyed by one
// of the element's own members. A block whose key already exists is merged into
// the existing element.
func EmbeddedMap[T, U any](name string, get func(*T) *Map[string, *U], key func(*U) string, schema *Schema[U]) Field[T] {
	return Field[T]{
		name: name,
		bind: func(obj *T) member {
			return &embeddedMapMember[U]{m: get(obj), key: key, schema: schema}
		},
	}
}

type scalarMember[E any] struct {
	ptr    *E
	parse  func(string) (E, error)
	format func(E) string
}

func (m *scalarMember[E]) merge(n *Node) error {
	if len(n.Children) > 0 {
		return fmt.Errorf("is a value, not a block")
	}
	// A member without a value keeps what earlier documents set.
	if n.Value == "" {
		return nil
	}
	v, err := m.parse(n.Value)
	if err != nil {
		return fmt.Errorf("cannot convert %q: %w", n.Value, err)
	}
	*m.ptr = v
	return nil
}

func (m *scalarMember[E]) clear() {}

func (m *scalarMember[E]) write(w *writer, name string, depth int) {
	if s := m.format(*m.ptr); s != "" {
		w.line(depth, name, s)
	}
}

type scalarListMember[E any] struct {
	ptr    *[]E
	parse  func(string) (E, error)
	format func(E) string
}

func (m *scalarListMember[E]) merge(n *Node) error {
	if len(n.Children) > 0 {
		return fmt.Errorf("is a value, not a block")
	}
	// A member without a value keeps what earlier documents set.
	if n.Value == "" {
		return nil
	}
	v, err := m.parse(n.Value)
	if err != nil {
		return fmt.Errorf("cannot convert %q: %w", n.Value, err)
	}
	*m.ptr = append(*m.ptr, v)
	return nil
}

func (m *scalarListMember[E]) clear() {
	*m.ptr = nil
}

func (m *scalarListMember[E]) write(w *writer, name string, depth int) {
	for _, v := range *m.ptr {
		w.line(depth, name, m.format(v))
	}
}

type objectMember[U any] struct {
	ptr    **U
	schema *Schema[U]
}

func (m *objectMember[U]) merge(n *Node) error {
	if *m.ptr == nil {
		*m.ptr = m.schema.New()
	}
	return m.schema.apply(*m.ptr, n.Children)
}

func (m *objectMember[U]) clear() {
	*m.ptr = nil
}

func (m *objectMember[U]) write(w *writer, name string, depth int) {
	if *m.ptr == nil {
		return
	}
	w.block(depth, name)
	m.schema.write(w, *m.ptr, depth+1)
}

type objectListMember[U any] struct {
	ptr    *[]*U
	schema *Schema[U]
}

func (m *objectListMember[U]) merge(n *Node) error {
	elem := m.schema.New()
	if err := m.schema.apply(elem, n.Children); err != nil {
		return err
	}
	*m.ptr = append(*m.ptr, elem)
	return nil
}

func (m *objectListMember[U]) clear() {
	*m.ptr = nil
}

func (m *objectListMember[U]) write(w *writer, name string, depth int) {
	for _, elem := range *m.ptr {
		w.block(depth, name)
		m.schema.write(w, elem, depth+1)
	}
}

type stringMapMember struct {
	m *Map[string, string]
}

func (m *stringMapMember) merge(n *Node) error {
	for _, child := range n.Children {
		if len(child.Children) > 0 {
			return mocheerrors.NewSchemaError(child.Line, n.Name, child.Name, "is a value, not a block")
		}
		m.m.Set(child.Name, child.Value)
	}
	return nil
}

func (m *stringMapMember) clear() {
	m.m.Clear()
}

func (m *stringMapMember) write(w *writer, name string, depth int) {
	if m.m.Len() == 0 {
		return
	}
	w.block(depth, name)
	for k, v := range m.m.All() {
		w.line(depth+1, k, v)
	}
}

type keyedMapMember[K comparable, U any] struct {
	m         *Map[K, *U]
	parseKey  func(string) (K, error)
	formatKey func(K) string
	schema    *Schema[U]
}

func (m *keyedMapMember[K, U]) merge(n *Node) error {
	for _, child := range n.Children {
		k, err := m.parseKey(child.Name)
		if err != nil {
			return mocheerrors.NewSchemaError(child.Line, n.Name, child.Name, fmt.Sprintf("invalid key: %v", err))
		}
		v, ok := m.m.Get(k)
		if !ok {
			v = m.schema.New()
			m.m.Set(k, v)
		}
		if err := m.schema.apply(v, child.Children); err != nil {
			return err
		}
	}
	return nil
}

func (m *keyedMapMember[K, U]) clear() {
	m.m.Clear()
}

func (m *keyedMapMember[K, U]) write(w *writer, name string, depth int) {
	if m.m.Len() == 0 {
		return
	}
	w.block(depth, name)
	for k, v := range m.m.All() {
		w.block(depth+1, m.formatKey(k))
		m.schema.write(w, v, depth+2)
	}
}

type embeddedMapMember[U any] struct {
	m      *Map[string, *U]
	key    func(*U) string
	schema *Schema[U]
}

func (m *embeddedMapMember[U]) merge(n *Node) error {
	fresh := m.schema.New()
	if err := m.schema.apply(fresh, n.Children); err != nil {
		return err
	}
	k := strings.TrimSpace(m.key(fresh))
	if k == "" {
		return mocheerrors.NewSchemaError(n.Line, m.schema.name, "", fmt.Sprintf("%s block without a key", n.Name))
	}
	if existing, ok := m.m.Get(k); ok {
		return m.schema.apply(existing, n.Children)
	}
	m.m.Set(k, fresh)
	return nil
}

func (m *embeddedMapMember[U]) clear() {
	m.m.Clear()
}

func (m *embeddedMapMember[U]) write(w *writer, name string, depth int) {
	for _, v := range m.m.Values() {
		w.block(depth, name)
		m.schema.write(w, v, depth+1)
	}
}
