package masm

import (
	"fmt"
	"hash/fnv"
)

// ModuleImportInfo deduplicates a Module's imports by fully-qualified
// source module name (e.g. "miden:add/add@1.0.0") and assigns each a
// short local alias used by `use` statements and Exec/Call targets: by
// default the last namespace component ("add" for the example above), or
// an fnv-hash-qualified variant if that alias is already taken by a
// different fully-qualified name.
type ModuleImportInfo struct {
	aliasByFQName map[string]string
	fqNameByAlias map[string]string
	funcsByAlias  map[string][]FunctionIdent
	order         []string
}

// NewModuleImportInfo returns an empty import table.
func NewModuleImportInfo() *ModuleImportInfo {
	return &ModuleImportInfo{
		aliasByFQName: map[string]string{},
		fqNameByAlias: map[string]string{},
		funcsByAlias:  map[string][]FunctionIdent{},
	}
}

// Alias returns the local alias assigned to fqName, assigning one on first
// use.
func (m *ModuleImportInfo) Alias(fqName string) string {
	if alias, ok := m.aliasByFQName[fqName]; ok {
		return alias
	}
	alias := lastNamespaceComponent(fqName)
	if existing, taken := m.fqNameByAlias[alias]; taken && existing != fqName {
		alias = fmt.Sprintf("%s_%08x", alias, fnvHash(fqName))
	}
	m.aliasByFQName[fqName] = alias
	m.fqNameByAlias[alias] = fqName
	m.order = append(m.order, fqName)
	return alias
}

// Track records that fn (an imported function identified by its alias'd
// FunctionIdent) is reachable through fqName's import.
func (m *ModuleImportInfo) Track(fqName string, fn FunctionIdent) {
	alias := m.Alias(fqName)
	m.funcsByAlias[alias] = append(m.funcsByAlias[alias], fn)
}

// FullyQualifiedNames returns every imported module name, in first-use
// order.
func (m *ModuleImportInfo) FullyQualifiedNames() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// FunctionsFor returns the FunctionIdents tracked against fqName's alias.
func (m *ModuleImportInfo) FunctionsFor(fqName string) []FunctionIdent {
	alias, ok := m.aliasByFQName[fqName]
	if !ok {
		return nil
	}
	return append([]FunctionIdent(nil), m.funcsByAlias[alias]...)
}

func lastNamespaceComponent(fqName string) string {
	// Fully-qualified component names look like
	// "namespace:package/interface@version"; the alias is the interface
	// segment, stripped of any version suffix.
	s := fqName
	if i := lastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	if i := lastIndexByte(s, '@'); i >= 0 {
		s = s[:i]
	}
	if i := lastIndexByte(s, ':'); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return "import"
	}
	return s
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func fnvHash(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
