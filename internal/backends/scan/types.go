// Package scan is the built-in source collector: a line-scanning parser
// producing the file metrics, syntax summaries, and import declarations
// the engine consumes, plus the project-internal import resolver. It
// trades AST fidelity for zero setup; an external parser can replace it
// behind the same types.
package scan

import "insight/internal/fact"

// ImportDecl is one import statement of a file.
type ImportDecl struct {
	Source       string   // raw import string as written
	Names        []string // imported symbols, when the syntax exposes them
	ResolvedPath string   // root-relative target; "" when unresolved
	IsExternal   bool     // external package: dropped, never phantom
}

// FunctionDef is one function or method.
type FunctionDef struct {
	Name            string
	SignatureTokens []string
	BodyTokens      []string
	IsStub          bool
	NestingDepth    int
}

// ClassDef is one class, struct, trait, or interface declaration.
type ClassDef struct {
	Name       string
	Bases      []string
	IsAbstract bool
}

// FileMetrics is the quantitative summary of one file.
type FileMetrics struct {
	Path          string
	Language      string
	Lines         int
	FunctionCount int
	ClassCount    int
	ImportCount   int
	Imports       []ImportDecl
}

// FileSyntax is the structural summary of one file.
type FileSyntax struct {
	Path         string
	Functions    []FunctionDef
	Classes      []ClassDef
	MaxNesting   int
	HasMainGuard bool
}

// FileScan is the complete per-file collection product.
type FileScan struct {
	Metrics      FileMetrics
	Syntax       FileSyntax
	Content      []byte
	Role         fact.FileRole
	TodoCount    int
	DocComments  int // documented declarations
	Declarations int // declarations eligible for doc comments
}
