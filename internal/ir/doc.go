// Package ir provides the catalog data model for firegraph.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the genome (the compiled,
// immutable catalog table) the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - A Genome is three parallel pools (literals, methods, genes) addressed by
//     dense integer indices, never by pointers
//   - Values are a sealed tagged type: Null, Number, Text, Bool, Opaque
//   - All JSON tags use snake_case
//   - Genome identity is a content hash over canonical JSON
package ir
