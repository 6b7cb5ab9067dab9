// Package pkg provides the core libraries for recipeforge.
//
// # Overview
//
// Recipeforge works with conda-build recipes (meta.yaml files): templated
// descriptions of how to build, test, and package software for conda
// channels. The pkg directory is organized by pipeline stage:
//
//  1. [rendertmpl] - Environment template resolution ({{ environ.get(...) }})
//  2. [recipe] - Recipe schema, YAML codec, lint rules
//  3. [matchspec] - Conda match spec grammar and version ordering
//  4. [imports] - Smoke-test import validation and execution
//  5. [registry] - Package index clients (Anaconda.org)
//  6. [depgraph] - Dependency graph construction and DOT/SVG export
//  7. [cache] - Pluggable response caching (file, redis, mongo)
//
// # Architecture
//
// The typical data flow:
//
//	meta.yaml (templated)
//	         ↓
//	rendertmpl.Render         resolve {{ environ.get(...) }} tokens
//	         ↓
//	recipe.Parse / Lint       schema + metadata checks
//	         ↓
//	matchspec.Parse           requirement grammar
//	         ↓
//	registry/anaconda         index lookups (cached)
//	         ↓
//	depgraph                  graph walk, DOT/SVG export
//
// Supporting packages errors, config, and buildinfo carry structured
// error codes, TOML configuration, and version metadata respectively.
package pkg
