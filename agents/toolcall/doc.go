/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package toolcall defines the provider-independent tool model used by
// every agent session.
//
// A Tool pairs a Definition (name, description, parameters) with a
// Handler. Sessions hold a Registry, an immutable snapshot keyed by
// name. Lookups accept any casing or separator variant of a registered
// name, because model providers are inconsistent about how they echo
// tool names back:
//
//	reg := toolcall.MustRegistry(submit, readFile)
//	t, ok := reg.Lookup("SubmitReport") // finds "submit_report"
//
// # Tool providers
//
// Tool sets are composed by wrapping providers:
//
//	provider := toolcall.NewWorktreeToolsProvider(toolcall.NewEmptyToolsProvider())
//	tools := provider.Tools(toolcall.NewWorktreeTools(toolcall.EmptyTools{}, callbacks.ForDirectory(root)))
//	reg, err := toolcall.FromMap(tools)
//
// Conversion to SDK-specific types lives in the claudetool, googletool
// and openaitool subpackages.
package toolcall
