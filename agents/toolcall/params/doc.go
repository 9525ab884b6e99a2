/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package params extracts typed tool arguments from the loosely typed
// maps that model providers hand back.
//
// Numbers arrive as float64 from JSON, and some models quote numbers and
// booleans, so extraction converts between the common representations.
package params
