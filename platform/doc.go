/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package platform defines where a review's input comes from and where
// its output goes.
//
// A ChangedFilesProvider produces the files under review. A Provider
// receives the finished review: the report, one thread comment per bug
// and the token and tool usage. The gitlocal and githubpr subpackages
// implement both for a local checkout and a GitHub pull request; Local
// is a Provider that writes everything to an io.Writer.
package platform
