/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package promptbuilder builds agent prompts from developer-written templates
with {{name}} placeholders.

Templates are string literals. Data that did not come from the developer
(file contents, diffs, tool output, sub-agent reports) can only reach a
prompt through an encoder:

	p := promptbuilder.MustNewPrompt(`Review {{file}}:
	{{content}}`)
	p = p.MustBindJSON("file", f.Name)
	p = p.MustBindFenced("content", "go", f.Content)
	text, err := p.Build()

BindFenced wraps text in a markdown code fence longer than any backtick run
inside it, so content cannot close the fence early. BindPrompt splices in
another fully bound prompt, which is how optional sections are composed.

Substitution is a single pass: bound values are never scanned for further
placeholders. Every Bind method returns a new Prompt and leaves the
receiver untouched, so templates can be shared across goroutines.

Build fails if any placeholder is still unbound.
*/
package promptbuilder
