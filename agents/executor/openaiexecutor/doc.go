/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaiexecutor adapts OpenAI and OpenAI-compatible chat
// completion endpoints to executor.Model.
//
// Any server speaking the Chat Completions protocol works; set
// ClientConfig.BaseURL to point at it. Tool call arguments arrive as JSON
// strings and are decoded into toolcall.ToolCall args on receipt.
package openaiexecutor
