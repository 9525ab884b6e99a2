/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package googleexecutor adapts Gemini models to executor.Model.

Requests are translated into GenerateContent calls with the driver's
conversation as history. Function calls in the reply are parsed into
toolcall.ToolCall values; tool results go back as FunctionResponse parts.

	client, err := googleexecutor.NewClient(ctx, googleexecutor.ClientConfig{
	    APIKey:     os.Getenv("GEMINI_API_KEY"),
	    HTTPClient: retry.NewTransport(nil, retry.DefaultRetryConfig()).Client(),
	})
	if err != nil {
	    return err
	}
	model, err := googleexecutor.New(client, googleexecutor.WithModel("gemini-2.5-flash"))

# Options

  - WithModel: Set the Gemini model to use
  - WithTemperature: Control response randomness (0.0-2.0)
  - WithMaxOutputTokens: Set maximum response length
  - WithThinking: Set a thinking budget (-1 for dynamic)
  - WithRetryConfig: Retry policy for transient errors

# Malformed function calls

Gemini occasionally ends a candidate with MALFORMED_FUNCTION_CALL. The
adapter answers that once with a reminder listing the available
functions before giving up and returning an empty reply.
*/
package googleexecutor
