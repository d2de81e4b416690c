// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate defines the text generation capability the pipeline
// consumes and the schema-constrained JSON call built on top of it.
//
// See docs/ARCHITECTURE.md § External Interfaces.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"google.golang.org/genai"
)

// ErrSchema is wrapped by every error caused by a structured reply that
// does not match the requested schema.
var ErrSchema = errors.New("response does not match schema")

// Request is one generation call.
type Request struct {
	// System holds the instructions for the model.
	System string

	// Prompt is the user content the instructions apply to.
	Prompt string

	// Schema constrains the reply to JSON of this shape when non-nil.
	Schema *genai.Schema
}

// Response is the raw model reply.
type Response struct {
	Text string
}

// Generator abstracts the text generation API so tests can supply a mock.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Func adapts a plain function to Generator.
type Func func(ctx context.Context, req Request) (Response, error)

// Generate implements Generator.
func (f Func) Generate(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// backoffBase controls the base duration for exponential backoff between
// structured generation attempts. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// JSON calls gen with req.Schema, validates the reply against the schema
// and decodes it into out. A reply that fails validation is retried up to
// maxRetries times with exponential backoff; the final failure wraps
// ErrSchema. Transport errors are returned at once.
func JSON(ctx context.Context, gen Generator, req Request, out any, maxRetries int) error {
	if req.Schema == nil {
		return fmt.Errorf("structured generation requires a schema")
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := gen.Generate(ctx, req)
		if err != nil {
			return fmt.Errorf("generating: %w", err)
		}

		lastErr = Decode(resp.Text, req.Schema, out)
		if lastErr == nil {
			return nil
		}
	}
	if maxRetries > 0 {
		return fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
	}
	return lastErr
}

// Decode parses text as JSON, checks it against schema and unmarshals it
// into out. Markdown code fences around the payload are tolerated.
func Decode(text string, schema *genai.Schema, out any) error {
	payload := stripFences(text)
	if payload == "" {
		return fmt.Errorf("%w: empty response", ErrSchema)
	}

	var raw any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if err := Validate(raw, schema); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

// stripFences removes a surrounding ```json ... ``` block.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
