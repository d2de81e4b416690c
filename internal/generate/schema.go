// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"fmt"
	"math"
	"slices"

	"google.golang.org/genai"
)

// Validate checks a value produced by encoding/json against schema.
// Only the parts of the schema the pipeline uses are enforced: type,
// nullability, required properties, enums and array items.
func Validate(v any, schema *genai.Schema) error {
	return validate(v, schema, "$")
}

func validate(v any, s *genai.Schema, path string) error {
	if s == nil {
		return nil
	}
	if v == nil {
		if s.Nullable != nil && *s.Nullable {
			return nil
		}
		return fmt.Errorf("%w: %s is null", ErrSchema, path)
	}

	switch s.Type {
	case genai.TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return typeErr(path, "object", v)
		}
		for _, name := range s.Required {
			if _, ok := obj[name]; !ok {
				return fmt.Errorf("%w: %s.%s is required", ErrSchema, path, name)
			}
		}
		for name, prop := range s.Properties {
			val, ok := obj[name]
			if !ok {
				continue
			}
			if err := validate(val, prop, path+"."+name); err != nil {
				return err
			}
		}

	case genai.TypeArray:
		arr, ok := v.([]any)
		if !ok {
			return typeErr(path, "array", v)
		}
		for i, item := range arr {
			if err := validate(item, s.Items, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}

	case genai.TypeString:
		str, ok := v.(string)
		if !ok {
			return typeErr(path, "string", v)
		}
		if len(s.Enum) > 0 && !slices.Contains(s.Enum, str) {
			return fmt.Errorf("%w: %s is %q, want one of %v", ErrSchema, path, str, s.Enum)
		}

	case genai.TypeNumber:
		if _, ok := v.(float64); !ok {
			return typeErr(path, "number", v)
		}

	case genai.TypeInteger:
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return typeErr(path, "integer", v)
		}

	case genai.TypeBoolean:
		if _, ok := v.(bool); !ok {
			return typeErr(path, "boolean", v)
		}
	}
	return nil
}

func typeErr(path, want string, got any) error {
	return fmt.Errorf("%w: %s is %T, want %s", ErrSchema, path, got, want)
}
