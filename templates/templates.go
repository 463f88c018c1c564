// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package templates resolves {{ expression }} placeholders in commit
// messages, step commands and configuration values using expr
package templates

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/tidwall/gjson"
)

// Env is the template execution environment, expressions can access
// host facts, user data and the process environment
type Env struct {
	Facts   map[string]any    `json:"facts" yaml:"facts"`
	Data    map[string]any    `json:"data" yaml:"data"`
	Environ map[string]string `json:"environ" yaml:"environ"`

	envJSON json.RawMessage
	mu      sync.Mutex
}

var placeholderRe = regexp.MustCompile(`{{\s*(.*?)\s*}}`)

// lookup implements the lookup(key[, default]) template function, keys
// are gjson paths into the serialised environment
func (e *Env) lookup(params ...any) (any, error) {
	if len(params) == 0 || len(params) > 2 {
		return nil, fmt.Errorf("lookup requires 1 or 2 arguments")
	}

	key, ok := params[0].(string)
	if !ok {
		return nil, fmt.Errorf("lookup requires a string argument")
	}

	var defaultValue any = ""
	if len(params) == 2 {
		defaultValue = params[1]
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.envJSON == nil {
		j, err := json.Marshal(e)
		if err != nil {
			return "", err
		}
		e.envJSON = j
	}

	res := gjson.GetBytes(e.envJSON, key)
	if !res.Exists() {
		return defaultValue, nil
	}

	if res.Type == gjson.Number && !strings.Contains(res.Raw, ".") {
		return res.Int(), nil
	}

	return res.Value(), nil
}

// ResolveTemplateString resolves all {{ expression }} placeholders in
// template and returns the result as a string, strings without
// placeholders are returned unchanged
func ResolveTemplateString(template string, env *Env) (string, error) {
	if template == "" {
		return "", nil
	}

	matches := placeholderRe.FindAllStringSubmatchIndex(template, -1)
	if matches == nil {
		return template, nil
	}

	var result strings.Builder
	lastIndex := 0

	for _, loc := range matches {
		fullStart, fullEnd := loc[0], loc[1]
		innerStart, innerEnd := loc[2], loc[3]

		value, err := exprParse(template[innerStart:innerEnd], env)
		if err != nil {
			return "", err
		}

		result.WriteString(template[lastIndex:fullStart])
		result.WriteString(fmt.Sprint(value))

		lastIndex = fullEnd
	}

	result.WriteString(template[lastIndex:])

	return result.String(), nil
}

func exprParse(query string, env *Env) (any, error) {
	program, err := expr.Compile(query, expr.Env(env), expr.Function("lookup", env.lookup))
	if err != nil {
		return "", fmt.Errorf("expr compile error for '%s': %w", query, err)
	}

	return expr.Run(program, env)
}
