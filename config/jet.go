// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"reflect"

	"github.com/CloudyKit/jet/v6"

	"github.com/shipit-project/shipit/templates"
)

// jetRender renders a configuration document as a jet template using
// [[ ]] delimiters so that {{ }} remains available for deploy time
// expression templates
func jetRender(cb []byte, env *templates.Env) ([]byte, error) {
	if env == nil {
		env = &templates.Env{}
	}

	set := jet.NewSet(jet.NewInMemLoader(), jet.WithDelims("[[", "]]"))
	tpl, err := set.Parse("config.yaml", string(cb))
	if err != nil {
		return nil, err
	}

	variables := jet.VarMap{
		"facts":   reflect.ValueOf(env.Facts),
		"Facts":   reflect.ValueOf(env.Facts),
		"data":    reflect.ValueOf(env.Data),
		"Data":    reflect.ValueOf(env.Data),
		"environ": reflect.ValueOf(env.Environ),
		"Environ": reflect.ValueOf(env.Environ),
	}

	buff := bytes.NewBuffer([]byte{})
	err = tpl.Execute(buff, variables, env)
	if err != nil {
		return nil, err
	}

	return buff.Bytes(), nil
}
