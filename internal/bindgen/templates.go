// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package bindgen

import (
	"strings"
	"text/template"

	"github.com/gomlx/opgen/internal/must"
)

var entryPointTemplate = template.Must(template.New("entryPoint").Parse(
	`static Object * {{.BindName}}(Object * self, Object * args, Object * kwargs)
{
  HANDLE_ERRORS
  static ArgParser parser({
{{range .Signatures}}    {{.}}
{{end}}  });
{{if .UnpackSelf}}  {{.UnpackSelf}}
{{end}}  ParsedArgs<{{.MaxArgs}}> parsed_args;
  auto r = parser.parse(args, kwargs, parsed_args);
{{range .Dispatch}}  {{.}}
{{end}}  return none();
  END_HANDLE_ERRORS
}
`))

var entryPointNoArgsTemplate = template.Must(template.New("entryPointNoArgs").Parse(
	`static Object * {{.BindName}}(Object * self, Object * args)
{
  HANDLE_ERRORS
  {{.UnpackSelf}}
  return wrap({{.DispatchName}}(self_));
  END_HANDLE_ERRORS
}
`))

var dispatchFunctionTemplate = template.Must(template.New("dispatchFunction").Parse(
	`inline {{.ReturnType}} {{.DispatchName}}({{.FormalArgs}}) {
{{if .InitializeCUDA}}  {{.InitializeCUDA}}
{{end}}  AutoNoGIL no_gil;
{{if .AutoGPU}}  {{.AutoGPU}}
{{end}}  return {{.DispatchCall}}({{.DispatchArgs}}){{.TypeConversion}};
}
`))

type dispatchEnv struct {
	ReturnType     string
	DispatchName   string
	FormalArgs     string
	InitializeCUDA string
	AutoGPU        string
	DispatchCall   string
	DispatchArgs   string
	TypeConversion string
}

func renderDispatchFunction(env *dispatchEnv) string {
	var sb strings.Builder
	must.M(dispatchFunctionTemplate.Execute(&sb, env))
	return sb.String()
}

var methodsCppTemplate = template.Must(template.New("methodsCpp").Parse(
	`// @generated by opgen. Do not edit.

#include "binding_methods_dispatch.h"

namespace bind {

{{range .Methods}}{{.}}
{{end}}static MethodDef tensor_methods[] = {
{{range .MethodDefs}}  {{.}}
{{end}}  {nullptr, nullptr, 0, nullptr},
};

} // namespace bind
`))

var functionsCppTemplate = template.Must(template.New("functionsCpp").Parse(
	`// @generated by opgen. Do not edit.

#include "binding_functions_dispatch.h"

namespace bind {

{{range .Methods}}{{.}}
{{end}}static MethodDef namespace_functions[] = {
{{range .MethodDefs}}  {{.}}
{{end}}  {nullptr, nullptr, 0, nullptr},
};

} // namespace bind
`))

var nnFunctionsCppTemplate = template.Must(template.New("nnFunctionsCpp").Parse(
	`// @generated by opgen. Do not edit.

#include "binding_nn_functions.h"
#include "binding_nn_functions_dispatch.h"

namespace bind {

{{range .Methods}}{{.}}
{{end}}static MethodDef nn_functions[] = {
{{range .MethodDefs}}  {{.}}
{{end}}  {nullptr, nullptr, 0, nullptr},
};

void initNNFunctions(Object * module) {
  register_methods(module, nn_functions);
}

} // namespace bind
`))

var nnFunctionsHTemplate = template.Must(template.New("nnFunctionsH").Parse(
	`#pragma once

// @generated by opgen. Do not edit.

namespace bind {

void initNNFunctions(Object * module);

} // namespace bind
`))

var dispatchHTemplate = template.Must(template.New("dispatchH").Parse(
	`#pragma once

// @generated by opgen. Do not edit.

#include "Functions.h"

namespace bind {

{{range .MethodDispatch}}{{.}}
{{end}}} // namespace bind
`))
