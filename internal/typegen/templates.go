// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package typegen

import "text/template"

// Templates for every generated artifact. They are deliberately in-source:
// the slot structure is part of the emitter's contract and reviewed with it.

var typeRegisterTemplate = template.Must(template.New("typeRegister").Parse(
	`context->registerType(Backend::{{.Backend}}, ScalarType::{{.ScalarName}}, new {{.TypeName}}());`))

var extensionRegisterSwitchTemplate = template.Must(template.New("extensionRegisterSwitch").Parse(
	`case Backend::{{.Backend}}:
    {{.TypeName}}Dispatch::register_function(schema, fn);
    break;`))

var typeDerivedHTemplate = template.Must(template.New("typeDerivedH").Parse(
	`#pragma once

// @generated by opgen. Do not edit.

#include <runtime/TypeDefault.h>
{{range .StorageHeaders}}{{.}}
{{end}}
namespace op {

struct {{.TypeName}} final : public TypeDefault {
  explicit {{.TypeName}}();
  virtual ScalarType scalarType() const override;
  virtual Backend backend() const override;
  virtual TypeID ID() const override;
{{range .MethodDeclarations}}  {{.}}
{{end}}};

} // namespace op
`))

var typeDerivedCppTemplate = template.Must(template.New("typeDerivedCpp").Parse(
	`// @generated by opgen. Do not edit.

#include "{{.TypeName}}.h"
{{range .KernelHeaders}}{{.}}
{{end}}{{range .ExtraHeaders}}{{.}}
{{end}}
namespace op {

{{.TypeName}}::{{.TypeName}}() : TypeDefault(Backend::{{.Backend}}, ScalarType::{{.ScalarName}}) {}
ScalarType {{.TypeName}}::scalarType() const { return ScalarType::{{.ScalarName}}; }
Backend {{.TypeName}}::backend() const { return Backend::{{.Backend}}; }
TypeID {{.TypeName}}::ID() const { return {{.TypeID}}; }

{{range .MethodDefinitions}}{{.}}

{{end}}} // namespace op
`))

var sparseTypeDerivedCppTemplate = template.Must(template.New("sparseTypeDerivedCpp").Parse(
	`// @generated by opgen. Do not edit.

#include "{{.TypeName}}.h"
{{range .KernelHeaders}}{{.}}
{{end}}
// Sparse layout: values and indices dispatch through the dense {{.DenseBackend}} kernels.
namespace op {

{{.TypeName}}::{{.TypeName}}() : TypeDefault(Backend::{{.Backend}}, ScalarType::{{.ScalarName}}) {}
ScalarType {{.TypeName}}::scalarType() const { return ScalarType::{{.ScalarName}}; }
Backend {{.TypeName}}::backend() const { return Backend::{{.Backend}}; }
TypeID {{.TypeName}}::ID() const { return {{.TypeID}}; }

{{range .MethodDefinitions}}{{.}}

{{end}}} // namespace op
`))

var generatorDerivedHTemplate = template.Must(template.New("generatorDerivedH").Parse(
	`#pragma once

// @generated by opgen. Do not edit.

#include <{{.Header}}>

namespace op {

struct {{.Name}}Generator : public Generator {
  {{.StateField}}
};

} // namespace op
`))

var typeHTemplate = template.Must(template.New("typeH").Parse(
	`#pragma once

// @generated by opgen. Do not edit.

namespace op {

enum class TypeID {
{{range .TypeIDs}}  {{.}}
{{end}}  NumOptions
};

struct Type {
  Type(Backend backend, ScalarType scalarType) : backend_(backend), scalarType_(scalarType) {}
  virtual ~Type() {}
  virtual ScalarType scalarType() const = 0;
  virtual Backend backend() const = 0;
  virtual TypeID ID() const = 0;
{{range .PureVirtualTypeMethodDeclarations}}  {{.}}
{{end}}
 private:
  Backend backend_;
  ScalarType scalarType_;
};

} // namespace op
`))

var tensorHTemplate = template.Must(template.New("tensorH").Parse(
	`#pragma once

// @generated by opgen. Do not edit.

namespace op {

struct Tensor {
  Type & type() const;
{{range .TensorMethodDeclarations}}  {{.}}
{{end}}};

} // namespace op
`))

var tensorMethodsHTemplate = template.Must(template.New("tensorMethodsH").Parse(
	`#pragma once

// @generated by opgen. Do not edit.

#include "Tensor.h"
#include "Type.h"

namespace op {

{{range .TensorMethodDefinitions}}{{.}}

{{end}}} // namespace op
`))

var typeDefaultHTemplate = template.Must(template.New("typeDefaultH").Parse(
	`#pragma once

// @generated by opgen. Do not edit.

#include "Type.h"

namespace op {

struct TypeDefault : public Type {
  using Type::Type;
{{range .TypeMethodDeclarations}}  {{.}}
{{end}}};

} // namespace op
`))

var typeDefaultCppTemplate = template.Must(template.New("typeDefaultCpp").Parse(
	`// @generated by opgen. Do not edit.

#include "TypeDefault.h"

namespace op {

{{range .TypeMethodDefinitions}}{{.}}

{{end}}} // namespace op
`))

var functionsHTemplate = template.Must(template.New("functionsH").Parse(
	`#pragma once

// @generated by opgen. Do not edit.

#include "Tensor.h"
#include "Type.h"

namespace op {

{{range .FunctionDeclarations}}{{.}}
{{end}}
{{range .FunctionDefinitions}}{{.}}

{{end}}} // namespace op
`))

var nativeFunctionsHTemplate = template.Must(template.New("nativeFunctionsH").Parse(
	`#pragma once

// @generated by opgen. Do not edit.

#include "Tensor.h"

namespace op { namespace native {

{{range .NativeFunctionDeclarations}}{{.}}
{{end}}
}} // namespace op::native
`))

var registerHTemplate = template.Must(template.New("registerH").Parse(
	`#pragma once

// @generated by opgen. Do not edit.

namespace op {

void register_{{.Lower}}_types(Context * context);

} // namespace op
`))

var registerCppTemplate = template.Must(template.New("registerCpp").Parse(
	`// @generated by opgen. Do not edit.

#include "Register{{.Name}}.h"
{{range .Headers}}{{.}}
{{end}}
namespace op {

void register_{{.Lower}}_types(Context * context) {
{{range .Registrations}}  {{.}}
{{end}}}

} // namespace op
`))

var extensionBackendRegistrationHTemplate = template.Must(template.New("extensionBackendRegistrationH").Parse(
	`#pragma once

// @generated by opgen. Do not edit.
{{range .ExtensionBackendHeaders}}{{.}}
{{end}}
namespace op {

inline void register_extension_backend_function(Backend backend, const char * schema, void * fn) {
  switch (backend) {
{{range .ExtensionBackendRegisterSwitches}}  {{.}}
{{end}}  default:
    throw std::runtime_error("unknown extension backend");
  }
}

} // namespace op
`))

var typeExtensionHTemplate = template.Must(template.New("typeExtensionH").Parse(
	`#pragma once

// @generated by opgen. Do not edit.

#include <runtime/Type.h>

namespace op {

struct {{.TypeName}} : public Type {
  explicit {{.TypeName}}();
{{range .MethodDeclarations}}  {{.}}
{{end}}};

struct {{.TypeName}}Dispatch {
  static void register_function(const char * schema, void * fn);
};

} // namespace op
`))

var typeExtensionCppTemplate = template.Must(template.New("typeExtensionCpp").Parse(
	`// @generated by opgen. Do not edit.

#include "{{.TypeName}}.h"

namespace op {

{{.TypeName}}::{{.TypeName}}() : Type(Backend::{{.Backend}}, ScalarType::Undefined) {}

{{range .MethodDefinitions}}{{.}}

{{end}}} // namespace op
`))

var typeExtensionDerivedHTemplate = template.Must(template.New("typeExtensionDerivedH").Parse(
	`#pragma once

// @generated by opgen. Do not edit.

#include "{{.BaseTypeName}}.h"

namespace op {

struct {{.TypeName}} final : public {{.BaseTypeName}} {
  explicit {{.TypeName}}();
  virtual ScalarType scalarType() const override;
  virtual TypeID ID() const override;
};

} // namespace op
`))

var typeExtensionDerivedCppTemplate = template.Must(template.New("typeExtensionDerivedCpp").Parse(
	`// @generated by opgen. Do not edit.

#include "{{.TypeName}}.h"

namespace op {

{{.TypeName}}::{{.TypeName}}() : {{.BaseTypeName}}() {}
ScalarType {{.TypeName}}::scalarType() const { return ScalarType::{{.ScalarName}}; }
TypeID {{.TypeName}}::ID() const { return {{.TypeID}}; }

} // namespace op
`))

var kernelDispatcherHTemplate = template.Must(template.New("kernelDispatcherH").Parse(
	`#pragma once

// @generated by opgen. Do not edit.

namespace op {

// Kernel table for {{.Backend}} {{.ScalarName}} tensors.
struct {{.Dispatcher}} {
  static void * lookup(const char * name);
};

} // namespace op
`))

var kernelDispatcherCppTemplate = template.Must(template.New("kernelDispatcherCpp").Parse(
	`// @generated by opgen. Do not edit.

#include "{{.Dispatcher}}.h"
{{range .KernelHeaders}}{{.}}
{{end}}
#include <cstring>

namespace op {

namespace {
struct Entry { const char * name; void * fn; };
const Entry table[] = {
{{range .Entries}}  {{.}}
{{end}}  {nullptr, nullptr},
};
} // namespace

void * {{.Dispatcher}}::lookup(const char * name) {
  for (const Entry * e = table; e->name != nullptr; e++) {
    if (std::strcmp(e->name, name) == 0) return e->fn;
  }
  return nullptr;
}

} // namespace op
`))
