package openapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"gopkg.in/yaml.v3"
)

// OpenAPI accumulates the API description as routes are registered.
type OpenAPI struct {
	mu   sync.RWMutex
	spec *openapi3.T
}

func New(title, version string) *OpenAPI {
	return &OpenAPI{
		spec: &openapi3.T{
			OpenAPI: "3.0.3",
			Info: &openapi3.Info{
				Title:   title,
				Version: version,
			},
			Paths: openapi3.NewPaths(),
			Components: &openapi3.Components{
				Schemas:         make(openapi3.Schemas),
				SecuritySchemes: make(openapi3.SecuritySchemes),
			},
		},
	}
}

func (o *OpenAPI) Description(desc string) *OpenAPI {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.spec.Info.Description = desc
	return o
}

func (o *OpenAPI) Tag(name, description string) *OpenAPI {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.spec.Tags = append(o.spec.Tags, &openapi3.Tag{Name: name, Description: description})
	return o
}

func (o *OpenAPI) BearerAuth(name, description string) *OpenAPI {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.spec.Components.SecuritySchemes[name] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  description,
		},
	}
	return o
}

func (o *OpenAPI) Spec() *openapi3.T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.spec
}

func (o *OpenAPI) JSON() ([]byte, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return json.MarshalIndent(o.spec, "", "  ")
}

func (o *OpenAPI) YAML() ([]byte, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	intermediate, err := o.spec.MarshalYAML()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(intermediate)
}

func (o *OpenAPI) JSONHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := o.JSON()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Unable to render API description")
		}
		return c.JSONBlob(http.StatusOK, data)
	}
}

func (o *OpenAPI) YAMLHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := o.YAML()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Unable to render API description")
		}
		return c.Blob(http.StatusOK, "application/yaml", data)
	}
}

// Document starts describing the operation served at method and path.
// Nothing is recorded until Build is called.
func (o *OpenAPI) Document(method, path string) *RouteBuilder {
	return &RouteBuilder{
		openapi:   o,
		method:    strings.ToUpper(method),
		path:      path,
		operation: &openapi3.Operation{Responses: openapi3.NewResponses()},
	}
}

type RouteBuilder struct {
	openapi   *OpenAPI
	method    string
	path      string
	operation *openapi3.Operation
}

func (rb *RouteBuilder) Summary(summary string) *RouteBuilder {
	rb.operation.Summary = summary
	return rb
}

func (rb *RouteBuilder) Tags(tags ...string) *RouteBuilder {
	rb.operation.Tags = append(rb.operation.Tags, tags...)
	return rb
}

func (rb *RouteBuilder) Security(scheme string) *RouteBuilder {
	requirement := openapi3.NewSecurityRequirement().Authenticate(scheme)
	rb.operation.Security = openapi3.NewSecurityRequirements().With(requirement)
	return rb
}

func (rb *RouteBuilder) Body(example any, description string) *RouteBuilder {
	rb.operation.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithDescription(description).
			WithRequired(true).
			WithJSONSchemaRef(rb.openapi.schemaFor(example)),
	}
	return rb
}

func (rb *RouteBuilder) Response(status int, example any, description string) *RouteBuilder {
	response := openapi3.NewResponse().WithDescription(description)
	if example != nil {
		response = response.WithJSONSchemaRef(rb.openapi.schemaFor(example))
	}
	rb.operation.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: response})
	return rb
}

func (rb *RouteBuilder) Build() {
	o := rb.openapi
	o.mu.Lock()
	defer o.mu.Unlock()

	item := o.spec.Paths.Find(rb.path)
	if item == nil {
		item = &openapi3.PathItem{}
		o.spec.Paths.Set(rb.path, item)
	}
	item.SetOperation(rb.method, rb.operation)
}

// schemaFor registers named struct types as components and returns a
// reference to them; other types are described inline.
func (o *OpenAPI) schemaFor(example any) *openapi3.SchemaRef {
	o.mu.Lock()
	defer o.mu.Unlock()

	if example == nil {
		return openapi3.NewObjectSchema().NewRef()
	}
	return o.schemaFromType(reflect.TypeOf(example))
}

func (o *OpenAPI) schemaFromType(t reflect.Type) *openapi3.SchemaRef {
	if t.Kind() == reflect.Pointer {
		ref := o.schemaFromType(t.Elem())
		if ref.Ref == "" && ref.Value != nil {
			ref.Value.Nullable = true
		}
		return ref
	}

	switch t.Kind() {
	case reflect.String:
		return openapi3.NewStringSchema().NewRef()
	case reflect.Bool:
		return openapi3.NewBoolSchema().NewRef()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return openapi3.NewIntegerSchema().NewRef()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return openapi3.NewIntegerSchema().WithMin(0).NewRef()
	case reflect.Float32, reflect.Float64:
		return openapi3.NewFloat64Schema().NewRef()
	case reflect.Slice, reflect.Array:
		return openapi3.NewArraySchema().WithItems(o.schemaFromType(t.Elem()).Value).NewRef()
	case reflect.Struct:
		return o.structSchema(t)
	default:
		return openapi3.NewObjectSchema().NewRef()
	}
}

func (o *OpenAPI) structSchema(t reflect.Type) *openapi3.SchemaRef {
	name := schemaName(t)
	if _, ok := o.spec.Components.Schemas[name]; ok {
		return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
	}

	schema := openapi3.NewObjectSchema()
	// placeholder so self-referencing types terminate
	o.spec.Components.Schemas[name] = schema.NewRef()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := strings.Split(field.Tag.Get("json"), ",")
		if tag[0] == "-" {
			continue
		}
		prop := field.Name
		if tag[0] != "" {
			prop = tag[0]
		}

		ref := o.schemaFromType(field.Type)
		if ref.Ref == "" && ref.Value != nil {
			if doc := field.Tag.Get("doc"); doc != "" {
				ref.Value.Description = doc
			}
			if ex := field.Tag.Get("example"); ex != "" {
				ref.Value.Example = ex
			}
		}
		schema.WithPropertyRef(prop, ref)

		if !contains(tag[1:], "omitempty") && field.Type.Kind() != reflect.Pointer {
			schema.Required = append(schema.Required, prop)
		}
	}

	return openapi3.NewSchemaRef("#/components/schemas/"+name, schema)
}

// schemaName turns "Envelope[github.com/x/api.TokenResponse]" into "EnvelopeTokenResponse".
func schemaName(t reflect.Type) string {
	name := t.Name()
	open := strings.IndexByte(name, '[')
	if open < 0 {
		return name
	}

	var b strings.Builder
	b.WriteString(name[:open])
	for _, arg := range strings.Split(strings.TrimSuffix(name[open+1:], "]"), ",") {
		if dot := strings.LastIndexByte(arg, '.'); dot >= 0 {
			arg = arg[dot+1:]
		}
		for _, r := range arg {
			if r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
