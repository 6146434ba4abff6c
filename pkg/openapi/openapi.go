// Package openapi synthesizes an OpenAPI 3.1 description of the generated
// CRUD endpoints from schema metadata. It performs no I/O: the generator is
// a pure transformation from table descriptors to a document, invoked at
// startup or per documentation request.
package openapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tablerest/tablerest/pkg/schema"
)

// Info contains API metadata for the generated document.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// ServerEntry describes one API server location.
type ServerEntry struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Route is a custom, non-schema-derived endpoint included in the document
// with a generic request/response shape.
type Route struct {
	Method  string
	Path    string
	Summary string
}

// Generator generates OpenAPI documents from a schema registry.
type Generator struct {
	registry *schema.Registry
	excluded map[string]struct{}
	info     Info
	servers  []ServerEntry
	custom   []Route
}

// NewGenerator creates a generator over an immutable registry.
func NewGenerator(registry *schema.Registry, info Info) *Generator {
	return &Generator{
		registry: registry,
		excluded: make(map[string]struct{}),
		info:     info,
	}
}

// WithServers sets the servers section.
func (g *Generator) WithServers(servers ...ServerEntry) *Generator {
	g.servers = append(g.servers, servers...)
	return g
}

// WithExcludedTables omits the named tables from the document.
func (g *Generator) WithExcludedTables(names ...string) *Generator {
	for _, name := range names {
		g.excluded[name] = struct{}{}
	}
	return g
}

// WithRoute registers a custom route.
func (g *Generator) WithRoute(method, path, summary string) *Generator {
	g.custom = append(g.custom, Route{Method: method, Path: path, Summary: summary})
	return g
}

// ServeHTTP implements http.Handler to serve the generated document.
func (g *Generator) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(g.Generate())
}

// Generate creates the complete document.
func (g *Generator) Generate() map[string]any {
	paths := make(map[string]any)
	schemas := make(map[string]any)

	for _, table := range g.registry.Tables() {
		if _, skip := g.excluded[table.Name]; skip {
			continue
		}

		tablePath := "/" + table.Name
		paths[tablePath] = g.buildTableOperations(table)
		paths[tablePath+"/{id}"] = g.buildRecordOperations(table)

		schemas[table.Name] = g.buildTableSchema(table)
		schemas[table.Name+"Input"] = g.buildInputSchema(table)
	}

	for _, route := range g.custom {
		entry, _ := paths[route.Path].(map[string]any)
		if entry == nil {
			entry = make(map[string]any)
		}
		entry[strings.ToLower(route.Method)] = g.buildCustomOperation(route)
		paths[route.Path] = entry
	}

	servers := make([]map[string]any, 0, len(g.servers))
	for _, srv := range g.servers {
		servers = append(servers, map[string]any{
			"url":         srv.URL,
			"description": srv.Description,
		})
	}

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":       g.info.Title,
			"description": g.info.Description,
			"version":     g.info.Version,
		},
		"servers": servers,
		"paths":   paths,
		"components": map[string]any{
			"schemas": schemas,
		},
	}
}

func schemaRef(name string) map[string]string {
	return map[string]string{"$ref": fmt.Sprintf("#/components/schemas/%s", name)}
}

// envelopeSchema wraps a data schema in the uniform response envelope.
func envelopeSchema(data any, collection bool) map[string]any {
	if collection {
		data = map[string]any{"type": "array", "items": data}
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"success": map[string]any{"type": "boolean"},
			"data":    data,
			"message": map[string]any{"type": "string"},
			"meta": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"total":  map[string]any{"type": "integer"},
					"limit":  map[string]any{"type": "integer"},
					"offset": map[string]any{"type": "integer"},
					"page":   map[string]any{"type": "integer"},
				},
			},
		},
	}
}

func errorResponses(codes ...string) map[string]any {
	descriptions := map[string]string{
		"400": "Bad Request",
		"403": "Forbidden",
		"404": "Not Found",
		"500": "Storage Failure",
	}
	out := make(map[string]any, len(codes))
	for _, code := range codes {
		out[code] = map[string]string{"description": descriptions[code]}
	}
	return out
}

func jsonContent(schema any, example any) map[string]any {
	body := map[string]any{"schema": schema}
	if example != nil {
		body["example"] = example
	}
	return map[string]any{"application/json": body}
}

// buildTableOperations defines the collection-level operations: list,
// create, and the by-id mutations driven by the where query parameter.
func (g *Generator) buildTableOperations(table schema.Table) map[string]any {
	responses := func(status string, collection bool) map[string]any {
		out := errorResponses("400", "403", "404", "500")
		out[status] = map[string]any{
			"description": "Success",
			"content": jsonContent(envelopeSchema(schemaRef(table.Name), collection),
				g.envelopeExample(table, collection)),
		}
		return out
	}

	updateOp := map[string]any{
		"summary":     fmt.Sprintf("Update %s record by id", table.Name),
		"description": fmt.Sprintf("Updates one record in %s, addressed by the where={\"id\":...} parameter", table.Name),
		"parameters":  []map[string]any{whereByIDParameter()},
		"requestBody": map[string]any{
			"content":  jsonContent(schemaRef(table.Name+"Input"), createExample(table)),
			"required": true,
		},
		"responses": responses("200", true),
		"tags":      []string{table.Name},
	}

	return map[string]any{
		"get": map[string]any{
			"summary":     fmt.Sprintf("List %s records", table.Name),
			"description": fmt.Sprintf("Retrieves records from %s with filtering, ordering and pagination", table.Name),
			"parameters":  g.buildQueryParameters(table),
			"responses":   responses("200", true),
			"tags":        []string{table.Name},
		},
		"post": map[string]any{
			"summary":     fmt.Sprintf("Create %s record(s)", table.Name),
			"description": fmt.Sprintf("Creates one record or a batch in %s", table.Name),
			"requestBody": map[string]any{
				"content":  jsonContent(schemaRef(table.Name+"Input"), createExample(table)),
				"required": true,
			},
			"responses": responses("201", true),
			"tags":      []string{table.Name},
		},
		"put":   updateOp,
		"patch": updateOp,
		"delete": map[string]any{
			"summary":     fmt.Sprintf("Delete %s record by id", table.Name),
			"description": fmt.Sprintf("Deletes one record from %s, addressed by the where={\"id\":...} parameter", table.Name),
			"parameters":  []map[string]any{whereByIDParameter()},
			"responses":   responses("200", true),
			"tags":        []string{table.Name},
		},
	}
}

// buildRecordOperations defines the single-record read.
func (g *Generator) buildRecordOperations(table schema.Table) map[string]any {
	responses := errorResponses("403", "404", "500")
	responses["200"] = map[string]any{
		"description": "Success",
		"content": jsonContent(envelopeSchema(schemaRef(table.Name), false),
			g.envelopeExample(table, false)),
	}

	idSchema := map[string]string{"type": "string"}
	if idCol, ok := table.IdentityColumn(); ok && idCol.Kind == schema.KindNumber {
		idSchema = map[string]string{"type": "integer"}
	}

	return map[string]any{
		"get": map[string]any{
			"summary":     fmt.Sprintf("Get %s record", table.Name),
			"description": fmt.Sprintf("Retrieves a single record from %s by its identity column", table.Name),
			"parameters": []map[string]any{{
				"name":     "id",
				"in":       "path",
				"required": true,
				"schema":   idSchema,
			}},
			"responses": responses,
			"tags":      []string{table.Name},
		},
	}
}

func (g *Generator) buildCustomOperation(route Route) map[string]any {
	return map[string]any{
		"summary": route.Summary,
		"responses": map[string]any{
			"200": map[string]any{
				"description": "Success",
				"content": jsonContent(map[string]any{
					"type":                 "object",
					"additionalProperties": true,
				}, nil),
			},
		},
		"tags": []string{"custom"},
	}
}

func whereByIDParameter() map[string]any {
	return map[string]any{
		"name":        "where",
		"in":          "query",
		"required":    true,
		"description": `JSON filter restricted to exactly {"id": value}`,
		"schema":      map[string]string{"type": "string"},
		"example":     `{"id":1}`,
	}
}

// buildQueryParameters generates the list query parameters.
func (g *Generator) buildQueryParameters(table schema.Table) []map[string]any {
	return []map[string]any{
		{
			"name":        "select",
			"in":          "query",
			"description": `Comma-separated column list, or "*" for all columns`,
			"schema":      map[string]string{"type": "string"},
			"example":     exampleSelect(table),
		},
		{
			"name":        "where",
			"in":          "query",
			"description": "JSON filter expression (and/or/not, eq, ne, gt, gte, lt, lte, like, ilike)",
			"schema":      map[string]string{"type": "string"},
			"example":     exampleWhere(table),
		},
		{
			"name":        "orderBy",
			"in":          "query",
			"description": `JSON object of column to direction, eg {"col":"desc"}`,
			"schema":      map[string]string{"type": "string"},
		},
		{
			"name":        "limit",
			"in":          "query",
			"description": "Limit the number of returned records",
			"schema":      map[string]string{"type": "integer"},
		},
		{
			"name":        "offset",
			"in":          "query",
			"description": "Pagination offset; takes precedence over page",
			"schema":      map[string]string{"type": "integer"},
		},
		{
			"name":        "page",
			"in":          "query",
			"description": "1-based page number, effective together with limit",
			"schema":      map[string]string{"type": "integer"},
		},
	}
}

// buildTableSchema generates the output schema: all columns, required =
// columns with neither a default nor nullability.
func (g *Generator) buildTableSchema(table schema.Table) map[string]any {
	properties := make(map[string]any)
	required := []string{}

	for _, col := range table.Columns {
		properties[col.Name] = columnSchema(col)
		if !col.Nullable && !col.HasDefault {
			required = append(required, col.Name)
		}
	}

	out := map[string]any{
		"type":       "object",
		"properties": properties,
		"example":    responseExample(table),
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// buildInputSchema generates the create/update payload schema. Same
// properties as the output schema, with a create-shaped example that omits
// auto-generated and default-bearing columns.
func (g *Generator) buildInputSchema(table schema.Table) map[string]any {
	properties := make(map[string]any)
	required := []string{}

	for _, col := range table.Columns {
		properties[col.Name] = columnSchema(col)
		if !col.Nullable && !col.HasDefault {
			required = append(required, col.Name)
		}
	}

	out := map[string]any{
		"type":       "object",
		"properties": properties,
		"example":    createExample(table),
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// columnSchema maps a scalar kind to an OpenAPI property schema.
func columnSchema(col schema.Column) map[string]any {
	out := make(map[string]any)
	switch col.Kind {
	case schema.KindNumber:
		out["type"] = "number"
	case schema.KindBoolean:
		out["type"] = "boolean"
	case schema.KindDate:
		out["type"] = "string"
		out["format"] = "date-time"
	default:
		out["type"] = "string"
	}
	if col.Nullable {
		out["nullable"] = true
	}
	return out
}

func (g *Generator) envelopeExample(table schema.Table, collection bool) map[string]any {
	example := responseExample(table)
	var data any = example
	total := 1
	if collection {
		data = []any{example}
	}
	return map[string]any{
		"success": true,
		"data":    data,
		"meta":    map[string]any{"total": total},
	}
}
