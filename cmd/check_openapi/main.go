// Command check_openapi verifies that docs/openapi.yaml stays consistent with
// the routes and error contract the server actually exposes.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type openAPIDoc struct {
	Paths      map[string]map[string]any `yaml:"paths"`
	Components struct {
		Schemas map[string]schema `yaml:"schemas"`
	} `yaml:"components"`
}

type schema struct {
	Type       string            `yaml:"type"`
	Properties map[string]schema `yaml:"properties"`
	Required   []string          `yaml:"required"`
}

// servedRoutes is the source of truth for what the server registers; keep in
// sync with internal/server.
var servedRoutes = map[string][]string{
	"/":                          {"get"},
	"/healthz":                   {"get"},
	"/jwt":                       {"post"},
	"/items":                     {"get", "post"},
	"/items/recoveries":          {"get"},
	"/items/{id}":                {"get"},
	"/items/{id}/image":          {"post"},
	"/items/{id}/image-url":      {"get"},
	"/recoveries":                {"get", "post"},
	"/recoveries/item/{item_id}": {"get"},
	"/recoveries/{id}":           {"patch"},
}

func main() {
	path := "docs/openapi.yaml"
	if len(os.Args) > 2 {
		fmt.Fprintf(os.Stderr, "usage: %s [openapi.yaml]\n", os.Args[0])
		os.Exit(2)
	}
	if len(os.Args) == 2 {
		path = os.Args[1]
	}

	doc, err := loadDoc(path)
	if err != nil {
		exitErr(err)
	}
	if err := checkRoutes(doc); err != nil {
		exitErr(err)
	}
	if err := checkErrorResponse(doc); err != nil {
		exitErr(err)
	}

	fmt.Println("OpenAPI consistency check passed.")
}

func loadDoc(path string) (openAPIDoc, error) {
	var doc openAPIDoc
	raw, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func checkRoutes(doc openAPIDoc) error {
	if doc.Paths == nil {
		return errors.New("paths section missing")
	}
	for route, methods := range servedRoutes {
		ops, ok := doc.Paths[route]
		if !ok {
			return fmt.Errorf("path %q missing from document", route)
		}
		for _, method := range methods {
			if _, ok := ops[method]; !ok {
				return fmt.Errorf("path %q missing operation %q", route, strings.ToUpper(method))
			}
		}
	}
	for route := range doc.Paths {
		if _, ok := servedRoutes[route]; !ok {
			return fmt.Errorf("path %q documented but not served", route)
		}
	}
	return nil
}

func checkErrorResponse(doc openAPIDoc) error {
	if doc.Components.Schemas == nil {
		return errors.New("components.schemas missing")
	}
	s, ok := doc.Components.Schemas["ErrorResponse"]
	if !ok {
		return errors.New("schema \"ErrorResponse\" missing")
	}
	if s.Type != "object" {
		return errors.New("ErrorResponse must be object")
	}
	if !makeSet(s.Required)["error"] {
		return errors.New("ErrorResponse.required must include \"error\"")
	}
	errorProp, ok := s.Properties["error"]
	if !ok || errorProp.Type != "string" {
		return errors.New("ErrorResponse.error must be string")
	}
	return nil
}

func makeSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out[item] = true
	}
	return out
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
