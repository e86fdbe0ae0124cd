package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/matzehuels/versolve/pkg/cache"
	"github.com/matzehuels/versolve/pkg/errors"
	"github.com/matzehuels/versolve/pkg/graph"
	"github.com/matzehuels/versolve/pkg/version"
)

// Document is the JSON form of a graph.
type Document struct {
	Packages     []Package                    `json:"packages"`
	Requirements map[uuid.UUID]version.Spec   `json:"requirements,omitempty"`
	Fixed        map[uuid.UUID]version.Number `json:"fixed,omitempty"`
}

// Package is one package of a Document.
type Package struct {
	UUID     uuid.UUID                  `json:"uuid"`
	Name     string                     `json:"name"`
	Versions map[version.Number]Version `json:"versions"`
}

// Version holds the dependencies of one version.
type Version struct {
	Deps map[uuid.UUID]Dep `json:"deps,omitempty"`
}

// Dep is one dependency edge.
type Dep struct {
	Spec version.Spec `json:"spec"`
	Weak bool         `json:"weak,omitempty"`
}

// Graph builds a graph from the document.
//
// Returns an INVALID_INPUT error for edges the graph rejects and a
// PACKAGE_NOT_FOUND error for requirements or fixed versions of packages
// the document does not list.
func (d *Document) Graph() (*graph.Graph, error) {
	g := graph.New()
	for _, p := range d.Packages {
		vs := make([]version.Number, 0, len(p.Versions))
		for v := range p.Versions {
			vs = append(vs, v)
		}
		if err := g.AddPackage(p.UUID, p.Name, vs...); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "package %q", p.Name)
		}
	}
	for _, p := range d.Packages {
		for v, ver := range p.Versions {
			for dep, e := range ver.Deps {
				if err := g.AddEdge(p.UUID, v, dep, e.Spec, e.Weak); err != nil {
					return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "edge %s@%s -> %s", p.Name, v, dep)
				}
			}
		}
	}
	for id, v := range d.Fixed {
		if !g.Has(id) {
			return nil, errors.New(errors.ErrCodePackageNotFound, "fixed package %s is not in the document", id)
		}
		if err := g.Fix(id, v); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "fixed %s@%s", id, v)
		}
	}
	for id, s := range d.Requirements {
		if !g.Has(id) {
			return nil, errors.New(errors.ErrCodePackageNotFound, "required package %s is not in the document", id)
		}
		if err := g.Require(id, s); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "requirement %s", id)
		}
	}
	return g, nil
}

// NewDocument captures the packages, edges, requirements and fixed
// versions of g. Merges recorded by the simplifier are not part of it.
func NewDocument(g *graph.Graph) *Document {
	d := &Document{
		Requirements: g.Requirements(),
		Fixed:        g.Fixed(),
	}
	for _, id := range g.Packages() {
		p := Package{UUID: id, Name: g.Name(id), Versions: make(map[version.Number]Version)}
		for _, v := range g.Versions(id) {
			var ver Version
			for dep, e := range g.Neighbors(id, v) {
				if ver.Deps == nil {
					ver.Deps = make(map[uuid.UUID]Dep)
				}
				ver.Deps[dep] = Dep{Spec: e.Spec, Weak: e.Weak}
			}
			p.Versions[v] = ver
		}
		d.Packages = append(d.Packages, p)
	}
	return d
}

// ReadJSON decodes a graph document from r. Unknown fields are rejected.
func ReadJSON(r io.Reader) (*graph.Graph, error) {
	var d Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode graph document")
	}
	return d.Graph()
}

// ImportJSON reads a graph document from the file at path.
func ImportJSON(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// WriteJSON encodes g as an indented document. Equal graphs produce equal
// bytes.
func WriteJSON(g *graph.Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes g to a document file at path.
func ExportJSON(g *graph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(g, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Digest returns the SHA-256 of the canonical document of g.
func Digest(g *graph.Graph) (string, error) {
	var buf bytes.Buffer
	if err := WriteJSON(g, &buf); err != nil {
		return "", err
	}
	return cache.Hash(buf.Bytes()), nil
}
