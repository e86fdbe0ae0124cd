package io

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/matzehuels/versolve/pkg/errors"
	"github.com/matzehuels/versolve/pkg/graph"
	"github.com/matzehuels/versolve/pkg/version"
)

// Result is the JSON form of a resolution.
type Result struct {
	Packages []ResultEntry `json:"packages"`
}

// ResultEntry is one installed package.
type ResultEntry struct {
	UUID    uuid.UUID      `json:"uuid"`
	Name    string         `json:"name"`
	Version version.Number `json:"version"`
}

// NewResult lists the packages of sol ordered by name, then UUID.
func NewResult(g *graph.Graph, sol map[uuid.UUID]version.Number) Result {
	ids := make([]uuid.UUID, 0, len(sol))
	for id := range sol {
		ids = append(ids, id)
	}
	g.SortIDs(ids)
	res := Result{Packages: make([]ResultEntry, len(ids))}
	for i, id := range ids {
		res.Packages[i] = ResultEntry{UUID: id, Name: g.Name(id), Version: sol[id]}
	}
	return res
}

// Map converts the result back to an assignment.
func (r Result) Map() map[uuid.UUID]version.Number {
	out := make(map[uuid.UUID]version.Number, len(r.Packages))
	for _, e := range r.Packages {
		out[e.UUID] = e.Version
	}
	return out
}

// WriteResult encodes sol as an indented result document.
func WriteResult(w io.Writer, g *graph.Graph, sol map[uuid.UUID]version.Number) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewResult(g, sol)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadResult decodes a result document.
func ReadResult(r io.Reader) (Result, error) {
	var res Result
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode result")
	}
	return res, nil
}
