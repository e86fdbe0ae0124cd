// Package io reads and writes package graphs and resolutions as JSON.
//
// # Graph documents
//
// A document lists every package with its versions and their dependency
// edges, plus the top-level requirements and fixed versions:
//
//	{
//	  "packages": [
//	    {
//	      "uuid": "7876af07-990d-54b4-ab0e-23690620f79a",
//	      "name": "Example",
//	      "versions": {
//	        "1.0.0": {"deps": {"<uuid>": {"spec": "^1.2"}}},
//	        "1.1.0": {"deps": {"<uuid>": {"spec": "^1.3", "weak": true}}}
//	      }
//	    }
//	  ],
//	  "requirements": {"7876af07-990d-54b4-ab0e-23690620f79a": "*"},
//	  "fixed": {}
//	}
//
// Specs use the syntax of [version.Parse]. Dependencies may name packages
// missing from the document; the resolver reports them.
//
// [WriteJSON] output is deterministic, so [Digest] can key caches.
//
// # Results
//
// [WriteResult] writes a resolution as a list of packages sorted by name:
//
//	{"packages": [{"uuid": "...", "name": "Example", "version": "1.1.0"}]}
package io
