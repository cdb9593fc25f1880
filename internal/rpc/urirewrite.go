package rpc

import "github.com/Lewin671/oneline-editor/internal/lsptypes"

// URIRewriter translates a document URI between the client's URI
// space and the analyzer's. This seam exists even though the two
// spaces are currently identical, because an implementation that
// later stages analyzer files elsewhere (e.g. a temp mirror) must
// supply a real bidirectional map without touching call sites — this
// is the generalized, named replacement for dao42-lsp-adapter's
// clientToServerURI/serverToClientURI pair.
type URIRewriter interface {
	ToAnalyzer(lsptypes.DocumentURI) lsptypes.DocumentURI
	ToClient(lsptypes.DocumentURI) lsptypes.DocumentURI
}

// IdentityURIRewriter is the chosen design for this proxy: it owns
// one on-disk workspace root directly, so client and analyzer URIs
// are the same string.
type IdentityURIRewriter struct{}

func (IdentityURIRewriter) ToAnalyzer(u lsptypes.DocumentURI) lsptypes.DocumentURI { return u }
func (IdentityURIRewriter) ToClient(u lsptypes.DocumentURI) lsptypes.DocumentURI   { return u }

// WalkURIFields walks a decoded JSON value (the result of
// json.Unmarshal into interface{}) and rewrites, in place via fn,
// every string field named "uri", "rootUri" or "targetUri" at any
// depth, inside objects and arrays alike (textDocument params,
// definition/references location lists).
// This generalizes dao42-lsp-adapter's WalkURIFields helper, whose
// exact body wasn't retrievable from the single-file source but whose
// contract is pinned by its call sites: WalkURIFields(params, fn)
// mutates a generic params/result tree, rewriting every URI it finds.
func WalkURIFields(v interface{}, fn func(lsptypes.DocumentURI) lsptypes.DocumentURI) {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			if k == "uri" || k == "rootUri" || k == "targetUri" {
				if s, ok := val.(string); ok {
					t[k] = string(fn(lsptypes.DocumentURI(s)))
					continue
				}
			}
			WalkURIFields(val, fn)
		}
	case []interface{}:
		for _, val := range t {
			WalkURIFields(val, fn)
		}
	}
}
