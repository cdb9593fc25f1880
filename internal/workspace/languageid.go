package workspace

import (
	"path/filepath"
	"strings"
)

// languageIDByExtension maps a file extension to the LSP languageId
// the client is expected to send on didOpen; the session falls back
// to it when a didOpen omits languageId, and the store uses it for
// files created or read without a recorded languageId.
var languageIDByExtension = map[string]string{
	".go":   "go",
	".ts":   "typescript",
	".tsx":  "typescriptreact",
	".js":   "javascript",
	".jsx":  "javascriptreact",
	".mts":  "typescript",
	".cts":  "typescript",
}

// LanguageIDForURI infers a languageId from a document URI's file
// extension, returning ("", false) for an extension the proxy has no
// analyzer for.
func LanguageIDForURI(uri string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(uri))
	id, ok := languageIDByExtension[ext]
	return id, ok
}
