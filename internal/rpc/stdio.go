package rpc

import (
	"io"

	"github.com/sourcegraph/jsonrpc2"
)

// NewStdioStream wraps an analyzer subprocess's stdin/stdout pipe pair
// in the Content-Length-framed JSON-RPC codec, the same
// jsonrpc2.NewBufferedStream(conn, jsonrpc2.VSCodeObjectCodec{}) wiring
// dao42-lsp-adapter/proxy.go uses over both legs of its proxy.
func NewStdioStream(rwc io.ReadWriteCloser) jsonrpc2.ObjectStream {
	return jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
}

// stdioReadWriteCloser adapts separate stdin/stdout pipes (what
// os/exec.Cmd hands back) into the single io.ReadWriteCloser
// NewStdioStream expects.
type stdioReadWriteCloser struct {
	io.Reader
	io.WriteCloser
}

func (s stdioReadWriteCloser) Close() error {
	return s.WriteCloser.Close()
}

// NewProcessStream builds the stdio stream for a running subprocess
// from its stdout reader and stdin writer.
func NewProcessStream(stdout io.Reader, stdin io.WriteCloser) jsonrpc2.ObjectStream {
	return NewStdioStream(stdioReadWriteCloser{Reader: stdout, WriteCloser: stdin})
}
