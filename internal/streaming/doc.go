// Package streaming protects photo downloads from slow or vanished
// clients.
//
// Inspection photos are fetched over cellular connections that can stall
// for minutes. [Writer] wraps an http.ResponseWriter, splits writes into
// chunks and arms a fresh write deadline before each one through
// http.ResponseController, so a stalled client releases its connection
// instead of pinning the handler:
//
//	sw := streaming.NewWriter(r.Context(), w, streaming.DefaultConfig())
//	defer sw.Close()
//	http.ServeContent(sw, r, name, modTime, f)
//
// Writers that do not support deadlines (httptest.ResponseRecorder, some
// middleware) still get chunking and the context and duration checks.
package streaming
