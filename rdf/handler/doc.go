// Package handler composes push-based RDF pipelines.
//
// A producer drives one session at a time into a Handler:
//
//	Start → (HandleNamespace | HandleBaseURI)* → HandleStatement* → End
//
// Handlers come in three shapes. Sinks consume statements: Discard,
// Counter, Probe, StoreCounter, GraphMerge, StoreWriter and Writer.
// Decorators transform events for a single inner handler: GraphRewrite,
// UniqueBlankNodes, StripStringDatatype, Window and Cancellable. Combinators
// fan events out to several handlers: Chain stops at the first handler that
// asks to stop, Multiplex lets every handler see every event.
//
// Every Handle method returns (bool, error). (true, nil) continues the
// stream, (false, nil) asks the producer to stop and end the session
// successfully, and a non-nil error aborts it; the producer then calls
// End(ctx, false). FromGraph, FromQuads, FromSlice and FromReader implement
// this producer side.
//
// A typical pipeline skips the first hundred statements of a file, counts
// the next thousand and writes them to a store:
//
//	writer, _ := handler.NewStoreWriter(provider, handler.WithBatchSize(500))
//	counter := handler.NewCounter()
//	both, _ := handler.NewMultiplex(counter, writer)
//	window, _ := handler.NewWindow(both, 100, 1000)
//	err := handler.FromReader(ctx, f, rdf.FormatNQuads, window)
//
// Handlers are not safe for concurrent sessions. The session state, the
// counters and Cancellable.Cancel may be used from other goroutines.
package handler
