// Package curve stores measured result curves.
//
// A curve is a pair of equally long x/y series plus free-form attributes
// describing how it was taken (module settings, timestamps). Modules hand
// their results to a Sink; MemoryStore keeps them in memory and FileStore
// writes one CBOR file per curve.
package curve
