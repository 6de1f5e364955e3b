// Package container provides a pure Go library for reading and writing
// signed package container files: a single binary blob carrying package
// metadata, a dependency table, an opaque inner package payload, and one or
// more cryptographic signatures, closed with a trailing SHA-256 fingerprint.
//
// # Design Philosophy
//
// The package operates entirely in-memory, treating a container as bytes
// produced by Encode and consumed by Decode, with no temporary files or
// external tooling. A Context is the sole in-memory representation shared
// by both directions.
//
// # Features
//
// Container Format:
//   - Fixed 5-byte magic, versioned header, interned string table, and a
//     kind-tagged section index (package info, dependency table, inner
//     package bytes, signature records).
//   - Deterministic placeholder-then-fill signing: section sizes are fixed
//     before any signature is computed, so the index never needs rewriting.
//   - A trailing 32-byte fingerprint covering everything but itself.
//
// Signing:
//   - Pluggable cryptographic backend via the signing package's Adapter
//     interface; this package never imports a concrete signature library
//     directly (it uses crypto/sha256 itself only for the tail fingerprint
//     and FILE-type digests).
//   - Two independent signature coverage types: the whole file minus
//     signatures/index/fingerprint, or just the inner package bytes.
//
// Decoding is strict: the first structural or cryptographic error aborts
// the whole pipeline, and an unrecognized section kind is always fatal.
package container
