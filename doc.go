// Package iostream supplies three tightly-linked external-memory
// primitives used by algorithms whose working set exceeds RAM: a typed byte
// stream on disk with substream views (package stream), an external-memory
// sort over such streams (package extsort), and an external-memory priority
// queue backed by an in-memory min-max heap and a cascade of on-disk buffers
// (package empq, with an adaptive in-memory/on-disk wrapper in package
// adaptive). A process-wide memory accountant (package mm) sizes every data
// structure these packages allocate.
//
// The library is single-threaded and I/O-bound by design: no operation may
// be called concurrently on the same stream, heap, or EM-PQ instance, and no
// durability is guaranteed across process crashes.
package iostream
