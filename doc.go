/*
Package archive implements a compact binary object-graph serialization
format.

An archive is written by a single session: the Manager holds a long-lived
registry mapping Go types to tags, StartWrite opens a session over a Sink,
WriteObject serializes values recursively, and FinishWrite back-patches
the handles of objects that were seen more than once. Reading mirrors this
with StartRead, ReadObject and FinishRead.

Objects of referenceable types keep their identity across the round trip,
including cycles. A read routine for such a type must publish the freshly
allocated instance with Reader.ConstructorDone before it reads any child
that may point back at it.

Generic shapes (slices, maps, arrays, Set and the Tuple families) are
encoded as a flattened sequence of tags and rebuilt on read from the
registry; set and tuple instantiations must be registered up front with
RegisterShape.

Encoder and Decoder wrap a session in a small document header with optional
snappy, zlib, zstd or lz4 compression.

Neither a Manager session nor a Writer or Reader is safe for concurrent use.
*/
package archive
