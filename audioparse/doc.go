// Package audioparse locates and extracts complete MPEG-1/2 Audio (Layers
// I-III), AC-3 and AAC (ADTS) frames from an elementary stream delivered in
// arbitrarily sized chunks.
//
// The central type is [Stream]. A Stream owns a small carry buffer for sync
// words split across chunks and borrows a fixed-capacity main buffer from the
// caller; every confirmed frame is reported through [Config.OnFrame] as an
// offset and length into that buffer together with its 90 kHz presentation
// timestamp. Header decoding is available on its own through [Decode] and
// [FindSync].
//
// A Stream is not safe for concurrent use. Callbacks run synchronously inside
// [Stream.Parse] and must not call back into the same Stream.
package audioparse
