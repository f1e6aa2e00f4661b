package contract

import "path"

// ChunkFileID is a stable, cross-platform identifier for a chunk file
// on disk (used by file-backed Deserializer implementations, e.g.
// plugins/deserializer/filechunks).
type ChunkFileID string

// NormalizeChunkFileID normalizes a chunk path into a cross-platform
// stable ChunkFileID:
//   - separators are forced to '/'
//   - redundant separators and '.'/'..' segments are cleaned
//   - relative vs. absolute semantics are preserved (no implicit
//     absolutization)
func NormalizeChunkFileID(p string) ChunkFileID {
	s := make([]byte, 0, len(p))
	for i := 0; i < len(p); i++ {
		if p[i] == '\\' {
			s = append(s, '/')
		} else {
			s = append(s, p[i])
		}
	}
	return ChunkFileID(path.Clean(string(s)))
}
