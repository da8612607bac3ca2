package gguf

import (
	"os"

	"github.com/google/uuid"
)

// writeFileAtomic writes data to a uuid-suffixed temp sibling of path
// and renames it into place, so a crash or concurrent reader never
// observes a half-written file at path (component M, SPEC_FULL.md
// §4.12). Create and the MoE extractor's destination-file creation
// both go through this.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return newErr(KindIO, path, "write temp file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return newErr(KindIO, path, "rename temp file into place", err)
	}
	return nil
}
