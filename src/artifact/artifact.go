package artifact

import (
	"fmt"
	"io"
	"os"

	"dashshot/src/imagetool"
)

// Artifact is an opaque handle to a raster file produced by a pipeline
// stage. Dimensions are probed on demand, never cached: each stage works
// against the file as it is on disk.
type Artifact struct {
	Path string
}

// Exists reports whether the underlying file is present.
func (a Artifact) Exists() bool {
	info, err := os.Stat(a.Path)
	return err == nil && !info.IsDir()
}

// Size returns the file size in bytes.
func (a Artifact) Size() (int64, error) {
	info, err := os.Stat(a.Path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Remove deletes the underlying file. Callers must only remove an artifact
// after its successor is confirmed to exist.
func (a Artifact) Remove() error {
	return os.Remove(a.Path)
}

// Dimensions probes the artifact's pixel width and height.
func (a Artifact) Dimensions(proc imagetool.Processor) (int, int, error) {
	return proc.Probe(a.Path)
}

// Promote moves the artifact to dst. Rename is atomic when source and
// destination share a filesystem; on failure it degrades to a copy so the
// result still lands at the canonical path.
func (a Artifact) Promote(dst string) error {
	if err := os.Rename(a.Path, dst); err == nil {
		return nil
	}
	if err := copyFile(a.Path, dst); err != nil {
		return fmt.Errorf("promote %s -> %s: %w", a.Path, dst, err)
	}
	_ = os.Remove(a.Path)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
