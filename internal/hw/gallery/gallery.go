package gallery

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/cjeanneret/SnapGo/internal/debug"
	"github.com/cjeanneret/SnapGo/internal/hw/camera"
)

// Exporter persists a captured file into the media library. Export is
// best-effort: a failure never invalidates the captured file itself, and
// steps already completed are not rolled back.
type Exporter interface {
	Export(ctx context.Context, path string, kind camera.AssetKind) error
}

// Registrar is the subset of Index the exporters need.
type Registrar interface {
	Register(ctx context.Context, path, kind string) error
}

// DirectExporter registers the captured file under its original path.
// Used when the media library accepts arbitrary paths directly.
type DirectExporter struct {
	Index Registrar
}

func (d *DirectExporter) Export(ctx context.Context, path string, kind camera.AssetKind) error {
	debug.Export("register", path)
	if err := d.Index.Register(ctx, path, string(kind)); err != nil {
		return fmt.Errorf("export %s: %w", kind, err)
	}
	return nil
}

// StagedExporter copies the captured file into a public media directory
// under a generated unique name, registers the copy, then deletes the
// original temporary file. This three-step dance exists for libraries that
// refuse arbitrary temporary paths.
type StagedExporter struct {
	Index     Registrar
	PublicDir string
}

func (s *StagedExporter) Export(ctx context.Context, path string, kind camera.AssetKind) error {
	if err := os.MkdirAll(s.PublicDir, 0o755); err != nil {
		return fmt.Errorf("create public dir: %w", err)
	}

	name := uuid.NewString() + filepath.Ext(path)
	dest := filepath.Join(s.PublicDir, name)

	debug.Export("copy", dest)
	if err := copyFile(path, dest); err != nil {
		return fmt.Errorf("stage %s: %w", kind, err)
	}

	debug.Export("register", dest)
	if err := s.Index.Register(ctx, dest, string(kind)); err != nil {
		return fmt.Errorf("export %s: %w", kind, err)
	}

	debug.Export("cleanup", path)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove temporary %s: %w", kind, err)
	}
	return nil
}

// copyFile copies src to dest, fsyncing the destination.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
