package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// mediaPrefix is where OOXML packages store embedded images.
const mediaPrefix = "word/media/"

// extractDOCX reads the document as a ZIP archive and extracts every image
// under word/media/ that passes the filters.
func (e *Extractor) extractDOCX(opts Options) ([]ImageInfo, error) {
	zr, err := zip.OpenReader(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("open docx archive: %w", err)
	}
	defer zr.Close()

	var media []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, mediaPrefix) && !strings.HasSuffix(f.Name, "/") {
			media = append(media, f)
		}
	}
	sort.Slice(media, func(i, j int) bool { return media[i].Name < media[j].Name })

	source := filepath.Base(opts.Input)
	images := make([]ImageInfo, 0, len(media))
	for _, f := range media {
		if opts.MaxImages > 0 && len(images) >= opts.MaxImages {
			break
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open archive entry %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read archive entry %s: %w", f.Name, err)
		}

		cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			// EMF/WMF and other vector formats land here.
			e.logger.Warn("Skipping undecodable media entry", zap.String("entry", f.Name), zap.Error(err))
			continue
		}
		if !keep(cfg, opts.MinSize) {
			e.logger.Debug("Skipping undersized image",
				zap.String("entry", f.Name),
				zap.Int("width", cfg.Width),
				zap.Int("height", cfg.Height))
			continue
		}

		dst := filepath.Join(opts.Output, path.Base(f.Name))
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return nil, fmt.Errorf("write image %s: %w", dst, err)
		}

		images = append(images, ImageInfo{
			Source: source,
			Index:  len(images),
			Format: format,
			Width:  cfg.Width,
			Height: cfg.Height,
			Path:   dst,
			Size:   int64(len(data)),
		})
	}
	return images, nil
}
