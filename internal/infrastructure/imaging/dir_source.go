package imaging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"padim-inspector/internal/domain/entity"
	"padim-inspector/internal/domain/port"
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

// DirSource читает изображения каталога (без рекурсии) батчами фиксированного размера
// в лексикографическом порядке имён.
type DirSource struct {
	pre       *Preprocessor
	files     []string
	batchSize int
	pos       int
}

// NewDirSource перечисляет изображения каталога dir.
func NewDirSource(dir string, batchSize int, pre *Preprocessor) (*DirSource, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images in %s", dir)
	}
	sort.Strings(files)
	return &DirSource{pre: pre, files: files, batchSize: batchSize}, nil
}

// Len возвращает общее число изображений.
func (s *DirSource) Len() int {
	return len(s.files)
}

// Next возвращает следующий батч или io.EOF.
func (s *DirSource) Next(ctx context.Context) (*port.Batch, error) {
	if s.pos >= len(s.files) {
		return nil, io.EOF
	}
	end := min(s.pos+s.batchSize, len(s.files))
	vols := make([]*entity.Volume, 0, end-s.pos)
	names := make([]string, 0, end-s.pos)
	for _, path := range s.files[s.pos:end] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		v, err := s.pre.Preprocess(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		vols = append(vols, v)
		names = append(names, filepath.Base(path))
	}
	s.pos = end

	images, err := entity.Concat(vols...)
	if err != nil {
		return nil, err
	}
	return &port.Batch{Images: images, Names: names}, nil
}

var _ port.BatchSource = (*DirSource)(nil)
