package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/source"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

const (
	extNDJSON = ".ndjson"
	extJSON   = ".json"

	// MetadataFileName is read from the sample directory when present.
	MetadataFileName = "containers.yaml"

	maxLineBytes        = 16 * 1024 * 1024
	cancelCheckInterval = 256
)

// Source reads container samples from a directory holding one
// <container>.ndjson or <container>.json file per container. Documents are
// read in file order, so repeated runs see the same sample.
type Source struct {
	dir    string
	logger *zap.Logger
}

var _ source.SampleSource = (*Source)(nil)

// NewSource opens a file sample source rooted at cfg.Directory.
func NewSource(cfg config.SourceConfig, logger *zap.Logger) (*Source, error) {
	info, err := os.Stat(cfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("sample directory %s: %w", cfg.Directory,
			&apperrors.ConfigurationError{Field: "source.directory", Reason: err.Error()})
	}
	if !info.IsDir() {
		return nil, &apperrors.ConfigurationError{Field: "source.directory", Reason: cfg.Directory + " is not a directory"}
	}
	return &Source{
		dir:    cfg.Directory,
		logger: logger.Named("source.file"),
	}, nil
}

// FetchSample reads at most maxCount documents. Lines of an NDJSON file that
// do not parse become null documents so the inferencer counts them as
// skipped instead of losing them silently.
func (s *Source) FetchSample(ctx context.Context, container string, maxCount int) ([]models.SampledDocument, error) {
	path, ext, err := s.resolve(container)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &apperrors.InputError{Container: container, Err: fmt.Errorf("failed to open sample: %w", err)}
	}
	defer f.Close()

	var docs []models.SampledDocument
	if ext == extNDJSON {
		docs, err = s.readNDJSON(ctx, container, bufio.NewReader(f), maxCount)
	} else {
		docs, err = s.readArray(ctx, container, json.NewDecoder(bufio.NewReader(f)), maxCount)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Read sample",
		zap.String("container", container),
		zap.String("path", path),
		zap.Int("documents", len(docs)))
	return docs, nil
}

func (s *Source) readNDJSON(ctx context.Context, container string, r *bufio.Reader, maxCount int) ([]models.SampledDocument, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var docs []models.SampledDocument
	line := 0
	for len(docs) < maxCount && scanner.Scan() {
		line++
		if line%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("reading %s cancelled: %w", container, err)
			}
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		root, err := parseDocument(text)
		if err != nil {
			s.logger.Debug("Unparseable sample line",
				zap.String("container", container),
				zap.Int("line", line),
				zap.Error(err))
			docs = append(docs, models.SampledDocument{ID: fmt.Sprintf("%s#line%d", container, line), Root: models.Null()})
			continue
		}
		docs = append(docs, models.SampledDocument{ID: source.DocumentID(container, root, len(docs)), Root: root})
	}
	if err := scanner.Err(); err != nil {
		return nil, &apperrors.InputError{Container: container, Err: fmt.Errorf("failed to read line %d: %w", line+1, err)}
	}
	return docs, nil
}

func (s *Source) readArray(ctx context.Context, container string, dec *json.Decoder, maxCount int) ([]models.SampledDocument, error) {
	dec.UseNumber()

	tok, err := dec.Token()
	if isEOF(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &apperrors.InputError{Container: container, Err: fmt.Errorf("%w: %v", apperrors.ErrInvalidDocument, err)}
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, &apperrors.InputError{Container: container, Err: fmt.Errorf("%w: expected a JSON array of documents", apperrors.ErrInvalidDocument)}
	}

	var docs []models.SampledDocument
	for len(docs) < maxCount && dec.More() {
		if len(docs)%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("reading %s cancelled: %w", container, err)
			}
		}
		root, err := decodeValue(dec)
		if err != nil {
			return nil, &apperrors.InputError{Container: container, Err: fmt.Errorf("%w: document %d: %v", apperrors.ErrInvalidDocument, len(docs), err)}
		}
		docs = append(docs, models.SampledDocument{ID: source.DocumentID(container, root, len(docs)), Root: root})
	}
	return docs, nil
}

func parseDocument(text string) (models.Value, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return models.Value{}, err
	}
	if _, err := dec.Token(); !isEOF(err) {
		return models.Value{}, errors.New("trailing data after document")
	}
	return v, nil
}

// resolve finds the sample file for container. The .ndjson form wins when
// both exist.
func (s *Source) resolve(container string) (string, string, error) {
	if container == "" || container != filepath.Base(container) || strings.HasPrefix(container, ".") {
		return "", "", &apperrors.InputError{Container: container, Err: fmt.Errorf("%w: invalid container name", apperrors.ErrInvalidDocument)}
	}
	for _, ext := range []string{extNDJSON, extJSON} {
		path := filepath.Join(s.dir, container+ext)
		if _, err := os.Stat(path); err == nil {
			return path, ext, nil
		}
	}
	return "", "", &apperrors.InputError{Container: container, Err: fmt.Errorf("no sample file in %s: %w", s.dir, apperrors.ErrNotFound)}
}

// ListContainers returns one entry per sample file, counting its documents,
// overlaid with containers.yaml when the directory has one.
func (s *Source) ListContainers(ctx context.Context) ([]models.ContainerMetadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	seen := make(map[string]bool)
	var discovered []models.ContainerMetadata
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != extNDJSON && ext != extJSON) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if seen[name] {
			continue
		}
		seen[name] = true

		docs, err := s.FetchSample(ctx, name, int(^uint(0)>>1))
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			s.logger.Warn("Skipping unreadable sample file",
				zap.String("container", name),
				zap.Error(err))
			continue
		}
		var size int64
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}
		discovered = append(discovered, models.ContainerMetadata{
			Name:          name,
			DocumentCount: int64(len(docs)),
			StorageBytes:  size,
		})
	}
	sort.Slice(discovered, func(i, j int) bool { return discovered[i].Name < discovered[j].Name })

	declared, err := source.LoadMetadata(filepath.Join(s.dir, MetadataFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return discovered, nil
		}
		return nil, err
	}
	return source.MergeMetadata(declared, discovered), nil
}

// Close is a no-op; files are opened per call.
func (s *Source) Close() error {
	return nil
}
