// Package snapshot persists a knowledge graph to a single file and reads it back.
//
// The artifact is a private format: the 4-byte magic "SKGS", one version
// byte, then a brotli-compressed msgpack document holding every node and edge.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/mitchellh/go-homedir"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/xkilldash9x/skillgraph/api/schemas"
	"github.com/xkilldash9x/skillgraph/internal/knowledgegraph"
)

// DefaultFileName is appended when a snapshot path names a directory.
const DefaultFileName = "graph.skg"

const formatVersion byte = 1

var magic = [4]byte{'S', 'K', 'G', 'S'}

var (
	// ErrSnapshotIO wraps read, write, rename and permission failures.
	ErrSnapshotIO = errors.New("snapshot I/O error")
	// ErrCorruptSnapshot means the file exists but is not a readable snapshot.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

// Pool for decompression readers to reduce allocation overhead.
var brotliReaderPool = sync.Pool{
	New: func() interface{} {
		return brotli.NewReader(nil)
	},
}

// Shared empty reader used for safely resetting pooled readers.
var emptyReader = strings.NewReader("")

type document struct {
	SavedAt time.Time    `msgpack:"saved_at"`
	Nodes   []nodeRecord `msgpack:"nodes"`
	Edges   []edgeRecord `msgpack:"edges"`
}

type nodeRecord struct {
	ID      string         `msgpack:"id"`
	Type    string         `msgpack:"type"`
	Label   string         `msgpack:"label"`
	Props   map[string]any `msgpack:"props"`
	Sources []string       `msgpack:"sources"`
}

type edgeRecord struct {
	Source   string   `msgpack:"source"`
	Target   string   `msgpack:"target"`
	Relation string   `msgpack:"relation"`
	Weight   int      `msgpack:"weight"`
	Sources  []string `msgpack:"sources"`
}

// Store saves and loads graph snapshots.
type Store struct {
	log *zap.Logger
}

// NewStore creates a snapshot store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{log: logger.Named("snapshot")}
}

// ResolvePath expands a leading ~ and appends DefaultFileName when p names
// an existing directory or ends in a path separator.
func ResolvePath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("%w: empty snapshot path", ErrSnapshotIO)
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("%w: expand %s: %w", ErrSnapshotIO, p, err)
	}
	if strings.HasSuffix(expanded, string(filepath.Separator)) || strings.HasSuffix(expanded, "/") {
		return filepath.Join(expanded, DefaultFileName), nil
	}
	if info, err := os.Stat(expanded); err == nil && info.IsDir() {
		return filepath.Join(expanded, DefaultFileName), nil
	}
	return filepath.Clean(expanded), nil
}

// Save writes g to dest and returns the path actually written. The file is
// written next to its final location and renamed into place, so a failed save
// leaves any previous snapshot untouched. g itself is only read.
func (s *Store) Save(ctx context.Context, g *knowledgegraph.Graph, dest string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := ResolvePath(dest)
	if err != nil {
		return "", err
	}

	doc := encodeGraph(g)
	payload, err := msgpack.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("%w: encode %s: %w", ErrSnapshotIO, path, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create directory %s: %w", ErrSnapshotIO, dir, err)
	}
	if err := writeAtomic(ctx, path, payload); err != nil {
		return "", err
	}

	s.log.Info("Snapshot saved",
		zap.String("path", path),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("edges", len(doc.Edges)),
		zap.Int("bytes", len(payload)))
	return path, nil
}

func writeAtomic(ctx context.Context, path string, payload []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file for %s: %w", ErrSnapshotIO, path, err)
	}
	tmpName := tmp.Name()
	closed := false
	defer func() {
		if !closed {
			_ = tmp.Close()
		}
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	header := append(magic[:], formatVersion)
	if _, err = tmp.Write(header); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrSnapshotIO, tmpName, err)
	}
	bw := brotli.NewWriterLevel(tmp, brotli.DefaultCompression)
	if _, err = bw.Write(payload); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrSnapshotIO, tmpName, err)
	}
	if err = bw.Close(); err != nil {
		return fmt.Errorf("%w: flush %s: %w", ErrSnapshotIO, tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %w", ErrSnapshotIO, tmpName, err)
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrSnapshotIO, tmpName, err)
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename into %s: %w", ErrSnapshotIO, path, err)
	}
	return nil
}

// Load reads the snapshot at src into a new graph. A missing file yields an
// error matching both ErrSnapshotIO and fs.ErrNotExist.
func (s *Store) Load(ctx context.Context, src string) (*knowledgegraph.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := ResolvePath(src)
	if err != nil {
		return nil, err
	}

	payload, err := readPayload(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc document
	if err := msgpack.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrCorruptSnapshot, path, err)
	}
	g, err := decodeGraph(s.log, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptSnapshot, path, err)
	}

	s.log.Info("Snapshot loaded",
		zap.String("path", path),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("edges", len(doc.Edges)),
		zap.Time("saved_at", doc.SavedAt))
	return g, nil
}

func readPayload(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrSnapshotIO, path, err)
	}
	defer f.Close()

	var header [5]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %s: truncated header", ErrCorruptSnapshot, path)
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrSnapshotIO, path, err)
	}
	if [4]byte(header[:4]) != magic {
		return nil, fmt.Errorf("%w: %s: not a snapshot file", ErrCorruptSnapshot, path)
	}
	if header[4] != formatVersion {
		return nil, fmt.Errorf("%w: %s: unsupported format version %d", ErrCorruptSnapshot, path, header[4])
	}

	br, err := getBrotliReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptSnapshot, path, err)
	}
	defer putBrotliReader(br)

	payload, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress %s: %w", ErrCorruptSnapshot, path, err)
	}
	return payload, nil
}

// getBrotliReader retrieves a Brotli reader from the pool and resets it.
func getBrotliReader(r io.Reader) (*brotli.Reader, error) {
	br := brotliReaderPool.Get().(*brotli.Reader)
	if err := br.Reset(r); err != nil {
		brotliReaderPool.Put(br)
		return nil, err
	}
	return br, nil
}

// putBrotliReader returns a Brotli reader to the pool.
func putBrotliReader(br *brotli.Reader) {
	if br == nil {
		return
	}
	_ = br.Reset(emptyReader)
	brotliReaderPool.Put(br)
}

func encodeGraph(g *knowledgegraph.Graph) document {
	nodes, edges := g.Nodes(), g.Edges()
	doc := document{
		SavedAt: time.Now().UTC(),
		Nodes:   make([]nodeRecord, 0, len(nodes)),
		Edges:   make([]edgeRecord, 0, len(edges)),
	}
	for _, n := range nodes {
		doc.Nodes = append(doc.Nodes, nodeRecord{
			ID:      n.ID,
			Type:    string(n.Type),
			Label:   n.Label,
			Props:   n.Props.ToAny(),
			Sources: n.Sources.Sorted(),
		})
	}
	for _, e := range edges {
		doc.Edges = append(doc.Edges, edgeRecord{
			Source:   e.Source,
			Target:   e.Target,
			Relation: e.Relation,
			Weight:   e.Weight,
			Sources:  e.Sources.Sorted(),
		})
	}
	return doc
}

func decodeGraph(logger *zap.Logger, doc document) (*knowledgegraph.Graph, error) {
	nodes := make([]schemas.Node, 0, len(doc.Nodes))
	for i, rec := range doc.Nodes {
		props, err := schemas.PropsFromAny(rec.Props)
		if err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", i, rec.ID, err)
		}
		nodes = append(nodes, schemas.Node{
			ID:      rec.ID,
			Type:    schemas.NodeType(rec.Type),
			Label:   rec.Label,
			Props:   props,
			Sources: schemas.NewSourceSet(rec.Sources...),
		})
	}

	edges := make([]schemas.Edge, 0, len(doc.Edges))
	for _, rec := range doc.Edges {
		edges = append(edges, schemas.Edge{
			Source:   rec.Source,
			Target:   rec.Target,
			Relation: rec.Relation,
			Weight:   rec.Weight,
			Sources:  schemas.NewSourceSet(rec.Sources...),
		})
	}
	return knowledgegraph.Restore(logger, nodes, edges), nil
}
