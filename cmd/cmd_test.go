package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/skillgraph/api/schemas"
	"github.com/xkilldash9x/skillgraph/internal/config"
	"github.com/xkilldash9x/skillgraph/internal/observability"
	"github.com/xkilldash9x/skillgraph/internal/snapshot"
)

const cvDoc = `{"nodes": [
	{"id": "cand:alice", "type": "candidate", "label": "Alice"},
	{"id": "s1", "type": "skill", "label": "Python"},
	{"id": "s2", "type": "skill", "label": "SQL"}
], "edges": [
	{"source": "cand:alice", "target": "s1", "relation": "has_skill"},
	{"source": "cand:alice", "target": "s2", "relation": "has_skill"}
]}`

const jobDoc = `{"nodes": [
	{"id": "job:ml", "type": "job", "label": "ML Engineer"},
	{"id": "k1", "type": "skill", "label": "python"},
	{"id": "k2", "type": "skill", "label": "MLOps"}
], "edges": [
	{"source": "job:ml", "target": "k1", "relation": "requires_skill"},
	{"source": "job:ml", "target": "k2", "relation": "requires_skill"}
]}`

func TestMain(m *testing.M) {
	// The first initialization wins, so commands under test stay quiet.
	observability.ResetForTest()
	observability.InitializeLogger(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"})
	os.Exit(m.Run())
}

// execute runs a fresh command tree and returns what it printed to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// writeFragments writes cv.json and job.json into a temp dir.
func writeFragments(t *testing.T) (cv, job string) {
	t.Helper()
	dir := t.TempDir()
	cv, job = filepath.Join(dir, "cv.json"), filepath.Join(dir, "job.json")
	require.NoError(t, os.WriteFile(cv, []byte(cvDoc), 0o644))
	require.NoError(t, os.WriteFile(job, []byte(jobDoc), 0o644))
	return cv, job
}

func decodeOutput[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, jsoniter.UnmarshalFromString(out, &v), out)
	return v
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("skillgraph version %s\n", Version), out)
}

func TestRootCmd_NoArgs(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "queryable knowledge graph")
	for _, sub := range []string{"ingest", "find", "neighbors", "overlap", "stats", "serve"} {
		assert.Contains(t, out, sub)
	}
}

func TestIngestAndQuery(t *testing.T) {
	cv, job := writeFragments(t)
	snap := filepath.Join(t.TempDir(), "kg.skg")

	out, err := execute(t, "ingest", "--snapshot", snap, cv, job)
	require.NoError(t, err)
	report := decodeOutput[ingestOutput](t, out)
	assert.Equal(t, 2, report.Ingested)
	assert.Empty(t, report.Rejected)
	assert.Equal(t, 5, report.Nodes)
	assert.Equal(t, 4, report.Edges)
	assert.Equal(t, snap, report.Snapshot)
	require.FileExists(t, snap)

	t.Run("stats", func(t *testing.T) {
		out, err := execute(t, "stats", "-s", snap)
		require.NoError(t, err)
		stats := decodeOutput[schemas.GraphStats](t, out)
		assert.Equal(t, 5, stats.Nodes)
		assert.Equal(t, 3, stats.NodesByType[schemas.NodeSkill])
	})

	t.Run("find", func(t *testing.T) {
		out, err := execute(t, "find", "-s", snap, "--type", "SKILL", "--label", "py")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id": "skill:python", "type": "skill", "label": "Python"}]`, out)
	})

	t.Run("neighbors", func(t *testing.T) {
		out, err := execute(t, "neighbors", "-s", snap, "cand:alice")
		require.NoError(t, err)
		assert.JSONEq(t, `{"has_skill": ["skill:python", "skill:sql"]}`, out)
	})

	t.Run("overlap", func(t *testing.T) {
		out, err := execute(t, "overlap", "-s", snap, "cand:alice", "job:ml")
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"candidate_skills": ["skill:python", "skill:sql"],
			"job_required_skills": ["skill:mlops", "skill:python"],
			"overlap": ["skill:python"],
			"missing": ["skill:mlops"],
			"jaccard": 0.5
		}`, out)
	})

	t.Run("overlap requires two ids", func(t *testing.T) {
		_, err := execute(t, "overlap", "-s", snap, "cand:alice")
		assert.Error(t, err)
	})
}

func TestIngest_Accumulates(t *testing.T) {
	cv, _ := writeFragments(t)
	snap := filepath.Join(t.TempDir(), "kg.skg")
	key := schemas.EdgeKey{Source: "cand:alice", Target: "skill:python", Relation: "has_skill"}

	weight := func(t *testing.T) int {
		t.Helper()
		g, err := snapshot.NewStore(zap.NewNop()).Load(context.Background(), snap)
		require.NoError(t, err)
		e, ok := g.Edge(key)
		require.True(t, ok)
		return e.Weight
	}

	_, err := execute(t, "ingest", "-s", snap, cv)
	require.NoError(t, err)
	_, err = execute(t, "ingest", "-s", snap, cv)
	require.NoError(t, err)
	assert.Equal(t, 2, weight(t), "second run loads the snapshot and re-ingests")

	_, err = execute(t, "ingest", "-s", snap, "--fresh", cv)
	require.NoError(t, err)
	assert.Equal(t, 1, weight(t), "--fresh ignores the previous snapshot")
}

func TestIngest_Rejections(t *testing.T) {
	cv, _ := writeFragments(t)
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"nodes": []}`), 0o644))

	out, err := execute(t, "ingest", "-s", filepath.Join(t.TempDir(), "kg.skg"), bad, cv)
	require.NoError(t, err)
	report := decodeOutput[ingestOutput](t, out)
	assert.Equal(t, 1, report.Ingested)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, bad, report.Rejected[0].Path)
	assert.True(t, report.Rejected[0].Malformed)
	assert.Contains(t, report.Rejected[0].Reason, "edges")
}

func TestIngest_FileProvenance(t *testing.T) {
	cv, job := writeFragments(t)
	snap := filepath.Join(t.TempDir(), "kg.skg")

	_, err := execute(t, "ingest", "-s", snap, "--provenance", "file", "--concurrency", "2", cv, job)
	require.NoError(t, err)

	g, err := snapshot.NewStore(nil).Load(context.Background(), snap)
	require.NoError(t, err)
	n, ok := g.Node("skill:python")
	require.True(t, ok)
	assert.Equal(t, []string{"fragment:cv.json", "fragment:job.json"}, n.Sources.Sorted())
}

func TestIngest_RequiresFiles(t *testing.T) {
	_, err := execute(t, "ingest", "-s", filepath.Join(t.TempDir(), "kg.skg"))
	assert.Error(t, err)
}

func TestQuery_MissingSnapshot(t *testing.T) {
	snap := filepath.Join(t.TempDir(), "absent.skg")

	out, err := execute(t, "stats", "-s", snap)
	require.NoError(t, err)
	assert.Equal(t, 0, decodeOutput[schemas.GraphStats](t, out).Nodes)

	out, err = execute(t, "neighbors", "-s", snap, "unknown:id")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, out)

	out, err = execute(t, "find", "-s", snap)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	assert.NoFileExists(t, snap, "queries never write a snapshot")
}

func TestQuery_CorruptSnapshot(t *testing.T) {
	snap := filepath.Join(t.TempDir(), "kg.skg")
	require.NoError(t, os.WriteFile(snap, []byte("not a snapshot"), 0o644))

	_, err := execute(t, "stats", "-s", snap)
	require.Error(t, err)
	assert.ErrorIs(t, err, snapshot.ErrCorruptSnapshot)
}

func TestConfig_Sources(t *testing.T) {
	t.Run("should read the snapshot path from the environment", func(t *testing.T) {
		cv, _ := writeFragments(t)
		snap := filepath.Join(t.TempDir(), "env.skg")
		t.Setenv("SKILLGRAPH_GRAPH_SNAPSHOT_PATH", snap)

		_, err := execute(t, "ingest", cv)
		require.NoError(t, err)
		assert.FileExists(t, snap)
	})

	t.Run("should honour a config file", func(t *testing.T) {
		cv, _ := writeFragments(t)
		dir := t.TempDir()
		snap := filepath.Join(dir, "kg.skg")
		cfgPath := filepath.Join(dir, "skillgraph.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf("graph:\n  snapshot_path: %q\n  autosave: false\n", snap)), 0o644))

		out, err := execute(t, "ingest", "-c", cfgPath, cv)
		require.NoError(t, err)
		assert.Empty(t, decodeOutput[ingestOutput](t, out).Snapshot)
		assert.NoFileExists(t, snap)
	})

	t.Run("should let flags override the config file", func(t *testing.T) {
		cv, _ := writeFragments(t)
		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "skillgraph.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("graph:\n  snapshot_path: /nonexistent/dir/kg.skg\n"), 0o644))
		snap := filepath.Join(dir, "flag.skg")

		_, err := execute(t, "ingest", "-c", cfgPath, "-s", snap, cv)
		require.NoError(t, err)
		assert.FileExists(t, snap)
	})

	t.Run("should fail on a missing explicit config file", func(t *testing.T) {
		_, err := execute(t, "stats", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize configuration")
	})

	t.Run("should reject invalid values", func(t *testing.T) {
		cv, _ := writeFragments(t)
		_, err := execute(t, "ingest", "-s", filepath.Join(t.TempDir(), "kg.skg"), "--provenance", "bogus", cv)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ingest.provenance")
	})
}

func TestGetConfigFromContext(t *testing.T) {
	_, err := getConfigFromContext(context.Background())
	assert.Error(t, err)

	cfg := config.NewDefaultConfig()
	got, err := getConfigFromContext(context.WithValue(context.Background(), configKey, config.Interface(cfg)))
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}
