package knowledgegraph

import (
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/skillgraph/api/schemas"
)

func mergedScenario(t *testing.T) *Graph {
	t.Helper()
	g := New(globalFixture.Logger)
	g.Ingest(cvFragment(), "cv")
	g.Ingest(jobFragment(), "jd")
	return g
}

func TestSkillOverlap(t *testing.T) {
	t.Parallel()

	t.Run("should score the candidate against the job", func(t *testing.T) {
		t.Parallel()
		res := mergedScenario(t).SkillOverlap("cand:alice", "job:ml-eng")

		assert.Equal(t, []string{"skill:python", "skill:sql"}, res.CandidateSkills)
		assert.Equal(t, []string{"skill:mlops", "skill:python"}, res.JobRequiredSkills)
		assert.Equal(t, []string{"skill:python"}, res.Overlap)
		assert.Equal(t, []string{"skill:mlops"}, res.Missing)
		assert.InDelta(t, 0.5, res.Jaccard, 1e-9)
	})

	t.Run("should return zero jaccard when the job requires nothing", func(t *testing.T) {
		t.Parallel()
		res := mergedScenario(t).SkillOverlap("cand:alice", "job:unknown")
		assert.Equal(t, 0.0, res.Jaccard)
		assert.Empty(t, res.Overlap)
		assert.NotNil(t, res.Overlap)
		assert.NotNil(t, res.Missing)
		assert.NotNil(t, res.JobRequiredSkills)
	})

	t.Run("should ignore targets that are not skills", func(t *testing.T) {
		t.Parallel()
		g := New(globalFixture.Logger)
		g.Ingest(schemas.Fragment{
			Nodes: []schemas.RawNode{{ID: "job:j", Type: "job"}, {ID: "c1", Type: "company", Label: "Acme"}},
			Edges: []schemas.RawEdge{
				{Source: "job:j", Target: "c1", Relation: "requires_skill"},
				{Source: "job:j", Target: "skill:ghost", Relation: "requires_skill"},
			},
		}, "")
		res := g.SkillOverlap("cand:nobody", "job:j")
		assert.Empty(t, res.JobRequiredSkills)
		assert.Equal(t, 0.0, res.Jaccard)
	})

	t.Run("should serialize empty lists as arrays", func(t *testing.T) {
		t.Parallel()
		res := New(nil).SkillOverlap("a", "b")
		data, err := jsoniter.Marshal(res)
		require.NoError(t, err)
		assert.JSONEq(t, `{"candidate_skills":[],"job_required_skills":[],"overlap":[],"missing":[],"jaccard":0}`, string(data))
	})
}

func TestFindNodes(t *testing.T) {
	t.Parallel()

	t.Run("should find exactly the skills regardless of ingestion order", func(t *testing.T) {
		t.Parallel()
		forward := mergedScenario(t)
		reverse := New(globalFixture.Logger)
		reverse.Ingest(jobFragment(), "")
		reverse.Ingest(cvFragment(), "")

		for _, g := range []*Graph{forward, reverse} {
			var ids []string
			for id := range g.FindNodes("skill", "") {
				ids = append(ids, id)
			}
			assert.ElementsMatch(t, []string{"skill:python", "skill:sql", "skill:mlops"}, ids)
		}
	})

	t.Run("should match type case-insensitively", func(t *testing.T) {
		t.Parallel()
		summaries := NodeSummaries(mergedScenario(t).FindNodes(" JOB ", ""))
		require.Len(t, summaries, 1)
		assert.Equal(t, schemas.NodeSummary{ID: "job:ml-eng", Type: schemas.NodeJob, Label: "ML Engineer"}, summaries[0])
	})

	t.Run("should match normalized label substrings", func(t *testing.T) {
		t.Parallel()
		summaries := NodeSummaries(mergedScenario(t).FindNodes("", "  TRAINING   platform"))
		require.Len(t, summaries, 1)
		assert.Equal(t, schemas.NodeResponsibility, summaries[0].Type)
	})

	t.Run("should fall back to props.name when the label is empty", func(t *testing.T) {
		t.Parallel()
		g := New(nil)
		g.Ingest(schemas.Fragment{Nodes: []schemas.RawNode{
			{ID: "cand:z", Type: "candidate", Props: schemas.Props{"name": schemas.String("Zoe Park")}},
		}}, "")
		summaries := NodeSummaries(g.FindNodes("candidate", "zoe"))
		require.Len(t, summaries, 1)
		assert.Equal(t, "Zoe Park", summaries[0].Label)
	})

	t.Run("should combine filters", func(t *testing.T) {
		t.Parallel()
		g := mergedScenario(t)
		assert.Len(t, NodeSummaries(g.FindNodes("skill", "py")), 1)
		assert.Empty(t, NodeSummaries(g.FindNodes("job", "py")))
		assert.Empty(t, NodeSummaries(g.FindNodes("nope", "")))
	})

	t.Run("should yield in insertion order and be restartable", func(t *testing.T) {
		t.Parallel()
		g := mergedScenario(t)
		seq := g.FindNodes("", "")

		first := NodeSummaries(seq)
		second := NodeSummaries(seq)
		assert.Equal(t, first, second)
		require.NotEmpty(t, first)
		assert.Equal(t, "cand:alice", first[0].ID)

		g.Ingest(schemas.Fragment{Nodes: []schemas.RawNode{{ID: "cand:late", Type: "candidate"}}}, "")
		third := NodeSummaries(seq)
		assert.Len(t, third, len(first)+1, "a new range sees nodes added since")
	})

	t.Run("should stop when the consumer breaks", func(t *testing.T) {
		t.Parallel()
		count := 0
		for range mergedScenario(t).FindNodes("", "") {
			count++
			break
		}
		assert.Equal(t, 1, count)
	})

	t.Run("should allow mutation from inside the loop", func(t *testing.T) {
		t.Parallel()
		g := mergedScenario(t)
		assert.NotPanics(t, func() {
			for id := range g.FindNodes("skill", "") {
				g.Ingest(schemas.Fragment{Edges: []schemas.RawEdge{{Source: "cand:alice", Target: id, Relation: "has_skill"}}}, "")
			}
		})
		assert.Equal(t, 1.0, g.SkillOverlap("cand:alice", "job:ml-eng").Jaccard)
	})
}

func TestNeighbors(t *testing.T) {
	t.Parallel()

	t.Run("should group targets by relation", func(t *testing.T) {
		t.Parallel()
		got := mergedScenario(t).Neighbors("job:ml-eng")
		require.Len(t, got, 2)
		assert.Equal(t, []string{"skill:python", "skill:mlops"}, got["requires_skill"])
		assert.Len(t, got["has_responsibility"], 1)
	})

	t.Run("should return an empty mapping for unknown ids", func(t *testing.T) {
		t.Parallel()
		got := mergedScenario(t).Neighbors("unknown:id")
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("should not mutate the graph", func(t *testing.T) {
		t.Parallel()
		g := mergedScenario(t)
		before := g.Stats()
		got := g.Neighbors("cand:alice")
		got["has_skill"][0] = "tampered"
		_ = g.SkillOverlap("cand:alice", "job:ml-eng")
		assert.Equal(t, before, g.Stats())
		assert.Equal(t, "skill:python", g.Neighbors("cand:alice")["has_skill"][0])
	})
}
