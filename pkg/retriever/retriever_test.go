package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/percorso/pkg/extract"
	"github.com/soundprediction/percorso/pkg/graph"
	"github.com/soundprediction/percorso/pkg/index"
	"github.com/soundprediction/percorso/pkg/nlp"
	"github.com/soundprediction/percorso/pkg/types"
)

// --- stubs -----------------------------------------------------------------

type stubExtractor struct {
	entities []string
	err      error
	calls    int
}

func (s *stubExtractor) Extract(ctx context.Context, question string) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.entities, nil
}

func (s *stubExtractor) Close() error { return nil }

type stubEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
	batches  [][]string
	singles  []string
}

func (s *stubEmbedder) vectorFor(text string) []float32 {
	if v, ok := s.vectors[text]; ok {
		return v
	}
	if s.fallback != nil {
		return s.fallback
	}
	return []float32{0, 1}
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.batches = append(s.batches, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = s.vectorFor(t)
	}
	return out, nil
}

func (s *stubEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.singles = append(s.singles, text)
	return s.vectorFor(text), nil
}

func (s *stubEmbedder) Dimensions() int { return 2 }

func (s *stubEmbedder) GetCapabilities() []nlp.TaskCapability {
	return []nlp.TaskCapability{nlp.TaskEmbedding}
}

func (s *stubEmbedder) Close() error { return nil }

type stubIndex struct {
	hits  []index.Hit
	queue [][]index.Hit
	err   error
	ks    []int
}

func (s *stubIndex) Upsert(ctx context.Context, entries []index.Entry) error { return nil }

func (s *stubIndex) Query(ctx context.Context, vector []float32, k int) ([]index.Hit, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.ks = append(s.ks, k)
	if len(s.queue) > 0 {
		hits := s.queue[0]
		s.queue = s.queue[1:]
		return hits, nil
	}
	return s.hits, nil
}

func (s *stubIndex) Count(ctx context.Context) (int, error) { return 0, nil }

func (s *stubIndex) Close() error { return nil }

type step struct {
	content string
	err     error
}

// scriptedClient replays canned responses: structured steps feed the
// sufficiency oracle, chat steps feed answer synthesis.
type scriptedClient struct {
	structured     []step
	chat           []step
	structuredMsgs [][]types.Message
	chatMsgs       [][]types.Message
	onStructured   func(call int)
}

func (c *scriptedClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	c.chatMsgs = append(c.chatMsgs, messages)
	if len(c.chat) == 0 {
		return &types.Response{Content: ""}, nil
	}
	next := c.chat[0]
	c.chat = c.chat[1:]
	if next.err != nil {
		return nil, next.err
	}
	return &types.Response{Content: next.content}, nil
}

func (c *scriptedClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema any) (*types.Response, error) {
	call := len(c.structuredMsgs)
	c.structuredMsgs = append(c.structuredMsgs, messages)
	if c.onStructured != nil {
		c.onStructured(call)
	}
	if len(c.structured) == 0 {
		return &types.Response{Content: `{"sufficient": false, "reason": "keep searching"}`}, nil
	}
	next := c.structured[0]
	c.structured = c.structured[1:]
	if next.err != nil {
		return nil, next.err
	}
	return &types.Response{Content: next.content}, nil
}

func (c *scriptedClient) GetCapabilities() []nlp.TaskCapability {
	return []nlp.TaskCapability{nlp.TaskTextGeneration}
}

func (c *scriptedClient) Close() error { return nil }

type failingStore struct {
	graph.Store
	neighborsErr error
	nodeErr      error
	hasNodeErr   error
}

func (f *failingStore) Neighbors(ctx context.Context, id string) ([]types.Neighbor, error) {
	if f.neighborsErr != nil {
		return nil, f.neighborsErr
	}
	return f.Store.Neighbors(ctx, id)
}

func (f *failingStore) Node(ctx context.Context, id string) (*types.Node, error) {
	if f.nodeErr != nil {
		return nil, f.nodeErr
	}
	return f.Store.Node(ctx, id)
}

func (f *failingStore) HasNode(ctx context.Context, id string) (bool, error) {
	if f.hasNodeErr != nil {
		return false, f.hasNodeErr
	}
	return f.Store.HasNode(ctx, id)
}

// --- helpers ---------------------------------------------------------------

func buildGraph(t *testing.T, nodes []string, edges [][3]string) *graph.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := graph.NewMemoryStore()
	for _, id := range nodes {
		require.NoError(t, store.PutNode(ctx, types.Node{ID: id}))
	}
	for _, e := range edges {
		require.NoError(t, store.PutEdge(ctx, e[0], types.Neighbor{Relation: e[1], TargetID: e[2]}))
	}
	return store
}

func newTestRetriever(t *testing.T, store graph.Store, idx index.Index, embed *stubEmbedder, client *scriptedClient, extractor *stubExtractor, cfg Config) *Retriever {
	t.Helper()
	if embed == nil {
		embed = &stubEmbedder{}
	}
	if client == nil {
		client = &scriptedClient{}
	}
	var ext extract.Extractor
	if extractor != nil {
		ext = extractor
	}
	r, err := New(store, idx, embed, client, ext, cfg)
	require.NoError(t, err)
	return r
}

// --- construction ----------------------------------------------------------

func TestNewRequiresDependencies(t *testing.T) {
	store := graph.NewMemoryStore()
	idx := &stubIndex{}
	embed := &stubEmbedder{}
	client := &scriptedClient{}

	_, err := New(nil, idx, embed, client, nil, DefaultConfig())
	assert.Error(t, err)
	_, err = New(store, nil, embed, client, nil, DefaultConfig())
	assert.Error(t, err)
	_, err = New(store, idx, nil, client, nil, DefaultConfig())
	assert.Error(t, err)
	_, err = New(store, idx, embed, nil, nil, DefaultConfig())
	assert.Error(t, err)

	r, err := New(store, idx, embed, client, nil, Config{MaxDepth: -2, TopN: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, r.Config().MaxDepth)
	assert.Equal(t, 1, r.Config().TopN)
	assert.Equal(t, OracleFailureContinue, r.Config().OracleFailure)
}

func TestRetrieveEmptyQuery(t *testing.T) {
	r := newTestRetriever(t, graph.NewMemoryStore(), &stubIndex{}, nil, nil, nil, DefaultConfig())

	_, err := r.Retrieve(context.Background(), "   ")
	assert.ErrorIs(t, err, types.ErrEmptyQuery)
}

// --- seeding ---------------------------------------------------------------

func TestSeedNodesWholeQueryFallback(t *testing.T) {
	ctx := context.Background()
	embed := &stubEmbedder{}
	idx := &stubIndex{hits: []index.Hit{{ID: "n1", Score: 0.9}}}
	r := newTestRetriever(t, graph.NewMemoryStore(), idx, embed, nil, nil, DefaultConfig())

	seeds, err := r.seedNodes(ctx, "what links rome and the tiber?", nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"n1"}, seeds)
	assert.Equal(t, []string{"what links rome and the tiber?"}, embed.singles)
}

func TestSeedNodesExactMatchesFirst(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	require.NoError(t, store.PutNode(ctx, types.Node{ID: "q1", Name: "Rome"}))
	require.NoError(t, store.PutNode(ctx, types.Node{ID: "q2", Name: "Tiber"}))

	idx := &stubIndex{queue: [][]index.Hit{
		{{ID: "q2"}, {ID: "q1"}},
		{{ID: "q7"}},
	}}
	r := newTestRetriever(t, store, idx, &stubEmbedder{}, nil, nil, DefaultConfig())

	seeds, err := r.seedNodes(ctx, "query", []string{"Rome", "unknown place"}, 4)
	require.NoError(t, err)
	// The display-name match wins the first seat; index hits follow with
	// duplicates removed first-seen.
	assert.Equal(t, []string{"q1", "q2", "q7"}, seeds)
}

func TestSeedNodesIdentifierMatch(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	require.NoError(t, store.PutNode(ctx, types.Node{ID: "rome", Name: "Rome, Italy"}))

	r := newTestRetriever(t, store, &stubIndex{}, &stubEmbedder{}, nil, nil, DefaultConfig())

	seeds, err := r.seedNodes(ctx, "query", []string{"rome"}, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"rome"}, seeds)
}

func TestSeedNodesBudgetPerEntity(t *testing.T) {
	ctx := context.Background()
	idx := &stubIndex{}
	r := newTestRetriever(t, graph.NewMemoryStore(), idx, &stubEmbedder{}, nil, nil, DefaultConfig())

	_, err := r.seedNodes(ctx, "query", []string{"a", "b"}, 5)
	require.NoError(t, err)
	// k = max(1, topN/len(entities)) + 1 for every entity.
	assert.Equal(t, []int{3, 3}, idx.ks)

	idx.ks = nil
	_, err = r.seedNodes(ctx, "query", []string{"a", "b", "c", "d", "e", "f"}, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 2, 2, 2, 2}, idx.ks)
}

func TestSeedNodesCap(t *testing.T) {
	ctx := context.Background()
	idx := &stubIndex{hits: []index.Hit{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}}
	r := newTestRetriever(t, graph.NewMemoryStore(), idx, &stubEmbedder{}, nil, nil, DefaultConfig())

	seeds, err := r.seedNodes(ctx, "query", []string{"x"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, seeds, "seed list is capped at twice the beam width")
}

func TestSeedNodesFailures(t *testing.T) {
	ctx := context.Background()

	r := newTestRetriever(t, graph.NewMemoryStore(), &stubIndex{err: errors.New("index down")}, &stubEmbedder{}, nil, nil, DefaultConfig())
	_, err := r.seedNodes(ctx, "query", []string{"x"}, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
	var unavail *RetrievalUnavailableError
	require.ErrorAs(t, err, &unavail)
	assert.Equal(t, "index", unavail.Component)

	r = newTestRetriever(t, graph.NewMemoryStore(), &stubIndex{}, &stubEmbedder{err: errors.New("embedder down")}, nil, nil, DefaultConfig())
	_, err = r.seedNodes(ctx, "query", []string{"x"}, 3)
	require.ErrorAs(t, err, &unavail)
	assert.Equal(t, "embedder", unavail.Component)

	store := &failingStore{Store: graph.NewMemoryStore(), hasNodeErr: errors.New("store down")}
	r = newTestRetriever(t, store, &stubIndex{}, &stubEmbedder{}, nil, nil, DefaultConfig())
	_, err = r.seedNodes(ctx, "query", []string{"x"}, 3)
	require.ErrorAs(t, err, &unavail)
	assert.Equal(t, "store", unavail.Component)
}

// --- expansion -------------------------------------------------------------

func TestExpandNeverRepeatsNodes(t *testing.T) {
	ctx := context.Background()
	// a <-> b plus a -> c: the cycle back to a must not reappear.
	store := buildGraph(t,
		[]string{"a", "b", "c"},
		[][3]string{{"a", "knows", "b"}, {"b", "knows", "a"}, {"a", "likes", "c"}},
	)
	r := newTestRetriever(t, store, &stubIndex{}, nil, nil, nil, DefaultConfig())

	paths := []types.Path{types.NewPath("a")}
	for hop := 0; hop < 3; hop++ {
		var err error
		paths, err = r.expand(ctx, paths)
		require.NoError(t, err)
		for _, p := range paths {
			seen := make(map[string]int)
			for _, id := range p.Nodes() {
				seen[id]++
				assert.Equal(t, 1, seen[id], "path %v repeats node %s", p, id)
			}
		}
	}
}

func TestExpandKeepsDeadEnds(t *testing.T) {
	ctx := context.Background()
	store := buildGraph(t, []string{"lonely"}, nil)
	r := newTestRetriever(t, store, &stubIndex{}, nil, nil, nil, DefaultConfig())

	paths, err := r.expand(ctx, []types.Path{types.NewPath("lonely")})
	require.NoError(t, err)
	assert.Equal(t, []types.Path{{"lonely"}}, paths)
}

func TestExpandStaleSeedSurvives(t *testing.T) {
	ctx := context.Background()
	store := buildGraph(t, []string{"a"}, nil)
	r := newTestRetriever(t, store, &stubIndex{}, nil, nil, nil, DefaultConfig())

	// The index may hand back identifiers that left the snapshot.
	paths, err := r.expand(ctx, []types.Path{types.NewPath("ghost")})
	require.NoError(t, err)
	assert.Equal(t, []types.Path{{"ghost"}}, paths)
}

func TestExpandOrderIsDeterministic(t *testing.T) {
	ctx := context.Background()
	store := buildGraph(t,
		[]string{"s", "x", "y", "z"},
		[][3]string{{"s", "r", "z"}, {"s", "r", "x"}, {"s", "q", "y"}},
	)
	r := newTestRetriever(t, store, &stubIndex{}, nil, nil, nil, DefaultConfig())

	paths, err := r.expand(ctx, []types.Path{types.NewPath("s")})
	require.NoError(t, err)
	require.Len(t, paths, 3)
	// Stores hand edges back sorted by (relation, target).
	assert.Equal(t, types.Path{"s", "q", "y"}, paths[0])
	assert.Equal(t, types.Path{"s", "r", "x"}, paths[1])
	assert.Equal(t, types.Path{"s", "r", "z"}, paths[2])
}

func TestExpandStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: graph.NewMemoryStore(), neighborsErr: errors.New("connection reset")}
	r := newTestRetriever(t, store, &stubIndex{}, nil, nil, nil, DefaultConfig())

	_, err := r.expand(ctx, []types.Path{types.NewPath("a")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
}

// --- pruning ---------------------------------------------------------------

func prunableGraph(t *testing.T) *graph.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := graph.NewMemoryStore()
	for _, name := range []string{"red", "green", "blue", "white"} {
		require.NoError(t, store.PutNode(ctx, types.Node{ID: name, Name: name}))
	}
	return store
}

func TestPruneKeepsTopN(t *testing.T) {
	ctx := context.Background()
	store := prunableGraph(t)
	embed := &stubEmbedder{vectors: map[string][]float32{
		"which color?": {1, 0},
		"red":          {1, 0},
		"green":        {0.8, 0.6},
		"white":        {0.6, 0.8},
		"blue":         {0, 1},
	}}
	r := newTestRetriever(t, store, &stubIndex{}, embed, nil, nil, DefaultConfig())

	paths := []types.Path{{"blue"}, {"white"}, {"green"}, {"red"}}
	kept, err := r.prune(ctx, "which color?", paths, 2, newResolver(store))
	require.NoError(t, err)
	require.Len(t, kept, 2)
	assert.Equal(t, types.Path{"red"}, kept[0])
	assert.Equal(t, types.Path{"green"}, kept[1])

	// One batched call carries the query and all rendered paths.
	require.Len(t, embed.batches, 1)
	assert.Equal(t, []string{"which color?", "blue", "white", "green", "red"}, embed.batches[0])
}

func TestPruneNoOpWithinBeam(t *testing.T) {
	ctx := context.Background()
	store := prunableGraph(t)
	embed := &stubEmbedder{}
	r := newTestRetriever(t, store, &stubIndex{}, embed, nil, nil, DefaultConfig())

	paths := []types.Path{{"red"}, {"blue"}}
	kept, err := r.prune(ctx, "q", paths, 2, newResolver(store))
	require.NoError(t, err)
	assert.Equal(t, paths, kept)
	assert.Empty(t, embed.batches, "a no-op prune must not embed anything")

	again, err := r.prune(ctx, "q", kept, 2, newResolver(store))
	require.NoError(t, err)
	assert.Equal(t, kept, again)
}

func TestPruneStableOnTies(t *testing.T) {
	ctx := context.Background()
	store := prunableGraph(t)
	same := []float32{0.6, 0.8}
	embed := &stubEmbedder{vectors: map[string][]float32{
		"q":     {1, 0},
		"red":   {1, 0},
		"green": same,
		"blue":  same,
		"white": {0, 1},
	}}
	r := newTestRetriever(t, store, &stubIndex{}, embed, nil, nil, DefaultConfig())

	paths := []types.Path{{"green"}, {"blue"}, {"white"}, {"red"}}
	kept, err := r.prune(ctx, "q", paths, 3, newResolver(store))
	require.NoError(t, err)
	// red scores highest; green and blue tie and keep their input order.
	assert.Equal(t, []types.Path{{"red"}, {"green"}, {"blue"}}, kept)
}

func TestPruneZeroNormVector(t *testing.T) {
	ctx := context.Background()
	store := prunableGraph(t)
	embed := &stubEmbedder{vectors: map[string][]float32{
		"blue": {0, 0},
	}, fallback: []float32{1, 0}}
	r := newTestRetriever(t, store, &stubIndex{}, embed, nil, nil, DefaultConfig())

	paths := []types.Path{{"red"}, {"green"}, {"blue"}, {"white"}}
	_, err := r.prune(ctx, "q", paths, 2, newResolver(store))
	require.Error(t, err)

	var numErr *NumericError
	assert.ErrorAs(t, err, &numErr)
	assert.ErrorIs(t, err, index.ErrZeroVector)
}

// --- oracle ----------------------------------------------------------------

func TestJudgeSufficiencyVerdicts(t *testing.T) {
	ctx := context.Background()
	store := buildGraph(t, []string{"a", "b"}, [][3]string{{"a", "r", "b"}})
	paths := []types.Path{{"a", "r", "b"}}

	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"structured sufficient", `{"sufficient": true, "reason": "covers it"}`, true},
		{"structured insufficient", `{"sufficient": false, "reason": "missing tail"}`, false},
		{"fenced structured", "```json\n{\"sufficient\": true, \"reason\": \"ok\"}\n```", true},
		{"free text yes", "Yes, the triples answer the question.", true},
		{"free text no", "The evidence does not answer it.", false},
		{"indeterminate", "cannot tell", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedClient{structured: []step{{content: tt.content}}}
			r := newTestRetriever(t, store, &stubIndex{}, nil, client, nil, DefaultConfig())

			res := newResolver(store)
			require.NoError(t, res.resolve(ctx, paths))

			got, err := r.judgeSufficiency(ctx, "q", paths, res)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJudgeSufficiencyEvidenceFormat(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	require.NoError(t, store.PutNode(ctx, types.Node{ID: "a", Name: "Aspirin"}))
	require.NoError(t, store.PutNode(ctx, types.Node{ID: "b", Name: "Fever"}))
	require.NoError(t, store.PutNode(ctx, types.Node{ID: "c", Name: "Relief"}))
	require.NoError(t, store.PutEdge(ctx, "a", types.Neighbor{Relation: "treats", TargetID: "b"}))
	require.NoError(t, store.PutEdge(ctx, "b", types.Neighbor{Relation: "causes", TargetID: "c"}))

	client := &scriptedClient{}
	r := newTestRetriever(t, store, &stubIndex{}, nil, client, nil, DefaultConfig())

	paths := []types.Path{{"a", "treats", "b", "causes", "c"}}
	res := newResolver(store)
	require.NoError(t, res.resolve(ctx, paths))

	_, err := r.judgeSufficiency(ctx, "q", paths, res)
	require.NoError(t, err)

	require.Len(t, client.structuredMsgs, 1)
	var user string
	for _, m := range client.structuredMsgs[0] {
		if m.Role == nlp.RoleUser {
			user = m.Content
		}
	}
	assert.Contains(t, user, "(Aspirin, treats, Fever). (Fever, causes, Relief)")
}

// --- generation ------------------------------------------------------------

func twoHopStore(t *testing.T) *graph.MemoryStore {
	t.Helper()
	return buildGraph(t,
		[]string{"A", "B", "C"},
		[][3]string{{"A", "treats", "B"}, {"B", "causes", "C"}},
	)
}

func TestGenerateSynthesizesAnswer(t *testing.T) {
	ctx := context.Background()
	store := twoHopStore(t)
	client := &scriptedClient{chat: []step{{content: "A treats B, which causes C."}}}
	r := newTestRetriever(t, store, &stubIndex{}, nil, client, nil, DefaultConfig())

	paths := []types.Path{{"A", "treats", "B", "causes", "C"}}
	answer, provenance := r.generate(ctx, "how does A lead to C?", paths, true, newResolver(store))

	assert.Equal(t, "A treats B, which causes C.", answer)
	assert.Equal(t, []string{"(A, treats, B)", "(B, causes, C)"}, provenance)

	require.Len(t, client.chatMsgs, 1)
	var user string
	for _, m := range client.chatMsgs[0] {
		if m.Role == nlp.RoleUser {
			user = m.Content
		}
	}
	assert.Contains(t, user, "1. (A, treats, B)")
	assert.Contains(t, user, "2. (B, causes, C)")
}

func TestGenerateSynthesisDisabled(t *testing.T) {
	ctx := context.Background()
	store := twoHopStore(t)
	client := &scriptedClient{}
	r := newTestRetriever(t, store, &stubIndex{}, nil, client, nil, DefaultConfig())

	paths := []types.Path{{"A", "treats", "B", "causes", "C"}}
	answer, provenance := r.generate(ctx, "q", paths, false, newResolver(store))

	assert.Equal(t, "(A, treats, B)\n(B, causes, C)", answer)
	assert.Equal(t, []string{types.ProvenancePlaceholder, types.ProvenancePlaceholder}, provenance)
	assert.Empty(t, client.chatMsgs)
}

func TestGenerateFallsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	store := twoHopStore(t)
	client := &scriptedClient{chat: []step{{err: errors.New("model overloaded")}}}
	r := newTestRetriever(t, store, &stubIndex{}, nil, client, nil, DefaultConfig())

	paths := []types.Path{{"A", "treats", "B"}}
	answer, provenance := r.generate(ctx, "q", paths, true, newResolver(store))

	assert.Equal(t, "(A, treats, B)", answer)
	assert.Equal(t, []string{types.ProvenancePlaceholder}, provenance)
}

func TestGenerateStripsThinkTags(t *testing.T) {
	ctx := context.Background()
	store := twoHopStore(t)
	client := &scriptedClient{chat: []step{{content: "<think>working</think>  The answer is B. "}}}
	r := newTestRetriever(t, store, &stubIndex{}, nil, client, nil, DefaultConfig())

	paths := []types.Path{{"A", "treats", "B"}}
	answer, _ := r.generate(ctx, "q", paths, true, newResolver(store))
	assert.Equal(t, "The answer is B.", answer)
}

func TestGenerateEmptyEvidence(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	client := &scriptedClient{}
	r := newTestRetriever(t, store, &stubIndex{}, nil, client, nil, DefaultConfig())

	answer, provenance := r.generate(ctx, "q", nil, true, newResolver(store))
	assert.Equal(t, "", answer)
	assert.Empty(t, provenance)
	assert.Empty(t, client.chatMsgs, "nothing to synthesize from")
}

// --- the full state machine ------------------------------------------------

func TestRetrieveTwoHopScenario(t *testing.T) {
	store := twoHopStore(t)
	client := &scriptedClient{
		structured: []step{
			{content: `{"sufficient": false, "reason": "only one hop"}`},
			{content: `{"sufficient": true, "reason": "chain complete"}`},
		},
		chat: []step{{content: "A treats B, and B causes C."}},
	}
	extractor := &stubExtractor{entities: []string{"A"}}
	r := newTestRetriever(t, store, &stubIndex{}, nil, client, extractor, Config{
		MaxDepth:   2,
		TopN:       5,
		Synthesize: true,
	})

	result, err := r.Retrieve(context.Background(), "how does A lead to C?")
	require.NoError(t, err)

	assert.Equal(t, "A treats B, and B causes C.", result.Answer)
	assert.Equal(t, []string{"(A, treats, B)", "(B, causes, C)"}, result.Provenance)
	assert.Equal(t, 2, result.Rounds)
	assert.True(t, result.Sufficient)
	require.Len(t, result.Paths, 1)
	assert.Equal(t, types.Path{"A", "treats", "B", "causes", "C"}, result.Paths[0])

	// Each round's oracle saw that round's evidence.
	require.Len(t, client.structuredMsgs, 2)
	first := client.structuredMsgs[0][1].Content
	second := client.structuredMsgs[1][1].Content
	assert.Contains(t, first, "(A, treats, B)")
	assert.NotContains(t, first, "(B, causes, C)")
	assert.Contains(t, second, "(A, treats, B). (B, causes, C)")
}

func TestRetrieveRoundBudget(t *testing.T) {
	store := twoHopStore(t)
	client := &scriptedClient{} // every verdict: insufficient
	extractor := &stubExtractor{entities: []string{"A"}}
	r := newTestRetriever(t, store, &stubIndex{}, nil, client, extractor, Config{
		MaxDepth: 2,
		TopN:     5,
	})

	result, err := r.Retrieve(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Rounds, "MaxDepth+1 rounds, never more")
	assert.Len(t, client.structuredMsgs, 3)
	assert.False(t, result.Sufficient)
	// Budget exhausted still answers best-effort from the final paths.
	assert.Equal(t, "(A, treats, B)\n(B, causes, C)", result.Answer)
}

func TestRetrieveIsolatedNodeDepthZero(t *testing.T) {
	store := buildGraph(t, []string{"lonely"}, nil)
	client := &scriptedClient{
		structured: []step{{content: `{"sufficient": true, "reason": "trivial"}`}},
	}
	extractor := &stubExtractor{entities: []string{"lonely"}}
	r := newTestRetriever(t, store, &stubIndex{}, nil, client, extractor, Config{
		MaxDepth:   0,
		TopN:       3,
		Synthesize: true,
	})

	result, err := r.Retrieve(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Rounds)
	assert.True(t, result.Sufficient)
	assert.Equal(t, "", result.Answer, "zero triples yield an empty evidence answer")
	assert.Empty(t, result.Provenance)

	// The oracle judged an empty evidence block.
	require.Len(t, client.structuredMsgs, 1)
	user := client.structuredMsgs[0][1].Content
	assert.Contains(t, user, "<KNOWLEDGE TRIPLES>\n\n</KNOWLEDGE TRIPLES>")
}

func TestRetrieveExtractionFailureFallsBack(t *testing.T) {
	store := twoHopStore(t)
	extractor := &stubExtractor{err: errors.New("extractor broken")}
	embed := &stubEmbedder{}
	idx := &stubIndex{hits: []index.Hit{{ID: "A"}}}
	client := &scriptedClient{
		structured: []step{{content: `{"sufficient": true, "reason": "ok"}`}},
	}
	r := newTestRetriever(t, store, idx, embed, client, extractor, Config{
		MaxDepth: 1,
		TopN:     3,
	})

	result, err := r.Retrieve(context.Background(), "how does A lead to C?")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rounds)
	// The whole query became the sole entity for the similarity pass.
	assert.Equal(t, []string{"how does A lead to C?"}, embed.singles)
	assert.Equal(t, 1, extractor.calls)
}

func TestRetrieveOracleFailureContinues(t *testing.T) {
	store := twoHopStore(t)
	client := &scriptedClient{
		structured: []step{
			{err: errors.New("oracle timeout")},
			{content: `{"sufficient": true, "reason": "ok"}`},
		},
	}
	extractor := &stubExtractor{entities: []string{"A"}}
	r := newTestRetriever(t, store, &stubIndex{}, nil, client, extractor, Config{
		MaxDepth:      2,
		TopN:          5,
		OracleFailure: OracleFailureContinue,
	})

	result, err := r.Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rounds, "failed verdict counts as insufficient")
	assert.True(t, result.Sufficient)
}

func TestRetrieveOracleFailureAborts(t *testing.T) {
	store := twoHopStore(t)
	client := &scriptedClient{structured: []step{{err: errors.New("oracle down")}}}
	extractor := &stubExtractor{entities: []string{"A"}}
	r := newTestRetriever(t, store, &stubIndex{}, nil, client, extractor, Config{
		MaxDepth:      2,
		TopN:          5,
		OracleFailure: OracleFailureAbort,
	})

	_, err := r.Retrieve(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
	var unavail *RetrievalUnavailableError
	require.ErrorAs(t, err, &unavail)
	assert.Equal(t, "oracle", unavail.Component)
}

func TestRetrieveStoreFailureSurfaces(t *testing.T) {
	base := twoHopStore(t)
	store := &failingStore{Store: base, neighborsErr: errors.New("disk gone")}
	extractor := &stubExtractor{entities: []string{"A"}}
	r := newTestRetriever(t, store, &stubIndex{}, nil, nil, extractor, DefaultConfig())

	_, err := r.Retrieve(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
	var unavail *RetrievalUnavailableError
	require.ErrorAs(t, err, &unavail)
	assert.Equal(t, "store", unavail.Component)
}

func TestRetrieveZeroNormEmbeddingSurfaces(t *testing.T) {
	// Four branches from the seed force a real prune with topN=2.
	store := buildGraph(t,
		[]string{"s", "w", "x", "y", "z"},
		[][3]string{{"s", "r", "w"}, {"s", "r", "x"}, {"s", "r", "y"}, {"s", "r", "z"}},
	)
	embed := &stubEmbedder{vectors: map[string][]float32{
		"s r x": {0, 0},
	}, fallback: []float32{1, 0}}
	extractor := &stubExtractor{entities: []string{"s"}}
	r := newTestRetriever(t, store, &stubIndex{}, embed, nil, extractor, Config{
		MaxDepth: 1,
		TopN:     2,
	})

	_, err := r.Retrieve(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
	var numErr *NumericError
	assert.ErrorAs(t, err, &numErr)
}

func TestRetrieveCancelledMidLoopAnswersBestEffort(t *testing.T) {
	store := twoHopStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	client := &scriptedClient{
		onStructured: func(call int) {
			if call == 0 {
				cancel()
			}
		},
	}
	extractor := &stubExtractor{entities: []string{"A"}}
	r := newTestRetriever(t, store, &stubIndex{}, nil, client, extractor, Config{
		MaxDepth: 3,
		TopN:     5,
	})

	result, err := r.Retrieve(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rounds)
	assert.False(t, result.Sufficient)
	assert.Equal(t, "(A, treats, B)", result.Answer)
	assert.Equal(t, []string{types.ProvenancePlaceholder}, result.Provenance)
}

func TestRetrieveCancelledWithoutEvidence(t *testing.T) {
	store := buildGraph(t, []string{"lonely"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	extractor := &stubExtractor{entities: []string{"lonely"}}
	r := newTestRetriever(t, store, &stubIndex{}, nil, nil, extractor, DefaultConfig())

	_, err := r.Retrieve(ctx, "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetrieveBeamNeverExceedsTopN(t *testing.T) {
	// A hub with many branches keeps generating candidates; the beam must
	// stay within topN after every round.
	nodes := []string{"hub"}
	var edges [][3]string
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("leaf%d", i)
		nodes = append(nodes, id)
		edges = append(edges, [3]string{"hub", "links", id})
	}
	store := buildGraph(t, nodes, edges)

	extractor := &stubExtractor{entities: []string{"hub"}}
	r := newTestRetriever(t, store, &stubIndex{}, &stubEmbedder{fallback: []float32{1, 0}}, nil, extractor, Config{
		MaxDepth: 2,
		TopN:     3,
	})

	result, err := r.Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.Paths), 3)
	for _, p := range result.Paths {
		nodes := p.Nodes()
		seen := make(map[string]struct{}, len(nodes))
		for _, id := range nodes {
			_, dup := seen[id]
			assert.False(t, dup, "path %v repeats %s", p, id)
			seen[id] = struct{}{}
		}
	}
}

func TestFlattenTriplesMatchesRenderWindows(t *testing.T) {
	// The oracle and synthesizer must consume exactly the windows the
	// pruner rendered.
	display := func(id string) string { return strings.ToUpper(id) }
	p := types.Path{"a", "r1", "b", "r2", "c"}

	triples := flattenTriples([]types.Path{p}, display)
	require.Len(t, triples, 2)
	assert.Equal(t, types.Triple{Head: "A", Relation: "r1", Tail: "B"}, triples[0])
	assert.Equal(t, types.Triple{Head: "B", Relation: "r2", Tail: "C"}, triples[1])

	rendered := p.Render(display)
	assert.Equal(t, "A r1 B r2 C", rendered)
	for _, tr := range triples {
		assert.Contains(t, rendered, tr.Head)
		assert.Contains(t, rendered, tr.Tail)
	}
}
