package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/postprocessors/chunker"
)

// mockProcessor returns predefined chunks, or passes chunks through when
// none are set.
type mockProcessor struct {
	name   string
	chunks []domain.Chunk
	err    error
	calls  int
}

func (m *mockProcessor) Name() string {
	return m.name
}

func (m *mockProcessor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.chunks != nil {
		return m.chunks, nil
	}
	return chunks, nil
}

func filing() *domain.Document {
	return &domain.Document{Content: "Revenue rose 12%. Net debt fell to $1.1B."}
}

func TestPipeline_Add(t *testing.T) {
	p := NewPipeline()
	assert.Equal(t, 0, p.Len())

	p.Add(&mockProcessor{name: "chunker"})
	assert.Equal(t, 1, p.Len())
}

func TestPipeline_Process_Errors(t *testing.T) {
	failure := errors.New("processor failed")

	tests := []struct {
		name    string
		procs   []*mockProcessor
		doc     *domain.Document
		wantErr error
	}{
		{name: "nil document", procs: []*mockProcessor{{name: "chunker"}}, doc: nil, wantErr: domain.ErrInvalidInput},
		{name: "no processors", doc: filing(), wantErr: errNoProcessors},
		{name: "processor error", procs: []*mockProcessor{{name: "failing", err: failure}}, doc: filing(), wantErr: failure},
		{name: "no chunks", procs: []*mockProcessor{{name: "passthrough"}}, doc: filing(), wantErr: errNoChunks},
		{
			name:    "later stage drops everything",
			procs:   []*mockProcessor{{name: "chunker", chunks: []domain.Chunk{{Content: "a"}}}, {name: "filter", chunks: []domain.Chunk{}}},
			doc:     filing(),
			wantErr: errNoChunks,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline()
			for _, proc := range tt.procs {
				p.Add(proc)
			}

			chunks, err := p.Process(context.Background(), tt.doc)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, chunks)
		})
	}
}

func TestPipeline_Process_RenumbersPositions(t *testing.T) {
	produced := []domain.Chunk{
		{Position: 7, Start: 0, End: 5, Content: "first"},
		{Position: 7, Start: 3, End: 9, Content: "second"},
	}
	p := NewPipeline(&mockProcessor{name: "chunker", chunks: produced})

	chunks, err := p.Process(context.Background(), filing())

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Position)
	assert.Equal(t, 1, chunks[1].Position)
	assert.Equal(t, 3, chunks[1].Start)
	assert.Equal(t, 7, produced[0].Position, "processor output is not modified")
}

func TestPipeline_Process_RunsInOrder(t *testing.T) {
	first := &mockProcessor{name: "chunker", chunks: []domain.Chunk{{Content: "revenue"}}}
	second := &mockProcessor{name: "passthrough"}
	third := &mockProcessor{name: "rewrite", chunks: []domain.Chunk{{Content: "modified"}, {Content: "added"}}}
	p := NewPipeline(first, second, third)

	chunks, err := p.Process(context.Background(), filing())

	require.NoError(t, err)
	assert.Equal(t, []string{"modified", "added"}, domain.ChunkTexts(chunks))
	assert.Equal(t, []int{1, 1, 1}, []int{first.calls, second.calls, third.calls})
}

func TestPipeline_Process_StopsWhenCancelled(t *testing.T) {
	proc := &mockProcessor{name: "chunker", chunks: []domain.Chunk{{Content: "x"}}}
	p := NewPipeline(proc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, filing())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, proc.calls)
}

func TestPipeline_Process_WithChunker(t *testing.T) {
	p := NewPipeline(chunker.New(chunker.WithChunkSize(20), chunker.WithOverlap(5)))

	chunks, err := p.Process(context.Background(), filing())

	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
		assert.NotEmpty(t, c.Content)
	}
}
