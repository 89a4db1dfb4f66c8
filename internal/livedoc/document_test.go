package livedoc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nbsync/internal/notebook"
	"github.com/roach88/nbsync/internal/reconcile"
)

func sources(nb notebook.Notebook) []string {
	out := make([]string, nb.Len())
	for i, c := range nb.Cells {
		out[i] = c.JoinedSource()
	}
	return out
}

func seeded() *Document {
	a := notebook.CodeCell("a")
	a.Output = &notebook.Output{Text: "A"}
	a.ID = "cell-a"
	return New(notebook.New(a, notebook.CodeCell("b"), notebook.CodeCell("c")))
}

func TestApply_Insert(t *testing.T) {
	d := seeded()
	require.NoError(t, d.Apply(reconcile.Command{Op: reconcile.CmdInsert, Index: 1, Kind: notebook.KindMarkdown, Source: "# x\ny"}))

	snap := d.Snapshot()
	assert.Equal(t, []string{"a", "# x\ny", "b", "c"}, sources(snap))
	assert.Equal(t, []string{"# x\n", "y"}, snap.Cells[1].Source)
	assert.NoError(t, snap.Validate())

	require.NoError(t, d.Apply(reconcile.Command{Op: reconcile.CmdInsert, Index: 4, Kind: notebook.KindCode, Source: "end"}))
	assert.Equal(t, 5, d.Len())
	assert.Error(t, d.Apply(reconcile.Command{Op: reconcile.CmdInsert, Index: 9, Kind: notebook.KindCode}))
}

func TestApply_DeleteUsesPreDeleteIndices(t *testing.T) {
	d := seeded()
	require.NoError(t, d.Apply(reconcile.Command{Op: reconcile.CmdDelete, Index: 0, Indices: []int{0, 2}}))

	assert.Equal(t, []string{"b"}, sources(d.Snapshot()))
}

func TestApply_DeleteRejectsBadIndices(t *testing.T) {
	d := seeded()
	assert.Error(t, d.Apply(reconcile.Command{Op: reconcile.CmdDelete, Indices: []int{1, 1}}))
	assert.Error(t, d.Apply(reconcile.Command{Op: reconcile.CmdDelete, Indices: []int{3}}))
	assert.Equal(t, 3, d.Len())
}

func TestApply_ReplaceClearsOutputKeepsID(t *testing.T) {
	d := seeded()
	require.NoError(t, d.Apply(reconcile.Command{Op: reconcile.CmdReplace, Index: 0, Kind: notebook.KindCode, Source: "a2"}))

	cell := d.Snapshot().Cells[0]
	assert.Equal(t, "a2", cell.JoinedSource())
	assert.Nil(t, cell.Output)
	assert.Equal(t, "cell-a", cell.ID)
}

func TestApply_AttachOutput(t *testing.T) {
	d := seeded()
	out := &notebook.Output{Text: "B", ExecutionCount: 2}
	require.NoError(t, d.Apply(reconcile.Command{Op: reconcile.CmdAttachOutput, Index: 1, Output: out}))
	out.Text = "mutated"

	assert.Equal(t, "B", d.Snapshot().Cells[1].Output.Text)

	require.NoError(t, d.Apply(reconcile.Command{Op: reconcile.CmdAttachOutput, Index: 1}))
	assert.Nil(t, d.Snapshot().Cells[1].Output)
}

func TestApply_UnknownCommand(t *testing.T) {
	assert.Error(t, seeded().Apply(reconcile.Command{Op: "move"}))
}

func TestApplyAll_NamesFailingCommand(t *testing.T) {
	d := seeded()
	err := d.ApplyAll([]reconcile.Command{
		{Op: reconcile.CmdReplace, Index: 0, Kind: notebook.KindCode, Source: "z"},
		{Op: reconcile.CmdReplace, Index: 7, Kind: notebook.KindCode, Source: "z"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command 1")
}

func TestSnapshot_IsACopy(t *testing.T) {
	d := seeded()
	snap := d.Snapshot()
	snap.Cells[0].Output.Text = "mutated"
	snap.Cells[0].Source[0] = "mutated"

	again := d.Snapshot()
	assert.Equal(t, "A", again.Cells[0].Output.Text)
	assert.Equal(t, "a", again.Cells[0].JoinedSource())
}

func TestSetOutput(t *testing.T) {
	d := seeded()
	require.NoError(t, d.SetOutput(2, notebook.Output{Text: "C"}))
	assert.Equal(t, "C", d.Snapshot().Cells[2].Output.Text)
	assert.Error(t, d.SetOutput(3, notebook.Output{}))
}

func TestDocument_ConcurrentUse(t *testing.T) {
	d := New(notebook.Notebook{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Apply(reconcile.Command{Op: reconcile.CmdInsert, Index: 0, Kind: notebook.KindCode, Source: "x"})
			_ = d.Snapshot()
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, d.Len())
}
