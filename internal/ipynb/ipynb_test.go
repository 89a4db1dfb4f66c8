package ipynb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nbsync/internal/notebook"
)

const jupyterNotebook = `{
 "cells": [
  {"cell_type": "markdown", "metadata": {}, "source": "# Title\nprose"},
  {
   "cell_type": "code",
   "execution_count": 3,
   "id": "abc",
   "metadata": {},
   "outputs": [
    {"output_type": "execute_result", "execution_count": 3, "metadata": {},
     "data": {"text/plain": ["42"], "text/html": ["<b>42</b>"]}}
   ],
   "source": ["x = 6 * 7\n", "x"]
  },
  {
   "cell_type": "code",
   "execution_count": 4,
   "metadata": {},
   "outputs": [{"output_type": "stream", "name": "stdout", "text": ["hello\n", "world\n"]}],
   "source": "print('hello')"
  },
  {
   "cell_type": "code",
   "execution_count": 5,
   "metadata": {},
   "outputs": [{"output_type": "error", "ename": "ZeroDivisionError", "evalue": "division by zero", "traceback": []}],
   "source": "1/0"
  },
  {"cell_type": "code", "execution_count": null, "metadata": {}, "outputs": [], "source": []}
 ],
 "metadata": {"kernelspec": {"name": "python3"}},
 "nbformat": 4,
 "nbformat_minor": 5
}`

func TestDecode(t *testing.T) {
	nb, err := Decode([]byte(jupyterNotebook))
	require.NoError(t, err)
	require.Equal(t, 5, nb.Len())
	require.NoError(t, nb.Validate())

	assert.Equal(t, notebook.KindMarkdown, nb.Cells[0].Kind)
	assert.Equal(t, []string{"# Title\n", "prose"}, nb.Cells[0].Source)
	assert.Nil(t, nb.Cells[0].Output)

	assert.Equal(t, "abc", nb.Cells[1].ID)
	assert.Equal(t, "x = 6 * 7\nx", nb.Cells[1].JoinedSource())
	assert.Equal(t, &notebook.Output{Text: "42", ExecutionCount: 3}, nb.Cells[1].Output)

	assert.Equal(t, "hello\nworld\n", nb.Cells[2].Output.Text)
	assert.Equal(t, "ZeroDivisionError: division by zero", nb.Cells[3].Output.Text)

	assert.Nil(t, nb.Cells[4].Output)
	assert.Empty(t, nb.Cells[4].Source)
}

func TestDecode_Errors(t *testing.T) {
	tests := map[string]string{
		"not json":       `{`,
		"old format":     `{"cells": [], "nbformat": 3}`,
		"missing kind":   `{"cells": [{"source": "x"}], "nbformat": 4}`,
		"bad source":     `{"cells": [{"cell_type": "code", "source": 7}], "nbformat": 4}`,
		"bad exec count": `{"cells": [{"cell_type": "code", "execution_count": "x", "outputs": [{"output_type": "stream", "text": ""}], "source": ""}], "nbformat": 4}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestEncode_Golden(t *testing.T) {
	md := notebook.MarkdownCell("# T")
	md.ID = "m1"
	code := notebook.CodeCell("x")
	code.ID = "c1"
	code.Output = &notebook.Output{Text: "1", ExecutionCount: 1}

	data, err := Encode(notebook.New(md, code, notebook.Cell{Kind: notebook.KindCode}))
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "encode", data)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	nb, err := Decode([]byte(jupyterNotebook))
	require.NoError(t, err)

	data, err := Encode(nb)
	require.NoError(t, err)
	back, err := Decode(data)
	require.NoError(t, err)

	assert.True(t, back.ContentEqual(nb))
	assert.Equal(t, nb.Cells[1].Output, back.Cells[1].Output)
}

func TestReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nb.sync.ipynb")
	nb := notebook.New(notebook.CodeCell("a = 1"))
	require.NoError(t, Write(path, nb))

	back, err := Read(path)
	require.NoError(t, err)
	assert.True(t, back.ContentEqual(nb))

	_, err = Read(filepath.Join(t.TempDir(), "missing.ipynb"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPairPaths(t *testing.T) {
	p, err := PairPaths("work/analysis", "sync")
	require.NoError(t, err)
	assert.Equal(t, Pair{Script: "work/analysis.sync.py", Notebook: "work/analysis.sync.ipynb"}, p)

	for _, bad := range []string{"a.py", "a.sync.py", "a.ipynb", "a.sync", ""} {
		_, err := PairPaths(bad, "sync")
		assert.Error(t, err, bad)
	}
}

func TestNewPair(t *testing.T) {
	base := filepath.Join(t.TempDir(), "analysis")

	p, err := NewPair(base, "sync", false)
	require.NoError(t, err)

	script, err := os.ReadFile(p.Script)
	require.NoError(t, err)
	assert.Equal(t, StarterContents, string(script))

	nb, err := Read(p.Notebook)
	require.NoError(t, err)
	require.Equal(t, 1, nb.Len())
	assert.Equal(t, notebook.KindCode, nb.Cells[0].Kind)
	assert.Empty(t, nb.Cells[0].Source)

	_, err = NewPair(base, "sync", false)
	assert.ErrorIs(t, err, ErrExists)

	_, err = NewPair(base, "sync", true)
	assert.NoError(t, err)
}
