package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpAction_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		kind    OpKind
		cur     Range
		upd     Range
		wantErr bool
	}{
		{"equal", OpEqual, Range{0, 2}, Range{1, 3}, false},
		{"empty equal", OpEqual, Range{0, 0}, Range{0, 0}, false},
		{"equal length mismatch", OpEqual, Range{0, 2}, Range{0, 1}, true},
		{"insert", OpInsert, Range{2, 2}, Range{2, 4}, false},
		{"insert with current", OpInsert, Range{1, 2}, Range{2, 4}, true},
		{"insert nothing", OpInsert, Range{2, 2}, Range{2, 2}, true},
		{"delete", OpDelete, Range{1, 3}, Range{1, 1}, false},
		{"delete with updated", OpDelete, Range{1, 3}, Range{1, 2}, true},
		{"replace uneven", OpReplace, Range{1, 3}, Range{1, 2}, false},
		{"replace empty side", OpReplace, Range{1, 1}, Range{1, 2}, true},
		{"copy output", OpCopyOutput, Range{4, 5}, Range{0, 1}, false},
		{"copy output wide", OpCopyOutput, Range{4, 6}, Range{0, 2}, true},
		{"negative start", OpEqual, Range{-1, 0}, Range{0, 1}, true},
		{"reversed range", OpDelete, Range{3, 1}, Range{0, 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOpAction(tt.kind, tt.cur, tt.upd)
			if tt.wantErr {
				var invalid *InvalidOpcodeError
				assert.ErrorAs(t, err, &invalid)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewOpAction_UnknownKind(t *testing.T) {
	_, err := NewOpAction(OpKind(0), Range{0, 1}, Range{0, 1})
	assert.True(t, IsUnsupportedOpcode(err))
}

func TestOpAction_String(t *testing.T) {
	ins, err := NewOpAction(OpInsert, Range{3, 3}, Range{3, 5})
	require.NoError(t, err)
	assert.Equal(t, "insert(3,3,3,5)", ins.String())

	del, err := NewOpAction(OpDelete, Range{0, 2}, Range{0, 0})
	require.NoError(t, err)
	assert.Equal(t, "delete(0,2,0,0)", del.String())

	cp, err := NewOpAction(OpCopyOutput, Range{4, 5}, Range{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "copy_output(4,5,1,2)", cp.String())
}

func TestOpAction_JSON(t *testing.T) {
	op, err := NewOpAction(OpReplace, Range{1, 3}, Range{1, 2})
	require.NoError(t, err)

	data, err := json.Marshal(op)
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":"replace","current":{"start":1,"end":3},"updated":{"start":1,"end":2}}`, string(data))

	var back OpAction
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, op, back)

	assert.Error(t, json.Unmarshal([]byte(`{"op":"move"}`), &back))
}

func TestSummarize(t *testing.T) {
	ops := []OpAction{
		mustOp(OpEqual, Range{0, 1}, Range{0, 1}),
		mustOp(OpReplace, Range{1, 3}, Range{1, 2}),
		mustOp(OpInsert, Range{3, 3}, Range{2, 4}),
		mustOp(OpCopyOutput, Range{1, 2}, Range{1, 2}),
		mustOp(OpCopyOutput, Range{2, 3}, Range{2, 3}),
	}
	assert.Equal(t, Summary{Equal: 1, Insert: 1, Replace: 1, CopyOutput: 2}, Summarize(ops))
}
