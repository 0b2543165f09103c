package etl

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dyluth/pricepipe/internal/dataset"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(ctx context.Context) (*dataset.Table, error) {
	return dataset.ReadCSV(strings.NewReader("a,b\n1,x\n2,y\n"))
}

func TestPipeline_Run(t *testing.T) {
	var written *dataset.Table

	err := New("demo").
		Read(readFixture).
		Transform("drop b", func(ctx context.Context, tbl *dataset.Table) error {
			return tbl.DropColumns("b")
		}).
		Transform("add c", func(ctx context.Context, tbl *dataset.Table) error {
			return tbl.AddColumn("c", []dataset.Cell{dataset.Int(10), dataset.Int(20)})
		}).
		Write(func(ctx context.Context, tbl *dataset.Table) error {
			written = tbl
			return nil
		}).
		Run(context.Background())

	require.NoError(t, err)
	require.NotNil(t, written)
	assert.Equal(t, []string{"a", "c"}, written.Columns())
	assert.Equal(t, 2, written.Len())
}

func TestPipeline_Validation(t *testing.T) {
	noopWrite := func(context.Context, *dataset.Table) error { return nil }

	tests := []struct {
		name    string
		build   func() *Pipeline
		wantErr string
	}{
		{"nil pipeline", func() *Pipeline { return nil }, "pipeline is nil"},
		{"missing name", func() *Pipeline { return New(" ").Read(readFixture).Write(noopWrite) }, "pipeline name must not be empty"},
		{"missing reader", func() *Pipeline { return New("p").Write(noopWrite) }, "reader must be set via Read"},
		{"missing writer", func() *Pipeline { return New("p").Read(readFixture) }, "writer must be set via Write"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build().Run(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestPipeline_StageErrors(t *testing.T) {
	boom := errors.New("boom")
	noopWrite := func(context.Context, *dataset.Table) error { return nil }

	t.Run("read", func(t *testing.T) {
		err := New("p").
			Read(func(context.Context) (*dataset.Table, error) { return nil, boom }).
			Write(noopWrite).
			Run(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "read failed")
	})

	t.Run("transform stops later steps", func(t *testing.T) {
		ranSecond := false
		err := New("p").
			Read(readFixture).
			Transform("encode", func(context.Context, *dataset.Table) error { return boom }).
			Transform("never", func(context.Context, *dataset.Table) error {
				ranSecond = true
				return nil
			}).
			Write(noopWrite).
			Run(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "transform[0] (encode) failed")
		assert.False(t, ranSecond)
	})

	t.Run("write", func(t *testing.T) {
		err := New("p").
			Read(readFixture).
			Write(func(context.Context, *dataset.Table) error { return boom }).
			Run(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "write failed")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := New("p").
			Read(readFixture).
			Transform("encode", func(context.Context, *dataset.Table) error { return nil }).
			Write(noopWrite).
			Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

type recordingHook struct {
	NoopPipelineHook
	events []string
	endErr error
}

func (h *recordingHook) OnPipelineStart(context.Context, PipelineInfo) {
	h.events = append(h.events, "start")
}

func (h *recordingHook) OnPipelineEnd(_ context.Context, _ PipelineInfo, err error, _ time.Duration) {
	h.events = append(h.events, "end")
	h.endErr = err
}

func (h *recordingHook) OnReadEnd(_ context.Context, _ PipelineInfo, rows int, _ error, _ time.Duration) {
	h.events = append(h.events, "read")
}

func (h *recordingHook) OnTransformEnd(_ context.Context, _ PipelineInfo, _ int, name string, _ error, _ time.Duration) {
	h.events = append(h.events, "transform:"+name)
}

func (h *recordingHook) OnWriteEnd(context.Context, PipelineInfo, error, time.Duration) {
	h.events = append(h.events, "write")
}

func TestPipeline_Hooks(t *testing.T) {
	hook := &recordingHook{}

	err := New("p").
		Hook(hook).
		Read(readFixture).
		Transform("one", func(context.Context, *dataset.Table) error { return nil }).
		Write(func(context.Context, *dataset.Table) error { return nil }).
		Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"start", "read", "transform:one", "write", "end"}, hook.events)
	assert.NoError(t, hook.endErr)
}

func TestPipeline_HooksSeeFailure(t *testing.T) {
	hook := &recordingHook{}

	err := New("p").
		Hook(hook).
		Read(readFixture).
		Transform("bad", func(context.Context, *dataset.Table) error { return errors.New("bad value") }).
		Write(func(context.Context, *dataset.Table) error { return nil }).
		Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, []string{"start", "read", "transform:bad", "end"}, hook.events)
	assert.Equal(t, err, hook.endErr)
}

func TestLogHook(t *testing.T) {
	var buf bytes.Buffer
	hook := LogHook{Logger: zerolog.New(&buf)}

	err := New("housing").
		Hook(hook).
		Read(readFixture).
		Write(func(context.Context, *dataset.Table) error { return nil }).
		Run(context.Background())

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"pipeline":"housing"`)
	assert.Contains(t, buf.String(), `"rows":2`)
	assert.Contains(t, buf.String(), "Pipeline finished")
}
