// Package etl runs a table through read, transform and write stages.
package etl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dyluth/pricepipe/internal/dataset"
)

// Reader loads the input table.
type Reader func(ctx context.Context) (*dataset.Table, error)

// Transform rewrites the table in place.
type Transform func(ctx context.Context, t *dataset.Table) error

// Writer persists the final table.
type Writer func(ctx context.Context, t *dataset.Table) error

type namedTransform struct {
	name string
	fn   Transform
}

// Pipeline is a read, ordered transforms, write sequence over one table.
type Pipeline struct {
	name       string
	reader     Reader
	transforms []namedTransform
	writer     Writer
	hook       PipelineHook
}

func New(name string) *Pipeline {
	return &Pipeline{name: name, hook: NoopPipelineHook{}}
}

func (p *Pipeline) Name() string {
	return p.name
}

func (p *Pipeline) Read(reader Reader) *Pipeline {
	p.reader = reader
	return p
}

// Transform appends a named step. Steps run in the order they were added.
func (p *Pipeline) Transform(name string, transform Transform) *Pipeline {
	p.transforms = append(p.transforms, namedTransform{name: name, fn: transform})
	return p
}

func (p *Pipeline) Write(writer Writer) *Pipeline {
	p.writer = writer
	return p
}

// Hook sets the pipeline hook. If nil is passed, a NoopPipelineHook is used.
func (p *Pipeline) Hook(h PipelineHook) *Pipeline {
	if h == nil {
		p.hook = NoopPipelineHook{}
	} else {
		p.hook = h
	}
	return p
}

func (p *Pipeline) validate() error {
	if p == nil {
		return errors.New("pipeline is nil")
	}
	if strings.TrimSpace(p.name) == "" {
		return errors.New("pipeline name must not be empty")
	}
	if p.reader == nil {
		return errors.New("reader must be set via Read")
	}
	if p.writer == nil {
		return errors.New("writer must be set via Write")
	}
	return nil
}

// Run executes the pipeline once. The first failing stage stops the run.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	if err := p.validate(); err != nil {
		return err
	}

	info := PipelineInfo{PipelineName: p.name}
	started := time.Now()
	p.hook.OnPipelineStart(ctx, info)
	defer func() {
		p.hook.OnPipelineEnd(ctx, info, err, time.Since(started))
	}()

	p.hook.OnReadStart(ctx, info)
	readStarted := time.Now()
	table, err := p.reader(ctx)
	rows := 0
	if table != nil {
		rows = table.Len()
	}
	p.hook.OnReadEnd(ctx, info, rows, err, time.Since(readStarted))
	if err != nil {
		return fmt.Errorf("read failed: %w", err)
	}
	if table == nil {
		return errors.New("read failed: reader returned no table")
	}

	for i, step := range p.transforms {
		if err := ctx.Err(); err != nil {
			return err
		}

		p.hook.OnTransformStart(ctx, info, i, step.name)
		stepStarted := time.Now()
		stepErr := step.fn(ctx, table)
		p.hook.OnTransformEnd(ctx, info, i, step.name, stepErr, time.Since(stepStarted))
		if stepErr != nil {
			return fmt.Errorf("transform[%d] (%s) failed: %w", i, step.name, stepErr)
		}
	}

	p.hook.OnWriteStart(ctx, info, table.Len())
	writeStarted := time.Now()
	err = p.writer(ctx, table)
	p.hook.OnWriteEnd(ctx, info, err, time.Since(writeStarted))
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	return nil
}
