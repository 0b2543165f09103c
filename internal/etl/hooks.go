package etl

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PipelineInfo contains metadata of the pipeline
type PipelineInfo struct {
	PipelineName string
}

// PipelineHook receives pipeline execution events
type PipelineHook interface {
	OnPipelineStart(ctx context.Context, info PipelineInfo)
	OnPipelineEnd(ctx context.Context, info PipelineInfo, err error, dur time.Duration)

	OnReadStart(ctx context.Context, info PipelineInfo)
	OnReadEnd(ctx context.Context, info PipelineInfo, rows int, err error, dur time.Duration)

	OnTransformStart(ctx context.Context, info PipelineInfo, step int, name string)
	OnTransformEnd(ctx context.Context, info PipelineInfo, step int, name string, err error, dur time.Duration)

	OnWriteStart(ctx context.Context, info PipelineInfo, rows int)
	OnWriteEnd(ctx context.Context, info PipelineInfo, err error, dur time.Duration)
}

type NoopPipelineHook struct{}

func (NoopPipelineHook) OnPipelineStart(context.Context, PipelineInfo)                                   {}
func (NoopPipelineHook) OnPipelineEnd(context.Context, PipelineInfo, error, time.Duration)               {}
func (NoopPipelineHook) OnReadStart(context.Context, PipelineInfo)                                       {}
func (NoopPipelineHook) OnReadEnd(context.Context, PipelineInfo, int, error, time.Duration)              {}
func (NoopPipelineHook) OnTransformStart(context.Context, PipelineInfo, int, string)                     {}
func (NoopPipelineHook) OnTransformEnd(context.Context, PipelineInfo, int, string, error, time.Duration) {}
func (NoopPipelineHook) OnWriteStart(context.Context, PipelineInfo, int)                                 {}
func (NoopPipelineHook) OnWriteEnd(context.Context, PipelineInfo, error, time.Duration)                  {}

// LogHook writes stage events to a zerolog logger.
type LogHook struct {
	Logger zerolog.Logger
}

func (h LogHook) OnPipelineStart(_ context.Context, info PipelineInfo) {
	h.Logger.Info().Str("pipeline", info.PipelineName).Msg("Pipeline started")
}

func (h LogHook) OnPipelineEnd(_ context.Context, info PipelineInfo, err error, dur time.Duration) {
	if err != nil {
		h.Logger.Error().Err(err).Str("pipeline", info.PipelineName).Dur("took", dur).Msg("Pipeline failed")
		return
	}
	h.Logger.Info().Str("pipeline", info.PipelineName).Dur("took", dur).Msg("Pipeline finished")
}

func (h LogHook) OnReadStart(_ context.Context, info PipelineInfo) {
	h.Logger.Debug().Str("pipeline", info.PipelineName).Msg("Reading input")
}

func (h LogHook) OnReadEnd(_ context.Context, info PipelineInfo, rows int, err error, dur time.Duration) {
	if err != nil {
		return
	}
	h.Logger.Info().Str("pipeline", info.PipelineName).Int("rows", rows).Dur("took", dur).Msg("Read input")
}

func (h LogHook) OnTransformStart(_ context.Context, info PipelineInfo, step int, name string) {
	h.Logger.Debug().Str("pipeline", info.PipelineName).Int("step", step).Str("transform", name).Msg("Transform started")
}

func (h LogHook) OnTransformEnd(_ context.Context, info PipelineInfo, step int, name string, err error, dur time.Duration) {
	if err != nil {
		return
	}
	h.Logger.Info().Str("pipeline", info.PipelineName).Int("step", step).Str("transform", name).Dur("took", dur).Msg("Transform finished")
}

func (h LogHook) OnWriteStart(_ context.Context, info PipelineInfo, rows int) {
	h.Logger.Debug().Str("pipeline", info.PipelineName).Int("rows", rows).Msg("Writing output")
}

func (h LogHook) OnWriteEnd(_ context.Context, info PipelineInfo, err error, dur time.Duration) {
	if err != nil {
		return
	}
	h.Logger.Info().Str("pipeline", info.PipelineName).Dur("took", dur).Msg("Wrote output")
}
