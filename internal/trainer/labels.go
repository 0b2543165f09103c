package trainer

import "fmt"

// Label keys set on every container the pipeline starts
const (
	LabelProject  = "pricepipe.project"
	LabelPipeline = "pricepipe.pipeline"
	LabelRunID    = "pricepipe.run_id"
	LabelStage    = "pricepipe.stage"
)

// BuildLabels creates the label set for one stage container of a run.
func BuildLabels(pipeline, runID, stage string) map[string]string {
	return map[string]string{
		LabelProject:  "true",
		LabelPipeline: pipeline,
		LabelRunID:    runID,
		LabelStage:    stage,
	}
}

// ContainerName names the container of one stage of a run. Only the first
// eight characters of the run ID are used.
func ContainerName(pipeline, stage, runID string) string {
	if len(runID) > 8 {
		runID = runID[:8]
	}
	return fmt.Sprintf("pricepipe-%s-%s-%s", pipeline, stage, runID)
}
