package models

import (
	"time"

	"github.com/google/uuid"
)

// PipelineNodeName names a node of the ingestion pipeline.
type PipelineNodeName string

const (
	PipelineNodeFeatureGroup PipelineNodeName = "FeatureGroup"
	PipelineNodeIngestion    PipelineNodeName = "Ingestion"
	PipelineNodePublish      PipelineNodeName = "Publish"
)

// AllPipelineNodes returns all node names in execution order.
func AllPipelineNodes() []PipelineNodeName {
	return []PipelineNodeName{
		PipelineNodeFeatureGroup,
		PipelineNodeIngestion,
		PipelineNodePublish,
	}
}

// PipelineNodeStatus is the execution status of one node.
type PipelineNodeStatus string

const (
	PipelineNodeStatusPending   PipelineNodeStatus = "pending"
	PipelineNodeStatusRunning   PipelineNodeStatus = "running"
	PipelineNodeStatusCompleted PipelineNodeStatus = "completed"
	PipelineNodeStatusFailed    PipelineNodeStatus = "failed"
	PipelineNodeStatusSkipped   PipelineNodeStatus = "skipped"
)

// PipelineNode records how one node of a run went.
type PipelineNode struct {
	Name         PipelineNodeName   `json:"name"`
	Status       PipelineNodeStatus `json:"status"`
	ErrorMessage string             `json:"error_message,omitempty"`
	StartedAt    *time.Time         `json:"started_at,omitempty"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
}

// PipelineRun is the in-process record of one pipeline execution.
type PipelineRun struct {
	ID             uuid.UUID           `json:"id"`
	Namespace      string              `json:"namespace"`
	ExportID       string              `json:"export_id"`
	FeatureGroup   *FeatureGroupHandle `json:"feature_group,omitempty"`
	AlreadyExisted bool                `json:"already_existed"`
	Job            *JobOutcome         `json:"job,omitempty"`
	Context        *PipelineContext    `json:"context,omitempty"`
	Nodes          []PipelineNode      `json:"nodes"`
	ErrorMessage   string              `json:"error_message,omitempty"`
	StartedAt      time.Time           `json:"started_at"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
}

// Node returns the record for the named node, or nil.
func (r *PipelineRun) Node(name PipelineNodeName) *PipelineNode {
	for i := range r.Nodes {
		if r.Nodes[i].Name == name {
			return &r.Nodes[i]
		}
	}
	return nil
}
