// Where: pipegen/internal/generator/resources.go
// What: CloudFormation resource model, logical ids, and the collision-checked builder.
// Why: Every generator returns a fragment; the builder merges them into one template.
package generator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/poruru-code/pipegen/internal/domain/cfn"
)

const (
	LogGroupLogicalID         = "LogGroup"
	BuildRoleLogicalID        = "CodeBuildRole"
	BuildPolicyLogicalID      = "CodeBuildPolicy"
	PipelineRoleLogicalID     = "CodePipelineRole"
	PipelinePolicyLogicalID   = "CodePipelinePolicy"
	PipelineLogicalID         = "CodePipeline"
	EventsRoleLogicalID       = "CloudWatchEventsRole"
	EventsPolicyLogicalID     = "CloudWatchEventsPolicy"
	projectLogicalIDPrefix    = "CodeBuild"
	pushEventRuleLogicalIDEnd = "PushEventRule"
)

var (
	// ErrDuplicateLogicalID reports two generated resources with the same logical id.
	ErrDuplicateLogicalID = errors.New("duplicate logical id")
	// ErrUnsupportedSource reports a source kind with no generator support.
	ErrUnsupportedSource = errors.New("unsupported source type")
	// ErrNoSources reports a pipeline without sources.
	ErrNoSources = errors.New("at least one source must be supplied")
	// ErrUnnamedSource reports a source without a name.
	ErrUnnamedSource = errors.New("all sources must have a name")
)

// Resource is one entry of a template's Resources section.
type Resource struct {
	Type       string         `json:"Type" yaml:"Type"`
	Properties map[string]any `json:"Properties" yaml:"Properties"`
}

// Resources maps logical ids to resources.
type Resources map[string]Resource

// IDs returns the logical ids in sorted order.
func (r Resources) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Builder accumulates fragments and rejects logical id collisions.
type Builder struct {
	resources Resources
}

func NewBuilder() *Builder {
	return &Builder{resources: Resources{}}
}

// Add merges fragment into the builder. Nothing is added when any id collides.
func (b *Builder) Add(fragment Resources) error {
	for _, id := range fragment.IDs() {
		if _, ok := b.resources[id]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateLogicalID, id)
		}
	}
	for id, resource := range fragment {
		b.resources[id] = resource
	}
	return nil
}

// Resources returns the merged resources.
func (b *Builder) Resources() Resources {
	out := make(Resources, len(b.resources))
	for id, resource := range b.resources {
		out[id] = resource
	}
	return out
}

// Sanitize strips every character that is not a letter or digit.
func Sanitize(name string) string {
	return cfn.Sanitize(name)
}

// ProjectLogicalID is the logical id of the build project for an action.
func ProjectLogicalID(actionName string) string {
	return projectLogicalIDPrefix + Sanitize(actionName)
}

// PushEventRuleLogicalID is the logical id of the push event rule for a source.
func PushEventRuleLogicalID(sourceName string) string {
	return Sanitize(sourceName) + pushEventRuleLogicalIDEnd
}
