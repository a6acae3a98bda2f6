// Where: pipegen/internal/infra/stack/events.go
// What: Stack event logging while a deployment is in progress.
package stack

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

// eventTracker remembers which events have been logged. Events older than
// the start of the operation are ignored.
type eventTracker struct {
	since time.Time
	seen  map[string]struct{}
}

func newEventTracker(since time.Time) *eventTracker {
	return &eventTracker{since: since, seen: map[string]struct{}{}}
}

// fresh returns unseen events in chronological order and marks them seen.
// DescribeStackEvents lists the newest event first.
func (t *eventTracker) fresh(events []types.StackEvent) []types.StackEvent {
	var out []types.StackEvent
	for i := len(events) - 1; i >= 0; i-- {
		event := events[i]
		id := aws.ToString(event.EventId)
		if _, ok := t.seen[id]; ok {
			continue
		}
		if event.Timestamp != nil && event.Timestamp.Before(t.since) {
			continue
		}
		t.seen[id] = struct{}{}
		out = append(out, event)
	}
	return out
}

func (d *Deployer) logEvents(ctx context.Context, name string, tracker *eventTracker) error {
	out, err := d.API.DescribeStackEvents(ctx, &cloudformation.DescribeStackEventsInput{StackName: aws.String(name)})
	if err != nil {
		return err
	}
	for _, event := range tracker.fresh(out.StackEvents) {
		entry := d.Logger.Info()
		if reason := aws.ToString(event.ResourceStatusReason); reason != "" {
			entry = d.Logger.Warn().Str("reason", reason)
		}
		entry.
			Str("resource", aws.ToString(event.LogicalResourceId)).
			Str("type", aws.ToString(event.ResourceType)).
			Str("status", string(event.ResourceStatus)).
			Msg("stack event")
	}
	return nil
}
