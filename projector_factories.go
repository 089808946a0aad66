package marketplace

import (
	"time"

	"github.com/goliatone/go-job/queue"
	gojobadapter "github.com/goliatone/go-marketplace/adapters/gojob"
	"github.com/goliatone/go-marketplace/core"
)

const (
	ProjectorPackActivity = "activity"
	ProjectorPackQueue    = "queue"
)

const activityReplayWindow = time.Hour

// ActivityProjectorPack bundles the journal projector so hosts can hand
// the activity store to RegisterProjectorPack in one call. Outbox delivery
// is at-least-once, so the projector sits behind a replay guard keyed by
// event id.
func ActivityProjectorPack(store core.ActivityStore) (ProjectorPack, error) {
	projector, err := core.NewActivityProjector(store, nil)
	if err != nil {
		return ProjectorPack{}, err
	}
	guarded, err := core.NewReplayGuardProjector(
		"journal",
		projector,
		core.NewMemoryReplayLedger(activityReplayWindow),
		activityReplayWindow,
	)
	if err != nil {
		return ProjectorPack{}, err
	}
	return ProjectorPack{
		Name: ProjectorPackActivity,
		Projectors: map[string]core.MarketEventHandler{
			"journal": guarded,
		},
	}, nil
}

// QueueProjectorPack bundles the go-job bridge that forwards dispatched
// events onto a queue for out-of-process projections.
func QueueProjectorPack(enqueuer queue.Enqueuer, config gojobadapter.QueueProjectorConfig) (ProjectorPack, error) {
	projector, err := gojobadapter.NewQueueProjector(enqueuer, config)
	if err != nil {
		return ProjectorPack{}, err
	}
	return ProjectorPack{
		Name: ProjectorPackQueue,
		Projectors: map[string]core.MarketEventHandler{
			"enqueue": projector,
		},
	}, nil
}
