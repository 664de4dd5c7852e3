package workers

import (
	"context"
	"log"
	"time"

	"tamagotree/services"

	"github.com/go-co-op/gocron/v2"
)

// PurgeInterval is how often expired friend task requests are removed.
const PurgeInterval = time.Hour

// StartScheduler runs the quest reset sweep and the expired task purge in the background.
// Call Shutdown on the returned scheduler to stop it.
func StartScheduler(ctx context.Context, quests *services.QuestService, tasks *services.FriendTaskService, sweepEvery time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(sweepEvery),
		gocron.NewTask(func() {
			n, err := quests.ResetSweep(ctx)
			if err != nil {
				log.Printf("❌ [Scheduler] Quest reset sweep failed after %d reset(s): %v", n, err)
				return
			}
			if n > 0 {
				log.Printf("✅ [Scheduler] Reset %d quest(s)", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(PurgeInterval),
		gocron.NewTask(func() {
			n, err := tasks.PurgeExpired(ctx)
			if err != nil {
				log.Printf("❌ [Scheduler] Friend task purge failed: %v", err)
				return
			}
			if n > 0 {
				log.Printf("🧹 [Scheduler] Purged %d expired friend task(s)", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
