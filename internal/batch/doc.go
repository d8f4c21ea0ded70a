// Package batch converts queued files concurrently.
//
// A Scheduler owns a resizable pool of workers. Each SubmitBatch call
// returns a Batch handle that can be waited on, while progress is reported
// as Events through a Publisher:
//
//	sched := batch.NewScheduler(&batch.Runner{Encoder: inv}, 4,
//	    batch.WithPublisher(notifier))
//	b, err := sched.SubmitBatch(items, opts)
//	if err != nil {
//	    return err
//	}
//	results, err := b.Wait(ctx)
//
// The standard TaskRunner is Runner, which merges tags, synthesizes the
// encoder command and runs it.
package batch
