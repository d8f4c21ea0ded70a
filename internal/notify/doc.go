// Package notify serializes events from many producers onto one consumer.
//
//	n := notify.New(func(ev batch.Event) error {
//	    fmt.Println(ev.Item.Path, ev.Kind)
//	    return nil
//	})
//	n.Start(ctx)
//	defer n.Stop()
package notify
