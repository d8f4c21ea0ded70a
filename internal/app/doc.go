// Package app is the composition root shared by the command-line and
// terminal interfaces.
//
//	m := app.NewManager(ctx, settings, logger, func(ev batch.Event) {
//	    fmt.Println(ev.Message())
//	})
//	defer m.Close()
//	m.AddPaths(args...)
//	results, err := m.Run(ctx, m.Options())
package app
