// Package ui provides the terminal pieces shared by whm's one-shot commands:
// status symbols and colors, a progress line for slow fetches, plain tables
// for report summaries, and the SSH host picker used by `whm init`.
//
// The full-screen dashboard has its own styles in internal/dashboard.
//
//	err := ui.WithProgress(os.Stderr, "Fetching report", func() error {
//		rep, err = client.GetReport(ctx)
//		return err
//	})
package ui
