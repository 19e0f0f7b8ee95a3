// Package dashboard implements the terminal dashboard for a host report.
//
// The dashboard shows one page at a time. A page is built from the live
// report into a Document (the view tree) by a page builder. Chart pages
// create one MetricsPanel per metric group in the report.
//
// # Architecture
//
// The package uses Bubble Tea, which follows the Elm Architecture:
//
//   - Model: the live report, the current page's document and panels
//   - Update: keystrokes, report loads and backend responses
//   - View: renders the document to a string
//
// Update runs on a single goroutine. Backend requests run as tea.Cmds and
// their results come back as messages, so panel state is never touched
// concurrently.
//
// # Panels
//
// A Panel moves through these states:
//
//	Initializing → AwaitingFieldOrder → Ready ⇄ FetchingHistory
//	                                              ↘ EmptyAtScope
//
// Changing scope detaches the checkbox listener, cancels the in-flight
// request and issues a new one tagged with the scope and a sequence number.
// A response is applied only if both still match; anything else is dropped.
// Toggling a checkbox redraws from the series already fetched.
//
// # Keyboard Shortcuts
//
//	q, Ctrl+C   - Quit
//	r           - Refresh the report (navigation is disabled meanwhile)
//	←/→, p/n    - Previous / next page
//	Tab         - Focus next panel
//	h, d, w     - History scope of the focused panel
//	[, ]        - Previous / next scope
//	1-9         - Toggle a plotted field
//	?           - Toggle help overlay
package dashboard
