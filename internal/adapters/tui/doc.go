// Package tui is the terminal front end of a QuoteListView, built on
// bubbletea. The view model does the work; this package turns key presses
// into view operations and renders snapshots.
//
// Remote calls run as tea.Cmd functions so the program loop never blocks.
// Their results come back as messages carrying only the error; the model
// re-reads the view's snapshot when they arrive.
package tui
