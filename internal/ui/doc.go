// Package ui implements the interactive to-do application using bubbletea's Elm architecture.
//
// The TUI has two mutually exclusive view modes driven by backend session
// transitions:
//  1. [AuthView] : Credential form (sign in / sign up) shown while unauthenticated
//  2. [TaskListView] : Identity banner plus the task list, partitioned into
//     incomplete and completed sections
//
// [EditView] and [ConfirmView] are sub-states of the authenticated mode for
// rewriting a task's text and confirming destructive deletes.
//
// The [Model] implements bubbletea's standard Init/Update/View pattern.
// Session changes arrive on a channel from the backend client and are
// re-armed after every receive. List fetches carry a sequence token so a
// stale in-flight response can never overwrite a newer list; mutations are
// one-at-a-time, with mutation keys ignored while a request is outstanding.
//
// Keyboard navigation uses vim-style bindings with contextual help displayed
// via charmbracelet/bubbles/help.
package ui
