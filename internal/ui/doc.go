// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through configuring and following a training session:
//  1. [ModelListView] : Pick a model variant
//  2. [ModeView] : Choose a pretrained session or train on your own MIDI files
//  3. [SessionListView] : Pick a prior session for the model
//  4. [FilesView] : Enter MIDI file paths to upload
//  5. [TrainingView] : Follow the live loss chart and play the piano to generate samples
//
// Each screen owns a view-model: [ModelConfig] for views 1-4 and [TrainingSession] for view 5.
// A view-model is created on screen entry and closed on exit, which tears down its call trackers
// and disposes its progress stream. Messages from a closed view-model are dropped.
//
// Network calls run as tea.Cmds through the tasks call trackers; progress frames flow through a
// channel from the stream goroutine and are pulled into the update loop one at a time.
package ui
