// Package cli provides the interactive security-desk console.
//
// It hosts a DeskService in-process, keeps the operator's filter state on
// the service Board and dispatches typed commands to the state machine.
// Typical flow: warm from the local cache, start polling, then read commands
// until the operator exits.
//
// Key features:
//   - List / filter the board (status, search, range, quick presets)
//   - Authorize, badge, checkout and remove records
//   - Print passes to HTML files and export the board to xlsx
//   - Register ad-hoc walk-in visitors
//
// The REPL is started via App.Run(ctx), which blocks until the operator exits.
// See App and runREPL for details.
package cli
