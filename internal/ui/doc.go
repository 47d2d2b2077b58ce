// Package ui is the terminal front end: a bubbletea program that renders the
// session coordinator's projection and turns input lines into coordinator
// commands.
//
// Plain lines are sent to the active tab. Lines starting with "/" are
// commands; see /help for the list.
package ui
