// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the editing run lifecycle (mount a session,
// replay a layout, save), decoupled from any specific entrypoint like a CLI.
package app
