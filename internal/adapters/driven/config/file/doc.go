// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: User-editable prompt templates
//   - PromptWatcher: Reloads prompt templates when they change on disk
package file
