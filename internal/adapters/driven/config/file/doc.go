// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: TOML settings file with secrets from the environment or a .env file
//   - ListLoader: YAML geocode alias tables and stopword lists
package file
