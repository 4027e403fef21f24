// Package file provides the TOML configuration file.
//
// Load and Save read and write the typed domain.Config. ConfigStore gives
// key/value access to the same file for commands that edit single settings.
package file
