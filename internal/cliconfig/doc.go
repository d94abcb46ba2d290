// Package cliconfig loads the rocketboy CLI configuration.
//
// Values are layered with the following precedence (highest to lowest):
//
//  1. Command-line flags
//  2. Environment variables (ROCKETBOY_* prefix)
//  3. Local config file (.rocketboyrc.yaml in the current directory)
//  4. Global config file ($XDG_CONFIG_HOME/rocketboy/config.yaml)
//  5. Default values
//
// The source of every value is tracked in Config.Sources so that
// "rocketboy config" can show where a setting came from.
package cliconfig
