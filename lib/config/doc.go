// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads taskflow configuration.
//
// Configuration comes from one file: the path in TASKFLOW_CONFIG (via
// [Load]) or an explicit --config path (via [LoadFile]). YAML is the
// primary format; files ending in .json or .jsonc are read as JSON with
// comments. Values in the file are merged onto [Default], so a file
// only needs the fields it changes. Without TASKFLOW_CONFIG, Load
// returns the defaults.
//
// ${HOME}, ${TASKFLOW_HOME}, and ${VAR:-default} are expanded in the
// home, database, and repository paths. No other environment variable
// overrides a config value; the REST token is read from the variable
// named by tracker.token_env so it never lives in the file.
//
// [Config.Validate] reports every problem at once, wrapped so callers
// can match task.ErrConfiguration.
package config
