// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package filters selects rows of a text report.
//
// Filters are key-operator-target expressions joined by a delimiter (default
// comma, overridden with CFNPACK_FILTER_DELIM). Keys name report columns.
//
// Operators:
//
//   - = : exact match (numeric for numbers and durations)
//   - ^ : prefix match
//   - ~ : case-insensitive match
//   - < : less than
//   - > : greater than
//   - @ : contains substring or member
//   - / : regex match
//
// Every operator can be negated with a leading !. A bare key keeps rows that
// have a value in that column.
//
// Examples:
//
//   - "status=ran" : steps that ran
//   - "step^layer" : steps whose label starts with "layer"
//   - "entries>100" : artifacts with more than 100 entries
//   - "duration>30s" : steps slower than thirty seconds
//   - "key!^1/" : publish changes outside the snapshot tree
package filters
