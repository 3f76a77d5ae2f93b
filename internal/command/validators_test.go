// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputValidator(t *testing.T) {
	tests := []struct {
		value any
		ok    bool
	}{
		{"text", true},
		{"json", true},
		{"yaml", true},
		{"raw", false},
		{"", false},
		{42, false},
	}

	for _, tt := range tests {
		err := OutputValidator(tt.value)
		if tt.ok {
			assert.NoError(t, err, "%v", tt.value)
		} else {
			assert.Error(t, err, "%v", tt.value)
		}
	}
}

func TestStrategyValidator(t *testing.T) {
	assert.NoError(t, StrategyValidator(""))
	assert.NoError(t, StrategyValidator("download"))
	assert.NoError(t, StrategyValidator("container"))
	assert.EqualError(t, StrategyValidator("podman"), "must be one of [download container]")
}

func TestFlagValidators_FirstErrorWins(t *testing.T) {
	err := FlagValidators("raw", OutputValidator, StrategyValidator)
	assert.EqualError(t, err, "must be one of [text json yaml]")
	assert.NoError(t, FlagValidators("json", OutputValidator))
}
