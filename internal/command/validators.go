// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"
)

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// GlobalFlagsValidator checks combinations that single-flag validators cannot
// see.
func GlobalFlagsValidator(ctx context.Context, c *cli.Command) error {
	if c.Bool("titles") && c.String("output") != "text" {
		return errors.New("--titles only applies to text output")
	}
	return nil
}

func OutputValidator(value any) error {
	return oneOf(value, []string{"text", "json", "yaml"})
}

func StrategyValidator(value any) error {
	// Empty defers to the layer section of the config file.
	if value == "" {
		return nil
	}
	return oneOf(value, []string{"download", "container"})
}

func oneOf(value any, valid []string) error {
	s, ok := value.(string)
	if !ok || !slices.Contains(valid, s) {
		return fmt.Errorf("must be one of %v", valid)
	}
	return nil
}
