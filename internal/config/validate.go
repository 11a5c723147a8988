// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance; struct tag rules live on the
// Config types in config.go.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the loaded configuration. Struct tags cover the field-level
// rules; the semantic checks below cover relations between fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Oracle.WindowStep > c.Oracle.Window {
		return fmt.Errorf("oracle.window_step (%d) must not exceed oracle.window (%d)",
			c.Oracle.WindowStep, c.Oracle.Window)
	}

	seen := make(map[string]struct{}, len(c.Oracle.Regions))
	for _, r := range c.Oracle.Regions {
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("duplicate oracle region %q", r.Name)
		}
		seen[r.Name] = struct{}{}
	}

	return nil
}
