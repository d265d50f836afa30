// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// validatorInstance returns the shared validator. validator.Validate caches
// struct metadata, so a single instance is reused for every validation.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the configuration's struct tags and cross-field rules.
//
// Deliberately NOT checked here: per-slot field mappings. A partially
// configured slot is a sync-time error (NotConfigured), not a load-time
// error, so operators can stage configuration incrementally.
func Validate(cfg *Config) error {
	v := validatorInstance()

	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return err
	}

	for name, token := range cfg.Singular.Apps {
		if strings.TrimSpace(name) == "" {
			return errors.New("invalid configuration: singular app with empty name")
		}
		if strings.TrimSpace(token) == "" {
			return fmt.Errorf("invalid configuration: singular app %q has an empty token", name)
		}
	}

	if cfg.TriCaster.Enabled && cfg.TriCaster.Host == "" {
		return errors.New("invalid configuration: tricaster enabled without a host")
	}

	return nil
}
