package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate validates the configuration using struct tags plus custom rules
// that tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	agents := make(map[string]bool, len(cfg.Organization.Agents))
	for i, id := range cfg.Organization.Agents {
		if id == "" {
			return fmt.Errorf("organization.agents[%d]: empty agent id", i)
		}
		if agents[id] {
			return fmt.Errorf("organization.agents[%d]: duplicate agent id %q", i, id)
		}
		agents[id] = true
	}

	teams := make(map[string]bool, len(cfg.Organization.Teams))
	for i, team := range cfg.Organization.Teams {
		if teams[team.ID] {
			return fmt.Errorf("organization.teams[%d]: duplicate team id %q", i, team.ID)
		}
		teams[team.ID] = true

		for _, member := range team.Members {
			if !agents[member] {
				return fmt.Errorf("organization.teams[%d]: member %q is not a declared agent", i, member)
			}
		}
	}

	if lib := cfg.Organization.LibraryTeam; lib != "" && !teams[lib] {
		return fmt.Errorf("organization.library_team: %q is not a declared team", lib)
	}

	if cfg.Storage.Type == "s3" && cfg.Storage.S3 == nil {
		return fmt.Errorf("storage.s3: section is required when storage.type is s3")
	}
	if cfg.Audit.Type == "badger" && cfg.Audit.Badger == nil {
		return fmt.Errorf("audit.badger: section is required when audit.type is badger")
	}

	return nil
}

// formatValidationError flattens validator errors into one readable line
// per failing field.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msg := "invalid configuration:"
	for _, fe := range verrs {
		msg += fmt.Sprintf("\n  %s: failed %q validation", fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("%s", msg)
}
