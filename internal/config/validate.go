package config

import "fmt"

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}
	if c.Auth.PasswordHashCost < 4 || c.Auth.PasswordHashCost > 31 {
		return fmt.Errorf("auth.password_hash_cost must be in [4, 31] (got %d)", c.Auth.PasswordHashCost)
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be positive (got %v)", c.Auth.AccessTokenTTL)
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		return fmt.Errorf("auth.refresh_token_ttl must exceed access_token_ttl")
	}

	if c.Capsule.MaxCapsulesPerUser <= 0 {
		return fmt.Errorf("capsule.max_capsules_per_user must be > 0 (got %d)", c.Capsule.MaxCapsulesPerUser)
	}
	if c.Capsule.MaxMediaRefs <= 0 {
		return fmt.Errorf("capsule.max_media_refs must be > 0 (got %d)", c.Capsule.MaxMediaRefs)
	}
	if c.Capsule.MaxTitleLength <= 0 {
		return fmt.Errorf("capsule.max_title_length must be > 0 (got %d)", c.Capsule.MaxTitleLength)
	}
	if c.Capsule.MaxDescriptionLength <= 0 {
		return fmt.Errorf("capsule.max_description_length must be > 0 (got %d)", c.Capsule.MaxDescriptionLength)
	}

	return nil
}
