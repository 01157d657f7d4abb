package config

import (
	"fmt"

	supa "github.com/supabase-community/supabase-go"
)

// NewSupabase builds the Supabase client used for both the project
// document store (PostgREST) and the media blob store (Storage). The
// client is created once at boot and handed to constructors; nothing else
// reads it ambiently.
func NewSupabase(cfg Config) (*supa.Client, error) {
	if cfg.SupabaseKey == "" {
		return nil, fmt.Errorf("SUPABASE_SERVICE_KEY must be set")
	}

	client, err := supa.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize Supabase client: %w", err)
	}
	return client, nil
}
