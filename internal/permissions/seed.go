package permissions

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gnhindia1-ui/collab/internal/auth"
)

type defaultsFile struct {
	Roles []struct {
		Role   auth.Role `yaml:"role"`
		Locked []string  `yaml:"locked"`
	} `yaml:"roles"`
}

// SeedFromFile locks the columns listed per role in a YAML file. A role that
// already has overrides is left alone, so edits made later through the API
// survive restarts.
func (s *Store) SeedFromFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var df defaultsFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	seeded := 0
	for _, r := range df.Roles {
		if r.Role != auth.RoleAdmin || len(r.Locked) == 0 {
			continue
		}
		has, err := s.HasOverrides(ctx, r.Role)
		if err != nil {
			return seeded, err
		}
		if has {
			continue
		}
		perms := make([]Permission, 0, len(r.Locked))
		seen := map[string]bool{}
		for _, c := range r.Locked {
			c = strings.ToLower(strings.TrimSpace(c))
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			perms = append(perms, Permission{ColumnName: c, IsEditable: false})
		}
		if err := s.Replace(ctx, r.Role, perms); err != nil {
			return seeded, err
		}
		seeded++
	}
	return seeded, nil
}
