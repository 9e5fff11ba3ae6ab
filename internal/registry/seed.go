// Package registry loads the heartbeat tools that are registered at startup.
package registry

import (
	"context"
	"fmt"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/statechecker/internal/domain"
	"github.com/hamed0406/statechecker/internal/repo"
)

type Tool struct {
	Name             string `yaml:"name" json:"name"`
	Description      string `yaml:"description,omitempty" json:"description,omitempty"`
	FrequencyMinutes int    `yaml:"frequency_minutes" json:"frequency_minutes"`
	ToleranceSeconds int    `yaml:"tolerance_seconds,omitempty" json:"tolerance_seconds,omitempty"`
}

func (t Tool) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&t.FrequencyMinutes, validation.Required, validation.Min(1)),
		validation.Field(&t.ToleranceSeconds, validation.Min(0)),
	)
}

type Seed struct {
	Tools []Tool `yaml:"tools" json:"tools"`
}

// Load reads and validates a seed file. Duplicate names are rejected.
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read seed file: %w", domain.ErrConfiguration, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: parse seed file: %w", domain.ErrConfiguration, err)
	}
	seen := make(map[string]bool, len(s.Tools))
	for i, t := range s.Tools {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%w: tools[%d]: %w", domain.ErrConfiguration, i, err)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("%w: tools[%d]: duplicate name %q", domain.ErrConfiguration, i, t.Name)
		}
		seen[t.Name] = true
	}
	return &s, nil
}

// Apply registers every tool. New subjects start as last seen at now, so a
// tool gets one full frequency to report in; existing subjects keep their
// lastSeenAt and flag.
func (s *Seed) Apply(ctx context.Context, reg repo.Registry, now time.Time, log *zap.Logger) error {
	for _, t := range s.Tools {
		h := domain.HeartbeatSubject{
			Name:             t.Name,
			Description:      t.Description,
			FrequencyMinutes: t.FrequencyMinutes,
			ToleranceSeconds: t.ToleranceSeconds,
			LastSeenAt:       now,
		}
		if err := reg.RegisterHeartbeat(ctx, h); err != nil {
			return fmt.Errorf("%w: register %q: %w", domain.ErrPersistence, t.Name, err)
		}
	}
	log.Info("seed_applied", zap.Int("tools", len(s.Tools)))
	return nil
}
