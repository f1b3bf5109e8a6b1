package internal

import (
	"testing"

	"akiya-radar/internal/configs"
	"akiya-radar/internal/contracts"

	"github.com/google/uuid"
)

// The registry key is what job rows and dispatch events carry as source;
// it must match what each scraper stamps on its listings and pass the
// dispatch contract.
func TestScraperRegistryKeysMatchScraperNames(t *testing.T) {
	registry, err := buildScraperRegistry(configs.ScrapersConfig{})
	if err != nil {
		t.Fatalf("buildScraperRegistry: %v", err)
	}
	if len(registry) != 5 {
		t.Fatalf("registry has %d sources, want 5", len(registry))
	}

	for name, scraper := range registry {
		if scraper.Name() != name {
			t.Errorf("registry key %q != scraper name %q", name, scraper.Name())
		}

		body := []byte(`{"job_id":"` + uuid.New().String() + `","source":"` + name + `"}`)
		if err := contracts.ValidateEvent("JobDispatchEvent", "1.0.0", body); err != nil {
			t.Errorf("dispatch contract rejects source %q: %v", name, err)
		}
	}
}
