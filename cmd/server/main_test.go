package main

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dreamshare/pkg/config"
)

func providerNames(cfg *config.Config) []string {
	var names []string
	for _, p := range imageProviders(cfg, logrus.New()) {
		names = append(names, p.Name())
	}
	return names
}

func TestImageProviderChainOrder(t *testing.T) {
	t.Run("free endpoint only", func(t *testing.T) {
		assert.Equal(t, []string{"pollinations"}, providerNames(&config.Config{}))
	})

	t.Run("paid provider comes after the free one", func(t *testing.T) {
		names := providerNames(&config.Config{ImageAPIKey: "test-key"})
		require.Len(t, names, 2)
		assert.Equal(t, "pollinations", names[0])
		assert.Equal(t, "openai", names[1])
	})
}
