package application

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShopRegistryLifecycle(t *testing.T) {
	registry := NewShopRegistry()

	assert.False(t, registry.IsActive("acme.myshopify.com"), "registry starts empty")
	assert.Zero(t, registry.Len())

	registry.MarkActive("acme.myshopify.com")
	assert.True(t, registry.IsActive("acme.myshopify.com"))
	assert.Equal(t, 1, registry.Len())

	// Marking twice is idempotent
	registry.MarkActive("acme.myshopify.com")
	assert.Equal(t, 1, registry.Len())

	registry.MarkInactive("acme.myshopify.com")
	assert.False(t, registry.IsActive("acme.myshopify.com"))

	// Removing an absent shop is a no-op
	registry.MarkInactive("acme.myshopify.com")
	assert.Zero(t, registry.Len())
}

func TestShopRegistryConcurrentAccess(t *testing.T) {
	registry := NewShopRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			shop := fmt.Sprintf("shop-%d.myshopify.com", i%10)
			registry.MarkActive(shop)
			registry.IsActive(shop)
			if i%2 == 0 {
				registry.MarkInactive(shop)
			}
		}(i)
	}
	wg.Wait()
}
