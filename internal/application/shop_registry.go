package application

import "sync"

// ShopRegistry answers "is this shop currently installed" without a session
// store scan on every request. It is an explicit process-wide object built
// in main and passed by reference into request-handling contexts; there is
// no package-level singleton.
//
// With a non-durable session backend the registry starts empty after a
// restart and every shop re-authenticates. That is an accepted degradation,
// not a bug.
type ShopRegistry struct {
	mu    sync.RWMutex
	shops map[string]struct{}
}

// NewShopRegistry creates an empty registry.
func NewShopRegistry() *ShopRegistry {
	return &ShopRegistry{
		shops: make(map[string]struct{}),
	}
}

// MarkActive records a shop as installed. Called synchronously within the
// same logical operation as the session store write.
func (r *ShopRegistry) MarkActive(shop string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shops[shop] = struct{}{}
}

// MarkInactive removes a shop. Called synchronously with the deletion of
// the shop's last session.
func (r *ShopRegistry) MarkInactive(shop string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.shops, shop)
}

// IsActive reports whether the shop has an installed app.
func (r *ShopRegistry) IsActive(shop string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.shops[shop]
	return ok
}

// Len returns the number of active shops.
func (r *ShopRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shops)
}
