package domain

import "regexp"

// shopDomainPattern matches the platform's *.myshopify.com store domains.
// Anything else is rejected before the OAuth flow starts.
var shopDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*\.myshopify\.com$`)

// ValidShopDomain reports whether shop is a well-formed store domain.
func ValidShopDomain(shop string) bool {
	return shopDomainPattern.MatchString(shop)
}
