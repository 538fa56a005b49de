package variant

import (
	"context"
	"strconv"
	"strings"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
)

const DefaultSKUMaxAttempts = 1000

// NormalizeSKU turns a free-form hint into an uppercase token of letters, digits and single dashes.
func NormalizeSKU(hint string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToUpper(strings.TrimSpace(hint)) {
		switch {
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// BaseSKU picks the base candidate for a row: the caller hint, else "{productID}-VAR".
func BaseSKU(productID string, hint *string) string {
	if hint != nil {
		if base := NormalizeSKU(*hint); base != "" {
			return base
		}
	}
	if base := NormalizeSKU(productID + "-VAR"); base != "" {
		return base
	}
	return "VAR"
}

// SKUFitsBase reports whether sku is base itself or one of its base-N successors.
func SKUFitsBase(sku, base string) bool {
	if sku == base {
		return true
	}
	suffix, ok := strings.CutPrefix(sku, base+"-")
	if !ok {
		return false
	}
	n, err := strconv.Atoi(suffix)
	return err == nil && n >= 2
}

// ClaimedSKUs accumulates the skus taken so far by one reconciliation batch.
type ClaimedSKUs map[string]struct{}

func (c ClaimedSKUs) Has(sku string) bool {
	_, ok := c[sku]
	return ok
}

func (c ClaimedSKUs) Claim(sku string) {
	c[sku] = struct{}{}
}

// SKUExistsFunc reports whether sku is stored on any variant other than excludeID.
type SKUExistsFunc func(ctx context.Context, sku, excludeID string) (bool, error)

type SKUUniquifier struct {
	exists      SKUExistsFunc
	maxAttempts int
}

func NewSKUUniquifier(exists SKUExistsFunc, maxAttempts int) *SKUUniquifier {
	if maxAttempts <= 0 {
		maxAttempts = DefaultSKUMaxAttempts
	}
	return &SKUUniquifier{exists: exists, maxAttempts: maxAttempts}
}

// Candidate returns the n-th probe for base: base, base-2, base-3, ...
func Candidate(base string, n int) string {
	if n <= 1 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// Allocate probes candidates in order against the batch accumulator and the store,
// claims the first free one and returns it.
func (u *SKUUniquifier) Allocate(ctx context.Context, base string, claimed ClaimedSKUs, excludeID string) (string, error) {
	for n := 1; n <= u.maxAttempts; n++ {
		candidate := Candidate(base, n)
		if claimed.Has(candidate) {
			continue
		}
		taken, err := u.exists(ctx, candidate, excludeID)
		if err != nil {
			return "", apperror.Storage("check sku", err)
		}
		if taken {
			continue
		}
		claimed.Claim(candidate)
		return candidate, nil
	}
	return "", apperror.ResourceExhausted("no free sku for base %q after %d attempts", base, u.maxAttempts)
}
