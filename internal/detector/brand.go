// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import "regexp"

// Brand is the card issuer network a number belongs to.
type Brand string

const (
	BrandVisa       Brand = "Visa"
	BrandMastercard Brand = "Mastercard"
	BrandAmex       Brand = "Amex"
	BrandDiscover   Brand = "Discover"
	BrandDiners     Brand = "Diners"
	BrandJCB        Brand = "JCB"
	BrandUnknown    Brand = "Unknown"
)

// brandRule pairs an issuer range predicate with the brand it identifies.
type brandRule struct {
	brand   Brand
	pattern *regexp.Regexp
}

// brandRules is evaluated top to bottom; the first match wins.
var brandRules = []brandRule{
	{BrandVisa, regexp.MustCompile(`^4[0-9]{12}(?:[0-9]{3})?$`)},
	{BrandMastercard, regexp.MustCompile(`^5[1-5][0-9]{14}$|^2[2-7][0-9]{14}$`)},
	{BrandAmex, regexp.MustCompile(`^3[47][0-9]{13}$`)},
	{BrandDiscover, regexp.MustCompile(`^6(?:011|5[0-9]{2})[0-9]{12}$`)},
	{BrandDiners, regexp.MustCompile(`^3(?:0[0-5]|[68][0-9])[0-9]{11}$`)},
	{BrandJCB, regexp.MustCompile(`^(?:2131|1800|35[0-9]{3})[0-9]{11}$`)},
}

// Classify maps a checksum-valid digit string to its issuer brand.
// BrandUnknown is a normal result for numbers outside every known range.
func Classify(digits string) Brand {
	for _, rule := range brandRules {
		if rule.pattern.MatchString(digits) {
			return rule.brand
		}
	}
	return BrandUnknown
}

// Brands lists every brand Classify can return, in rule order.
func Brands() []Brand {
	brands := make([]Brand, 0, len(brandRules)+1)
	for _, rule := range brandRules {
		brands = append(brands, rule.brand)
	}
	return append(brands, BrandUnknown)
}
