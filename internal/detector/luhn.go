// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

const (
	// MinDigits and MaxDigits bound the length of a card number.
	MinDigits = 13
	MaxDigits = 19
)

// IsValidChecksum reports whether digits is a 13 to 19 digit string that
// passes the Luhn (mod 10) check. Separators must already be stripped; any
// non-digit character makes the result false.
func IsValidChecksum(digits string) bool {
	if len(digits) < MinDigits || len(digits) > MaxDigits {
		return false
	}

	sum := 0
	double := false

	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		digit := int(c - '0')

		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}

		sum += digit
		double = !double
	}

	return sum%10 == 0
}
