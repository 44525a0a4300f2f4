// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package security

// SecureString holds a card number (or the text it was matched from) in a
// mutable buffer that can be zeroed once the detection step is done with it.
//
// Limitations: Go's garbage collector may move or copy memory at any time, and
// string conversions (e.g. in String()) create immutable copies that cannot be
// zeroed. Clear() zeroes the internal byte slice, which shortens the window of
// exposure, but cannot guarantee that no copies exist elsewhere in the heap.
type SecureString struct {
	data []byte
}

// NewSecureString copies s into a mutable byte slice.
func NewSecureString(s string) *SecureString {
	data := make([]byte, len(s))
	copy(data, s)
	return &SecureString{data: data}
}

// String returns the held value, or "" after Clear. Each call creates an
// immutable copy.
func (ss *SecureString) String() string {
	if ss == nil {
		return ""
	}
	return string(ss.data)
}

// Len returns the number of bytes held.
func (ss *SecureString) Len() int {
	if ss == nil {
		return 0
	}
	return len(ss.data)
}

// Head returns the first n bytes without exposing the rest.
func (ss *SecureString) Head(n int) string {
	if ss == nil {
		return ""
	}
	return string(ss.data[:min(n, len(ss.data))])
}

// Tail returns the last n bytes without exposing the rest.
func (ss *SecureString) Tail(n int) string {
	if ss == nil {
		return ""
	}
	return string(ss.data[len(ss.data)-min(n, len(ss.data)):])
}

// Cleared reports whether the buffer has been wiped.
func (ss *SecureString) Cleared() bool {
	return ss == nil || ss.data == nil
}

// Clear overwrites the internal byte slice with zeros and releases it.
func (ss *SecureString) Clear() {
	if ss == nil || ss.data == nil {
		return
	}
	for i := range ss.data {
		ss.data[i] = 0
	}
	ss.data = nil
}
