// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package security

import (
	"testing"
)

func TestNewSecureString_StoresValue(t *testing.T) {
	ss := NewSecureString("4532015112830366")
	if ss.String() != "4532015112830366" {
		t.Errorf("expected stored digits, got %q", ss.String())
	}
	if ss.Len() != 16 {
		t.Errorf("expected length 16, got %d", ss.Len())
	}
}

func TestSecureString_HeadTail(t *testing.T) {
	ss := NewSecureString("378282246310005")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"head6", ss.Head(6), "378282"},
		{"tail4", ss.Tail(4), "0005"},
		{"head beyond length", ss.Head(40), "378282246310005"},
		{"tail beyond length", ss.Tail(40), "378282246310005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestSecureString_Clear_ZeroesData(t *testing.T) {
	ss := NewSecureString("5425233430109903")
	backing := ss.data
	ss.Clear()

	if ss.String() != "" {
		t.Errorf("expected empty string after Clear, got %q", ss.String())
	}
	if !ss.Cleared() {
		t.Error("expected Cleared() to report true")
	}
	for i, b := range backing {
		if b != 0 {
			t.Fatalf("byte %d not zeroed", i)
		}
	}
}

func TestSecureString_Clear_Idempotent(t *testing.T) {
	ss := NewSecureString("data")
	ss.Clear()
	ss.Clear()
	if ss.Len() != 0 {
		t.Errorf("expected zero length, got %d", ss.Len())
	}
}

func TestSecureString_NilReceiver(t *testing.T) {
	var ss *SecureString
	if ss.String() != "" || ss.Head(6) != "" || ss.Tail(4) != "" || ss.Len() != 0 {
		t.Error("nil SecureString should behave as empty")
	}
	ss.Clear()
	if !ss.Cleared() {
		t.Error("nil SecureString should report cleared")
	}
}
