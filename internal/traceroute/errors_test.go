// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestIsPermissionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"operation not permitted", unix.EPERM, true},
		{"permission denied", unix.EACCES, true},
		{"wrapped permission denied", fmt.Errorf("socket: %w", unix.EACCES), true},
		{"protocol not supported", unix.EPROTONOSUPPORT, false},
		{"some other error", errors.New("foo"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isPermissionError(tt.err)
			assert.Equal(t, tt.want, got, "isPermissionError(%v)", tt.err)
		})
	}
}
