// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package motorhat

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every invalid argument error of this
	// package.
	ErrConfiguration = errors.New("motorhat: invalid configuration")

	// ErrInvalidPort is returned for a port other than M1..M4.
	ErrInvalidPort = fmt.Errorf("%w: invalid port", ErrConfiguration)

	// ErrDuplicatePort is returned when both windings of a stepper are on
	// the same port.
	ErrDuplicatePort = fmt.Errorf("%w: duplicate port", ErrConfiguration)

	// ErrInvalidThrottle is returned for a DC motor throttle outside
	// [-1, 1].
	ErrInvalidThrottle = fmt.Errorf("%w: throttle out of range", ErrConfiguration)

	// ErrClosed is returned when using a motor after Close.
	ErrClosed = errors.New("motorhat: motor closed")
)
