// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pca9685

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every error caused by an invalid
	// argument, such as a channel index out of range.
	ErrConfiguration = errors.New("pca9685: invalid configuration")

	// ErrInvalidChannel is returned for a channel index outside [0, 15].
	ErrInvalidChannel = fmt.Errorf("%w: channel out of range", ErrConfiguration)

	// ErrInvalidDuty is returned for a duty cycle outside [0, 1].
	ErrInvalidDuty = fmt.Errorf("%w: duty cycle out of range", ErrConfiguration)

	// ErrChannelBusy is returned when acquiring a channel that is already
	// owned.
	ErrChannelBusy = errors.New("pca9685: channel busy")

	// ErrChannelNotAcquired is returned when operating on a channel that has
	// not been acquired.
	ErrChannelNotAcquired = errors.New("pca9685: channel not acquired")

	// ErrDeviceNotFound is returned by New and Init when the device does not
	// answer on the bus. It wraps the bus error.
	ErrDeviceNotFound = errors.New("pca9685: device not found")

	// ErrNotInitialized is returned when programming a device before Init
	// succeeded.
	ErrNotInitialized = errors.New("pca9685: device not initialized")
)
