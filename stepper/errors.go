// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stepper

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every error caused by an invalid
	// argument.
	ErrConfiguration = errors.New("stepper: invalid configuration")

	// ErrInvalidStyle is returned for an unknown or malformed stepping style.
	ErrInvalidStyle = fmt.Errorf("%w: invalid style", ErrConfiguration)

	// ErrInvalidSetting is returned for out of range speeds, power factors,
	// step counts and directions.
	ErrInvalidSetting = fmt.Errorf("%w: invalid setting", ErrConfiguration)

	// ErrNoStyle is returned when stepping an engine before SelectStyle.
	ErrNoStyle = errors.New("stepper: no style selected")

	// ErrSpeedNotSet is returned by StepFor before SetSpeed.
	ErrSpeedNotSet = errors.New("stepper: speed not set")

	// ErrAlreadyRunning is returned by StepFor while a run is active.
	ErrAlreadyRunning = errors.New("stepper: already running")
)
