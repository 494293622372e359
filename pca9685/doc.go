// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pca9685 drives the NXP PCA9685 16-channel, 12-bit PWM controller
// over I²C.
//
// Each channel is programmed with an on-count and an off-count in [0, 4095].
// Fully on and fully off are separate register states (bit 4 of the ON_H and
// OFF_H bytes) rather than pulse widths of 4096 or 0.
//
// Channels are owned exclusively: a caller acquires a channel before
// programming it and releases it when done. Operations on a channel that has
// not been acquired fail without touching the bus.
//
// # Datasheet
//
// https://www.nxp.com/docs/en/data-sheet/PCA9685.pdf
package pca9685
