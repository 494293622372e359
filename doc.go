// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package motorhat is a container for the stepper and DC motor drivers of
// PCA9685 based motor HATs.
//
// pca9685 drives the PWM controller, stepper computes and paces the coil
// currents of a stepper motor, and motorhat binds both to the motor ports of
// the board. coilview emulates the windings on the terminal.
package motorhat
