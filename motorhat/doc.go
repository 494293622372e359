// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package motorhat drives the motor ports of a PCA9685 based motor HAT,
// such as the Adafruit DC & Stepper Motor HAT.
//
// Each of the four ports M1..M4 is an H-bridge controlled by three PCA9685
// channels: one PWM channel setting the current and two direction inputs. A
// DC motor uses one port; a stepper motor uses two, one per winding.
//
// # Product page
//
// https://www.adafruit.com/product/2348
package motorhat
