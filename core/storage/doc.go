// Package storage implements the calculation engine for an energy storage
// resource. A State is constructed once from a validated configuration and
// advanced once per epoch with Transition, which clamps the requested power
// to the device ratings, applies conversion efficiency and idle self
// discharge, and reconciles the result against the energy capacity so that
// the stored energy always stays within [0, kwh_rated].
package storage
