// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package websocket

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned for a lifecycle change the state
// machine does not allow.
var ErrInvalidTransition = errors.New("websocket: invalid session state transition")

// State is a monitoring session lifecycle state.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateSubscribed
	StateActive
	StateIdle
	StateClosing
	StateClosed
)

var stateNames = [...]string{
	StateConnecting:    "connecting",
	StateAuthenticated: "authenticated",
	StateSubscribed:    "subscribed",
	StateActive:        "active",
	StateIdle:          "idle",
	StateClosing:       "closing",
	StateClosed:        "closed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int32(s))
	}
	return stateNames[s]
}

// Every state except Closed may move to Closing.
var transitions = map[State][]State{
	StateConnecting:    {StateAuthenticated, StateClosing},
	StateAuthenticated: {StateSubscribed, StateClosing},
	StateSubscribed:    {StateActive, StateIdle, StateClosing},
	StateActive:        {StateIdle, StateClosing},
	StateIdle:          {StateActive, StateClosing},
	StateClosing:       {StateClosed},
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to State) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to)
	}
	return nil
}
