//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package message

import "time"

// Statistics summarises the state history of a message.
type Statistics struct {
	// TotalDuration is the time from the first transition to now.
	TotalDuration time.Duration
	// RunningDuration is the total time spent in RUNNING.
	RunningDuration time.Duration
	// WaitingDuration is the total time spent in WAITING.
	WaitingDuration time.Duration
	// TransitionCount is the number of recorded transitions.
	TransitionCount int
	// FailureReason is the reason of the last transition into FAILED when
	// the message is currently FAILED, empty otherwise.
	FailureReason string
}

// Statistics derives execution statistics from the state history.
func (m *Message) Statistics() Statistics {
	return m.statisticsAt(time.Now().UTC())
}

func (m *Message) statisticsAt(now time.Time) Statistics {
	stats := Statistics{TransitionCount: len(m.StateHistory)}
	if len(m.StateHistory) == 0 {
		return stats
	}
	stats.TotalDuration = now.Sub(m.StateHistory[0].Timestamp)
	for i, tr := range m.StateHistory {
		end := now
		if i+1 < len(m.StateHistory) {
			end = m.StateHistory[i+1].Timestamp
		}
		switch tr.To {
		case StateRunning:
			stats.RunningDuration += end.Sub(tr.Timestamp)
		case StateWaiting:
			stats.WaitingDuration += end.Sub(tr.Timestamp)
		}
	}
	if m.State == StateFailed {
		for i := len(m.StateHistory) - 1; i >= 0; i-- {
			if m.StateHistory[i].To == StateFailed {
				stats.FailureReason = m.StateHistory[i].Reason
				break
			}
		}
	}
	return stats
}
