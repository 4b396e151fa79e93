// ABOUTME: Shared code for all modes (CLI, TUI, watch)
// ABOUTME: Provides the opt-in debug log and the observer that mirrors engine events into it

package main

import (
	"fmt"
	"log"
	"os"

	"m3u-dump/engine"
)

var debugLog *log.Logger

// SetupDebugLog initializes debug logging
func SetupDebugLog(filename string) error {
	if err := InitDebugLog(filename); err != nil {
		return fmt.Errorf("failed to initialize debug log: %w", err)
	}

	if isTTY(os.Stdout) {
		fmt.Printf("Debug logging enabled: %s\n", filename)
	}

	return nil
}

// InitDebugLog initializes debug logging
func InitDebugLog(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugLog = log.New(f, "", log.Ltime|log.Lmicroseconds)

	return nil
}

// debugf logs debug messages if enabled
func debugf(format string, args ...interface{}) {
	if debugLog != nil {
		debugLog.Printf(format, args...)
	}
}

// debugObserver writes every engine event to the debug log
type debugObserver struct{}

func (debugObserver) OnEvent(ev engine.Event) {
	if debugLog == nil {
		return
	}

	if ev.Err != nil {
		debugf("[ENGINE] %s: %s (err=%v)", ev.Kind, ev.String(), ev.Err)

		return
	}

	debugf("[ENGINE] %s: %s", ev.Kind, ev.String())
}

// truncate shortens string to maxLen, adding "..." if needed
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	if maxLen <= 3 {
		return s[:maxLen]
	}

	return s[:maxLen-3] + "..."
}
