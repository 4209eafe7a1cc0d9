package config

import (
	"testing"
	"time"
)

func TestMinutesPerConfigurationDuration(t *testing.T) {
	r := Rotate{MinutesPerConfiguration: 1.5}
	if got, want := r.MinutesPerConfigurationDuration(), 90*time.Second; got != want {
		t.Errorf("duration = %v, want %v", got, want)
	}
}

func TestDefaultAutoSaveIntervalWithinSpecRange(t *testing.T) {
	if DefaultAutoSaveInterval < 60*time.Second || DefaultAutoSaveInterval > 600*time.Second {
		t.Errorf("DefaultAutoSaveInterval = %v, want between 60s and 600s", DefaultAutoSaveInterval)
	}
}
