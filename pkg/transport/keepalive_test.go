package transport

import (
	"testing"
	"time"
)

func TestDefaultKeepAliveConfig(t *testing.T) {
	cfg := DefaultKeepAliveConfig()
	if cfg.KeepAlivePeriod != DefaultKeepAlivePeriod {
		t.Errorf("KeepAlivePeriod = %v", cfg.KeepAlivePeriod)
	}
	if cfg.DetectionDelay() != DefaultIdleTimeout {
		t.Errorf("DetectionDelay() = %v", cfg.DetectionDelay())
	}

	qc := cfg.quicConfig()
	if qc.MaxIdleTimeout != DefaultIdleTimeout {
		t.Errorf("MaxIdleTimeout = %v", qc.MaxIdleTimeout)
	}
	if qc.KeepAlivePeriod != DefaultKeepAlivePeriod {
		t.Errorf("quic KeepAlivePeriod = %v", qc.KeepAlivePeriod)
	}
	if qc.HandshakeIdleTimeout != DefaultHandshakeTimeout {
		t.Errorf("HandshakeIdleTimeout = %v", qc.HandshakeIdleTimeout)
	}
}

func TestKeepAliveConfigDefaults(t *testing.T) {
	tests := []struct {
		name       string
		in         KeepAliveConfig
		wantPeriod time.Duration
		wantIdle   time.Duration
	}{
		{"zero", KeepAliveConfig{}, 0, DefaultIdleTimeout},
		{"period only", KeepAliveConfig{KeepAlivePeriod: time.Second}, time.Second, DefaultIdleTimeout},
		{"period too long", KeepAliveConfig{KeepAlivePeriod: time.Minute, IdleTimeout: 10 * time.Second}, 5 * time.Second, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.withDefaults()
			if got.KeepAlivePeriod != tt.wantPeriod {
				t.Errorf("KeepAlivePeriod = %v, want %v", got.KeepAlivePeriod, tt.wantPeriod)
			}
			if got.IdleTimeout != tt.wantIdle {
				t.Errorf("IdleTimeout = %v, want %v", got.IdleTimeout, tt.wantIdle)
			}
			if got.HandshakeTimeout != DefaultHandshakeTimeout {
				t.Errorf("HandshakeTimeout = %v", got.HandshakeTimeout)
			}
		})
	}
}
