package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func solidFrame(value float64) gocv.Mat {
	m := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	if value > 0 {
		m.SetTo(gocv.NewScalar(value, value, value, 0))
	}
	return m
}

func TestMotionDetector_Detect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	tests := []struct {
		name       string
		threshold  float64
		first      float64
		second     float64
		wantMotion bool
		minPercent float64
	}{
		{"identical frames", 1.0, 0, 0, false, 0},
		{"black to white", 1.0, 0, 255, true, 50},
		{"tiny intensity drift", 1.0, 100, 110, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.threshold)
			defer md.Close()

			a, b := solidFrame(tt.first), solidFrame(tt.second)
			defer a.Close()
			defer b.Close()

			if detected, pct := md.Detect(&a); detected || pct != 0 {
				t.Fatalf("baseline frame reported motion: %v %.2f", detected, pct)
			}

			detected, pct := md.Detect(&b)
			if detected != tt.wantMotion {
				t.Errorf("Detect() = %v (%.2f%%), want %v", detected, pct, tt.wantMotion)
			}
			if pct < tt.minPercent {
				t.Errorf("change = %.2f%%, want at least %.2f%%", pct, tt.minPercent)
			}
		})
	}
}

func TestMotionDetector_NilAndEmpty(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	if detected, _ := md.Detect(nil); detected {
		t.Error("nil frame must not report motion")
	}

	empty := gocv.NewMat()
	defer empty.Close()
	if detected, _ := md.Detect(&empty); detected {
		t.Error("empty frame must not report motion")
	}
}

func TestMotionDetector_ResetDropsBaseline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	black, white := solidFrame(0), solidFrame(255)
	defer black.Close()
	defer white.Close()

	md.Detect(&black)
	md.Reset()

	if md.initialized {
		t.Error("detector should not be initialized after Reset")
	}
	if detected, _ := md.Detect(&white); detected {
		t.Error("first frame after Reset must only set the baseline")
	}
}

func TestMotionDetector_SetThreshold(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	for _, tc := range []struct{ set, want float64 }{{5, 5}, {0.5, 0.5}, {0, 0.5}, {-1, 0.5}} {
		md.SetThreshold(tc.set)
		if md.threshold != tc.want {
			t.Errorf("SetThreshold(%v): threshold = %v, want %v", tc.set, md.threshold, tc.want)
		}
	}
}

func TestMotionDetector_CloseTwice(t *testing.T) {
	md := NewMotionDetector(1.0)
	md.Close()
	md.Close()
}
