package service

import (
	"testing"

	"github.com/khaliqhussainn/certexam-engine/internal/model"
)

func TestClassifyKnownKinds(t *testing.T) {
	cases := []struct {
		kind model.SignalKind
		want model.Severity
	}{
		{model.SignalTabSwitch, model.SeverityHigh},
		{model.SignalForbiddenShortcut, model.SeverityHigh},
		{model.SignalVMDetected, model.SeverityHigh},
		{model.SignalTrustMismatch, model.SeverityHigh},
		{model.SignalFullscreenExit, model.SeverityMedium},
		{model.SignalNavigationAway, model.SeverityMedium},
		{model.SignalConnectivityLoss, model.SeverityMedium},
		{model.SignalInactivity, model.SeverityMedium},
		{model.SignalWindowResize, model.SeverityLow},
		{model.SignalContextMenu, model.SeverityLow},
	}

	for _, tc := range cases {
		sev, ok := Classify(tc.kind)
		if !ok {
			t.Errorf("Classify(%s): not recognized", tc.kind)
			continue
		}
		if sev != tc.want {
			t.Errorf("Classify(%s) = %s, want %s", tc.kind, sev, tc.want)
		}
	}
}

func TestClassifyUnknownKind(t *testing.T) {
	if _, ok := Classify(model.SignalKind("MIND_READING")); ok {
		t.Error("Classify accepted an unknown kind")
	}
	if _, ok := Classify(model.SignalKind("")); ok {
		t.Error("Classify accepted an empty kind")
	}
}
