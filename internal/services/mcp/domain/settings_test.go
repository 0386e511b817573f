package domain

import (
	"context"
	"testing"

	apperrors "github.com/louisbranch/trapmacros/internal/platform/errors"
	"github.com/louisbranch/trapmacros/internal/services/traps/settings"
)

type fakeSettingsAPI struct {
	flags settings.Flags
}

func (f fakeSettingsAPI) SetFlag(ctx context.Context, key, value string) error {
	return f.flags.Set(ctx, key, value)
}

func (f fakeSettingsAPI) Flags(ctx context.Context) (settings.Values, error) {
	return f.flags.Load(ctx)
}

func TestSettingsSetHandler(t *testing.T) {
	tests := []struct {
		name     string
		input    SettingsSetInput
		wantCode apperrors.Code
		check    func(settings.Values) bool
	}{
		{
			name:  "toggle proximity",
			input: SettingsSetInput{Key: settings.KeyEnableProximityTriggers, Value: "true"},
			check: func(v settings.Values) bool { return v.EnableProximityTriggers },
		},
		{
			name:  "distance clamped",
			input: SettingsSetInput{Key: settings.KeyProximityDistance, Value: "9"},
			check: func(v settings.Values) bool { return v.ProximityDistance == settings.MaxProximityDistance },
		},
		{
			name:     "unknown key",
			input:    SettingsSetInput{Key: "volume", Value: "11"},
			wantCode: apperrors.CodeSettingsInvalidValue,
		},
		{
			name:     "bad toggle",
			input:    SettingsSetInput{Key: settings.KeyAutoRevealTraps, Value: "maybe"},
			wantCode: apperrors.CodeSettingsInvalidValue,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := fakeSettingsAPI{flags: settings.Flags{Store: settings.NewMemory()}}
			_, values, err := SettingsSetHandler(api)(context.Background(), nil, tt.input)
			if tt.wantCode != "" {
				if apperrors.CodeOf(err) != tt.wantCode {
					t.Fatalf("code = %s, want %s (err %v)", apperrors.CodeOf(err), tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.check(values) {
				t.Fatalf("values = %+v", values)
			}
		})
	}
}
