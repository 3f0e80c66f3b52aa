package qq

import (
	"errors"
	"testing"

	"github.com/flemzord/qqrelay/internal/channel"
)

func TestParseTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Target
	}{
		{"qq:group:123", Target{TargetGroup, "123"}},
		{"QQ:GROUP:123", Target{TargetGroup, "123"}},
		{"group:456", Target{TargetGroup, "456"}},
		{"qq:user:789", Target{TargetPrivate, "789"}},
		{"user:789", Target{TargetPrivate, "789"}},
		{"qq:42", Target{TargetPrivate, "42"}},
		{"  42  ", Target{TargetPrivate, "42"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTarget(tt.in)
			if err != nil {
				t.Fatalf("ParseTarget(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseTarget(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTarget_Invalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "qq:", "qq:group:", "group: ", "user:"} {
		if _, err := ParseTarget(in); !errors.Is(err, channel.ErrInvalidTarget) {
			t.Errorf("ParseTarget(%q) err = %v, want ErrInvalidTarget", in, err)
		}
	}
}

func TestTarget_StringRoundTrip(t *testing.T) {
	t.Parallel()

	for _, target := range []Target{{TargetGroup, "1"}, {TargetPrivate, "2"}} {
		got, err := ParseTarget(target.String())
		if err != nil {
			t.Fatal(err)
		}
		if got != target {
			t.Errorf("ParseTarget(%q) = %+v", target.String(), got)
		}
	}
}
