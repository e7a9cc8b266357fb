package phone

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrepare(t *testing.T) {
	intl := Rules{International: true}
	require.Equal(t, "+4670123", intl.Prepare("4670123"))
	require.Equal(t, "+4670123", intl.Prepare(" +4670123 "))
	require.Equal(t, "", intl.Prepare(""))

	local := Rules{}
	require.Equal(t, "070123", local.Prepare("070123"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		rules Rules
		in    string
		want  error
	}{
		{"letters", Rules{}, "12ab", ErrInvalidNumber},
		{"empty", Rules{}, "", ErrInvalidNumber},
		{"bare plus", Rules{}, "+", ErrInvalidNumber},
		{"international without plus", Rules{International: true}, "4670123", ErrMissingCountryCode},
		{"international ok", Rules{International: true, MaxLength: 3}, "+4670123", nil},
		{"too long", Rules{MaxLength: 5}, "123456", ErrTooLong},
		{"too short", Rules{MinLength: 5}, "1234", ErrTooShort},
		{"local ok", Rules{MinLength: 3, MaxLength: 10}, "0701234", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rules.Validate(tc.in)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
		})
	}
}
