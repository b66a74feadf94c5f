package snippets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDistanceToNow(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)

	for _, tc := range []struct {
		ago  time.Duration
		want string
	}{
		{0, "just now"},
		{59 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{45 * time.Minute, "45 minutes ago"},
		{time.Hour, "1 hour ago"},
		{23 * time.Hour, "23 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{30 * 24 * time.Hour, "30 days ago"},
	} {
		assert.Equal(t, tc.want, FormatDistanceToNow(now.Add(-tc.ago), now), tc.ago)
	}

	assert.Equal(t, "01 May", FormatDistanceToNow(time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local), now))
	assert.Equal(t, "01 Mar 2023", FormatDistanceToNow(time.Date(2023, 3, 1, 12, 0, 0, 0, time.Local), now))
}
