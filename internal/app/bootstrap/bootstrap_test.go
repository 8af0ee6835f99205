package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-notifier/internal/config"
	"github.com/magabrotheeeer/subscription-notifier/internal/whatsapp"
)

func TestClock(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		wantLoc  string
		wantErr  bool
	}{
		{name: "sao paulo", timezone: "America/Sao_Paulo", wantLoc: "America/Sao_Paulo"},
		{name: "empty means utc", timezone: "", wantLoc: "UTC"},
		{name: "unknown zone", timezone: "Mars/Olympus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Scheduler: config.Scheduler{Timezone: tt.timezone}}

			clk, err := Clock(cfg)
			if tt.wantErr {
				assert.ErrorContains(t, err, "invalid scheduler timezone")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLoc, clk.Location().String())
		})
	}
}

func TestSchedulerOptions(t *testing.T) {
	opts := SchedulerOptions(config.Scheduler{
		ReminderDays:      []int{7, 1},
		TesterGracePeriod: 2 * time.Hour,
		TransitionPolicy:  config.TransitionAlways,
		LockTTL:           30 * time.Minute,
	})

	assert.Equal(t, []int{7, 1}, opts.ReminderDays)
	assert.Equal(t, 2*time.Hour, opts.TesterGracePeriod)
	assert.False(t, opts.TransitionRequiresNotifyAttempt)
	assert.Equal(t, 30*time.Minute, opts.LockTTL)

	opts = SchedulerOptions(config.Scheduler{TransitionPolicy: config.TransitionAfterNotifyAttempt})
	assert.True(t, opts.TransitionRequiresNotifyAttempt)
}

func TestStaticCredentials(t *testing.T) {
	creds := StaticCredentials(config.WhatsApp{
		BaseURL:     "https://api.z-api.io",
		InstanceID:  "inst",
		Token:       "tok",
		ClientToken: "client",
		Timeout:     time.Second,
	})

	assert.Equal(t, whatsapp.Credentials{
		BaseURL:     "https://api.z-api.io",
		InstanceID:  "inst",
		Token:       "tok",
		ClientToken: "client",
	}, creds)
}
