package events_test

import (
	"testing"

	"github.com/jrsteele09/go-admin-client/events"
	"github.com/stretchr/testify/require"
)

func TestLogoutDeliveredUntilDetached(t *testing.T) {
	bus := events.New()

	var got []events.LogoutEvent
	detach, err := bus.OnLogout(func(e events.LogoutEvent) {
		got = append(got, e)
	})
	require.NoError(t, err)

	bus.PublishLogout(events.LogoutEvent{Reason: events.ReasonInactivity})
	require.Len(t, got, 1)
	require.Equal(t, events.ReasonInactivity, got[0].Reason)
	require.False(t, got[0].At.IsZero())

	detach()
	bus.PublishLogout(events.LogoutEvent{Reason: events.ReasonUserLogout})
	require.Len(t, got, 1)
}

func TestTokenChangedCarriesToken(t *testing.T) {
	bus := events.New()

	tokens := make(chan string, 2)
	_, err := bus.OnTokenChanged(func(e events.TokenChangedEvent) {
		tokens <- e.Token
	})
	require.NoError(t, err)

	bus.PublishTokenChanged(events.TokenChangedEvent{Token: "abc"})
	bus.PublishTokenChanged(events.TokenChangedEvent{})

	require.Equal(t, "abc", <-tokens)
	require.Equal(t, "", <-tokens)
}

func TestNilBusIsSilent(t *testing.T) {
	var bus *events.Bus
	require.NotPanics(t, func() {
		bus.PublishLogout(events.LogoutEvent{Reason: events.ReasonUserLogout})
		bus.PublishTokenChanged(events.TokenChangedEvent{})
	})
}
